// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package runner provides the command execution capability used by the
// service discovery and control code. Everything that would touch a real
// service manager goes through the CommandRunner interface so that it can
// be replaced by a recording fake in tests.
package runner

import (
	"github.com/juju/utils/v4/exec"
)

// CommandRunner allows running commands on the underlying system.
type CommandRunner interface {
	RunCommands(run exec.RunParams) (*exec.ExecResponse, error)
}

type defaultRunner struct{}

// RunCommands executes the Commands specified in the RunParams,
// passing the commands through to the system shell and collecting
// stdout and stderr. A non-zero return code is collected as the code
// for the response and does not classify as an error.
func (defaultRunner) RunCommands(run exec.RunParams) (*exec.ExecResponse, error) {
	return exec.RunCommands(run)
}

// New returns a CommandRunner that executes commands on the local host.
func New() CommandRunner {
	return defaultRunner{}
}
