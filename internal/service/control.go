// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service

import (
	"fmt"
	"strings"

	"github.com/juju/utils/v4/exec"
	"github.com/kballard/go-shellquote"

	"github.com/juju/pgreset/internal/runner"
)

// Controller starts and stops a service through the platform's service
// manager. Neither action returns a Go error for control failures; the
// caller inspects Result.OK and decides how severe the failure is.
type Controller struct {
	runner runner.CommandRunner
}

// NewController returns a Controller executing control commands with
// the given runner.
func NewController(run runner.CommandRunner) *Controller {
	return &Controller{runner: run}
}

// Start asks the service manager to start the service. Starting an
// already-running service reports success.
func (c *Controller) Start(svc Descriptor) Result {
	return c.control(svc, "start")
}

// Stop asks the service manager to stop the service. Stopping an
// already-stopped service reports success.
func (c *Controller) Stop(svc Descriptor) Result {
	return c.control(svc, "stop")
}

func (c *Controller) control(svc Descriptor, action string) Result {
	cmdline := controlCommand(svc, action)
	logger.Debugf("%s %q: %s", action, svc.Name, cmdline)

	resp, err := c.runner.RunCommands(exec.RunParams{Commands: cmdline})
	if err != nil {
		return Result{OK: false, Detail: err.Error()}
	}
	detail := strings.TrimSpace(string(resp.Stderr))
	if detail == "" {
		detail = strings.TrimSpace(string(resp.Stdout))
	}
	if resp.Code == 0 {
		return Result{OK: true, Detail: detail}
	}
	if alreadyInState(svc.Platform, action, detail) {
		logger.Debugf("service %q already %sed", svc.Name, action)
		return Result{OK: true, Detail: detail}
	}
	return Result{OK: false, Detail: detail}
}

func controlCommand(svc Descriptor, action string) string {
	switch svc.Platform {
	case Windows:
		return fmt.Sprintf(`net %s "%s"`, action, svc.Name)
	case Darwin:
		return shellquote.Join("brew", "services", action, svc.Name)
	default:
		return shellquote.Join("sudo", "systemctl", action, svc.Name)
	}
}

// alreadyInState recognises the service manager's complaint that the
// requested state already holds, which the workflow treats as success.
// systemctl start/stop are idempotent on their own and never get here.
func alreadyInState(platform Platform, action, detail string) bool {
	switch platform {
	case Windows:
		if action == "stop" {
			return strings.Contains(detail, "is not started")
		}
		return strings.Contains(detail, "already been started")
	case Darwin:
		if action == "stop" {
			return strings.Contains(detail, "is not started")
		}
		return strings.Contains(detail, "already started")
	}
	return false
}
