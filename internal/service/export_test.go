// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service

import (
	"github.com/juju/pgreset/internal/runner"
)

func NewTestLocator(platform Platform, run runner.CommandRunner, dirExists func(string) bool) *Locator {
	l := newLocator(platform, run)
	if dirExists != nil {
		l.dirExists = dirExists
	}
	return l
}

var ControlCommand = controlCommand
