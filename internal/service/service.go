// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package service locates the PostgreSQL service on the local host and
// drives it through the platform's service manager. All interaction with
// the host happens through a runner.CommandRunner so the package is fully
// exercisable in tests without touching a real init system.
package service

import (
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("pgreset.service")

// Platform identifies the family of service manager in use on the host.
type Platform string

const (
	Windows Platform = "windows"
	Linux   Platform = "linux"
	Darwin  Platform = "darwin"
)

// Descriptor identifies the PostgreSQL installation being operated on.
// It is resolved once per run by a Locator and read-only thereafter.
type Descriptor struct {
	// Platform is the host platform the service was discovered on.
	Platform Platform

	// Name is the service-manager identifier for the service, e.g.
	// "postgresql-x64-16" under the Windows SCM or "postgresql" under
	// systemd.
	Name string

	// DataDir is the cluster data directory holding pg_hba.conf.
	DataDir string
}

// Result reports the outcome of a single control action. Control
// failures are communicated through OK rather than an error return:
// whether a failure is tolerable depends on where the caller is in its
// sequence, not on the action itself.
type Result struct {
	// OK reports whether the action left the service in the requested
	// state. Asking a stopped service to stop, or a running service to
	// start, counts as success.
	OK bool

	// Detail carries the service manager's output for logging, most
	// useful when OK is false.
	Detail string
}
