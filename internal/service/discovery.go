// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service

import (
	"fmt"
	"os"
	"runtime"

	"github.com/juju/errors"
	"github.com/juju/utils/v4/exec"

	"github.com/juju/pgreset/internal/runner"
)

// windowsServiceCandidates are the service names a stock PostgreSQL
// installer registers with the Windows SCM, probed in order.
var windowsServiceCandidates = []string{
	"postgresql-x64-14",
	"postgresql-x64-15",
	"postgresql-x64-16",
	"PostgreSQL",
}

// dataDirCandidates lists the known cluster data directory locations
// per platform, probed in order.
var dataDirCandidates = map[Platform][]string{
	Windows: {
		`C:\Program Files\PostgreSQL\14\data`,
		`C:\Program Files\PostgreSQL\15\data`,
		`C:\Program Files\PostgreSQL\16\data`,
		`C:\PostgreSQL\data`,
	},
	Linux: {
		"/var/lib/postgresql/data",
		"/var/lib/pgsql/data",
		"/usr/local/var/postgres",
	},
	Darwin: {
		"/usr/local/var/postgres",
		"/opt/homebrew/var/postgres",
		"/Library/PostgreSQL/14/data",
		"/Library/PostgreSQL/15/data",
	},
}

// Locator resolves the platform-specific service name and data
// directory for the local PostgreSQL installation.
type Locator struct {
	platform  Platform
	runner    runner.CommandRunner
	dirExists func(path string) bool
}

// NewLocator returns a Locator for the host platform.
func NewLocator(run runner.CommandRunner) *Locator {
	return newLocator(Platform(runtime.GOOS), run)
}

func newLocator(platform Platform, run runner.CommandRunner) *Locator {
	return &Locator{
		platform: platform,
		runner:   run,
		dirExists: func(path string) bool {
			info, err := os.Stat(path)
			return err == nil && info.IsDir()
		},
	}
}

// Locate probes the host for a PostgreSQL installation and returns its
// descriptor. Absence of every candidate is a normal, reportable
// condition and comes back as a NotFound error, never a panic.
func (l *Locator) Locate() (Descriptor, error) {
	name, err := l.serviceName()
	if err != nil {
		return Descriptor{}, errors.Trace(err)
	}
	dataDir, err := l.dataDir()
	if err != nil {
		return Descriptor{}, errors.Trace(err)
	}
	svc := Descriptor{
		Platform: l.platform,
		Name:     name,
		DataDir:  dataDir,
	}
	logger.Debugf("located postgresql service %q with data directory %q", svc.Name, svc.DataDir)
	return svc, nil
}

func (l *Locator) serviceName() (string, error) {
	switch l.platform {
	case Windows:
		for _, candidate := range windowsServiceCandidates {
			resp, err := l.runner.RunCommands(exec.RunParams{
				Commands: fmt.Sprintf(`sc query "%s"`, candidate),
			})
			if err != nil {
				return "", errors.Annotatef(err, "querying service %q", candidate)
			}
			if resp.Code == 0 {
				return candidate, nil
			}
		}
		return "", errors.NotFoundf("postgresql service")
	case Linux, Darwin:
		return "postgresql", nil
	}
	return "", errors.NotFoundf("service manager for platform %q", l.platform)
}

func (l *Locator) dataDir() (string, error) {
	for _, candidate := range dataDirCandidates[l.platform] {
		if l.dirExists(candidate) {
			return candidate, nil
		}
	}
	return "", errors.NotFoundf("postgresql data directory")
}
