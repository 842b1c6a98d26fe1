// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package workflow orchestrates the credential reset: relax the
// authentication policy, restart, change the credential, secure the
// policy, restart, verify. Every mutation is preceded by a verified
// backup, and any failure while the relaxed policy might be live rolls
// the configuration back. The run is strictly sequential; each step's
// precondition is the side effect of the one before it.
package workflow

import (
	"context"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/juju/pgreset/internal/hba"
	"github.com/juju/pgreset/internal/pgadmin"
	"github.com/juju/pgreset/internal/service"
)

var logger = loggo.GetLogger("pgreset.workflow")

// ServiceLocator resolves the installation being operated on.
type ServiceLocator interface {
	Locate() (service.Descriptor, error)
}

// ServiceController starts and stops the service.
type ServiceController interface {
	Start(service.Descriptor) service.Result
	Stop(service.Descriptor) service.Result
}

// ConfigMutator mutates the authentication policy file.
type ConfigMutator interface {
	Backup(hba.File) error
	Apply(hba.File, hba.Policy) error
	Restore(hba.File) error
}

// CredentialChanger applies the credential change over an
// administrative connection.
type CredentialChanger interface {
	Ping(ctx context.Context) error
	Reset(ctx context.Context, cred pgadmin.Credential) error
}

// ConnectionVerifier proves the reset end to end with the new
// credential.
type ConnectionVerifier interface {
	Ping(ctx context.Context, cred pgadmin.Credential) error
	Verify(ctx context.Context, cred pgadmin.Credential) (string, error)
}

// Config assembles a Workflow. All collaborators are required.
type Config struct {
	Locator    ServiceLocator
	Controller ServiceController
	Mutator    ConfigMutator
	Changer    CredentialChanger
	Verifier   ConnectionVerifier

	// Credential is the credential being installed.
	Credential pgadmin.Credential

	// Wait tunes the poll-until-ready loop after each service start.
	Wait pgadmin.WaitParams
}

// Validate returns an error if the config cannot make a workflow.
func (cfg Config) Validate() error {
	if cfg.Locator == nil {
		return errors.NotValidf("nil Locator")
	}
	if cfg.Controller == nil {
		return errors.NotValidf("nil Controller")
	}
	if cfg.Mutator == nil {
		return errors.NotValidf("nil Mutator")
	}
	if cfg.Changer == nil {
		return errors.NotValidf("nil Changer")
	}
	if cfg.Verifier == nil {
		return errors.NotValidf("nil Verifier")
	}
	if cfg.Credential.Principal == "" {
		return errors.NotValidf("empty credential principal")
	}
	return nil
}

// Report summarises a finished run for the caller.
type Report struct {
	// State is the terminal state, Succeeded or Failed.
	State State

	// LastPhase is the phase that was executing when the run ended.
	LastPhase State

	// Service is the located installation, zero if locating failed.
	Service service.Descriptor

	// Version is the service version reported by verification; set
	// only on success.
	Version string

	// Restored reports whether the original configuration was put
	// back during a rollback.
	Restored bool
}

// Workflow is a single-use orchestration of one reset run. It owns the
// descriptor and policy file for the duration of the run; the caller
// must prevent concurrent runs against the same service.
type Workflow struct {
	cfg Config
}

// New returns a Workflow for the config.
func New(cfg Config) (*Workflow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &Workflow{cfg: cfg}, nil
}

// Run drives the reset to a terminal state. The returned report is
// never nil; the error is nil exactly when the report's state is
// Succeeded. Each step runs at most once per attempt.
func (w *Workflow) Run(ctx context.Context) (*Report, error) {
	report := &Report{State: StateStart}

	report.LastPhase = StateLocating
	svc, err := w.cfg.Locator.Locate()
	if err != nil {
		// Nothing has been mutated; there is nothing to restore.
		return w.fail(report, err)
	}
	report.Service = svc
	file := hba.ForDataDir(svc.DataDir)
	logger.Infof("located %q (data directory %q)", svc.Name, svc.DataDir)

	report.LastPhase = StateStoppingForRelax
	if res := w.cfg.Controller.Stop(svc); !res.OK {
		logger.Warningf("could not stop %q, continuing: %s", svc.Name, res.Detail)
	}

	report.LastPhase = StateRelaxing
	if err := w.cfg.Mutator.Backup(file); err != nil {
		// The policy file is untouched; abort without rollback.
		return w.fail(report, err)
	}
	if err := w.cfg.Mutator.Apply(file, hba.Relaxed()); err != nil {
		// The write may have destroyed the original content, and the
		// verified backup makes restoring it safe either way.
		return w.rollback(ctx, report, svc, file, err)
	}

	report.LastPhase = StateStartingRelaxed
	if res := w.cfg.Controller.Start(svc); !res.OK {
		return w.rollback(ctx, report, svc, file,
			errors.Errorf("starting %q with relaxed policy: %s", svc.Name, res.Detail))
	}
	if err := pgadmin.WaitReady(ctx, func() error {
		return w.cfg.Changer.Ping(ctx)
	}, w.cfg.Wait); err != nil {
		return w.rollback(ctx, report, svc, file, err)
	}

	report.LastPhase = StateChangingCredential
	if err := w.cfg.Changer.Reset(ctx, w.cfg.Credential); err != nil {
		return w.rollback(ctx, report, svc, file, err)
	}

	report.LastPhase = StateStoppingForSecure
	if res := w.cfg.Controller.Stop(svc); !res.OK {
		logger.Warningf("could not stop %q, continuing: %s", svc.Name, res.Detail)
	}

	report.LastPhase = StateSecuring
	if err := w.cfg.Mutator.Apply(file, hba.Secured(w.cfg.Credential.Principal)); err != nil {
		// The secure write failed, so the relaxed policy may still be
		// on disk; that is the one state rollback exists to prevent.
		return w.rollback(ctx, report, svc, file, err)
	}

	// From here the secure policy is on disk. It is strictly safer
	// than the original, so later failures are reported without
	// rolling back.
	report.LastPhase = StateStartingSecure
	if res := w.cfg.Controller.Start(svc); !res.OK {
		return w.fail(report,
			errors.Errorf("starting %q with secured policy: %s", svc.Name, res.Detail))
	}
	if err := pgadmin.WaitReady(ctx, func() error {
		return w.cfg.Verifier.Ping(ctx, w.cfg.Credential)
	}, w.cfg.Wait); err != nil {
		return w.fail(report, err)
	}

	report.LastPhase = StateVerifying
	version, err := w.cfg.Verifier.Verify(ctx, w.cfg.Credential)
	if err != nil {
		return w.fail(report, err)
	}

	report.State = StateSucceeded
	report.Version = version
	logger.Infof("reset succeeded, service version: %s", version)
	return report, nil
}

// fail marks the report failed without compensating actions.
func (w *Workflow) fail(report *Report, cause error) (*Report, error) {
	report.State = StateFailed
	logger.Errorf("reset failed while %s: %v", report.LastPhase, cause)
	return report, errors.Annotatef(cause, "reset failed while %s", report.LastPhase)
}

// rollback restores the original configuration and bounces the service
// best-effort. Sub-step failures are logged but never mask the original
// failure, which remains the reported cause. Rollback always terminates
// in the failed state.
func (w *Workflow) rollback(ctx context.Context, report *Report, svc service.Descriptor, file hba.File, cause error) (*Report, error) {
	failedPhase := report.LastPhase
	report.LastPhase = StateRollingBack
	logger.Errorf("reset failed while %s, rolling back: %v", failedPhase, cause)

	if err := w.cfg.Mutator.Restore(file); err != nil {
		logger.Errorf("could not restore %q: %v", file.Path, err)
	} else {
		report.Restored = true
	}
	if res := w.cfg.Controller.Stop(svc); !res.OK {
		logger.Warningf("could not stop %q during rollback: %s", svc.Name, res.Detail)
	}
	if res := w.cfg.Controller.Start(svc); !res.OK {
		logger.Warningf("could not start %q during rollback: %s", svc.Name, res.Detail)
	}

	report.State = StateFailed
	report.LastPhase = failedPhase
	return report, errors.Annotatef(cause, "reset failed while %s", failedPhase)
}
