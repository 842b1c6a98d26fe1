// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/juju/cmd/v4"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/mutex/v2"

	"github.com/juju/pgreset/internal/config"
	"github.com/juju/pgreset/internal/hba"
	"github.com/juju/pgreset/internal/pgadmin"
	"github.com/juju/pgreset/internal/runner"
	"github.com/juju/pgreset/internal/service"
	"github.com/juju/pgreset/internal/workflow"
)

const resetDoc = `
reset locates the local PostgreSQL installation, relaxes host-based
authentication, restarts the service, changes the administrative
credential, installs a hardened configuration and restarts again, then
verifies the service accepts the new credential.

Parameters default from the PGRESET_* environment; flags override the
environment. The run takes a host-wide lock, so concurrent invocations
wait briefly and then fail rather than interleave restarts.
`

type resetCommand struct {
	cmd.CommandBase

	params config.Params
	envErr error

	acquireLock func() (mutex.Releaser, error)
	runReset    func(ctx context.Context, p config.Params) (*workflow.Report, error)
}

func newResetCommand() cmd.Command {
	c := &resetCommand{
		acquireLock: acquireRunLock,
		runReset:    runReset,
	}
	c.params, c.envErr = config.FromEnv()
	return c
}

// Info is part of cmd.Command.
func (c *resetCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "reset",
		Purpose: "reset the administrative credential and re-harden authentication",
		Doc:     resetDoc,
	}
}

// SetFlags is part of cmd.Command. Flag defaults carry the values
// already resolved from the environment.
func (c *resetCommand) SetFlags(f *gnuflag.FlagSet) {
	f.StringVar(&c.params.Host, "host", c.params.Host, "host the service listens on")
	f.IntVar(&c.params.Port, "port", c.params.Port, "port the service listens on")
	f.StringVar(&c.params.AdminUser, "admin-user", c.params.AdminUser, "administrative principal to reset")
	f.StringVar(&c.params.AdminDB, "admin-db", c.params.AdminDB, "maintenance database to connect to")
	f.StringVar(&c.params.AuxDB, "aux-db", c.params.AuxDB, "database to create after the reset; empty to skip")
	f.StringVar(&c.params.Secret, "password", c.params.Secret, "credential value to install")
	f.DurationVar(&c.params.WaitTimeout, "wait-timeout", c.params.WaitTimeout, "how long to wait for the service after each start")
}

// Init is part of cmd.Command.
func (c *resetCommand) Init(args []string) error {
	if c.envErr != nil {
		return errors.Trace(c.envErr)
	}
	if err := cmd.CheckEmpty(args); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(c.params.Validate())
}

// Run is part of cmd.Command.
func (c *resetCommand) Run(ctx *cmd.Context) error {
	if err := pgadmin.EnsureDriver(); err != nil {
		return errors.Trace(err)
	}
	releaser, err := c.acquireLock()
	if errors.Is(err, mutex.ErrTimeout) {
		return errors.New("another reset is already running on this host")
	} else if err != nil {
		return errors.Annotate(err, "acquiring run lock")
	}
	defer releaser.Release()

	report, err := c.runReset(context.Background(), c.params)
	if report != nil {
		c.summarize(ctx, report)
	}
	return errors.Trace(err)
}

func (c *resetCommand) summarize(ctx *cmd.Context, report *workflow.Report) {
	if report.State == workflow.StateSucceeded {
		fmt.Fprintf(ctx.Stdout, "Reset complete; the service accepted the new credential.\n\n")
		fmt.Fprintf(ctx.Stdout, "  Host:      %s\n", c.params.Host)
		fmt.Fprintf(ctx.Stdout, "  Port:      %d\n", c.params.Port)
		fmt.Fprintf(ctx.Stdout, "  User:      %s\n", c.params.AdminUser)
		fmt.Fprintf(ctx.Stdout, "  Database:  %s\n", c.params.AdminDB)
		fmt.Fprintf(ctx.Stdout, "  Service:   %s (%s)\n", report.Service.Name, report.Service.Platform)
		fmt.Fprintf(ctx.Stdout, "  Version:   %s\n", report.Version)
		return
	}
	fmt.Fprintf(ctx.Stderr, "Reset failed while %s.\n", report.LastPhase)
	if report.Restored {
		fmt.Fprintf(ctx.Stderr, "The original authentication configuration was restored.\n")
	} else if report.Service.DataDir != "" {
		file := hba.ForDataDir(report.Service.DataDir)
		fmt.Fprintf(ctx.Stderr, "Check the authentication configuration at %s.\n", file.Path)
	}
}

// acquireRunLock serialises resets host-wide. Waiting callers give up
// after a short grace period instead of queueing restarts.
func acquireRunLock() (mutex.Releaser, error) {
	return mutex.Acquire(mutex.Spec{
		Name:    "pgreset",
		Clock:   clock.WallClock,
		Delay:   250 * time.Millisecond,
		Timeout: 5 * time.Second,
	})
}

func runReset(ctx context.Context, p config.Params) (*workflow.Report, error) {
	run := runner.New()
	conn := pgadmin.ConnParams{
		Host:      p.Host,
		Port:      p.Port,
		AdminUser: p.AdminUser,
		AdminDB:   p.AdminDB,
	}
	wf, err := workflow.New(workflow.Config{
		Locator:    service.NewLocator(run),
		Controller: service.NewController(run),
		Mutator:    hba.NewMutator(),
		Changer:    pgadmin.NewChanger(conn, p.AuxDB),
		Verifier:   pgadmin.NewVerifier(conn),
		Credential: pgadmin.Credential{Principal: p.AdminUser, Secret: p.Secret},
		Wait:       pgadmin.WaitParams{Timeout: p.WaitTimeout},
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return wf.Run(ctx)
}
