// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"github.com/juju/cmd/v4"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/juju/pgreset/internal/benchreport"
)

const benchSummaryDoc = `
bench-summary renders a load-test results file as a comparison table of
direct against pooled connections, per concurrency level. With
--overhead it also summarises an engine-overhead results file.
`

type benchSummaryCommand struct {
	cmd.CommandBase

	resultsPath  string
	overheadPath string
}

func newBenchSummaryCommand() cmd.Command {
	return &benchSummaryCommand{}
}

// Info is part of cmd.Command.
func (c *benchSummaryCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "bench-summary",
		Args:    "<results.json>",
		Purpose: "summarise load-test results as a table",
		Doc:     benchSummaryDoc,
	}
}

// SetFlags is part of cmd.Command.
func (c *benchSummaryCommand) SetFlags(f *gnuflag.FlagSet) {
	f.StringVar(&c.overheadPath, "overhead", "", "engine-overhead results file to summarise as well")
}

// Init is part of cmd.Command.
func (c *benchSummaryCommand) Init(args []string) error {
	if len(args) == 0 {
		return errors.New("no results file specified")
	}
	c.resultsPath = args[0]
	return errors.Trace(cmd.CheckEmpty(args[1:]))
}

// Run is part of cmd.Command.
func (c *benchSummaryCommand) Run(ctx *cmd.Context) error {
	report, err := benchreport.Load(c.resultsPath)
	if err != nil {
		return errors.Trace(err)
	}
	if err := benchreport.Summarize(ctx.Stdout, report); err != nil {
		return errors.Trace(err)
	}
	if c.overheadPath == "" {
		return nil
	}
	overhead, err := benchreport.LoadOverhead(c.overheadPath)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(benchreport.SummarizeOverhead(ctx.Stdout, overhead))
}
