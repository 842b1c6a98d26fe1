// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"os"
	"path/filepath"

	"github.com/juju/cmd/v4/cmdtesting"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"
)

type benchSummarySuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&benchSummarySuite{})

const resultsJSON = `{
	"withoutPooling": [
		{"concurrentUsers": 50, "requests": {"average": 200.0}, "latency": {"p99": 120.0}}
	],
	"withPooling": [
		{"concurrentUsers": 50, "requests": {"average": 400.0}, "latency": {"p99": 40.0}}
	]
}`

const overheadJSON = `{
	"analysis": {
		"postgres": {
			"direct": {"average": 25.0},
			"pooled": {"average": 5.0}
		}
	}
}`

func (s *benchSummarySuite) writeFile(c *gc.C, name, content string) string {
	path := filepath.Join(c.MkDir(), name)
	err := os.WriteFile(path, []byte(content), 0644)
	c.Assert(err, jc.ErrorIsNil)
	return path
}

func (s *benchSummarySuite) TestSummary(c *gc.C) {
	path := s.writeFile(c, "results.json", resultsJSON)

	ctx, err := cmdtesting.RunCommand(c, newBenchSummaryCommand(), path)
	c.Assert(err, jc.ErrorIsNil)

	stdout := cmdtesting.Stdout(ctx)
	c.Check(stdout, gc.Matches, "(?s).*USERS\\s+RPS DIRECT\\s+RPS POOLED.*")
	c.Check(stdout, gc.Matches, "(?s).*50\\s+200.0\\s+400.0\\s+120.0\\s+40.0\\s+\\+100%.*")
	c.Check(stdout, gc.Not(jc.Contains), "ENGINE")
}

func (s *benchSummarySuite) TestSummaryWithOverhead(c *gc.C) {
	results := s.writeFile(c, "results.json", resultsJSON)
	overhead := s.writeFile(c, "overhead.json", overheadJSON)

	ctx, err := cmdtesting.RunCommand(c, newBenchSummaryCommand(),
		results, "--overhead", overhead)
	c.Assert(err, jc.ErrorIsNil)

	stdout := cmdtesting.Stdout(ctx)
	c.Check(stdout, gc.Matches, "(?s).*ENGINE\\s+DIRECT MS\\s+POOLED MS\\s+REDUCTION.*")
	c.Check(stdout, gc.Matches, "(?s).*postgres\\s+25.00\\s+5.00\\s+80%.*")
}

func (s *benchSummarySuite) TestNoFile(c *gc.C) {
	_, err := cmdtesting.RunCommand(c, newBenchSummaryCommand())
	c.Check(err, gc.ErrorMatches, "no results file specified")
}

func (s *benchSummarySuite) TestExtraArgs(c *gc.C) {
	_, err := cmdtesting.RunCommand(c, newBenchSummaryCommand(), "a.json", "b.json")
	c.Check(err, gc.ErrorMatches, `unrecognized args: \["b.json"\]`)
}

func (s *benchSummarySuite) TestMissingFile(c *gc.C) {
	path := filepath.Join(c.MkDir(), "absent.json")
	_, err := cmdtesting.RunCommand(c, newBenchSummaryCommand(), path)
	c.Check(err, gc.ErrorMatches, `reading ".*absent.json": .*`)
}

func (s *benchSummarySuite) TestMalformedFile(c *gc.C) {
	path := s.writeFile(c, "results.json", "{nope")
	_, err := cmdtesting.RunCommand(c, newBenchSummaryCommand(), path)
	c.Check(err, gc.ErrorMatches, `parsing ".*results.json": .*`)
}
