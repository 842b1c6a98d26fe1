// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package benchreport

import (
	"fmt"
	"io"
	"sort"

	"github.com/gosuri/uitable"
	"github.com/juju/errors"
)

// Summarize renders a plain-text comparison of the report, one row per
// load level present on either side.
func Summarize(w io.Writer, report *Report) error {
	table := uitable.New()
	table.MaxColWidth = 50
	table.AddRow("USERS", "RPS DIRECT", "RPS POOLED", "P99 DIRECT", "P99 POOLED", "IMPROVEMENT")

	for _, users := range userCounts(report) {
		without, haveWithout := sampleFor(report.WithoutPooling, users)
		with, haveWith := sampleFor(report.WithPooling, users)

		row := []interface{}{users,
			rps(without, haveWithout), rps(with, haveWith),
			p99(without, haveWithout), p99(with, haveWith),
		}
		if improvement, ok := report.Improvement(users); ok {
			row = append(row, fmt.Sprintf("%+.0f%%", improvement))
		} else {
			row = append(row, "-")
		}
		table.AddRow(row...)
	}

	_, err := fmt.Fprintln(w, table)
	return errors.Trace(err)
}

// SummarizeOverhead renders the connection establishment comparison.
func SummarizeOverhead(w io.Writer, overhead *Overhead) error {
	table := uitable.New()
	table.AddRow("ENGINE", "DIRECT MS", "POOLED MS", "REDUCTION")
	addOverheadRow(table, "postgres", overhead.Analysis.Postgres)
	if overhead.Analysis.MySQL != nil {
		addOverheadRow(table, "mysql", *overhead.Analysis.MySQL)
	}

	_, err := fmt.Fprintln(w, table)
	return errors.Trace(err)
}

func addOverheadRow(table *uitable.Table, engine string, e EngineOverhead) {
	reduction := "-"
	if pct, ok := e.ReductionPercent(); ok {
		reduction = fmt.Sprintf("%.0f%%", pct)
	}
	table.AddRow(engine,
		fmt.Sprintf("%.2f", e.Direct.Average),
		fmt.Sprintf("%.2f", e.Pooled.Average),
		reduction,
	)
}

func rps(s Sample, ok bool) string {
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.1f", s.Requests.Average)
}

func p99(s Sample, ok bool) string {
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.1f", s.Latency.P99)
}

func userCounts(report *Report) []int {
	seen := make(map[int]bool)
	var counts []int
	for _, samples := range [][]Sample{report.WithoutPooling, report.WithPooling} {
		for _, s := range samples {
			if !seen[s.ConcurrentUsers] {
				seen[s.ConcurrentUsers] = true
				counts = append(counts, s.ConcurrentUsers)
			}
		}
	}
	sort.Ints(counts)
	return counts
}
