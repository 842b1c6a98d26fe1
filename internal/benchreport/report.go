// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package benchreport types the benchmark result documents consumed by
// the external chart tooling, and renders a plain-text summary of them.
// Chart generation itself lives outside this repository; only the
// input contract is owned here.
package benchreport

import (
	"encoding/json"
	"os"

	"github.com/juju/errors"
)

// Sample is one load level of a pooling benchmark run.
type Sample struct {
	ConcurrentUsers int `json:"concurrentUsers"`
	Requests        struct {
		Average float64 `json:"average"`
	} `json:"requests"`
	Latency struct {
		P99 float64 `json:"p99"`
	} `json:"latency"`
}

// Report is a pooling comparison benchmark document.
type Report struct {
	WithoutPooling []Sample `json:"withoutPooling"`
	WithPooling    []Sample `json:"withPooling"`
}

// Series is an averaged measurement in an overhead document.
type Series struct {
	Average float64 `json:"average"`
}

// EngineOverhead compares direct and pooled connection establishment
// times for one engine.
type EngineOverhead struct {
	Direct Series `json:"direct"`
	Pooled Series `json:"pooled"`
}

// Overhead is a connection-overhead benchmark document.
type Overhead struct {
	Analysis struct {
		Postgres EngineOverhead  `json:"postgres"`
		MySQL    *EngineOverhead `json:"mysql,omitempty"`
	} `json:"analysis"`
}

// Load reads a pooling comparison document from a file.
func Load(path string) (*Report, error) {
	var report Report
	if err := loadJSON(path, &report); err != nil {
		return nil, errors.Trace(err)
	}
	return &report, nil
}

// LoadOverhead reads a connection-overhead document from a file.
func LoadOverhead(path string) (*Overhead, error) {
	var overhead Overhead
	if err := loadJSON(path, &overhead); err != nil {
		return nil, errors.Trace(err)
	}
	return &overhead, nil
}

func loadJSON(path string, into interface{}) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Annotatef(err, "reading %q", path)
	}
	if err := json.Unmarshal(content, into); err != nil {
		return errors.Annotatef(err, "parsing %q", path)
	}
	return nil
}

// sampleFor returns the sample at a user count, if present.
func sampleFor(samples []Sample, users int) (Sample, bool) {
	for _, s := range samples {
		if s.ConcurrentUsers == users {
			return s, true
		}
	}
	return Sample{}, false
}

// Improvement returns the pooled throughput improvement over direct
// connections at a user count, as a percentage. The second return is
// false when either side lacks the load level or the baseline is zero.
func (r *Report) Improvement(users int) (float64, bool) {
	without, ok := sampleFor(r.WithoutPooling, users)
	if !ok || without.Requests.Average == 0 {
		return 0, false
	}
	with, ok := sampleFor(r.WithPooling, users)
	if !ok {
		return 0, false
	}
	return (with.Requests.Average - without.Requests.Average) / without.Requests.Average * 100, true
}

// ReductionPercent returns how much pooling reduces connection
// establishment time for the engine, as a percentage of the direct
// time. False when the direct time is zero.
func (e EngineOverhead) ReductionPercent() (float64, bool) {
	if e.Direct.Average == 0 {
		return 0, false
	}
	return (e.Direct.Average - e.Pooled.Average) / e.Direct.Average * 100, true
}
