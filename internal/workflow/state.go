// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package workflow

// State tracks where the reset currently is. The sequence is linear
// with a single rollback branch; state is held only in memory — after a
// crash mid-run the on-disk backup file is the only recovery artifact.
type State int

const (
	StateStart State = iota
	StateLocating
	StateStoppingForRelax
	StateRelaxing
	StateStartingRelaxed
	StateChangingCredential
	StateStoppingForSecure
	StateSecuring
	StateStartingSecure
	StateVerifying
	StateRollingBack
	StateSucceeded
	StateFailed
)

var stateNames = map[State]string{
	StateStart:              "start",
	StateLocating:           "locating",
	StateStoppingForRelax:   "stopping for relax",
	StateRelaxing:           "relaxing",
	StateStartingRelaxed:    "starting relaxed",
	StateChangingCredential: "changing credential",
	StateStoppingForSecure:  "stopping for secure",
	StateSecuring:           "securing",
	StateStartingSecure:     "starting secure",
	StateVerifying:          "verifying",
	StateRollingBack:        "rolling back",
	StateSucceeded:          "succeeded",
	StateFailed:             "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}
