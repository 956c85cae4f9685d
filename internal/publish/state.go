package publish

import (
	"fmt"
	"time"
)

// State is a position in the publish pipeline.
type State int

const (
	Idle State = iota
	Fetching
	CheckingChanges
	Staging
	Committing
	Pushing
	Done
	NoChanges
	NothingToCommit
	Failed
)

var stateNames = [...]string{
	Idle:            "idle",
	Fetching:        "fetching",
	CheckingChanges: "checking_changes",
	Staging:         "staging",
	Committing:      "committing",
	Pushing:         "pushing",
	Done:            "done",
	NoChanges:       "no_changes",
	NothingToCommit: "nothing_to_commit",
	Failed:          "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether the pipeline stops in s.
func (s State) Terminal() bool {
	switch s {
	case Done, NoChanges, NothingToCommit, Failed:
		return true
	}
	return false
}

// Succeeded reports whether s is a terminal state that counts as success.
func (s State) Succeeded() bool {
	return s == Done || s == NoChanges || s == NothingToCommit
}

// Outcome describes how a single step ended.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeSkipped Outcome = "skipped"
	OutcomeWarning Outcome = "warning"
	OutcomeFailed  Outcome = "failed"
)

// Step names.
const (
	StepFetch  = "fetch"
	StepStatus = "status"
	StepAdd    = "add"
	StepCommit = "commit"
	StepPush   = "push"
)

// Step is one entry of the run log.
type Step struct {
	Step    string    `json:"step"`
	Outcome Outcome   `json:"outcome"`
	Detail  string    `json:"detail,omitempty"`
	At      time.Time `json:"at"`
}
