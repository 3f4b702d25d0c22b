package batch

import (
	"errors"
	"fmt"

	"vidshrink/internal/preset"
)

// ErrNothingToDo is returned when a batch is started without any items.
var ErrNothingToDo = errors.New("nothing to process: no videos selected")

// ErrAlreadyStarted is returned when Run is called twice for the same job.
var ErrAlreadyStarted = errors.New("batch already started")

// State is the orchestrator lifecycle of a Job.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateComplete:
		return "complete"
	default:
		return "idle"
	}
}

// OutcomeKind classifies the terminal result of one item.
type OutcomeKind string

const (
	OutcomeSucceeded OutcomeKind = "succeeded"
	OutcomeCanceled  OutcomeKind = "canceled"
	OutcomeFailed    OutcomeKind = "failed"
)

// Outcome is the terminal result of transcoding one item.
type Outcome struct {
	Index      int         `json:"index"`
	Source     string      `json:"source"`
	Kind       OutcomeKind `json:"kind"`
	OutputPath string      `json:"output_path,omitempty"`
	Reason     string      `json:"reason,omitempty"`
}

// Succeeded reports whether the item produced an output file.
func (o Outcome) Succeeded() bool {
	return o.Kind == OutcomeSucceeded
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeSucceeded:
		return fmt.Sprintf("#%d succeeded: %s", o.Index+1, o.OutputPath)
	case OutcomeFailed:
		return fmt.Sprintf("#%d failed: %s", o.Index+1, o.Reason)
	default:
		return fmt.Sprintf("#%d %s", o.Index+1, o.Kind)
	}
}

// Job is one batch: the selected items, the preset applied to all of them,
// and the outcomes collected so far. Index counts resolved items.
type Job struct {
	ID       string
	Preset   preset.Quality
	Items    []string
	Index    int
	Outcomes []Outcome

	started bool
}

// NewJob creates an idle job over a copy of items.
func NewJob(id string, items []string, quality preset.Quality) *Job {
	if !quality.Valid() {
		quality = preset.Default
	}
	return &Job{
		ID:       id,
		Preset:   quality,
		Items:    append([]string(nil), items...),
		Outcomes: make([]Outcome, 0, len(items)),
	}
}

// Total returns the number of items in the batch.
func (j *Job) Total() int {
	return len(j.Items)
}

// State reports the lifecycle position of the job.
func (j *Job) State() State {
	switch {
	case !j.started:
		return StateIdle
	case j.Index >= len(j.Items):
		return StateComplete
	default:
		return StateRunning
	}
}

// Complete reports whether every item has resolved.
func (j *Job) Complete() bool {
	return j.State() == StateComplete
}

// Current returns the source of the item being processed.
func (j *Job) Current() (string, bool) {
	if j.Index < 0 || j.Index >= len(j.Items) {
		return "", false
	}
	return j.Items[j.Index], true
}

// OutputPaths returns the outputs of succeeded items in input order.
func (j *Job) OutputPaths() []string {
	paths := make([]string, 0, len(j.Outcomes))
	for _, outcome := range j.Outcomes {
		if outcome.Succeeded() {
			paths = append(paths, outcome.OutputPath)
		}
	}
	return paths
}

// Counts tallies outcomes by kind.
func (j *Job) Counts() (succeeded, canceled, failed int) {
	return CountOutcomes(j.Outcomes)
}

// CountOutcomes tallies outcomes by kind.
func CountOutcomes(outcomes []Outcome) (succeeded, canceled, failed int) {
	for _, outcome := range outcomes {
		switch outcome.Kind {
		case OutcomeSucceeded:
			succeeded++
		case OutcomeCanceled:
			canceled++
		case OutcomeFailed:
			failed++
		}
	}
	return succeeded, canceled, failed
}

// resolve records the outcome of the current item and advances the index.
func (j *Job) resolve(outcome Outcome) {
	outcome.Index = j.Index
	if source, ok := j.Current(); ok {
		outcome.Source = source
	}
	j.Outcomes = append(j.Outcomes, outcome)
	j.Index++
}
