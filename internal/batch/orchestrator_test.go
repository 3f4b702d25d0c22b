package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"vidshrink/internal/preset"
)

type step struct {
	progress []float64
	result   string // completed, canceled, failed, silent, double, wait
	err      error
}

type fakeEngine struct {
	mu       sync.Mutex
	steps    map[string]step
	requests []Request

	active    atomic.Int32
	maxActive atomic.Int32
}

func (e *fakeEngine) Transcode(ctx context.Context, req Request, listener Listener) {
	n := e.active.Add(1)
	defer e.active.Add(-1)
	for {
		current := e.maxActive.Load()
		if n <= current || e.maxActive.CompareAndSwap(current, n) {
			break
		}
	}

	e.mu.Lock()
	e.requests = append(e.requests, req)
	s, ok := e.steps[req.Source]
	e.mu.Unlock()
	if !ok {
		s = step{result: "completed"}
	}

	for _, fraction := range s.progress {
		listener.Progress(fraction)
	}
	switch s.result {
	case "completed":
		listener.Completed()
	case "canceled":
		listener.Canceled()
	case "failed":
		listener.Failed(s.err)
	case "double":
		listener.Completed()
		listener.Failed(errors.New("late failure"))
		listener.Progress(0.5)
	case "wait":
		<-ctx.Done()
		listener.Canceled()
	case "silent":
	}
}

type fixedPaths struct {
	mu  sync.Mutex
	n   int
	err error
}

func (p *fixedPaths) Next() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.n++
	return fmt.Sprintf("/out/compressed_%d.mp4", p.n), nil
}

func TestRunMixedOutcomesInOrder(t *testing.T) {
	engine := &fakeEngine{steps: map[string]step{
		"a.mp4": {result: "failed", err: errors.New("codec unsupported")},
		"b.mp4": {progress: []float64{0.2, 0.7}, result: "completed"},
		"c.mp4": {result: "canceled"},
	}}
	orch := New(engine, &fixedPaths{})
	job := NewJob("batch-1", []string{"a.mp4", "b.mp4", "c.mp4"}, preset.Medium)

	outcomes, err := orch.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Kind != OutcomeFailed || outcomes[0].Reason != "codec unsupported" {
		t.Fatalf("unexpected first outcome: %+v", outcomes[0])
	}
	if outcomes[1].Kind != OutcomeSucceeded || outcomes[1].OutputPath != "/out/compressed_2.mp4" {
		t.Fatalf("unexpected second outcome: %+v", outcomes[1])
	}
	if outcomes[2].Kind != OutcomeCanceled {
		t.Fatalf("unexpected third outcome: %+v", outcomes[2])
	}
	for i, outcome := range outcomes {
		if outcome.Index != i || outcome.Source != job.Items[i] {
			t.Fatalf("outcome %d out of order: %+v", i, outcome)
		}
	}
	if !job.Complete() || job.State() != StateComplete {
		t.Fatalf("expected complete job, got %s", job.State())
	}
	paths := job.OutputPaths()
	if len(paths) != 1 || paths[0] != "/out/compressed_2.mp4" {
		t.Fatalf("unexpected output paths: %v", paths)
	}
	succeeded, canceled, failed := job.Counts()
	if succeeded != 1 || canceled != 1 || failed != 1 {
		t.Fatalf("unexpected counts %d/%d/%d", succeeded, canceled, failed)
	}
}

func TestRunPassesPresetStrategy(t *testing.T) {
	engine := &fakeEngine{}
	orch := New(engine, &fixedPaths{})
	job := NewJob("", []string{"x.mp4"}, preset.High)
	if _, err := orch.Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(engine.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(engine.requests))
	}
	req := engine.requests[0]
	if req.Video.MaxDimension != 720 || !req.Audio.DropTrack {
		t.Fatalf("unexpected strategy: %+v %+v", req.Video, req.Audio)
	}
	if req.Destination != "/out/compressed_1.mp4" {
		t.Fatalf("unexpected destination %q", req.Destination)
	}
}

func TestRunEmptySelection(t *testing.T) {
	orch := New(&fakeEngine{}, &fixedPaths{})
	job := NewJob("", nil, preset.Medium)
	if _, err := orch.Run(context.Background(), job); !errors.Is(err, ErrNothingToDo) {
		t.Fatalf("expected ErrNothingToDo, got %v", err)
	}
	if job.State() != StateIdle {
		t.Fatalf("empty job should remain idle, got %s", job.State())
	}
}

func TestRunTwiceRejected(t *testing.T) {
	orch := New(&fakeEngine{}, &fixedPaths{})
	job := NewJob("", []string{"a.mp4"}, preset.Low)
	if _, err := orch.Run(context.Background(), job); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := orch.Run(context.Background(), job); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestRunNeverOverlapsInvocations(t *testing.T) {
	items := make([]string, 0, 8)
	steps := map[string]step{}
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("v%d.mp4", i)
		items = append(items, name)
		steps[name] = step{progress: []float64{0.1, 0.5, 0.9}, result: "completed"}
	}
	engine := &fakeEngine{steps: steps}
	orch := New(engine, &fixedPaths{})
	if _, err := orch.Run(context.Background(), NewJob("", items, preset.Medium)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := engine.maxActive.Load(); got != 1 {
		t.Fatalf("expected at most one active invocation, saw %d", got)
	}
	if len(engine.requests) != len(items) {
		t.Fatalf("expected %d invocations, got %d", len(items), len(engine.requests))
	}
}

func TestRunProgressMonotonic(t *testing.T) {
	engine := &fakeEngine{steps: map[string]step{
		"a.mp4": {progress: []float64{0.3, 0.2, 1.0, 1.0}, result: "completed"},
		"b.mp4": {progress: []float64{0.5}, result: "failed", err: errors.New("boom")},
		"c.mp4": {progress: []float64{-1, 0.4, 2}, result: "completed"},
	}}
	var values []float64
	observer := ObserverFuncs{OnProgress: func(p Progress) { values = append(values, p.Overall) }}
	orch := New(engine, &fixedPaths{}, WithObserver(observer))
	if _, err := orch.Run(context.Background(), NewJob("", []string{"a.mp4", "b.mp4", "c.mp4"}, preset.Medium)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(values) == 0 {
		t.Fatal("expected progress updates")
	}
	for i := 1; i < len(values); i++ {
		if values[i] < values[i-1] {
			t.Fatalf("progress decreased at %d: %v", i, values)
		}
	}
	for i, value := range values[:len(values)-1] {
		if value >= 1 {
			t.Fatalf("progress reached 1.0 early at %d: %v", i, values)
		}
	}
	if values[len(values)-1] != 1 {
		t.Fatalf("expected final progress 1.0, got %v", values[len(values)-1])
	}
}

func TestRunIgnoresDuplicateTerminalEvents(t *testing.T) {
	engine := &fakeEngine{steps: map[string]step{"a.mp4": {result: "double"}}}
	var finished []Outcome
	orch := New(engine, &fixedPaths{}, WithObserver(ObserverFuncs{
		OnItemFinished: func(o Outcome) { finished = append(finished, o) },
	}))
	outcomes, err := orch.Run(context.Background(), NewJob("", []string{"a.mp4", "b.mp4"}, preset.Medium))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcomes) != 2 || len(finished) != 2 {
		t.Fatalf("expected 2 outcomes, got %d (observer %d)", len(outcomes), len(finished))
	}
	if outcomes[0].Kind != OutcomeSucceeded {
		t.Fatalf("expected first terminal to win, got %+v", outcomes[0])
	}
}

func TestRunEngineWithoutTerminalFails(t *testing.T) {
	engine := &fakeEngine{steps: map[string]step{"a.mp4": {progress: []float64{0.4}, result: "silent"}}}
	orch := New(engine, &fixedPaths{})
	outcomes, err := orch.Run(context.Background(), NewJob("", []string{"a.mp4", "b.mp4"}, preset.Medium))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcomes[0].Kind != OutcomeFailed || outcomes[0].Reason == "" {
		t.Fatalf("expected synthesized failure, got %+v", outcomes[0])
	}
	if outcomes[1].Kind != OutcomeSucceeded {
		t.Fatalf("expected batch to continue, got %+v", outcomes[1])
	}
}

func TestRunFailedWithoutReason(t *testing.T) {
	engine := &fakeEngine{steps: map[string]step{"a.mp4": {result: "failed"}}}
	outcomes, err := New(engine, &fixedPaths{}).Run(context.Background(), NewJob("", []string{"a.mp4"}, preset.Medium))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcomes[0].Reason != "unknown error" {
		t.Fatalf("expected unknown error reason, got %q", outcomes[0].Reason)
	}
}

func TestRunAllocationFailureContinues(t *testing.T) {
	paths := &fixedPaths{err: errors.New("read-only file system")}
	engine := &fakeEngine{}
	outcomes, err := New(engine, paths).Run(context.Background(), NewJob("", []string{"a.mp4", "b.mp4"}, preset.Medium))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, outcome := range outcomes {
		if outcome.Kind != OutcomeFailed {
			t.Fatalf("expected failed outcome, got %+v", outcome)
		}
	}
	if len(engine.requests) != 0 {
		t.Fatalf("engine should not be invoked without a destination")
	}
}

func TestRunContextCancelMarksRemaining(t *testing.T) {
	engine := &fakeEngine{steps: map[string]step{"a.mp4": {result: "wait"}}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	orch := New(engine, &fixedPaths{}, WithObserver(ObserverFuncs{
		OnItemStarted: func(index, _ int, _, _ string) {
			if index == 0 {
				cancel()
			}
		},
	}))
	outcomes, err := orch.Run(ctx, NewJob("", []string{"a.mp4", "b.mp4", "c.mp4"}, preset.Medium))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	for _, outcome := range outcomes {
		if outcome.Kind != OutcomeCanceled {
			t.Fatalf("expected canceled outcome, got %+v", outcome)
		}
	}
	if len(engine.requests) != 1 {
		t.Fatalf("expected only the first item to reach the engine, got %d", len(engine.requests))
	}
}

func TestBatchFinishedObserved(t *testing.T) {
	var got *Job
	orch := New(&fakeEngine{}, &fixedPaths{}, WithObserver(ObserverFuncs{
		OnBatchFinished: func(job *Job) { got = job },
	}))
	job := NewJob("b", []string{"a.mp4"}, preset.Medium)
	if _, err := orch.Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != job {
		t.Fatal("expected BatchFinished with the running job")
	}
}
