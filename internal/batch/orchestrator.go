package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"vidshrink/internal/logging"
	"vidshrink/internal/services"
)

// inflightCap keeps the per-item fraction below 1 until the engine reports a
// terminal outcome, so overall progress only reaches 1.0 when the batch ends.
const inflightCap = 0.999

// errNoTerminal is reported when an engine returns without a terminal outcome.
var errNoTerminal = errors.New("engine returned without reporting an outcome")

// Progress is one overall progress update.
type Progress struct {
	Index   int     `json:"index"`
	Total   int     `json:"total"`
	Item    float64 `json:"item"`
	Overall float64 `json:"overall"`
}

// Percent returns overall progress as a percentage.
func (p Progress) Percent() float64 {
	return p.Overall * 100
}

// Observer receives batch notifications. All calls are made from the
// goroutine executing Run, in order.
type Observer interface {
	ItemStarted(index, total int, source, destination string)
	Progress(p Progress)
	ItemFinished(outcome Outcome)
	BatchFinished(job *Job)
}

// ObserverFuncs adapts optional callbacks to the Observer interface.
type ObserverFuncs struct {
	OnItemStarted   func(index, total int, source, destination string)
	OnProgress      func(p Progress)
	OnItemFinished  func(outcome Outcome)
	OnBatchFinished func(job *Job)
}

func (f ObserverFuncs) ItemStarted(index, total int, source, destination string) {
	if f.OnItemStarted != nil {
		f.OnItemStarted(index, total, source, destination)
	}
}

func (f ObserverFuncs) Progress(p Progress) {
	if f.OnProgress != nil {
		f.OnProgress(p)
	}
}

func (f ObserverFuncs) ItemFinished(outcome Outcome) {
	if f.OnItemFinished != nil {
		f.OnItemFinished(outcome)
	}
}

func (f ObserverFuncs) BatchFinished(job *Job) {
	if f.OnBatchFinished != nil {
		f.OnBatchFinished(job)
	}
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithObserver registers the observer notified during Run.
func WithObserver(observer Observer) Option {
	return func(o *Orchestrator) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithLogger sets the logger used for item lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logging.NewComponentLogger(logger, "batch")
	}
}

// Orchestrator runs jobs through an Engine one item at a time.
type Orchestrator struct {
	engine   Engine
	paths    PathAllocator
	observer Observer
	logger   *slog.Logger
}

// New constructs an orchestrator for the supplied engine and path allocator.
func New(engine Engine, paths PathAllocator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine:   engine,
		paths:    paths,
		observer: ObserverFuncs{},
		logger:   logging.NewComponentLogger(nil, "batch"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type eventKind int

const (
	eventProgress eventKind = iota
	eventCompleted
	eventCanceled
	eventFailed
	eventReturned
)

type event struct {
	seq      int
	kind     eventKind
	fraction float64
	err      error
}

func (e event) terminal() bool {
	return e.kind == eventCompleted || e.kind == eventCanceled || e.kind == eventFailed
}

// itemListener forwards engine callbacks for one invocation onto the run
// loop. Only the first terminal callback is forwarded.
type itemListener struct {
	seq    int
	events chan<- event
	done   <-chan struct{}

	mu       sync.Mutex
	resolved bool
}

func (l *itemListener) post(evt event) {
	evt.seq = l.seq
	select {
	case l.events <- evt:
	case <-l.done:
	}
}

func (l *itemListener) claim() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.resolved {
		return false
	}
	l.resolved = true
	return true
}

func (l *itemListener) isResolved() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resolved
}

func (l *itemListener) Progress(fraction float64) {
	if l.isResolved() {
		return
	}
	l.post(event{kind: eventProgress, fraction: fraction})
}

func (l *itemListener) Completed() {
	if l.claim() {
		l.post(event{kind: eventCompleted})
	}
}

func (l *itemListener) Canceled() {
	if l.claim() {
		l.post(event{kind: eventCanceled})
	}
}

func (l *itemListener) Failed(err error) {
	if l.claim() {
		l.post(event{kind: eventFailed, err: err})
	}
}

// itemRun tracks the invocation currently owned by the run loop.
type itemRun struct {
	seq         int
	destination string
	fraction    float64
	resolved    bool
}

// Run processes every item of job in order and returns one outcome per item.
// The only error is ErrNothingToDo (or ErrAlreadyStarted); per-item failures
// are reported as outcomes. Canceling ctx cancels the active item and marks
// the remaining ones canceled.
func (o *Orchestrator) Run(ctx context.Context, job *Job) ([]Outcome, error) {
	if job == nil || job.Total() == 0 {
		return nil, ErrNothingToDo
	}
	if job.started {
		return nil, ErrAlreadyStarted
	}
	if ctx == nil {
		ctx = context.Background()
	}
	job.started = true
	if job.ID != "" {
		ctx = services.WithBatchID(ctx, job.ID)
	}
	logger := o.logger.With(
		logging.String(logging.FieldBatchID, job.ID),
		logging.Int(logging.FieldItemCount, job.Total()),
	)
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.String("preset", job.Preset.String()),
	)

	events := make(chan event)
	done := make(chan struct{})
	defer close(done)

	var (
		seq     int
		overall float64
		current *itemRun
	)

	// begin launches the next item, or records outcomes directly when the
	// item cannot be launched. It returns false once the job is complete.
	begin := func() bool {
		for !job.Complete() {
			source, _ := job.Current()
			if err := ctx.Err(); err != nil {
				o.finishItem(logger, job, Outcome{Kind: OutcomeCanceled, Reason: "batch canceled"}, &overall)
				continue
			}
			destination, err := o.allocate()
			if err != nil {
				o.finishItem(logger, job, Outcome{Kind: OutcomeFailed, Reason: err.Error()}, &overall)
				continue
			}
			seq++
			current = &itemRun{seq: seq, destination: destination}
			o.observer.ItemStarted(job.Index, job.Total(), source, destination)
			attrs := append(logging.Item(job.Index, job.Total()),
				logging.String(logging.FieldEventType, "item_start"),
				logging.String("source", source),
				logging.String("destination", destination),
			)
			logger.Info("item started", logging.Args(attrs...)...)
			strategy := job.Preset.Strategy()
			req := Request{
				Source:      source,
				Destination: destination,
				Video:       strategy.Video,
				Audio:       strategy.Audio,
				Quality:     job.Preset,
			}
			listener := &itemListener{seq: seq, events: events, done: done}
			itemCtx := services.WithItemIndex(ctx, job.Index)
			go func() {
				o.engine.Transcode(itemCtx, req, listener)
				if listener.claim() {
					listener.post(event{kind: eventFailed, err: errNoTerminal})
				}
				listener.post(event{kind: eventReturned})
			}()
			return true
		}
		return false
	}

	if begin() {
		for evt := range events {
			if current == nil || evt.seq != current.seq {
				continue
			}
			if evt.kind == eventReturned {
				current = nil
				if !begin() {
					break
				}
				continue
			}
			if current.resolved {
				continue
			}
			if evt.terminal() {
				current.resolved = true
				o.finishItem(logger, job, transition(evt, current.destination), &overall)
				continue
			}
			o.reportProgress(job, current, evt.fraction, &overall)
		}
	}

	succeeded, canceled, failed := job.Counts()
	logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("succeeded", succeeded),
		logging.Int("canceled", canceled),
		logging.Int("failed", failed),
	)
	o.observer.BatchFinished(job)
	return append([]Outcome(nil), job.Outcomes...), nil
}

// transition maps a terminal engine event to the outcome recorded for the
// current item.
func transition(evt event, destination string) Outcome {
	switch evt.kind {
	case eventCompleted:
		return Outcome{Kind: OutcomeSucceeded, OutputPath: destination}
	case eventCanceled:
		return Outcome{Kind: OutcomeCanceled}
	default:
		reason := "unknown error"
		if evt.err != nil && evt.err.Error() != "" {
			reason = evt.err.Error()
		}
		return Outcome{Kind: OutcomeFailed, Reason: reason}
	}
}

func (o *Orchestrator) allocate() (string, error) {
	if o.paths == nil {
		return "", errors.New("no output location configured")
	}
	destination, err := o.paths.Next()
	if err != nil {
		return "", fmt.Errorf("allocate output: %w", err)
	}
	return destination, nil
}

func (o *Orchestrator) reportProgress(job *Job, current *itemRun, fraction float64, overall *float64) {
	fraction = clampFraction(fraction)
	if fraction > inflightCap {
		fraction = inflightCap
	}
	if fraction > current.fraction {
		current.fraction = fraction
	}
	value := (float64(job.Index) + current.fraction) / float64(job.Total())
	if value > *overall {
		*overall = value
	}
	o.observer.Progress(Progress{
		Index:   job.Index,
		Total:   job.Total(),
		Item:    current.fraction,
		Overall: *overall,
	})
}

func (o *Orchestrator) finishItem(logger *slog.Logger, job *Job, outcome Outcome, overall *float64) {
	job.resolve(outcome)
	recorded := job.Outcomes[len(job.Outcomes)-1]
	attrs := []logging.Attr{
		logging.Int(logging.FieldItemIndex, recorded.Index+1),
		logging.String("source", recorded.Source),
		logging.String("outcome", string(recorded.Kind)),
	}
	switch recorded.Kind {
	case OutcomeFailed:
		attrs = append(attrs,
			logging.String("reason", recorded.Reason),
			logging.String(logging.FieldImpact, "item skipped; batch continues with the next video"),
		)
		logging.WarnWithContext(logger, "item failed", "item_failed", attrs...)
	case OutcomeCanceled:
		logger.Info("item canceled", logging.Args(append(attrs, logging.String(logging.FieldEventType, "item_canceled"))...)...)
	default:
		attrs = append(attrs, logging.String("output", recorded.OutputPath))
		logger.Info("item finished", logging.Args(append(attrs, logging.String(logging.FieldEventType, "item_complete"))...)...)
	}
	o.observer.ItemFinished(recorded)

	*overall = float64(job.Index) / float64(job.Total())
	o.observer.Progress(Progress{
		Index:   job.Index,
		Total:   job.Total(),
		Item:    1,
		Overall: *overall,
	})
}

func clampFraction(value float64) float64 {
	switch {
	case math.IsNaN(value):
		return 0
	case value < 0:
		return 0
	case value > 1:
		return 1
	default:
		return value
	}
}
