package workflow

import (
	"context"
	"log/slog"
	"strconv"

	"vidshrink/internal/batch"
	"vidshrink/internal/logging"
)

// batchRecorder persists outcomes and raises failure notifications as items
// finish. It runs on the orchestrator goroutine.
type batchRecorder struct {
	manager *Manager
	ctx     context.Context
	logger  *slog.Logger
	batchID string
	total   int
	sampler *logging.ProgressSampler
}

func (r *batchRecorder) ItemStarted(_ int, total int, _, _ string) {
	r.total = total
	r.sampler.Reset()
}

func (r *batchRecorder) Progress(p batch.Progress) {
	key := r.batchID + "#" + strconv.Itoa(p.Index)
	if !r.sampler.ShouldLog(p.Item*100, key) {
		return
	}
	attrs := append(logging.Item(p.Index, p.Total),
		logging.Float64("item_percent", p.Item*100),
		logging.Float64("overall_percent", p.Percent()),
	)
	r.logger.Debug("item progress", logging.Args(attrs...)...)
}

func (r *batchRecorder) ItemFinished(outcome batch.Outcome) {
	if err := r.manager.store.RecordOutcome(r.ctx, r.batchID, outcome); err != nil {
		logging.WarnWithContext(r.logger, "failed to record item outcome", "history_write_failed",
			logging.Int(logging.FieldItemIndex, outcome.Index+1),
			logging.Error(err),
			logging.String(logging.FieldImpact, "save and replace will not see this output"),
		)
	}
	if outcome.Kind != batch.OutcomeFailed {
		return
	}
	if err := r.manager.notifier.NotifyItemFailed(r.ctx, outcome.Index, r.total, outcome.Source, outcome.Reason); err != nil {
		r.logger.Debug("item failure notification failed", logging.Error(err))
	}
}

func (r *batchRecorder) BatchFinished(*batch.Job) {}

// multiObserver fans observer calls out in order.
type multiObserver []batch.Observer

func (m multiObserver) ItemStarted(index, total int, source, destination string) {
	for _, o := range m {
		o.ItemStarted(index, total, source, destination)
	}
}

func (m multiObserver) Progress(p batch.Progress) {
	for _, o := range m {
		o.Progress(p)
	}
}

func (m multiObserver) ItemFinished(outcome batch.Outcome) {
	for _, o := range m {
		o.ItemFinished(outcome)
	}
}

func (m multiObserver) BatchFinished(job *batch.Job) {
	for _, o := range m {
		o.BatchFinished(job)
	}
}
