package workflow

import (
	"context"
	"fmt"
	"time"

	"vidshrink/internal/batch"
	"vidshrink/internal/logging"
	"vidshrink/internal/preflight"
	"vidshrink/internal/preset"
	"vidshrink/internal/services"
)

// CompressResult summarizes one batch run.
type CompressResult struct {
	BatchID  string          `json:"batch_id"`
	Preset   preset.Quality  `json:"preset"`
	Gate     preflight.Gate  `json:"gate"`
	Outcomes []batch.Outcome `json:"outcomes"`
	// Savings is parallel to Outcomes; only succeeded items are measured.
	Savings  []Savings     `json:"savings"`
	Duration time.Duration `json:"duration"`
}

// TotalSavings sums the measured items.
func (r CompressResult) TotalSavings() Savings {
	return totalSavings(r.Savings)
}

// Counts tallies outcomes by kind.
func (r CompressResult) Counts() (succeeded, canceled, failed int) {
	return batch.CountOutcomes(r.Outcomes)
}

// Summary renders the one-line batch summary.
func (r CompressResult) Summary() string {
	succeeded, canceled, failed := r.Counts()
	line := fmt.Sprintf("Compressed %d of %d videos (%d canceled, %d failed)", succeeded, len(r.Outcomes), canceled, failed)
	if total := r.TotalSavings(); total.Known() {
		line += "; " + total.String()
	}
	return line
}

// Compress transcodes sources with the given preset. Sources refused by the
// permission gate are dropped and reported through Gate; when none remain,
// ErrPermissionDenied is returned alongside the gate. A selection that is
// refused outright is still recorded so it replaces the previous batch.
func (m *Manager) Compress(ctx context.Context, sources []string, quality preset.Quality) (CompressResult, error) {
	result := CompressResult{Preset: quality}
	result.Gate = preflight.CheckVideoRead(m.caps, sources)
	if result.Gate.Empty() {
		return result, batch.ErrNothingToDo
	}

	release, err := m.acquire()
	if err != nil {
		m.supersede(ctx, &result, sources, err)
		return result, err
	}
	defer release()

	if msg := result.Gate.Message(); msg != "" {
		logging.WarnWithContext(m.logger, msg, "permission_denied",
			logging.String("permission", result.Gate.Permission),
			logging.Int("denied", len(result.Gate.Denied)),
			logging.Int("granted", len(result.Gate.Granted)),
			logging.String(logging.FieldImpact, "refused videos are skipped"),
			logging.String(logging.FieldErrorHint, services.ErrorHint(services.ErrPermission)),
		)
	}
	if !result.Gate.Allowed() {
		m.supersede(ctx, &result, sources, ErrPermissionDenied)
		return result, ErrPermissionDenied
	}

	job := batch.NewJob(m.newID(), result.Gate.Granted, quality)
	result.BatchID = job.ID
	result.Preset = job.Preset
	ctx = services.WithBatchID(ctx, job.ID)
	logger := logging.WithContext(ctx, m.logger)

	// Persistence and notifications must survive a user interrupt so the
	// canceled items are still recorded.
	persistCtx := context.WithoutCancel(ctx)
	if err := m.store.CreateBatch(persistCtx, job); err != nil {
		err = fmt.Errorf("record batch: %w", err)
		logging.ErrorWithContext(logger, "batch not started", "history_write_failed",
			logging.Int(logging.FieldItemCount, job.Total()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.ErrorHint(err)),
		)
		_ = m.notifier.NotifyError(persistCtx, err, "compress")
		return result, err
	}

	started := m.now()
	recorder := &batchRecorder{
		manager: m,
		ctx:     persistCtx,
		logger:  logger,
		batchID: job.ID,
		total:   job.Total(),
		sampler: logging.NewProgressSampler(25),
	}
	orchestrator := batch.New(m.engine, m.paths,
		batch.WithObserver(multiObserver{recorder, m.observer}),
		batch.WithLogger(m.base),
	)
	outcomes, err := orchestrator.Run(ctx, job)
	if err != nil {
		return result, err
	}
	result.Outcomes = outcomes
	result.Savings = measureSavings(outcomes)
	result.Duration = m.now().Sub(started)

	if err := m.store.CompleteBatch(persistCtx, job.ID); err != nil {
		logging.WarnWithContext(logger, "failed to mark batch complete", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history shows the batch as running"),
		)
	}
	succeeded, canceled, failed := result.Counts()
	if err := m.notifier.NotifyBatchCompleted(persistCtx, succeeded, canceled, failed, result.Duration); err != nil {
		logger.Debug("batch completion notification failed", logging.Error(err))
	}
	total := result.TotalSavings()
	logger.Debug("batch recorded",
		logging.String(logging.FieldEventType, "batch_recorded"),
		logging.String("history", m.store.Path()),
		logging.Duration("duration", result.Duration),
		logging.Int64("original_bytes", total.OriginalBytes),
		logging.Int64("compressed_bytes", total.CompressedBytes),
	)
	return result, nil
}

// supersede records a refused selection so follow-up actions stop acting on
// the previous batch's outputs.
func (m *Manager) supersede(ctx context.Context, result *CompressResult, sources []string, cause error) {
	quality := result.Preset
	if !quality.Valid() {
		quality = preset.Default
	}
	id := m.newID()
	err := m.store.RecordRejected(context.WithoutCancel(ctx), id, quality.String(), sources, cause.Error())
	if err != nil {
		logging.ErrorWithContext(m.logger, "failed to record refused selection", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "save, share, and replace may still act on the previous batch"),
			logging.String(logging.FieldErrorHint, services.ErrorHint(err)),
		)
		return
	}
	result.BatchID = id
}
