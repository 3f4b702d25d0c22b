package workflow

import (
	"context"
	"errors"
	"fmt"

	"vidshrink/internal/history"
	"vidshrink/internal/library"
	"vidshrink/internal/logging"
	"vidshrink/internal/originals"
	"vidshrink/internal/share"
)

// ItemIssue records a batch item an action could not complete.
type ItemIssue struct {
	Index  int    `json:"index"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// SaveResult summarizes publishing outputs into the library.
type SaveResult struct {
	BatchID string          `json:"batch_id"`
	Saved   []library.Entry `json:"saved"`
	Skipped []ItemIssue     `json:"skipped,omitempty"`
	Failed  []ItemIssue     `json:"failed,omitempty"`
}

// Summary renders the user-facing status line.
func (r SaveResult) Summary() string {
	switch {
	case len(r.Saved) == 0 && len(r.Failed) > 0:
		return fmt.Sprintf("Save failed: %s", r.Failed[0].Reason)
	case len(r.Failed) > 0:
		return fmt.Sprintf("Saved %d videos, %d failed", len(r.Saved), len(r.Failed))
	case len(r.Saved) == 1:
		return "Saved to " + r.Saved[0].Path
	case len(r.Saved) == 0:
		return "Nothing saved"
	default:
		return fmt.Sprintf("Saved %d videos", len(r.Saved))
	}
}

// ReplaceResult summarizes publishing outputs and deleting their originals.
type ReplaceResult struct {
	// Declined is set when the user refused the replace; nothing was
	// published or deleted.
	Declined bool             `json:"declined"`
	Save     SaveResult       `json:"save"`
	Delete   originals.Result `json:"delete"`
}

// Summary renders the user-facing status line.
func (r ReplaceResult) Summary() string {
	if r.Declined {
		return "Replace canceled; originals kept"
	}
	return r.Save.Summary() + "; " + r.Delete.Summary()
}

func (m *Manager) latestOutputs(ctx context.Context, all bool) (*history.Batch, []history.Item, error) {
	latest, err := m.store.Latest(ctx)
	if errors.Is(err, history.ErrBatchNotFound) {
		return nil, nil, ErrNoOutputs
	}
	if err != nil {
		return nil, nil, err
	}
	items := latest.Succeeded()
	if len(items) == 0 {
		return latest, nil, ErrNoOutputs
	}
	if !all {
		items = items[:1]
	}
	return latest, items, nil
}

// Save publishes the first successful output of the latest batch, or all of
// them. A missing output is skipped; other failures are reported per item
// and never retried.
func (m *Manager) Save(ctx context.Context, all bool) (SaveResult, error) {
	if m.lib == nil {
		return SaveResult{}, fmt.Errorf("library: %w", ErrUnavailable)
	}
	latest, items, err := m.latestOutputs(ctx, all)
	if err != nil {
		return SaveResult{}, err
	}
	result, _ := m.publish(ctx, latest.ID, items)
	return result, nil
}

// publish saves items and returns, alongside the result, the items whose
// outputs are now in the library (including ones saved by an earlier run).
func (m *Manager) publish(ctx context.Context, batchID string, items []history.Item) (SaveResult, []history.Item) {
	result := SaveResult{BatchID: batchID}
	published := make([]history.Item, 0, len(items))
	for _, item := range items {
		if item.Published() {
			result.Skipped = append(result.Skipped, ItemIssue{Index: item.Index, Path: item.OutputPath, Reason: "already saved to " + item.LibraryPath})
			published = append(published, item)
			continue
		}
		entry, err := m.lib.Publish(ctx, item.OutputPath)
		switch {
		case errors.Is(err, library.ErrSourceMissing):
			result.Skipped = append(result.Skipped, ItemIssue{Index: item.Index, Path: item.OutputPath, Reason: "compressed file no longer exists"})
			continue
		case err != nil:
			result.Failed = append(result.Failed, ItemIssue{Index: item.Index, Path: item.OutputPath, Reason: err.Error()})
			logging.WarnWithContext(m.logger, "save failed", "save_failed",
				logging.String(logging.FieldBatchID, batchID),
				logging.Int(logging.FieldItemIndex, item.Index+1),
				logging.String("output_path", item.OutputPath),
				logging.Error(err),
				logging.String(logging.FieldImpact, "the compressed video was not added to the library"),
			)
			continue
		}
		if err := m.store.MarkPublished(ctx, batchID, item.Index, entry.Path); err != nil {
			m.logger.Debug("failed to record published path", logging.Error(err))
		}
		item.LibraryPath = entry.Path
		result.Saved = append(result.Saved, entry)
		published = append(published, item)
	}
	return result, published
}

// Share shares the first output of the latest batch, or all of them.
func (m *Manager) Share(ctx context.Context, all bool) (share.Result, error) {
	if m.sharer == nil {
		return share.Result{}, fmt.Errorf("share: %w", ErrUnavailable)
	}
	_, items, err := m.latestOutputs(ctx, all)
	if err != nil {
		return share.Result{}, err
	}
	paths := make([]string, 0, len(items))
	for _, item := range items {
		paths = append(paths, item.OutputPath)
	}
	return m.sharer.Share(ctx, paths)
}

// Replace publishes the first output of the latest batch and deletes the
// original it was made from. It never touches other items of the batch.
func (m *Manager) Replace(ctx context.Context) (ReplaceResult, error) {
	return m.replace(ctx, false)
}

// ReplaceBatch publishes every output of the latest batch, then deletes the
// originals of the items whose output is in the library.
func (m *Manager) ReplaceBatch(ctx context.Context) (ReplaceResult, error) {
	return m.replace(ctx, true)
}

func (m *Manager) replace(ctx context.Context, all bool) (ReplaceResult, error) {
	if m.lib == nil {
		return ReplaceResult{}, fmt.Errorf("library: %w", ErrUnavailable)
	}
	latest, items, err := m.latestOutputs(ctx, all)
	if err != nil {
		return ReplaceResult{}, err
	}
	if m.confirmReplace != nil {
		candidates := make([]string, 0, len(items))
		for _, item := range items {
			candidates = append(candidates, item.Source)
		}
		ok, err := m.confirmReplace.Confirm(ctx, candidates)
		if err != nil {
			return ReplaceResult{}, fmt.Errorf("confirm replace: %w", err)
		}
		if !ok {
			m.logger.Info("replace declined",
				logging.String(logging.FieldEventType, "replace_declined"),
				logging.String(logging.FieldBatchID, latest.ID),
				logging.Int("file_count", len(candidates)),
			)
			return ReplaceResult{
				Declined: true,
				Save:     SaveResult{BatchID: latest.ID},
				Delete:   originals.Result{Requested: len(candidates), Declined: true},
			}, nil
		}
	}
	saved, published := m.publish(ctx, latest.ID, items)
	result := ReplaceResult{Save: saved}

	sources := make([]string, 0, len(published))
	for _, item := range published {
		sources = append(sources, item.Source)
	}
	if len(sources) == 0 {
		return result, fmt.Errorf("%w: %s", ErrNothingSaved, saved.Summary())
	}

	result.Delete, err = m.deleter.Delete(ctx, sources)
	if err == nil && result.Delete.Failed() > 0 {
		_ = m.notifier.NotifyError(context.WithoutCancel(ctx), errors.New(result.Delete.Summary()), "replace")
	}
	return result, err
}
