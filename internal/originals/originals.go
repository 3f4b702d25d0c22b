package originals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"vidshrink/internal/logging"
)

var removeFile = os.Remove

// Confirmer asks the user once for the whole set of files.
type Confirmer interface {
	Confirm(ctx context.Context, paths []string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, paths []string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, paths []string) (bool, error) {
	return f(ctx, paths)
}

// Failure records one file that could not be deleted.
type Failure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Result summarizes a deletion request.
type Result struct {
	Requested int       `json:"requested"`
	Deleted   int       `json:"deleted"`
	Missing   int       `json:"missing"`
	Declined  bool      `json:"declined"`
	Failures  []Failure `json:"failures,omitempty"`
}

// Failed returns the number of files that could not be deleted.
func (r Result) Failed() int {
	return len(r.Failures)
}

// Summary renders the user-facing status line.
func (r Result) Summary() string {
	switch {
	case r.Declined:
		return "Deletion canceled; originals kept"
	case r.Failed() > 0:
		return fmt.Sprintf("%d originals failed to delete", r.Failed())
	case r.Deleted == 1:
		return "Deleted 1 original"
	default:
		return fmt.Sprintf("Deleted %d originals", r.Deleted)
	}
}

// Deleter removes original files using one of two strategies: batched asks
// a single confirmation for the whole set, per-item deletes each file
// directly and tallies failures.
type Deleter struct {
	batched   bool
	confirmer Confirmer
	logger    *slog.Logger
}

// New returns a deleter. confirmer is consulted only in batched mode; a nil
// confirmer approves.
func New(batched bool, confirmer Confirmer, logger *slog.Logger) *Deleter {
	return &Deleter{
		batched:   batched,
		confirmer: confirmer,
		logger:    logging.NewComponentLogger(logger, "originals"),
	}
}

// Batched reports whether the deleter confirms once for the whole set.
func (d *Deleter) Batched() bool {
	return d.batched
}

// Delete removes paths. Individual failures never abort the run and nothing
// already deleted is restored.
func (d *Deleter) Delete(ctx context.Context, paths []string) (Result, error) {
	result := Result{Requested: len(paths)}
	if len(paths) == 0 {
		return result, nil
	}
	if d.batched && d.confirmer != nil {
		ok, err := d.confirmer.Confirm(ctx, paths)
		if err != nil {
			return result, fmt.Errorf("confirm deletion: %w", err)
		}
		if !ok {
			result.Declined = true
			d.logger.Info("deletion declined",
				logging.String(logging.FieldEventType, "originals_declined"),
				logging.Int("file_count", len(paths)),
			)
			return result, nil
		}
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			result.Failures = append(result.Failures, Failure{Path: path, Reason: "canceled"})
			continue
		}
		err := removeFile(path)
		switch {
		case err == nil:
			result.Deleted++
		case errors.Is(err, os.ErrNotExist):
			result.Missing++
		default:
			reason := err.Error()
			if errors.Is(err, os.ErrPermission) {
				reason = "permission denied"
			}
			result.Failures = append(result.Failures, Failure{Path: path, Reason: reason})
		}
	}

	attrs := []logging.Attr{
		logging.Int("requested", result.Requested),
		logging.Int("deleted", result.Deleted),
		logging.Int("missing", result.Missing),
		logging.Int("failed", result.Failed()),
		logging.Bool("batched", d.batched),
	}
	if result.Failed() > 0 {
		attrs = append(attrs,
			logging.String(logging.FieldImpact, "some originals remain on disk"),
			logging.String(logging.FieldErrorHint, "check file permissions and delete manually"),
		)
		logging.WarnWithContext(d.logger, "some originals could not be deleted", "originals_delete_partial", attrs...)
	} else {
		d.logger.Info("originals deleted", logging.Args(append(attrs, logging.String(logging.FieldEventType, "originals_deleted"))...)...)
	}
	return result, nil
}
