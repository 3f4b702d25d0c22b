package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vidshrink/internal/fileutil"
	"vidshrink/internal/logging"
)

var (
	// ErrSourceMissing means the file to publish no longer exists.
	ErrSourceMissing = errors.New("source file missing")
	// ErrInsertFailed means the library could not create a record for the file.
	ErrInsertFailed = errors.New("cannot create media file")
)

// Library publishes files into a library directory.
type Library struct {
	dir     string
	store   Store
	pending bool
	logger  *slog.Logger
	now     func() time.Time
}

// New returns a library rooted at dir. pending selects the pending-publish
// profile; otherwise files are copied and then recorded.
func New(dir string, store Store, pending bool, logger *slog.Logger) *Library {
	return &Library{
		dir:     dir,
		store:   store,
		pending: pending,
		logger:  logging.NewComponentLogger(logger, "library"),
		now:     time.Now,
	}
}

// Dir returns the library directory.
func (l *Library) Dir() string {
	return l.dir
}

// Entries lists the catalog.
func (l *Library) Entries() ([]Entry, error) {
	return l.store.List()
}

// Publish copies path into the library and records it.
func (l *Library) Publish(ctx context.Context, path string) (Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Entry{}, fmt.Errorf("%w: %s", ErrSourceMissing, path)
		}
		return Entry{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Entry{}, fmt.Errorf("%w: %s is a directory", ErrSourceMissing, path)
	}
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return Entry{}, fmt.Errorf("create library directory: %w", err)
	}
	target, err := fileutil.UniquePath(l.dir, filepath.Base(path))
	if err != nil {
		return Entry{}, fmt.Errorf("choose library path: %w", err)
	}

	entry := Entry{
		ID:      uuid.NewString(),
		Title:   TitleFor(path),
		Path:    target,
		Source:  path,
		AddedAt: l.now().UTC(),
	}
	if l.pending {
		entry, err = l.publishPending(entry)
	} else {
		entry, err = l.publishDirect(entry)
	}
	if err != nil {
		return Entry{}, err
	}
	l.logger.Info("published to library",
		logging.String(logging.FieldEventType, "library_publish"),
		logging.String("title", entry.Title),
		logging.String("path", entry.Path),
		logging.Int64("size_bytes", entry.Size),
		logging.Bool("pending_profile", l.pending),
	)
	return entry, nil
}

func (l *Library) publishPending(entry Entry) (Entry, error) {
	entry.Pending = true
	if err := l.store.Put(entry); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}
	digest, err := fileutil.CopyVerified(entry.Source, entry.Path)
	if err != nil {
		if delErr := l.store.Delete(entry.ID); delErr != nil {
			logging.WarnWithContext(l.logger, "failed to drop pending library record", "library_cleanup_failed",
				logging.String("id", entry.ID),
				logging.Error(delErr),
				logging.String(logging.FieldImpact, "a pending entry without a file remains in the catalog"),
			)
		}
		return Entry{}, fmt.Errorf("copy into library: %w", err)
	}
	entry.Pending = false
	entry.Size = digest.Size
	entry.SHA256 = digest.SHA256
	if err := l.store.Put(entry); err != nil {
		return Entry{}, fmt.Errorf("finalize library entry: %w", err)
	}
	return entry, nil
}

func (l *Library) publishDirect(entry Entry) (Entry, error) {
	digest, err := fileutil.CopyVerified(entry.Source, entry.Path)
	if err != nil {
		return Entry{}, fmt.Errorf("copy into library: %w", err)
	}
	entry.Size = digest.Size
	entry.SHA256 = digest.SHA256
	if err := l.store.Put(entry); err != nil {
		_ = os.Remove(entry.Path)
		return Entry{}, fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}
	return entry, nil
}

// TitleFor derives a display title from a file name.
func TitleFor(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(stem)
	stem = strings.Join(strings.Fields(stem), " ")
	if stem == "" {
		return base
	}
	return cases.Title(language.Und).String(stem)
}
