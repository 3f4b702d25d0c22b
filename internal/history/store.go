package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"vidshrink/internal/batch"
	"vidshrink/internal/config"
)

// Store manages batch persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// ErrBatchNotFound is returned when no batch matches the lookup.
var ErrBatchNotFound = errors.New("batch not found")

// Open initializes or connects to the history database under the state directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.HistoryPath())
}

// OpenPath opens the history database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Reset removes the database files at dbPath. It is the escape hatch for a
// schema mismatch, where Open refuses to use the existing file.
func Reset(dbPath string) error {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", dbPath+suffix, err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// CreateBatch records a new running batch with every item pending.
func (s *Store) CreateBatch(ctx context.Context, job *batch.Job) error {
	if job == nil || job.ID == "" {
		return errors.New("create batch: job id is required")
	}
	now := formatTime(s.now())
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin batch tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO batches (id, preset, total, status, created_at) VALUES (?, ?, ?, ?, ?)`,
			job.ID, job.Preset.String(), job.Total(), BatchRunning, now,
		); err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
		for index, source := range job.Items {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO batch_items (batch_id, item_index, source_path, status, updated_at) VALUES (?, ?, ?, ?, ?)`,
				job.ID, index, source, ItemPending, now,
			); err != nil {
				return fmt.Errorf("insert batch item %d: %w", index, err)
			}
		}
		return tx.Commit()
	})
}

// RecordRejected records a selection that was refused before it ran. Every
// item is stored as rejected with reason, and the batch becomes the latest.
func (s *Store) RecordRejected(ctx context.Context, batchID, presetName string, sources []string, reason string) error {
	if batchID == "" {
		return errors.New("record rejected batch: id is required")
	}
	now := formatTime(s.now())
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin batch tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO batches (id, preset, total, status, created_at, completed_at) VALUES (?, ?, ?, ?, ?, ?)`,
			batchID, presetName, len(sources), BatchRejected, now, now,
		); err != nil {
			return fmt.Errorf("insert rejected batch: %w", err)
		}
		for index, source := range sources {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO batch_items (batch_id, item_index, source_path, status, reason, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
				batchID, index, source, ItemRejected, nullableString(reason), now,
			); err != nil {
				return fmt.Errorf("insert rejected item %d: %w", index, err)
			}
		}
		return tx.Commit()
	})
}

// RecordOutcome stores the terminal result of one item.
func (s *Store) RecordOutcome(ctx context.Context, batchID string, outcome batch.Outcome) error {
	res, err := s.exec(ctx,
		`UPDATE batch_items SET status = ?, output_path = ?, reason = ?, updated_at = ? WHERE batch_id = ? AND item_index = ?`,
		string(outcome.Kind), nullableString(outcome.OutputPath), nullableString(outcome.Reason),
		formatTime(s.now()), batchID, outcome.Index,
	)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("record outcome for %s #%d: %w", batchID, outcome.Index, ErrBatchNotFound)
	}
	return nil
}

// CompleteBatch marks a batch complete.
func (s *Store) CompleteBatch(ctx context.Context, batchID string) error {
	res, err := s.exec(ctx,
		`UPDATE batches SET status = ?, completed_at = ? WHERE id = ?`,
		BatchComplete, formatTime(s.now()), batchID,
	)
	if err != nil {
		return fmt.Errorf("complete batch: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("complete batch %s: %w", batchID, ErrBatchNotFound)
	}
	return nil
}

// MarkPublished records where an item's output landed in the library.
func (s *Store) MarkPublished(ctx context.Context, batchID string, index int, libraryPath string) error {
	res, err := s.exec(ctx,
		`UPDATE batch_items SET library_path = ?, updated_at = ? WHERE batch_id = ? AND item_index = ?`,
		nullableString(libraryPath), formatTime(s.now()), batchID, index,
	)
	if err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("mark published %s #%d: %w", batchID, index, ErrBatchNotFound)
	}
	return nil
}

// Get loads a batch and its items.
func (s *Store) Get(ctx context.Context, batchID string) (*Batch, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = ?`, batchID)
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", batchID, ErrBatchNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	if b.Items, err = s.items(ctx, b.ID); err != nil {
		return nil, err
	}
	return b, nil
}

// Latest loads the most recently created batch. It returns ErrBatchNotFound
// when nothing has been compressed yet.
func (s *Store) Latest(ctx context.Context) (*Batch, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batches ORDER BY rowid DESC LIMIT 1`)
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest batch: %w", err)
	}
	if b.Items, err = s.items(ctx, b.ID); err != nil {
		return nil, err
	}
	return b, nil
}

// List returns batches newest first, without items. A limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches ORDER BY rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var batches []*Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// Clear removes every batch and its items.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	if _, err := s.exec(ctx, `DELETE FROM batch_items`); err != nil {
		return 0, fmt.Errorf("clear history items: %w", err)
	}
	res, err := s.exec(ctx, `DELETE FROM batches`)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) items(ctx context.Context, batchID string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM batch_items WHERE batch_id = ? ORDER BY item_index`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list batch items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
