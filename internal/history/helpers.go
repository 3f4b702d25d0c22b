package history

import (
	"database/sql"
	"errors"
	"time"
)

const (
	batchColumns = "id, preset, total, status, created_at, completed_at"
	itemColumns  = "item_index, source_path, status, output_path, reason, library_path, updated_at"
)

type scanner interface{ Scan(dest ...any) error }

func scanBatch(row scanner) (*Batch, error) {
	var (
		id           string
		presetName   string
		total        int
		status       string
		createdRaw   sql.NullString
		completedRaw sql.NullString
	)
	if err := row.Scan(&id, &presetName, &total, &status, &createdRaw, &completedRaw); err != nil {
		return nil, err
	}
	b := &Batch{
		ID:     id,
		Preset: presetName,
		Total:  total,
		Status: BatchStatus(status),
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		b.CreatedAt = created
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			b.CompletedAt = &completed
		}
	}
	return b, nil
}

func scanItem(row scanner) (Item, error) {
	var (
		index       int
		source      string
		status      string
		outputPath  sql.NullString
		reason      sql.NullString
		libraryPath sql.NullString
		updatedRaw  sql.NullString
	)
	if err := row.Scan(&index, &source, &status, &outputPath, &reason, &libraryPath, &updatedRaw); err != nil {
		return Item{}, err
	}
	item := Item{
		Index:       index,
		Source:      source,
		Status:      ItemStatus(status),
		OutputPath:  outputPath.String,
		Reason:      reason.String,
		LibraryPath: libraryPath.String,
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
