package history

import (
	"time"

	"vidshrink/internal/batch"
)

// BatchStatus is the persisted lifecycle of a batch.
type BatchStatus string

const (
	BatchRunning  BatchStatus = "running"
	BatchComplete BatchStatus = "complete"
	// BatchRejected is a selection that never ran. It supersedes earlier
	// batches so follow-up actions cannot reach their outputs.
	BatchRejected BatchStatus = "rejected"
)

// ItemStatus is the persisted state of one batch item. Resolved items carry
// the outcome kind; unresolved items stay pending.
type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemSucceeded ItemStatus = ItemStatus(batch.OutcomeSucceeded)
	ItemCanceled  ItemStatus = ItemStatus(batch.OutcomeCanceled)
	ItemFailed    ItemStatus = ItemStatus(batch.OutcomeFailed)
	ItemRejected  ItemStatus = "rejected"
)

// Item is one persisted batch item.
type Item struct {
	Index       int        `json:"index"`
	Source      string     `json:"source"`
	Status      ItemStatus `json:"status"`
	OutputPath  string     `json:"output_path,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	LibraryPath string     `json:"library_path,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Succeeded reports whether the item produced an output.
func (i Item) Succeeded() bool {
	return i.Status == ItemSucceeded
}

// Published reports whether the output was copied into the library.
func (i Item) Published() bool {
	return i.LibraryPath != ""
}

// Batch is one persisted batch with its items in input order.
type Batch struct {
	ID          string      `json:"id"`
	Preset      string      `json:"preset"`
	Total       int         `json:"total"`
	Status      BatchStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Items       []Item      `json:"items"`
}

// Succeeded returns the items that produced an output, in input order.
func (b *Batch) Succeeded() []Item {
	if b == nil {
		return nil
	}
	items := make([]Item, 0, len(b.Items))
	for _, item := range b.Items {
		if item.Succeeded() {
			items = append(items, item)
		}
	}
	return items
}

// Counts tallies items by status.
func (b *Batch) Counts() map[ItemStatus]int {
	counts := make(map[ItemStatus]int)
	if b == nil {
		return counts
	}
	for _, item := range b.Items {
		counts[item.Status]++
	}
	return counts
}
