package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cockroachdb/pebble"
)

const entryPrefix = "entry/"

// ErrEntryNotFound is returned when a catalog lookup misses.
var ErrEntryNotFound = errors.New("library entry not found")

// Entry is one catalog record.
type Entry struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Path    string    `json:"path"`
	Source  string    `json:"source"`
	Size    int64     `json:"size"`
	SHA256  string    `json:"sha256,omitempty"`
	Pending bool      `json:"pending"`
	AddedAt time.Time `json:"added_at"`
}

// Store persists catalog entries.
type Store interface {
	Put(entry Entry) error
	Get(id string) (Entry, error)
	Delete(id string) error
	List() ([]Entry, error)
}

// Catalog is the pebble-backed Store.
type Catalog struct {
	db *pebble.DB
}

// OpenCatalog opens (or creates) the catalog at path.
func OpenCatalog(path string) (*Catalog, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open library catalog: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close releases the catalog.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func entryKey(id string) []byte {
	return []byte(entryPrefix + id)
}

// Put inserts or replaces an entry.
func (c *Catalog) Put(entry Entry) error {
	if entry.ID == "" {
		return errors.New("library entry id required")
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode library entry: %w", err)
	}
	return c.db.Set(entryKey(entry.ID), data, pebble.Sync)
}

// Get fetches an entry by id.
func (c *Catalog) Get(id string) (Entry, error) {
	data, closer, err := c.db.Get(entryKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return Entry{}, ErrEntryNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("read library entry: %w", err)
	}
	defer closer.Close()

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, fmt.Errorf("decode library entry: %w", err)
	}
	return entry, nil
}

// Delete removes an entry. Missing entries are not an error.
func (c *Catalog) Delete(id string) error {
	return c.db.Delete(entryKey(id), pebble.Sync)
}

// List returns every entry ordered by insertion time.
func (c *Catalog) List() ([]Entry, error) {
	iter, err := c.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(entryPrefix),
		UpperBound: []byte(entryPrefix + "\xff"),
	})
	if err != nil {
		return nil, fmt.Errorf("iterate library catalog: %w", err)
	}
	defer iter.Close()

	var entries []Entry
	for iter.First(); iter.Valid(); iter.Next() {
		var entry Entry
		if err := json.Unmarshal(iter.Value(), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].AddedAt.Before(entries[j].AddedAt)
	})
	return entries, nil
}

var _ Store = (*Catalog)(nil)
