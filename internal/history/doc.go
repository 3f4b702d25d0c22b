// Package history persists batches and their per-item outcomes in SQLite.
//
// A batch row is created before the orchestrator starts, each item is
// updated as it resolves, and the batch is marked complete once every item
// has an outcome. The save, share, and replace commands read the latest
// batch back so they act on the outputs of the most recent run.
//
// Schema changes bump schemaVersion in schema.go; users clear the database
// (vidshrink history clear) to adopt the new schema.
package history
