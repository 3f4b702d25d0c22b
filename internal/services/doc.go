// Package services defines shared utilities consumed by the batch orchestrator,
// the workflow actions, and the external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp batch IDs, item positions, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures carry the
//     operation that produced them and a hint for the operator.
//
// Integrations with external tools live in subpackages (ffmpeg).
package services
