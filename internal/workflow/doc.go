// Package workflow implements the user-facing actions: compress a selection,
// then save, share, or replace the outputs of the latest batch.
//
// The Manager takes the state-directory lock so only one batch runs at a
// time, applies the video-read permission gate, persists the batch in
// history, and drives the orchestrator over the ffmpeg engine. Per-item
// failures become ntfy notifications; the whole batch is summarized once it
// completes.
//
// Save, Share, and Replace read the latest batch back from history, so they
// work across separate CLI invocations.
package workflow
