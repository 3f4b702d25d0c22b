// Package batch drives a transcoding engine over an ordered selection of
// videos, strictly one item at a time.
//
// A Job owns the selection, the current index, and the outcomes collected so
// far. The Orchestrator advances a Job through Idle → Running(i) → Complete:
// engine callbacks are marshaled onto the goroutine executing Run through a
// channel, and a single transition function is applied per terminal outcome.
// Every item yields exactly one Outcome regardless of whether the previous
// item succeeded, failed, or was canceled, so the outcome list always matches
// the input order and length.
//
// Engines are injected through the Engine interface; tests use in-memory
// fakes while production wires the ffmpeg adapter.
package batch
