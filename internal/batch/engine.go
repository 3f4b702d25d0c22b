package batch

import (
	"context"

	"vidshrink/internal/preset"
)

// Request describes one engine invocation.
type Request struct {
	Source      string
	Destination string
	Video       preset.VideoStrategy
	Audio       preset.AudioStrategy
	// Quality is informational; engines may derive encoder settings from it.
	Quality preset.Quality
}

// Listener receives engine notifications for a single item: zero or more
// Progress calls with fractions in [0, 1], then exactly one of Completed,
// Canceled, or Failed.
type Listener interface {
	Progress(fraction float64)
	Completed()
	Canceled()
	Failed(err error)
}

// Engine transcodes one item. Transcode blocks until the item resolves and
// must report its terminal outcome through the listener before returning.
// Listener methods may be called from any goroutine.
type Engine interface {
	Transcode(ctx context.Context, req Request, listener Listener)
}

// PathAllocator hands out destination paths for engine output.
type PathAllocator interface {
	Next() (string, error)
}
