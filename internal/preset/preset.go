package preset

import (
	"fmt"
	"strings"
)

// Quality names a compression preset.
type Quality string

const (
	High   Quality = "high"
	Medium Quality = "medium"
	Low    Quality = "low"
)

// Default is used when no preset was selected.
const Default = Medium

// All lists the presets in descending quality order.
var All = []Quality{High, Medium, Low}

// VideoStrategy caps the output frame size. MaxDimension applies to the shorter
// side of the frame; sources already below the cap are not upscaled.
type VideoStrategy struct {
	MaxDimension int
}

// AudioStrategy decides what happens to the audio track.
type AudioStrategy struct {
	DropTrack bool
}

// Strategy is what the engine receives for every item of a batch.
type Strategy struct {
	Video VideoStrategy
	Audio AudioStrategy
}

type settings struct {
	maxDimension  int
	crf           int
	targetBitrate int // kbps
}

var table = map[Quality]settings{
	High:   {maxDimension: 720, crf: 23, targetBitrate: 1500},
	Medium: {maxDimension: 480, crf: 28, targetBitrate: 800},
	Low:    {maxDimension: 360, crf: 32, targetBitrate: 500},
}

// Parse resolves a user supplied preset name. An empty value yields Default.
func Parse(value string) (Quality, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "":
		return Default, nil
	case "h", "hq", "high":
		return High, nil
	case "m", "med", "medium":
		return Medium, nil
	case "l", "lq", "low":
		return Low, nil
	}
	return "", fmt.Errorf("unknown quality preset %q (expected high, medium or low)", value)
}

// Valid reports whether q is one of the known presets.
func (q Quality) Valid() bool {
	_, ok := table[q]
	return ok
}

func (q Quality) settings() settings {
	if s, ok := table[q]; ok {
		return s
	}
	return table[Default]
}

// Strategy returns the engine strategy for q. Unknown values fall back to Default.
func (q Quality) Strategy() Strategy {
	return Strategy{
		Video: VideoStrategy{MaxDimension: q.settings().maxDimension},
		Audio: AudioStrategy{DropTrack: true},
	}
}

// MaxDimension returns the shorter-side cap in pixels.
func (q Quality) MaxDimension() int {
	return q.settings().maxDimension
}

// CRF returns the constant rate factor handed to the encoder.
func (q Quality) CRF() int {
	return q.settings().crf
}

// TargetBitrate returns the nominal video bitrate in kbps, used for estimates.
func (q Quality) TargetBitrate() int {
	return q.settings().targetBitrate
}

// Resolution returns the nominal resolution label, e.g. "720p".
func (q Quality) Resolution() string {
	return fmt.Sprintf("%dp", q.MaxDimension())
}

func (q Quality) String() string {
	if q == "" {
		return string(Default)
	}
	return string(q)
}
