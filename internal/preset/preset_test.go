package preset_test

import (
	"math"
	"testing"

	"vidshrink/internal/preset"
)

func TestStrategyPerPreset(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "high", input: "high", want: 720},
		{name: "medium", input: "medium", want: 480},
		{name: "low", input: "low", want: 360},
		{name: "unset defaults to medium", input: "", want: 480},
		{name: "case insensitive", input: " HIGH ", want: 720},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := preset.Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			strategy := q.Strategy()
			if strategy.Video.MaxDimension != tt.want {
				t.Fatalf("expected max dimension %d, got %d", tt.want, strategy.Video.MaxDimension)
			}
			if !strategy.Audio.DropTrack {
				t.Fatalf("expected audio track to be dropped for %q", q)
			}
		})
	}
}

func TestParseRejectsUnknownPreset(t *testing.T) {
	if _, err := preset.Parse("ultra"); err == nil {
		t.Fatal("expected error for unknown preset")
	}
}

func TestZeroQualityFallsBackToDefault(t *testing.T) {
	var q preset.Quality
	if q.Valid() {
		t.Fatal("zero value should not be a valid preset")
	}
	if got := q.Strategy().Video.MaxDimension; got != 480 {
		t.Fatalf("expected zero value to use medium strategy, got %d", got)
	}
	if q.String() != "medium" {
		t.Fatalf("expected zero value to print as medium, got %q", q.String())
	}
}

func TestParseResolution(t *testing.T) {
	cases := map[string]int{
		"1920x1080": 1920 * 1080,
		"720p":      1280 * 720,
		"4K":        3840 * 2160,
		"360p":      640 * 360,
		"":          -1,
		"original":  -1,
		"axb":       -1,
		"0x100":     -1,
	}
	for input, want := range cases {
		if got := preset.ParseResolution(input); got != want {
			t.Errorf("ParseResolution(%q) = %d, want %d", input, got, want)
		}
	}
}

func TestEstimateSize(t *testing.T) {
	got := preset.EstimateSize(100_000_000, 4000, 1000, "1920x1080", "1280x720")
	want := 100_000_000 * 0.25 * (1280.0 * 720 / (1920 * 1080)) * 0.9
	if math.Abs(got-want) > 1 {
		t.Fatalf("expected %.0f, got %.0f", want, got)
	}

	unknown := preset.EstimateSize(1000, 0, 800, "", "720p")
	if math.Abs(unknown-900) > 0.001 {
		t.Fatalf("expected ratios to default to 1, got %.3f", unknown)
	}

	if preset.EstimateSize(0, 1, 1, "", "") != 0 {
		t.Fatal("expected zero estimate for empty source")
	}
}

func TestEstimateForNeverExceedsSource(t *testing.T) {
	got := preset.EstimateFor(preset.High, 1000, 100, "640x360")
	if got > 1000 {
		t.Fatalf("estimate %.0f exceeds source size", got)
	}
}
