package workflow

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"vidshrink/internal/batch"
)

// Savings compares an original with its compressed output.
type Savings struct {
	OriginalBytes   int64 `json:"original_bytes"`
	CompressedBytes int64 `json:"compressed_bytes"`
}

// SavedPercent is the share of the original size the output no longer
// uses. Negative when the output grew; zero without an original size.
func SavedPercent(original, compressed int64) float64 {
	if original <= 0 {
		return 0
	}
	return float64(original-compressed) / float64(original) * 100
}

// Percent returns SavedPercent for s.
func (s Savings) Percent() float64 {
	return SavedPercent(s.OriginalBytes, s.CompressedBytes)
}

// Known reports whether both sizes were measured.
func (s Savings) Known() bool {
	return s.OriginalBytes > 0 && s.CompressedBytes > 0
}

func (s Savings) String() string {
	if !s.Known() {
		return ""
	}
	sizes := humanize.IBytes(uint64(s.OriginalBytes)) + " -> " + humanize.IBytes(uint64(s.CompressedBytes))
	pct := s.Percent()
	if pct < 0 {
		return fmt.Sprintf("%s (grew %.1f%%)", sizes, -pct)
	}
	return fmt.Sprintf("%s (saved %.1f%%)", sizes, pct)
}

// measureSavings stats the source and output of every succeeded outcome.
// Entries for other outcomes stay zero.
func measureSavings(outcomes []batch.Outcome) []Savings {
	savings := make([]Savings, len(outcomes))
	for i, outcome := range outcomes {
		if !outcome.Succeeded() {
			continue
		}
		savings[i] = Savings{
			OriginalBytes:   fileSize(outcome.Source),
			CompressedBytes: fileSize(outcome.OutputPath),
		}
	}
	return savings
}

func totalSavings(savings []Savings) Savings {
	var total Savings
	for _, s := range savings {
		if !s.Known() {
			continue
		}
		total.OriginalBytes += s.OriginalBytes
		total.CompressedBytes += s.CompressedBytes
	}
	return total
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
