package preset

import (
	"strconv"
	"strings"
)

// encoderEfficiency accounts for the container and encoder overhead the
// bitrate and resolution ratios do not capture.
const encoderEfficiency = 0.9

// EstimateSize predicts the compressed size in bytes of a video. Bitrates are
// in kbps; resolutions use the forms accepted by ParseResolution. When either
// ratio cannot be computed it is treated as 1. A non-positive original size
// yields 0.
func EstimateSize(originalSize int64, originalBitrate, targetBitrate int, originalResolution, targetResolution string) float64 {
	if originalSize <= 0 {
		return 0
	}
	bitrateRatio := 1.0
	if originalBitrate > 0 && targetBitrate > 0 {
		bitrateRatio = float64(targetBitrate) / float64(originalBitrate)
	}
	resolutionRatio := 1.0
	orig := ParseResolution(originalResolution)
	target := ParseResolution(targetResolution)
	if orig > 0 && target > 0 {
		resolutionRatio = float64(target) / float64(orig)
	}
	estimate := float64(originalSize) * bitrateRatio * resolutionRatio * encoderEfficiency
	if estimate <= 0 {
		return float64(originalSize) * 0.5
	}
	return estimate
}

// EstimateFor predicts the output size of compressing a source with q.
// Output never exceeds the source: the encoder does not upscale.
func EstimateFor(q Quality, originalSize int64, originalBitrate int, originalResolution string) float64 {
	estimate := EstimateSize(originalSize, originalBitrate, q.TargetBitrate(), originalResolution, q.Resolution())
	if estimate > float64(originalSize) {
		return float64(originalSize)
	}
	return estimate
}

var namedResolutions = map[string]int{
	"480p":  854 * 480,
	"720p":  1280 * 720,
	"1080p": 1920 * 1080,
	"2k":    2560 * 1440,
	"4k":    3840 * 2160,
}

// ParseResolution converts "1920x1080" or a named resolution ("720p", "4K")
// into a pixel count. Unknown or malformed input yields -1.
func ParseResolution(value string) int {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return -1
	}
	if w, h, ok := strings.Cut(value, "x"); ok {
		width, err := strconv.Atoi(strings.TrimSpace(w))
		if err != nil || width <= 0 {
			return -1
		}
		height, err := strconv.Atoi(strings.TrimSpace(h))
		if err != nil || height <= 0 {
			return -1
		}
		return width * height
	}
	if pixels, ok := namedResolutions[value]; ok {
		return pixels
	}
	if strings.HasSuffix(value, "p") {
		lines, err := strconv.Atoi(strings.TrimSuffix(value, "p"))
		if err == nil && lines > 0 {
			return lines * lines * 16 / 9
		}
	}
	return -1
}
