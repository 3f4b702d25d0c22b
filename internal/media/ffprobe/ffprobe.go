package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// Result is the decoded ffprobe payload for one file.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the container.
type Stream struct {
	Index        int        `json:"index"`
	CodecName    string     `json:"codec_name"`
	CodecType    string     `json:"codec_type"`
	Duration     string     `json:"duration"`
	BitRate      string     `json:"bit_rate"`
	Width        int        `json:"width"`
	Height       int        `json:"height"`
	SideDataList []SideData `json:"side_data_list,omitempty"`
	Tags         Tags       `json:"tags,omitempty"`
}

// SideData carries display-matrix rotation for phone recordings.
type SideData struct {
	Type     string  `json:"side_data_type"`
	Rotation float64 `json:"rotation"`
}

// Tags holds the stream tags vidshrink reads.
type Tags struct {
	Rotate string `json:"rotate,omitempty"`
}

// Format captures container-level metadata.
type Format struct {
	Filename   string `json:"filename"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Inspect runs ffprobe against path and decodes the JSON response.
func Inspect(ctx context.Context, binary, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	if strings.TrimSpace(path) == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := commandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	return Parse(output)
}

// Parse decodes an ffprobe JSON document.
func Parse(payload []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// VideoStream returns the first video stream.
func (r Result) VideoStream() (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			return stream, true
		}
	}
	return Stream{}, false
}

// VideoStreamCount returns the number of video streams.
func (r Result) VideoStreamCount() int {
	return r.countType("video")
}

// AudioStreamCount returns the number of audio streams.
func (r Result) AudioStreamCount() int {
	return r.countType("audio")
}

func (r Result) countType(kind string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, kind) {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration, falling back to the video
// stream duration. Zero means unknown.
func (r Result) DurationSeconds() float64 {
	if d := parseFloat(r.Format.Duration); d > 0 {
		return d
	}
	if stream, ok := r.VideoStream(); ok {
		if d := parseFloat(stream.Duration); d > 0 {
			return d
		}
	}
	return 0
}

// SizeBytes returns the container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	return int64(parseFloat(r.Format.Size))
}

// BitRate returns the overall bitrate in bits per second, falling back to the
// video stream bitrate.
func (r Result) BitRate() int64 {
	if rate := parseFloat(r.Format.BitRate); rate > 0 {
		return int64(rate)
	}
	if stream, ok := r.VideoStream(); ok {
		return int64(parseFloat(stream.BitRate))
	}
	return 0
}

// Dimensions returns the display width and height of the first video stream,
// swapping coded dimensions when the stream is rotated a quarter turn.
func (r Result) Dimensions() (int, int) {
	stream, ok := r.VideoStream()
	if !ok {
		return 0, 0
	}
	if quarterTurn(stream.rotation()) {
		return stream.Height, stream.Width
	}
	return stream.Width, stream.Height
}

// Resolution formats Dimensions as "WxH", or "" when unknown.
func (r Result) Resolution() string {
	w, h := r.Dimensions()
	if w <= 0 || h <= 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", w, h)
}

func (s Stream) rotation() float64 {
	for _, side := range s.SideDataList {
		if side.Rotation != 0 {
			return side.Rotation
		}
	}
	if value, err := strconv.ParseFloat(strings.TrimSpace(s.Tags.Rotate), 64); err == nil {
		return value
	}
	return 0
}

func quarterTurn(degrees float64) bool {
	turns := math.Mod(math.Abs(degrees), 180)
	return math.Abs(turns-90) < 1
}

func parseFloat(value string) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) || parsed < 0 {
		return 0
	}
	return parsed
}
