package ffmpeg

import (
	"strconv"
	"strings"
)

// progressLine interprets one key=value line of ffmpeg -progress output.
// It returns the encoded fraction when the line carries a timestamp and
// reports whether ffmpeg signalled the end of the stream.
func progressLine(line string, durationSeconds float64) (fraction float64, ok bool, end bool) {
	key, value, found := strings.Cut(strings.TrimSpace(line), "=")
	if !found {
		return 0, false, false
	}
	switch key {
	case "progress":
		return 0, false, value == "end"
	case "out_time_us", "out_time_ms":
		// ffmpeg reports microseconds under both keys.
		if durationSeconds <= 0 {
			return 0, false, false
		}
		micros, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil || micros < 0 {
			return 0, false, false
		}
		fraction = float64(micros) / 1e6 / durationSeconds
		if fraction > 1 {
			fraction = 1
		}
		return fraction, true, false
	default:
		return 0, false, false
	}
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	data  []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	if over := len(b.data) - b.limit; over > 0 {
		b.data = append([]byte(nil), b.data[over:]...)
	}
	return len(p), nil
}

// LastLine returns the final non-empty line written.
func (b *tailBuffer) LastLine() string {
	lines := strings.Split(strings.TrimSpace(string(b.data)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
