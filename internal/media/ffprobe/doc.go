// Package ffprobe wraps ffprobe's JSON output for the handful of properties
// vidshrink needs: duration for progress tracking, dimensions and bitrate for
// size estimates, and stream counts for reporting.
package ffprobe
