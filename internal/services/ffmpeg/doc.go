// Package ffmpeg implements the batch transcoding engine on top of the ffmpeg
// and ffprobe binaries.
//
// Each Transcode call probes the source for its duration, runs ffmpeg with
// machine-readable progress on stdout, and reports fractions, then exactly
// one terminal outcome, through the supplied listener. Partial output is
// removed when an item fails or is canceled.
package ffmpeg
