package ffmpeg

import (
	"fmt"
	"strconv"

	"vidshrink/internal/batch"
)

// Settings are encoder parameters shared by every item.
type Settings struct {
	VideoCodec   string
	EncoderSpeed string
	AudioCodec   string
	AudioBitrate string
	Threads      int
}

// DefaultSettings returns the H.264 settings used when no overrides are set.
func DefaultSettings() Settings {
	return Settings{
		VideoCodec:   "libx264",
		EncoderSpeed: "medium",
		AudioCodec:   "aac",
		AudioBitrate: "128k",
	}
}

// BuildArgs assembles the ffmpeg argument list for one request.
func BuildArgs(req batch.Request, settings Settings) []string {
	args := []string{"-hide_banner", "-nostdin", "-y", "-i", req.Source, "-map", "0:v:0"}

	if filter := ScaleFilter(req.Video.MaxDimension); filter != "" {
		args = append(args, "-vf", filter)
	}

	args = append(args, "-c:v", settings.VideoCodec)
	if settings.EncoderSpeed != "" {
		args = append(args, "-preset", settings.EncoderSpeed)
	}
	if req.Quality.Valid() {
		args = append(args, "-crf", strconv.Itoa(req.Quality.CRF()))
		if rate := req.Quality.TargetBitrate(); rate > 0 {
			args = append(args,
				"-maxrate", fmt.Sprintf("%dk", rate),
				"-bufsize", fmt.Sprintf("%dk", rate*2),
			)
		}
	}
	args = append(args, "-pix_fmt", "yuv420p")

	if req.Audio.DropTrack {
		args = append(args, "-an")
	} else {
		args = append(args, "-map", "0:a?", "-c:a", settings.AudioCodec, "-b:a", settings.AudioBitrate)
	}

	if settings.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(settings.Threads))
	}

	return append(args,
		"-movflags", "+faststart",
		"-progress", "pipe:1",
		"-nostats",
		req.Destination,
	)
}

// ScaleFilter caps the shorter side of the frame at maxDimension while
// keeping the aspect ratio and never upscaling. Zero disables scaling.
func ScaleFilter(maxDimension int) string {
	if maxDimension <= 0 {
		return ""
	}
	return fmt.Sprintf(
		"scale='if(gte(iw,ih),-2,min(%[1]d,iw))':'if(gte(iw,ih),min(%[1]d,ih),-2)'",
		maxDimension,
	)
}
