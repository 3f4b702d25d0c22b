// Package deps reports whether the external binaries vidshrink shells out to
// are installed.
package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var commandContext = exec.CommandContext

// Requirement defines an external dependency.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Version     string
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Command = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// TranscodeRequirements lists the binaries the ffmpeg engine needs.
func TranscodeRequirements(ffmpegBinary, ffprobeBinary string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     defaultString(ffmpegBinary, "ffmpeg"),
			Description: "Required for transcoding",
		},
		{
			Name:        "FFprobe",
			Command:     defaultString(ffprobeBinary, "ffprobe"),
			Description: "Used for progress tracking and the info command",
		},
	}
}

// WithVersions fills Version for available ffmpeg-family binaries.
func WithVersions(ctx context.Context, statuses []Status) []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	for i := range out {
		if out[i].Available {
			out[i].Version = Version(ctx, out[i].Command)
		}
	}
	return out
}

// Version runs "<binary> -version" and extracts the version token from the
// first line ("ffmpeg version 6.1.1 Copyright ..." → "6.1.1"). Empty when
// unavailable.
func Version(ctx context.Context, binary string) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	output, err := commandContext(ctx, binary, "-version").Output()
	if err != nil {
		return ""
	}
	return parseVersion(string(output))
}

func parseVersion(output string) string {
	first, _, _ := strings.Cut(output, "\n")
	fields := strings.Fields(first)
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] == "version" {
			return fields[i+1]
		}
	}
	return ""
}

func defaultString(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}
