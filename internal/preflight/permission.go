package preflight

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"vidshrink/internal/platform"
)

var access = unix.Access

// Denial records a source that failed the read gate.
type Denial struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Gate is the outcome of the video-read permission check.
type Gate struct {
	Permission string   `json:"permission"`
	Granted    []string `json:"granted"`
	Denied     []Denial `json:"denied,omitempty"`
}

// Allowed reports whether at least one source may be processed.
func (g Gate) Allowed() bool {
	return len(g.Granted) > 0
}

// Empty reports whether the selection held no usable paths at all.
func (g Gate) Empty() bool {
	return len(g.Granted) == 0 && len(g.Denied) == 0
}

// Message is the persistent status line shown when sources were refused.
// Empty when every source passed.
func (g Gate) Message() string {
	if len(g.Denied) == 0 {
		return ""
	}
	if len(g.Granted) == 0 {
		return fmt.Sprintf("Permission denied: %s is required to read the selected videos", g.Permission)
	}
	return fmt.Sprintf("Permission denied for %d of %d videos (%s required)", len(g.Denied), len(g.Denied)+len(g.Granted), g.Permission)
}

// CheckVideoRead verifies that each source is a readable regular file.
func CheckVideoRead(caps platform.Capabilities, paths []string) Gate {
	gate := Gate{Permission: caps.VideoReadPermission}
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			gate.Denied = append(gate.Denied, Denial{Path: path, Reason: "does not exist"})
			continue
		case err != nil:
			gate.Denied = append(gate.Denied, Denial{Path: path, Reason: err.Error()})
			continue
		case info.IsDir():
			gate.Denied = append(gate.Denied, Denial{Path: path, Reason: "is a directory"})
			continue
		}
		if err := access(path, unix.R_OK); err != nil {
			gate.Denied = append(gate.Denied, Denial{Path: path, Reason: "read permission denied"})
			continue
		}
		gate.Granted = append(gate.Granted, path)
	}
	return gate
}
