package batch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// OutputPrefix starts every generated output name.
	OutputPrefix = "compressed_"
	// OutputExtension is the container extension of generated outputs.
	OutputExtension = ".mp4"
)

// Namer allocates compressed_<unix-millis>.mp4 paths inside a directory.
// Names are unique within the process and never collide with existing files.
type Namer struct {
	dir string
	now func() time.Time

	mu     sync.Mutex
	issued map[string]struct{}
}

// NewNamer returns a namer rooted at dir.
func NewNamer(dir string) *Namer {
	return &Namer{
		dir:    dir,
		now:    time.Now,
		issued: make(map[string]struct{}),
	}
}

// Dir returns the output directory.
func (n *Namer) Dir() string {
	return n.dir
}

// Next ensures the output directory exists and returns an unused path.
func (n *Namer) Next() (string, error) {
	if strings.TrimSpace(n.dir) == "" {
		return "", errors.New("output directory not configured")
	}
	if err := os.MkdirAll(n.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	base := fmt.Sprintf("%s%d", OutputPrefix, n.now().UnixMilli())
	for attempt := 0; ; attempt++ {
		name := base + OutputExtension
		if attempt > 0 {
			name = fmt.Sprintf("%s_%d%s", base, attempt, OutputExtension)
		}
		candidate := filepath.Join(n.dir, name)
		if _, taken := n.issued[candidate]; taken {
			continue
		}
		_, err := os.Stat(candidate)
		if err == nil {
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("inspect output path: %w", err)
		}
		n.issued[candidate] = struct{}{}
		return candidate, nil
	}
}
