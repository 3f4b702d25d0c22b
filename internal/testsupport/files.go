package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// mp4Header is an ftyp box, enough for the file to look like a video to
// anything sniffing its first bytes.
var mp4Header = []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00, 'i', 's', 'o', 'm', 'm', 'p', '4', '1'}

// WriteVideo creates a placeholder video of exactly size bytes. Sizes
// smaller than the header still get the full header.
func WriteVideo(t testing.TB, path string, size int64) {
	t.Helper()

	if size < int64(len(mp4Header)) {
		size = int64(len(mp4Header))
	}
	data := make([]byte, size)
	copy(data, mp4Header)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteVideos creates one placeholder video per name in a fresh temp dir and
// returns their paths in order.
func WriteVideos(t testing.TB, size int64, names ...string) []string {
	t.Helper()

	dir := t.TempDir()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		WriteVideo(t, path, size)
		paths = append(paths, path)
	}
	return paths
}
