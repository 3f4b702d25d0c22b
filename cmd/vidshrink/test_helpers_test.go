package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const stubFFmpeg = `#!/bin/sh
case "$*" in
*bad*) echo "Invalid data found when processing input" >&2; exit 1 ;;
esac
for last; do :; done
printf 'compressed' > "$last"
echo "out_time_us=5000000"
echo "progress=continue"
echo "progress=end"
`

const stubFFprobe = `#!/bin/sh
cat <<'JSON'
{"streams":[{"index":0,"codec_type":"video","width":1920,"height":1080},{"index":1,"codec_type":"audio"}],
 "format":{"duration":"10.0","size":"5000000","bit_rate":"4000000"}}
JSON
`

type cliTestEnv struct {
	baseDir    string
	configPath string
	outputDir  string
	libraryDir string
	stateDir   string
}

// setupCLITestEnv writes a config pointing at stub binaries. extra is
// appended verbatim as additional TOML.
func setupCLITestEnv(t *testing.T, extra ...string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		outputDir:  filepath.Join(base, "output"),
		libraryDir: filepath.Join(base, "library"),
		stateDir:   filepath.Join(base, "state"),
	}
	bin := filepath.Join(base, "bin")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	writeScript(t, filepath.Join(bin, "ffmpeg"), stubFFmpeg)
	writeScript(t, filepath.Join(bin, "ffprobe"), stubFFprobe)

	content := fmt.Sprintf(`[paths]
output_dir = %q
library_dir = %q
state_dir = %q
log_dir = %q

[compression]
ffmpeg_binary = %q
ffprobe_binary = %q
min_free_space_mb = 0

[logging]
level = "warn"
`,
		env.outputDir,
		env.libraryDir,
		env.stateDir,
		filepath.Join(base, "logs"),
		filepath.Join(bin, "ffmpeg"),
		filepath.Join(bin, "ffprobe"),
	)
	if len(extra) > 0 {
		content += "\n" + strings.Join(extra, "\n") + "\n"
	}
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func writeScript(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func (e *cliTestEnv) writeVideos(t *testing.T, names ...string) []string {
	t.Helper()
	dir := filepath.Join(e.baseDir, "camera")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir camera: %v", err)
	}
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("original video bytes"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		paths = append(paths, path)
	}
	return paths
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	return runCLIWithInput(t, args, configPath, "")
}

func runCLIWithInput(t *testing.T, args []string, configPath, input string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(input))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
