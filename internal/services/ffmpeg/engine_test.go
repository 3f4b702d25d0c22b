package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"vidshrink/internal/batch"
	"vidshrink/internal/media/ffprobe"
	"vidshrink/internal/preset"
	"vidshrink/internal/services"
)

type recorder struct {
	mu        sync.Mutex
	fractions []float64
	terminal  []string
	err       error
}

func (r *recorder) Progress(fraction float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fractions = append(r.fractions, fraction)
}

func (r *recorder) Completed() { r.mark("completed", nil) }
func (r *recorder) Canceled()  { r.mark("canceled", nil) }
func (r *recorder) Failed(err error) {
	r.mark("failed", err)
}

func (r *recorder) mark(kind string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.terminal = append(r.terminal, kind)
	r.err = err
}

func stubFFmpeg(t *testing.T, mode string, captured *[]string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if captured != nil {
			*captured = append([]string(nil), args...)
		}
		cs := append([]string{"-test.run=TestHelperProcess", "--"}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "FFMPEG_HELPER_MODE="+mode)
		return cmd
	}
	t.Cleanup(func() { commandContext = original })
}

func newTestEngine(duration string) *Engine {
	engine := NewEngine()
	engine.probe = func(context.Context, string, string) (ffprobe.Result, error) {
		if duration == "" {
			return ffprobe.Result{}, errors.New("probe failed")
		}
		return ffprobe.Result{Format: ffprobe.Format{Duration: duration}}, nil
	}
	return engine
}

func newRequest(t *testing.T) batch.Request {
	t.Helper()
	dir := t.TempDir()
	source := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(source, []byte("source"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	strategy := preset.Medium.Strategy()
	return batch.Request{
		Source:      source,
		Destination: filepath.Join(dir, "out", "compressed_1.mp4"),
		Video:       strategy.Video,
		Audio:       strategy.Audio,
		Quality:     preset.Medium,
	}
}

func TestTranscodeSuccessReportsProgress(t *testing.T) {
	var args []string
	stubFFmpeg(t, "success", &args)
	req := newRequest(t)
	if err := os.MkdirAll(filepath.Dir(req.Destination), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	rec := &recorder{}
	newTestEngine("10").Transcode(context.Background(), req, rec)

	if len(rec.terminal) != 1 || rec.terminal[0] != "completed" {
		t.Fatalf("expected single completed outcome, got %v (%v)", rec.terminal, rec.err)
	}
	want := []float64{0.25, 0.5, 1}
	if len(rec.fractions) != len(want) {
		t.Fatalf("unexpected fractions %v", rec.fractions)
	}
	for i := range want {
		if rec.fractions[i] != want[i] {
			t.Fatalf("fraction %d: want %v got %v", i, want[i], rec.fractions[i])
		}
	}
	if args[len(args)-1] != req.Destination {
		t.Fatalf("expected destination as last arg, got %v", args)
	}
	if !containsSeq(args, "-an") {
		t.Fatalf("expected audio to be dropped, args %v", args)
	}
}

func TestTranscodeFailureRemovesPartial(t *testing.T) {
	stubFFmpeg(t, "fail", nil)
	req := newRequest(t)
	if err := os.MkdirAll(filepath.Dir(req.Destination), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	rec := &recorder{}
	newTestEngine("").Transcode(context.Background(), req, rec)

	if len(rec.terminal) != 1 || rec.terminal[0] != "failed" {
		t.Fatalf("expected failed outcome, got %v", rec.terminal)
	}
	if !errors.Is(rec.err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", rec.err)
	}
	if !strings.Contains(rec.err.Error(), "Invalid data found") {
		t.Fatalf("expected stderr detail in reason, got %v", rec.err)
	}
	if _, err := os.Stat(req.Destination); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected partial output removed, stat err %v", err)
	}
}

func TestTranscodeEmptyOutputFails(t *testing.T) {
	stubFFmpeg(t, "empty", nil)
	req := newRequest(t)
	rec := &recorder{}
	newTestEngine("5").Transcode(context.Background(), req, rec)
	if len(rec.terminal) != 1 || rec.terminal[0] != "failed" {
		t.Fatalf("expected failed outcome, got %v", rec.terminal)
	}
}

func TestTranscodeMissingSource(t *testing.T) {
	req := newRequest(t)
	req.Source = filepath.Join(t.TempDir(), "missing.mp4")
	rec := &recorder{}
	newTestEngine("5").Transcode(context.Background(), req, rec)
	if len(rec.terminal) != 1 || !errors.Is(rec.err, services.ErrNotFound) {
		t.Fatalf("expected not found failure, got %v %v", rec.terminal, rec.err)
	}
}

func TestTranscodeCanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &recorder{}
	newTestEngine("5").Transcode(ctx, newRequest(t), rec)
	if len(rec.terminal) != 1 || rec.terminal[0] != "canceled" {
		t.Fatalf("expected canceled outcome, got %v", rec.terminal)
	}
}

func TestTranscodeCanceledWhileRunning(t *testing.T) {
	stubFFmpeg(t, "hang", nil)
	req := newRequest(t)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	rec := &recorder{}
	newTestEngine("5").Transcode(ctx, req, rec)
	if len(rec.terminal) != 1 || rec.terminal[0] != "canceled" {
		t.Fatalf("expected canceled outcome, got %v (%v)", rec.terminal, rec.err)
	}
}

func TestBuildArgsKeepsAudioWhenRequested(t *testing.T) {
	req := batch.Request{
		Source:      "in.mov",
		Destination: "out.mp4",
		Video:       preset.VideoStrategy{MaxDimension: 720},
		Audio:       preset.AudioStrategy{DropTrack: false},
		Quality:     preset.High,
	}
	args := BuildArgs(req, DefaultSettings())
	if containsSeq(args, "-an") {
		t.Fatalf("did not expect -an, got %v", args)
	}
	if !containsSeq(args, "-c:a", "aac") || !containsSeq(args, "-crf", "23") || !containsSeq(args, "-maxrate", "1500k") {
		t.Fatalf("unexpected args %v", args)
	}
	if !containsSeq(args, "-vf", ScaleFilter(720)) {
		t.Fatalf("expected scale filter, got %v", args)
	}
}

func TestScaleFilter(t *testing.T) {
	if ScaleFilter(0) != "" {
		t.Fatal("expected no filter for zero dimension")
	}
	got := ScaleFilter(480)
	if !strings.Contains(got, "min(480,ih)") || !strings.Contains(got, "min(480,iw)") {
		t.Fatalf("unexpected filter %q", got)
	}
}

func TestProgressLine(t *testing.T) {
	tests := []struct {
		line     string
		duration float64
		fraction float64
		ok       bool
		end      bool
	}{
		{"out_time_us=5000000", 10, 0.5, true, false},
		{"out_time_ms=2500000", 10, 0.25, true, false},
		{"out_time_us=20000000", 10, 1, true, false},
		{"out_time_us=N/A", 10, 0, false, false},
		{"out_time_us=5000000", 0, 0, false, false},
		{"progress=continue", 10, 0, false, false},
		{"progress=end", 10, 0, false, true},
		{"frame=12", 10, 0, false, false},
		{"garbage", 10, 0, false, false},
	}
	for _, tt := range tests {
		fraction, ok, end := progressLine(tt.line, tt.duration)
		if fraction != tt.fraction || ok != tt.ok || end != tt.end {
			t.Errorf("progressLine(%q): got (%v,%v,%v)", tt.line, fraction, ok, end)
		}
	}
}

func TestTailBufferKeepsLastLine(t *testing.T) {
	buf := &tailBuffer{limit: 16}
	fmt.Fprint(buf, "first line\nsecond line\nlast\n")
	if buf.LastLine() != "last" {
		t.Fatalf("unexpected last line %q", buf.LastLine())
	}
	if len(buf.data) > 16 {
		t.Fatalf("buffer exceeded limit: %d", len(buf.data))
	}
}

func containsSeq(args []string, seq ...string) bool {
	for i := 0; i+len(seq) <= len(args); i++ {
		match := true
		for j := range seq {
			if args[i+j] != seq[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}
	destination := args[len(args)-1]
	switch os.Getenv("FFMPEG_HELPER_MODE") {
	case "success":
		fmt.Fprintln(os.Stdout, "frame=10")
		fmt.Fprintln(os.Stdout, "out_time_us=2500000")
		fmt.Fprintln(os.Stdout, "progress=continue")
		fmt.Fprintln(os.Stdout, "out_time_ms=5000000")
		fmt.Fprintln(os.Stdout, "progress=end")
		if err := os.WriteFile(destination, []byte("encoded"), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	case "fail":
		_ = os.WriteFile(destination, []byte("partial"), 0o644)
		fmt.Fprintln(os.Stderr, "clip.mp4: Invalid data found when processing input")
		os.Exit(1)
	case "empty":
		os.Exit(0)
	case "hang":
		time.Sleep(10 * time.Second)
		os.Exit(0)
	}
	os.Exit(2)
}
