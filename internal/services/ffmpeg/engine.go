package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"vidshrink/internal/batch"
	"vidshrink/internal/logging"
	"vidshrink/internal/media/ffprobe"
	"vidshrink/internal/services"
)

var commandContext = exec.CommandContext

type probeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Option configures the engine.
type Option func(*Engine)

// WithBinary overrides the ffmpeg binary.
func WithBinary(binary string) Option {
	return func(e *Engine) {
		if binary = strings.TrimSpace(binary); binary != "" {
			e.binary = binary
		}
	}
}

// WithProbeBinary overrides the ffprobe binary.
func WithProbeBinary(binary string) Option {
	return func(e *Engine) {
		if binary = strings.TrimSpace(binary); binary != "" {
			e.probeBinary = binary
		}
	}
}

// WithSettings replaces the encoder settings. Empty fields keep defaults.
func WithSettings(settings Settings) Option {
	return func(e *Engine) {
		if settings.VideoCodec != "" {
			e.settings.VideoCodec = settings.VideoCodec
		}
		if settings.EncoderSpeed != "" {
			e.settings.EncoderSpeed = settings.EncoderSpeed
		}
		if settings.AudioCodec != "" {
			e.settings.AudioCodec = settings.AudioCodec
		}
		if settings.AudioBitrate != "" {
			e.settings.AudioBitrate = settings.AudioBitrate
		}
		if settings.Threads > 0 {
			e.settings.Threads = settings.Threads
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logging.NewComponentLogger(logger, "ffmpeg")
	}
}

// Engine transcodes single files by shelling out to ffmpeg.
type Engine struct {
	binary      string
	probeBinary string
	settings    Settings
	logger      *slog.Logger
	probe       probeFunc
}

// NewEngine constructs an engine using defaults.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		binary:      "ffmpeg",
		probeBinary: "ffprobe",
		settings:    DefaultSettings(),
		logger:      logging.NewComponentLogger(nil, "ffmpeg"),
		probe:       ffprobe.Inspect,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transcode runs ffmpeg for one request and reports through listener.
func (e *Engine) Transcode(ctx context.Context, req batch.Request, listener batch.Listener) {
	logger := logging.WithContext(ctx, e.logger)
	if ctx.Err() != nil {
		listener.Canceled()
		return
	}
	if strings.TrimSpace(req.Destination) == "" {
		listener.Failed(services.Wrap(services.ErrValidation, "ffmpeg", "transcode", "destination path required", nil))
		return
	}
	info, err := os.Stat(req.Source)
	if err != nil {
		marker := services.ErrNotFound
		if errors.Is(err, os.ErrPermission) {
			marker = services.ErrPermission
		}
		listener.Failed(services.Wrap(marker, "ffmpeg", "open source", req.Source, err))
		return
	}
	if info.IsDir() {
		listener.Failed(services.Wrap(services.ErrValidation, "ffmpeg", "open source", "source is a directory", nil))
		return
	}

	duration := 0.0
	if probe, err := e.probe(ctx, e.probeBinary, req.Source); err != nil {
		logging.WarnWithContext(logger, "ffprobe failed; progress will be coarse", "probe_failed",
			logging.String("source", req.Source),
			logging.Error(err),
			logging.String(logging.FieldImpact, "item progress stays at 0 until encoding finishes"),
			logging.String(logging.FieldErrorHint, "verify ffprobe is installed"),
		)
	} else {
		duration = probe.DurationSeconds()
	}

	args := BuildArgs(req, e.settings)
	logger.Debug("launching ffmpeg",
		logging.String("binary", e.binary),
		logging.String("args", strings.Join(args, " ")),
	)

	if err := e.run(ctx, args, duration, listener.Progress); err != nil {
		removePartial(logger, req.Destination)
		if ctx.Err() != nil {
			listener.Canceled()
			return
		}
		listener.Failed(err)
		return
	}

	out, err := os.Stat(req.Destination)
	if err != nil || out.Size() == 0 {
		removePartial(logger, req.Destination)
		listener.Failed(services.Wrap(services.ErrExternalTool, "ffmpeg", "transcode", "no output produced", err))
		return
	}
	listener.Completed()
}

func (e *Engine) run(ctx context.Context, args []string, duration float64, progress func(float64)) error {
	cmd := commandContext(ctx, e.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "stdout pipe", "", err)
	}
	stderr := &tailBuffer{limit: 4096}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "start", e.binary, err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		fraction, ok, end := progressLine(scanner.Text(), duration)
		switch {
		case end:
			progress(1)
		case ok:
			progress(fraction)
		}
	}
	scanErr := scanner.Err()

	if err := cmd.Wait(); err != nil {
		detail := stderr.LastLine()
		if detail == "" {
			detail = "encode failed"
		}
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "transcode", detail, err)
	}
	if scanErr != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "read progress", "", scanErr)
	}
	return nil
}

func removePartial(logger *slog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(logger, "failed to remove partial output", "cleanup_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "an incomplete file remains in the output directory"),
		)
	}
}

var _ batch.Engine = (*Engine)(nil)
