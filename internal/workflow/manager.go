package workflow

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"vidshrink/internal/batch"
	"vidshrink/internal/config"
	"vidshrink/internal/history"
	"vidshrink/internal/library"
	"vidshrink/internal/logging"
	"vidshrink/internal/notifications"
	"vidshrink/internal/originals"
	"vidshrink/internal/platform"
	"vidshrink/internal/services/ffmpeg"
	"vidshrink/internal/share"
)

var (
	// ErrBatchActive means another process holds the batch lock.
	ErrBatchActive = errors.New("another vidshrink batch is already running")
	// ErrPermissionDenied means no selected source passed the read gate.
	ErrPermissionDenied = errors.New("permission denied for every selected video")
	// ErrNoOutputs means the latest batch produced nothing to act on.
	ErrNoOutputs = errors.New("no compressed videos available; run compress first")
	// ErrNothingSaved means replace kept every original because no output
	// reached the library.
	ErrNothingSaved = errors.New("nothing was saved; originals kept")
	// ErrUnavailable means an optional collaborator was not configured.
	ErrUnavailable = errors.New("not configured")
)

// Manager coordinates batch runs and the follow-up actions on their outputs.
type Manager struct {
	cfg      *config.Config
	caps     platform.Capabilities
	store    *history.Store
	base     *slog.Logger
	logger   *slog.Logger
	notifier notifications.Service

	engine  batch.Engine
	paths   batch.PathAllocator
	lib     *library.Library
	sharer  *share.Sharer
	deleter *originals.Deleter
	// confirmReplace approves a replace before anything is published or
	// deleted. Nil means the caller already has the user's consent.
	confirmReplace originals.Confirmer

	observer batch.Observer
	lock     *flock.Flock
	newID    func() string
	now      func() time.Time
}

// Option configures optional Manager collaborators.
type Option func(*Manager)

// WithEngine replaces the ffmpeg engine (used in tests).
func WithEngine(engine batch.Engine) Option {
	return func(m *Manager) {
		if engine != nil {
			m.engine = engine
		}
	}
}

// WithPathAllocator replaces the output namer.
func WithPathAllocator(paths batch.PathAllocator) Option {
	return func(m *Manager) {
		if paths != nil {
			m.paths = paths
		}
	}
}

// WithNotifier replaces the notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithObserver registers a progress observer, typically the CLI renderer.
func WithObserver(observer batch.Observer) Option {
	return func(m *Manager) {
		m.observer = observer
	}
}

// WithLibrary enables Save and Replace.
func WithLibrary(lib *library.Library) Option {
	return func(m *Manager) {
		m.lib = lib
	}
}

// WithSharer enables Share.
func WithSharer(sharer *share.Sharer) Option {
	return func(m *Manager) {
		m.sharer = sharer
	}
}

// WithReplaceConfirmer sets the question asked before every replace, on
// every platform profile.
func WithReplaceConfirmer(confirmer originals.Confirmer) Option {
	return func(m *Manager) {
		m.confirmReplace = confirmer
	}
}

// WithConfirmer sets the platform's batched deletion request. Profiles that
// delete item by item never consult it.
func WithConfirmer(confirmer originals.Confirmer) Option {
	return func(m *Manager) {
		m.deleter = originals.New(m.caps.BatchDelete, confirmer, m.base)
	}
}

// New constructs a manager. The capability row is resolved once here from
// the configured platform profile.
func New(cfg *config.Config, store *history.Store, logger *slog.Logger, opts ...Option) (*Manager, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("workflow manager requires config and history store")
	}
	caps, err := platform.Resolve(cfg.Platform.Profile)
	if err != nil {
		return nil, fmt.Errorf("resolve platform: %w", err)
	}
	base := logger
	if base == nil {
		base = logging.NewNop()
	}

	m := &Manager{
		cfg:      cfg,
		caps:     caps,
		store:    store,
		base:     base,
		logger:   logging.NewComponentLogger(base, "workflow"),
		notifier: notifications.NewService(cfg),
		engine: ffmpeg.NewEngine(
			ffmpeg.WithBinary(cfg.Compression.FFmpegBinary),
			ffmpeg.WithProbeBinary(cfg.Compression.FFprobeBinary),
			ffmpeg.WithSettings(ffmpeg.Settings{
				VideoCodec:   cfg.Compression.VideoCodec,
				EncoderSpeed: cfg.Compression.EncoderPreset,
				Threads:      cfg.Compression.Threads,
			}),
			ffmpeg.WithLogger(base),
		),
		paths:    batch.NewNamer(cfg.Paths.OutputDir),
		deleter:  originals.New(caps.BatchDelete, nil, base),
		observer: batch.ObserverFuncs{},
		lock:     flock.New(cfg.LockPath()),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.observer == nil {
		m.observer = batch.ObserverFuncs{}
	}
	return m, nil
}

// Capabilities returns the resolved capability row.
func (m *Manager) Capabilities() platform.Capabilities {
	return m.caps
}

func (m *Manager) acquire() (func(), error) {
	ok, err := m.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire batch lock: %w", err)
	}
	if !ok {
		return nil, ErrBatchActive
	}
	return func() {
		if err := m.lock.Unlock(); err != nil {
			logging.WarnWithContext(m.logger, "failed to release batch lock", "lock_release_failed",
				logging.String("lock", m.lock.Path()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "the next batch may report the lock as held"),
				logging.String(logging.FieldErrorHint, "remove the lock file if no vidshrink process is running"),
			)
		}
	}, nil
}
