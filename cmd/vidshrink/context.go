package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"vidshrink/internal/config"
	"vidshrink/internal/history"
	"vidshrink/internal/library"
	"vidshrink/internal/logging"
	"vidshrink/internal/platform"
	"vidshrink/internal/services"
	"vidshrink/internal/share"
	"vidshrink/internal/workflow"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureLogger builds the process logger and prunes old daily log files.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logging: %w", err)
			return
		}
		logging.PruneDailyLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, time.Now())
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) openHistory() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(cfg)
	if err != nil {
		err = fmt.Errorf("open history: %w", err)
		hint := services.ErrorHint(err)
		if errors.Is(err, history.ErrSchemaMismatch) {
			hint = "run 'vidshrink history clear --reset'"
		}
		if logger, logErr := c.ensureLogger(); logErr == nil {
			logging.ErrorWithContext(logger, "history database unavailable", "history_open_failed",
				logging.String("path", cfg.HistoryPath()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, hint),
			)
		}
		return nil, err
	}
	return store, nil
}

// openLibrary opens the catalog. The catalog is held only for the duration
// of one command so a running compress does not block save in another shell.
func (c *commandContext) openLibrary(logger *slog.Logger, pending bool) (*library.Library, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	catalog, err := library.OpenCatalog(cfg.CatalogPath())
	if err != nil {
		return nil, nil, err
	}
	lib := library.New(cfg.Paths.LibraryDir, catalog, pending, logger)
	return lib, func() { _ = catalog.Close() }, nil
}

func (c *commandContext) openSharer(logger *slog.Logger) (*share.Sharer, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	backend, err := share.NewBackend(cfg, logger)
	if err != nil {
		return nil, err
	}
	return share.New(backend, logger), nil
}

type managerNeeds struct {
	library bool
	share   bool
}

// withManager builds a workflow manager with the collaborators a command
// needs and releases them after fn returns.
func (c *commandContext) withManager(needs managerNeeds, fn func(*workflow.Manager) error, opts ...workflow.Option) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	store, err := c.openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	caps, err := platform.Resolve(cfg.Platform.Profile)
	if err != nil {
		return err
	}
	if needs.library {
		lib, closeLib, err := c.openLibrary(logger, caps.PendingPublish)
		if err != nil {
			return err
		}
		defer closeLib()
		opts = append(opts, workflow.WithLibrary(lib))
	}
	if needs.share {
		sharer, err := c.openSharer(logger)
		if err != nil {
			return err
		}
		opts = append(opts, workflow.WithSharer(sharer))
	}

	manager, err := workflow.New(cfg, store, logger, opts...)
	if err != nil {
		return err
	}
	return fn(manager)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
