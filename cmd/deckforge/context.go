package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"deckforge/internal/config"
	"deckforge/internal/history"
	"deckforge/internal/logging"
	"deckforge/internal/pipeline"
	"deckforge/internal/services"
)

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	runID string
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
		runID:         uuid.NewString(),
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		overridden := false
		if level := flagValue(c.logLevelFlag); level != "" {
			cfg.Logging.Level = level
			overridden = true
		}
		if format := flagValue(c.logFormatFlag); format != "" {
			cfg.Logging.Format = format
			overridden = true
		}
		if overridden {
			if err := cfg.Refresh(); err != nil {
				c.configErr = err
				return
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// runContext tags the command context with this invocation's run id.
func (c *commandContext) runContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return services.WithRunID(ctx, c.runID)
}

// newPipeline builds a pipeline from the loaded config. When withHistory is
// set the export history store is attached; failing to open it only warns.
func (c *commandContext) newPipeline(withHistory bool) (*pipeline.Pipeline, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	var opts []pipeline.Option
	if withHistory {
		store, err := history.Open(cfg.Paths.HistoryDB)
		if err != nil {
			logging.WarnWithContext(logger, "export history unavailable", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "this run will not appear in deckforge history"))
		} else {
			opts = append(opts, pipeline.WithHistory(store))
			cleanup = func() { _ = store.Close() }
		}
	}
	return pipeline.New(cfg, logger, opts...), cleanup, nil
}

// withLock runs fn while holding the build lock.
func withLock(p *pipeline.Pipeline, fn func() error) error {
	release, err := p.Lock()
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func flagValue(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
