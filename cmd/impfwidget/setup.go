package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/ligustah/impfwidget/internal/config"
	"github.com/ligustah/impfwidget/internal/feed"
	"github.com/ligustah/impfwidget/internal/logging"
	"github.com/ligustah/impfwidget/internal/progress"
	"github.com/ligustah/impfwidget/internal/store"
	"github.com/ligustah/impfwidget/pkg/widget"
)

// dotEnvPath is loaded before the environment is read. Empty skips it.
var dotEnvPath = ".env"

// commonFlags are shared by every command.
type commonFlags struct {
	config *string
	url    *string
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		config: fs.String("config", "", "Path to YAML config file"),
		url:    fs.String("url", "", "Feed URL (overrides config)"),
	}
}

// load layers defaults, the config file, the environment and override.
func (c *commonFlags) load(override config.Config) (config.Config, error) {
	if dotEnvPath != "" {
		if err := config.LoadDotEnv(dotEnvPath); err != nil {
			return config.Config{}, err
		}
	}

	cfg := config.Default()
	if *c.config != "" {
		var err error
		cfg, err = config.LoadFromFile(*c.config)
		if err != nil {
			return config.Config{}, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}

	override.URL = *c.url
	cfg = cfg.Merge(override)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// parseFlags parses args, reporting whether the command should continue.
func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess, false
		}
		return ExitInvalidArgs, false
	}
	return ExitSuccess, true
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(stderr, cfg.Log.Format, level)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received interrupt, shutting down")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

func newFetcher(cfg config.Config, logger *slog.Logger) *feed.Fetcher {
	return feed.NewFetcher(feed.Options{
		URL:         cfg.URL,
		HTTPOptions: cfg.HTTPOptions(),
		Logger:      logger,
	})
}

func newFormatter(cfg config.Config) (*progress.Formatter, error) {
	tag, err := progress.ParseLocale(cfg.Locale)
	if err != nil {
		return nil, err
	}
	return progress.NewFormatter(tag), nil
}

// openArchive opens the configured archive. It returns nil if none is set.
func openArchive(ctx context.Context, cfg config.Config) (*store.Archive, error) {
	if cfg.CacheURL == "" {
		return nil, nil
	}
	archive, err := store.Open(ctx, cfg.CacheURL)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return archive, nil
}

// widgetFamily returns the configured family. cfg must be validated.
func widgetFamily(cfg config.Config) widget.Family {
	f, err := widget.ParseFamily(cfg.Family)
	if err != nil {
		return widget.FamilyMedium
	}
	return f
}
