package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"

	"github.com/ligustah/impfwidget/internal/config"
	"github.com/ligustah/impfwidget/internal/feed"
	"github.com/ligustah/impfwidget/internal/logging"
	"github.com/ligustah/impfwidget/internal/render"
	"github.com/ligustah/impfwidget/internal/store"
	"github.com/ligustah/impfwidget/pkg/widget"
)

func runRender(args []string) int {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)

	common := addCommonFlags(fs)
	family := fs.String("family", "", "Widget family: small or medium")
	format := fs.String("format", "text", "Output format: text or json")
	color := fs.Bool("color", false, "Use ANSI colours in text output")
	fromCache := fs.Bool("from-cache", false, "Draw the latest archived snapshot instead of fetching")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: impfwidget render [options]

Fetch the vaccination feed and draw the widget. A failed fetch still draws
the widget with placeholders. With cache_url configured, successful fetches
are archived and -from-cache draws the latest archived snapshot.

Options:`)
		fs.PrintDefaults()
	}

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	cfg, err := common.load(config.Config{Family: *family})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	renderer, err := render.New(render.Format(*format), render.Options{Color: *color, Indent: true})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	if *fromCache && cfg.CacheURL == "" {
		fmt.Fprintln(stderr, "Error: -from-cache requires cache_url")
		return ExitInvalidArgs
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	formatter, err := newFormatter(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	archive, err := openArchive(ctx, cfg)
	if err != nil {
		logging.LogError(logger, "archive unavailable", err)
		return ExitStorageError
	}
	if archive != nil {
		defer archive.Close()
	}

	var res feed.Result
	if *fromCache {
		res, err = loadCached(ctx, archive)
		if err != nil {
			logging.LogError(logger, "read archive failed", err)
			return ExitStorageError
		}
	} else {
		res = newFetcher(cfg, logger).Load(ctx)
		if res.OK() && archive != nil {
			if err := archive.Save(ctx, res.Snapshot); err != nil {
				logging.LogError(logger, "failed to archive snapshot", err)
			}
		}
	}

	wdg := widget.Build(widget.Input{
		Snapshot:        res.Snapshot,
		Status:          res.Status,
		Family:          widgetFamily(cfg),
		Population:      cfg.Population,
		RefreshInterval: cfg.RefreshInterval,
		Formatter:       formatter,
	})

	logger.Debug("render widget",
		slog.String("family", string(wdg.Family)),
		slog.String("status", wdg.Status.String()),
		slog.Time("refresh_after", wdg.RefreshAfter))

	if err := renderer.Render(stdout, wdg); err != nil {
		logging.LogError(logger, "render failed", err)
		return ExitGeneralError
	}
	return ExitSuccess
}

// loadCached reads the latest archived snapshot. An empty archive yields a
// not-found result rather than an error.
func loadCached(ctx context.Context, archive *store.Archive) (feed.Result, error) {
	snap, err := archive.Latest(ctx)
	if errors.Is(err, store.ErrNoSnapshot) {
		return feed.Result{Status: feed.StatusNotFound, Err: err}, nil
	}
	if err != nil {
		return feed.Result{}, err
	}
	return feed.Result{Snapshot: snap, Status: feed.StatusOK}, nil
}
