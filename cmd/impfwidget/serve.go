package main

import (
	"flag"
	"fmt"

	"github.com/ligustah/impfwidget/internal/config"
	"github.com/ligustah/impfwidget/internal/logging"
	"github.com/ligustah/impfwidget/internal/server"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)

	common := addCommonFlags(fs)
	addr := fs.String("addr", "", "Listen address (overrides config)")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: impfwidget serve [options]

Serve the widget over HTTP:
  GET /healthz
  GET /v1/snapshot.json
  GET /v1/widget.json?family=small|medium
  GET /v1/widget.txt?family=small|medium&color=true
  GET /v1/snapshots            (requires cache_url)
  GET /v1/snapshots/:date      (requires cache_url)
  GET /v1/stream               (websocket, pushes every refresh)

Options:`)
		fs.PrintDefaults()
	}

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	cfg, err := common.load(config.Config{Server: config.ServerConfig{Addr: *addr}})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
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

	source := server.NewCachedSource(newFetcher(cfg, logger), cfg.RefreshInterval, archive, logger)

	srv, err := server.New(server.Options{
		Source:          source,
		Archive:         archive,
		Family:          widgetFamily(cfg),
		Population:      cfg.Population,
		RefreshInterval: cfg.RefreshInterval,
		Formatter:       formatter,
		RateLimit:       cfg.Server.RateLimit,
		Burst:           cfg.Server.Burst,
		Logger:          logger,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitGeneralError
	}

	if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
		logging.LogError(logger, "server failed", err)
		return ExitGeneralError
	}
	return ExitSuccess
}
