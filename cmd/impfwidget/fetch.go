package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"

	"github.com/ligustah/impfwidget/internal/config"
	"github.com/ligustah/impfwidget/internal/feed"
	"github.com/ligustah/impfwidget/internal/logging"
)

// snapshotOutput is the printed form of a snapshot.
type snapshotOutput struct {
	FirstDoseCount  int64  `json:"first_dose_count"`
	SecondDoseCount int64  `json:"second_dose_count"`
	ReportDate      string `json:"report_date"`
}

func runFetch(args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)

	common := addCommonFlags(fs)
	save := fs.Bool("save", false, "Write the snapshot to the archive at cache_url")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: impfwidget fetch [options]

Fetch the vaccination feed once and print the snapshot as JSON.
Exits with status 3 if the feed cannot be read.

Options:`)
		fs.PrintDefaults()
	}

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	cfg, err := common.load(config.Config{})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	if *save && cfg.CacheURL == "" {
		fmt.Fprintln(stderr, "Error: -save requires cache_url")
		return ExitInvalidArgs
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	snap, err := newFetcher(cfg, logger).Fetch(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitFetchFailed
	}

	if *save {
		archive, err := openArchive(ctx, cfg)
		if err != nil {
			logging.LogError(logger, "archive unavailable", err)
			return ExitStorageError
		}
		defer archive.Close()

		if err := archive.Save(ctx, snap); err != nil {
			logging.LogError(logger, "failed to archive snapshot", err)
			return ExitStorageError
		}
		logging.LogOperation(logger, "snapshot_saved",
			slog.String("cache_url", cfg.CacheURL),
			slog.String("report_date", snap.ReportDate.Format(feed.DateLayout)))
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshotOutput{
		FirstDoseCount:  snap.FirstDoseCount,
		SecondDoseCount: snap.SecondDoseCount,
		ReportDate:      snap.ReportDate.Format(feed.DateLayout),
	}); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitGeneralError
	}
	return ExitSuccess
}
