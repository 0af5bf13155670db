package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	feedhttp "github.com/ligustah/impfwidget/internal/http"
	"github.com/ligustah/impfwidget/internal/logging"
)

// DefaultURL is the public vaccination feed.
const DefaultURL = "https://interaktiv.morgenpost.de/data/corona/rki-vaccinations.json"

// Field names in the feed's first element.
const (
	FieldCumulative       = "cumsum_latest"
	FieldCumulativeSecond = "cumsum2_latest"
	FieldDate             = "date"
)

// maxBodySize bounds how much of the feed is read.
const maxBodySize = 16 << 20

// maxInt64Float is 2^63, the first float64 outside the int64 range.
const maxInt64Float = float64(1 << 63)

// dateLayouts are tried in order when parsing the report date.
var dateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Getter fetches a URL. *feedhttp.Client implements it.
type Getter interface {
	Get(ctx context.Context, url string) (io.ReadCloser, error)
}

// Options configures the fetcher.
type Options struct {
	// URL is the feed endpoint.
	// Default: DefaultURL
	URL string

	// HTTPOptions configures the HTTP client when Client is nil.
	HTTPOptions feedhttp.Options

	// Client overrides the HTTP client.
	Client Getter

	// Logger receives diagnostic output.
	// Default: slog.Default()
	Logger *slog.Logger
}

// Fetcher retrieves vaccination snapshots from the feed.
type Fetcher struct {
	url    string
	client Getter
	logger *slog.Logger
}

// NewFetcher creates a fetcher with the given options.
func NewFetcher(opts Options) *Fetcher {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Client == nil {
		if opts.HTTPOptions == (feedhttp.Options{}) {
			opts.HTTPOptions = feedhttp.DefaultOptions()
		}
		opts.Client = feedhttp.NewClient(opts.HTTPOptions)
	}

	return &Fetcher{
		url:    opts.URL,
		client: opts.Client,
		logger: opts.Logger,
	}
}

// URL returns the feed endpoint.
func (f *Fetcher) URL() string {
	return f.url
}

// Fetch performs a single GET against the feed and parses the first element.
// All failures are returned as *FetchError.
func (f *Fetcher) Fetch(ctx context.Context) (Snapshot, error) {
	start := time.Now()

	body, err := f.client.Get(ctx, f.url)
	if err != nil {
		return Snapshot{}, networkError(err)
	}
	defer logging.SafeCloseWithLogging(body, f.logger, "feed_body")

	data, err := io.ReadAll(io.LimitReader(body, maxBodySize))
	if err != nil {
		return Snapshot{}, networkError(fmt.Errorf("read body: %w", err))
	}

	f.logger.Debug("parse vaccinations",
		slog.String("url", f.url),
		slog.Int("bytes", len(data)))

	snap, err := Parse(bytes.NewReader(data))
	if err != nil {
		return Snapshot{}, err
	}

	logging.LogOperation(f.logger, "feed_fetched",
		slog.String("url", f.url),
		slog.Int64("first_dose", snap.FirstDoseCount),
		slog.Int64("second_dose", snap.SecondDoseCount),
		slog.String("report_date", snap.ReportDate.Format(DateLayout)),
		slog.Duration("duration", time.Since(start)))

	return snap, nil
}

// Load calls Fetch and folds any error into the Result, replacing the
// snapshot with the empty one.
func (f *Fetcher) Load(ctx context.Context) Result {
	snap, err := f.Fetch(ctx)
	if err != nil {
		logging.LogError(f.logger, "reading data failed", err,
			slog.String("url", f.url),
			slog.String("component", "feed"))
		return Result{Status: statusFor(err), Err: err}
	}
	return Result{Snapshot: snap, Status: StatusOK}
}

// Parse decodes a feed body into a Snapshot.
func Parse(r io.Reader) (Snapshot, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var entries []json.RawMessage
	if err := dec.Decode(&entries); err != nil {
		return Snapshot{}, parseError("", fmt.Errorf("decode feed: %w", err))
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Snapshot{}, parseError("", errors.New("decode feed: trailing data after array"))
	}
	if len(entries) == 0 {
		return Snapshot{}, missingField(FieldCumulative, errors.New("feed is empty"))
	}

	var entry map[string]any
	d := json.NewDecoder(bytes.NewReader(entries[0]))
	d.UseNumber()
	if err := d.Decode(&entry); err != nil || entry == nil {
		if err == nil {
			err = errors.New("first element is null")
		}
		return Snapshot{}, parseError("", fmt.Errorf("decode first element: %w", err))
	}

	total, err := intField(entry, FieldCumulative)
	if err != nil {
		return Snapshot{}, err
	}
	second, err := intField(entry, FieldCumulativeSecond)
	if err != nil {
		return Snapshot{}, err
	}
	date, err := dateField(entry, FieldDate)
	if err != nil {
		return Snapshot{}, err
	}

	if total < 0 || second < 0 {
		return Snapshot{}, parseError("", fmt.Errorf("negative count: %d/%d", total, second))
	}
	if second > total {
		return Snapshot{}, parseError(FieldCumulativeSecond,
			fmt.Errorf("second doses %d exceed total %d", second, total))
	}

	return Snapshot{
		FirstDoseCount:  total - second,
		SecondDoseCount: second,
		ReportDate:      date,
	}, nil
}

// intField reads a whole number from entry.
func intField(entry map[string]any, key string) (int64, error) {
	v, ok := entry[key]
	if !ok || v == nil {
		return 0, missingField(key, nil)
	}

	n, ok := v.(json.Number)
	if !ok {
		return 0, missingField(key, fmt.Errorf("not numeric: %T", v))
	}

	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	fv, err := n.Float64()
	if err != nil {
		return 0, parseError(key, err)
	}
	if fv >= maxInt64Float || fv < -maxInt64Float {
		return 0, parseError(key, fmt.Errorf("out of range: %s", n))
	}
	if fv != math.Trunc(fv) {
		return 0, parseError(key, fmt.Errorf("not a whole number: %s", n))
	}
	return int64(fv), nil
}

// dateField reads a calendar date from entry.
func dateField(entry map[string]any, key string) (time.Time, error) {
	v, ok := entry[key]
	if !ok || v == nil {
		return time.Time{}, missingField(key, nil)
	}

	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, missingField(key, fmt.Errorf("not a string: %v", v))
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, parseError(key, fmt.Errorf("invalid date %q", s))
}
