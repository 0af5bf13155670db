package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/ligustah/impfwidget/internal/feed"
	"github.com/ligustah/impfwidget/internal/logging"
	"github.com/ligustah/impfwidget/internal/progress"
	"github.com/ligustah/impfwidget/internal/render"
	"github.com/ligustah/impfwidget/internal/store"
	"github.com/ligustah/impfwidget/pkg/widget"
)

// Options configures the server.
type Options struct {
	// Source provides snapshots. Required.
	Source Loader

	// Archive serves historical snapshots. Optional.
	Archive *store.Archive

	// Family is used when a request does not name one.
	// Default: widget.FamilyMedium
	Family widget.Family

	// Population is the percentage divisor.
	// Default: progress.GermanyPopulation
	Population int64

	// RefreshInterval is advertised to clients.
	// Default: widget.DefaultRefreshInterval
	RefreshInterval time.Duration

	// Formatter formats numbers.
	// Default: German locale
	Formatter *progress.Formatter

	// RateLimit is requests per second per client. Zero disables limiting.
	RateLimit int
	Burst     int

	// Logger receives request logs.
	// Default: slog.Default()
	Logger *slog.Logger

	// Now overrides the clock.
	Now func() time.Time
}

// Server serves widget layouts over HTTP.
type Server struct {
	opts    Options
	hub     *hub
	handler http.Handler
}

// New creates a server. It returns an error if no source is configured.
func New(opts Options) (*Server, error) {
	if opts.Source == nil {
		return nil, errors.New("server: source is required")
	}
	if opts.Family == "" {
		opts.Family = widget.FamilyMedium
	}
	if opts.Population <= 0 {
		opts.Population = progress.GermanyPopulation
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = widget.DefaultRefreshInterval
	}
	if opts.Formatter == nil {
		opts.Formatter = progress.NewFormatter(progress.DefaultLocale)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{opts: opts, hub: newHub(opts.Logger)}

	router := httprouter.New()
	router.Handler(http.MethodGet, "/healthz", http.HandlerFunc(s.handleHealth))
	router.Handler(http.MethodGet, "/v1/snapshot.json", compress(http.HandlerFunc(s.handleSnapshot)))
	router.Handler(http.MethodGet, "/v1/widget.json", compress(s.handleWidget(render.FormatJSON)))
	router.Handler(http.MethodGet, "/v1/widget.txt", compress(s.handleWidget(render.FormatText)))
	router.Handler(http.MethodGet, "/v1/snapshots", compress(http.HandlerFunc(s.handleDates)))
	router.Handler(http.MethodGet, "/v1/snapshots/:date", compress(http.HandlerFunc(s.handleArchived)))
	router.HandlerFunc(http.MethodGet, "/v1/stream", s.handleStream)
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	limiter := newRateLimiter(opts.RateLimit, opts.Burst)
	s.handler = requestLogger(opts.Logger, limiter.middleware(router))

	return s, nil
}

// Handler returns the root HTTP handler. /v1/stream answers 503 unless Run
// is active; ListenAndServe starts it.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run drives stream subscribers until ctx is cancelled: it reloads the
// source every refresh interval and pushes the result. Call it once.
func (s *Server) Run(ctx context.Context) {
	go s.refresh(ctx, s.opts.RefreshInterval)
	s.hub.run(ctx)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Accept stream subscribers from the first request on.
	s.hub.running.Store(true)
	go s.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		logging.LogOperation(s.opts.Logger, "server_started", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logging.LogOperation(s.opts.Logger, "server_stopped", slog.String("addr", addr))
		return nil
	}
}

type snapshotResponse struct {
	feed.Snapshot
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
	Error      string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	res := s.opts.Source.Load(r.Context())
	writeJSON(w, httpStatus(res), toResponse(res))
}

func (s *Server) handleWidget(format render.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		family := s.opts.Family
		if v := r.URL.Query().Get("family"); v != "" {
			f, err := widget.ParseFamily(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			family = f
		}
		color, _ := strconv.ParseBool(r.URL.Query().Get("color"))

		renderer, err := render.New(format, render.Options{Color: color})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		res := s.opts.Source.Load(r.Context())
		wdg := widget.Build(widget.Input{
			Snapshot:        res.Snapshot,
			Status:          res.Status,
			Family:          family,
			Population:      s.opts.Population,
			RefreshInterval: s.opts.RefreshInterval,
			Now:             s.opts.Now(),
			Formatter:       s.opts.Formatter,
		})

		w.Header().Set("Content-Type", renderer.ContentType())
		w.Header().Set("Cache-Control", cacheControl(res, s.opts.RefreshInterval))
		if err := renderer.Render(w, wdg); err != nil {
			logging.FromContext(r.Context()).Error("render widget failed", slog.String("error", err.Error()))
		}
	}
}

func (s *Server) handleDates(w http.ResponseWriter, r *http.Request) {
	if s.opts.Archive == nil {
		writeError(w, http.StatusNotFound, "no archive configured")
		return
	}
	dates, err := s.opts.Archive.Dates(r.Context())
	if err != nil {
		logging.LogError(logging.FromContext(r.Context()), "list snapshots failed", err)
		writeError(w, http.StatusInternalServerError, "list snapshots failed")
		return
	}
	if dates == nil {
		dates = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"dates": dates})
}

func (s *Server) handleArchived(w http.ResponseWriter, r *http.Request) {
	if s.opts.Archive == nil {
		writeError(w, http.StatusNotFound, "no archive configured")
		return
	}
	date := httprouter.ParamsFromContext(r.Context()).ByName("date")
	if _, err := time.Parse(feed.DateLayout, date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date "+strconv.Quote(date))
		return
	}

	snap, err := s.opts.Archive.Get(r.Context(), date)
	switch {
	case errors.Is(err, store.ErrNoSnapshot):
		writeError(w, http.StatusNotFound, "no snapshot for "+date)
	case err != nil:
		logging.LogError(logging.FromContext(r.Context()), "read snapshot failed", err,
			slog.String("date", date))
		writeError(w, http.StatusInternalServerError, "read snapshot failed")
	default:
		writeJSON(w, http.StatusOK, snap)
	}
}

func toResponse(res feed.Result) snapshotResponse {
	resp := snapshotResponse{
		Snapshot:   res.Snapshot,
		Status:     res.Status.String(),
		StatusCode: int(res.Status),
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	return resp
}

// cacheControl lets clients keep a widget for the refresh interval. Layouts
// drawn from a failed fetch must not be stored.
func cacheControl(res feed.Result, refresh time.Duration) string {
	if !res.OK() {
		return "no-store"
	}
	return "max-age=" + strconv.Itoa(int(refresh.Seconds()))
}

// httpStatus maps a fetch result onto the response code. Upstream failures
// surface as 502 so caches do not store them.
func httpStatus(res feed.Result) int {
	if res.OK() {
		return http.StatusOK
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
