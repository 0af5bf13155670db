package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ligustah/impfwidget/internal/feed"
	"github.com/ligustah/impfwidget/internal/logging"
	"github.com/ligustah/impfwidget/internal/store"
)

// Loader produces a fetch result. *feed.Fetcher implements it.
type Loader interface {
	Load(ctx context.Context) feed.Result
}

// CachedSource serves a successful result until it is older than TTL.
// Failed results are never cached.
type CachedSource struct {
	loader  Loader
	ttl     time.Duration
	archive *store.Archive
	logger  *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	last      feed.Result
	fetchedAt time.Time
}

// NewCachedSource wraps loader. archive may be nil.
func NewCachedSource(loader Loader, ttl time.Duration, archive *store.Archive, logger *slog.Logger) *CachedSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedSource{
		loader:  loader,
		ttl:     ttl,
		archive: archive,
		logger:  logger,
		now:     time.Now,
	}
}

// Load returns the cached result or fetches a new one. Successful fetches
// are written to the archive.
func (s *CachedSource) Load(ctx context.Context) feed.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last.OK() && s.now().Sub(s.fetchedAt) < s.ttl {
		return s.last
	}

	res := s.loader.Load(ctx)
	if !res.OK() {
		return res
	}

	s.last = res
	s.fetchedAt = s.now()

	if s.archive != nil {
		if err := s.archive.Save(ctx, res.Snapshot); err != nil {
			logging.LogError(s.logger, "failed to archive snapshot", err,
				slog.String("component", "server"))
		}
	}
	return res
}

// FetchedAt returns when the cached result was fetched.
func (s *CachedSource) FetchedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchedAt
}
