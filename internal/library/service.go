// Package library holds the published catalog and answers queries against it.
// Commands mutate the published catalog; Queries only read it, scanning once
// when nothing has been published yet.
package library

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/mmcdole/driveshelf/internal/domain"
	"github.com/mmcdole/driveshelf/internal/scan"
)

// cacheKey is the storage key of the last published catalog
const cacheKey = "catalog"

// Scanner produces catalogs and folder listings
type Scanner interface {
	Scan(ctx context.Context) (domain.Catalog, error)
	Browse(ctx context.Context, folderID string) (scan.Folder, error)
}

// Config controls locators and playback markers
type Config struct {
	PublicURL       string  // Base URL the stream proxy is reachable at
	IntroStart      float64 // Seconds
	IntroEnd        float64
	OutroLength     float64
	ChapterInterval float64
}

// Library owns the published catalog shared by Commands and Queries.
type Library struct {
	scanner Scanner
	cache   domain.Storage
	cfg     Config
	logger  *slog.Logger

	mu        sync.RWMutex
	catalog   *domain.Catalog
	started   uint64 // Generation of the most recently started scan
	published uint64 // Generation of the published catalog
	listeners []func(domain.Catalog)

	initial singleflight.Group
}

// New creates a library. cache may be nil, in which case catalogs are only
// kept in memory.
func New(scanner Scanner, cache domain.Storage, cfg Config, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{scanner: scanner, cache: cache, cfg: cfg, logger: logger}
}

// Commands returns the write side of the library
func (l *Library) Commands() *Commands { return &Commands{lib: l} }

// Queries returns the read side of the library
func (l *Library) Queries() *Queries { return &Queries{lib: l} }

// OnPublish registers fn to be called with every newly published catalog
func (l *Library) OnPublish(fn func(domain.Catalog)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Current returns the published catalog, if any
func (l *Library) Current() (domain.Catalog, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.catalog == nil {
		return domain.Catalog{}, false
	}
	return *l.catalog, true
}

// Restore publishes the cached catalog from a previous run, if there is one.
// It reports whether a catalog was restored.
func (l *Library) Restore() bool {
	if l.cache == nil {
		return false
	}
	data, ok, err := l.cache.Get(cacheKey)
	if err != nil {
		l.logger.Warn("failed to read cached catalog", "error", err)
		return false
	}
	if !ok {
		return false
	}
	var c domain.Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		l.logger.Warn("failed to decode cached catalog", "error", err)
		return false
	}

	l.mu.Lock()
	if l.catalog != nil {
		l.mu.Unlock()
		return false
	}
	l.catalog = &c
	listeners := append([]func(domain.Catalog){}, l.listeners...)
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(c)
	}
	l.logger.Info("restored cached catalog", "movies", len(c.Movies), "series", len(c.Series), "lastScanned", c.LastScanned)
	return true
}

// begin reserves the next scan generation
func (l *Library) begin() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started++
	return l.started
}

// publish installs c unless a later scan already published. It reports
// whether c was installed.
func (l *Library) publish(gen uint64, c domain.Catalog) bool {
	l.mu.Lock()
	if gen <= l.published {
		l.mu.Unlock()
		return false
	}
	l.published = gen
	l.catalog = &c
	listeners := append([]func(domain.Catalog){}, l.listeners...)
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(c)
	}
	l.persist(c)
	return true
}

func (l *Library) persist(c domain.Catalog) {
	if l.cache == nil {
		return
	}
	data, err := json.Marshal(c)
	if err != nil {
		l.logger.Error("failed to encode catalog", "error", err)
		return
	}
	if err := l.cache.Set(cacheKey, data); err != nil {
		l.logger.Error("failed to cache catalog", "error", err)
	}
}

// ensure returns the published catalog, scanning once if none exists.
// Concurrent callers share a single scan.
func (l *Library) ensure(ctx context.Context) (domain.Catalog, error) {
	if c, ok := l.Current(); ok {
		return c, nil
	}
	v, err, _ := l.initial.Do("scan", func() (any, error) {
		if c, ok := l.Current(); ok {
			return c, nil
		}
		return l.Commands().ScanLibrary(ctx)
	})
	if err != nil {
		return domain.Catalog{}, err
	}
	return v.(domain.Catalog), nil
}
