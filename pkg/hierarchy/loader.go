package hierarchy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/safetypulse/safetypulse/pkg/cache"
	"github.com/safetypulse/safetypulse/pkg/observability"
)

const (
	cacheKeyCatalog = "catalog:doc"
	cacheKeyAliases = "catalog:aliases"
)

// Snapshot is an immutable view of the loaded hierarchy data. Callers must
// not mutate it; reloads swap in a fresh snapshot.
type Snapshot struct {
	Catalog  Catalog
	Aliases  *AliasResolver
	LoadedAt time.Time
}

// LoaderConfig configures where the catalog and alias documents come from.
// URL sources take precedence over file sources when both are set.
type LoaderConfig struct {
	CatalogURL  string
	AliasesURL  string
	CatalogFile string
	AliasesFile string
	HTTPTimeout time.Duration
	CacheTTL    time.Duration
}

// Loader fetches, parses and hot-swaps the hierarchy catalog and alias
// table. A successfully loaded snapshot stays in place until the next
// successful load, so transient source failures never leave the engine
// without a catalog.
type Loader struct {
	config   LoaderConfig
	client   *http.Client
	cache    cache.Cache
	logger   *observability.Logger
	metrics  *observability.Metrics
	snapshot atomic.Pointer[Snapshot]
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLoaderCache keeps the last fetched raw documents in the given cache so
// a restart can fall back to them when the upstream source is unreachable.
func WithLoaderCache(c cache.Cache) LoaderOption {
	return func(l *Loader) { l.cache = c }
}

// WithLoaderLogger sets the logger.
func WithLoaderLogger(logger *observability.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

// WithLoaderMetrics sets the metrics sink.
func WithLoaderMetrics(m *observability.Metrics) LoaderOption {
	return func(l *Loader) { l.metrics = m }
}

// NewLoader creates a catalog loader. Call Load before serving requests.
func NewLoader(config LoaderConfig, opts ...LoaderOption) *Loader {
	if config.HTTPTimeout <= 0 {
		config.HTTPTimeout = 10 * time.Second
	}
	l := &Loader{
		config: config,
		client: &http.Client{Timeout: config.HTTPTimeout},
		cache:  cache.NoOp{},
		logger: observability.NewLogger(observability.InfoLevel, os.Stdout),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Snapshot returns the current snapshot, or nil before the first successful
// Load.
func (l *Loader) Snapshot() *Snapshot {
	return l.snapshot.Load()
}

// Load fetches both documents, parses them and swaps in a new snapshot.
// The catalog and alias fetches have no ordering dependency and run
// concurrently.
func (l *Loader) Load(ctx context.Context) error {
	var catalogRaw, aliasRaw []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := l.fetch(gctx, l.config.CatalogURL, l.config.CatalogFile, cacheKeyCatalog)
		if err != nil {
			return fmt.Errorf("failed to load hierarchy catalog: %w", err)
		}
		catalogRaw = data
		return nil
	})
	g.Go(func() error {
		data, err := l.fetch(gctx, l.config.AliasesURL, l.config.AliasesFile, cacheKeyAliases)
		if err != nil {
			return fmt.Errorf("failed to load hierarchy aliases: %w", err)
		}
		aliasRaw = data
		return nil
	})
	if err := g.Wait(); err != nil {
		l.observeReload("error")
		return err
	}

	catalog, err := ParseCatalog(catalogRaw)
	if err != nil {
		l.observeReload("error")
		return err
	}
	aliases := map[string]string{}
	if len(aliasRaw) > 0 {
		if aliases, err = ParseAliases(aliasRaw); err != nil {
			l.observeReload("error")
			return err
		}
	}

	snap := &Snapshot{
		Catalog:  catalog,
		Aliases:  NewAliasResolver(aliases, l.logger),
		LoadedAt: time.Now(),
	}
	l.snapshot.Store(snap)
	l.observeReload("success")
	if l.metrics != nil {
		l.metrics.CatalogPlants.Set(float64(len(catalog.AllPlants())))
	}
	l.logger.WithFields(map[string]interface{}{
		"segments": len(catalog),
		"plants":   len(catalog.AllPlants()),
		"aliases":  len(aliases),
	}).Info("Hierarchy catalog loaded")
	return nil
}

// Watch reloads the snapshot when a file source changes, and at the refresh
// interval when one is given. Blocks until ctx is done. File watching is a
// no-op for URL-only sources.
func (l *Loader) Watch(ctx context.Context, refreshInterval time.Duration) error {
	var watcher *fsnotify.Watcher
	var events chan fsnotify.Event
	var errors chan error

	if l.config.CatalogFile != "" || l.config.AliasesFile != "" {
		var err error
		watcher, err = fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create file watcher: %w", err)
		}
		defer watcher.Close()
		for _, path := range []string{l.config.CatalogFile, l.config.AliasesFile} {
			if path == "" {
				continue
			}
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
		}
		events = watcher.Events
		errors = watcher.Errors
	}

	var tick <-chan time.Time
	if refreshInterval > 0 {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-events:
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			l.reload(ctx, "file change")
		case err := <-errors:
			l.logger.WithError(err).Warn("Hierarchy file watcher error")
		case <-tick:
			l.reload(ctx, "refresh interval")
		}
	}
}

func (l *Loader) reload(ctx context.Context, trigger string) {
	if err := l.Load(ctx); err != nil {
		l.logger.WithError(err).WithField("trigger", trigger).Warn("Hierarchy reload failed, keeping previous snapshot")
	}
}

// fetch reads the document from the URL source, falling back to the file
// source and then to the cached copy of the last successful fetch.
func (l *Loader) fetch(ctx context.Context, url, path, cacheKey string) ([]byte, error) {
	if url != "" {
		data, err := l.fetchURL(ctx, url)
		if err == nil {
			l.cache.Set(ctx, cacheKey, data, l.config.CacheTTL)
			return data, nil
		}
		if cached, ok := l.cache.Get(ctx, cacheKey); ok {
			l.logger.WithError(err).WithField("url", url).Warn("Hierarchy fetch failed, using cached document")
			return cached, nil
		}
		if path == "" {
			return nil, err
		}
		l.logger.WithError(err).WithField("url", url).Warn("Hierarchy fetch failed, using file source")
	}
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func (l *Loader) fetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}

func (l *Loader) observeReload(status string) {
	if l.metrics != nil {
		l.metrics.CatalogReloadsTotal.WithLabelValues(status).Inc()
	}
}
