// Package inspect implements the per-project schema inspector: a small
// state machine over one dialect adapter with a TTL cache, and the registry
// that multiplexes inspectors across project identifiers.
package inspect

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkoline/schemascope/internal/dialect"
	"github.com/mkoline/schemascope/internal/errs"
	"github.com/mkoline/schemascope/internal/logger"
	"github.com/mkoline/schemascope/internal/render"
	"github.com/mkoline/schemascope/internal/schema"
)

// AdapterFactory builds the adapter for a dialect. Tests substitute stub
// adapters through this seam.
type AdapterFactory func(d schema.Dialect, log zerolog.Logger) (dialect.Adapter, error)

// Inspector tracks one project's database: its connection parameters, the
// adapter for its dialect, and a cached schema with a TTL.
//
// States: Disconnected -> (Connect success) -> Connected without schema ->
// (GetSchema) -> Connected with cached schema, fresh or stale.
type Inspector struct {
	mu      sync.Mutex
	cfg     *schema.Config
	adapter dialect.Adapter
	schema  *schema.Info

	connected  bool
	ttl        time.Duration
	newAdapter AdapterFactory
	now        func() time.Time
	log        zerolog.Logger
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithTTL overrides the schema cache validity window.
func WithTTL(ttl time.Duration) Option {
	return func(i *Inspector) { i.ttl = ttl }
}

// WithAdapterFactory overrides adapter construction.
func WithAdapterFactory(f AdapterFactory) Option {
	return func(i *Inspector) { i.newAdapter = f }
}

// WithLogger sets the inspector's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(i *Inspector) { i.log = log }
}

// withClock overrides the time source. Test-only.
func withClock(now func() time.Time) Option {
	return func(i *Inspector) { i.now = now }
}

// New returns a Disconnected inspector.
func New(opts ...Option) *Inspector {
	i := &Inspector{
		ttl:        schema.DefaultTTL,
		newAdapter: dialect.New,
		now:        time.Now,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IsConnected reports whether the last Connect succeeded and the config is
// still held.
func (i *Inspector) IsConnected() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.connected && i.cfg != nil
}

// Connect verifies reachability and credentials through the dialect
// adapter. The config is stored even on failure so a retry with corrected
// credentials works; the Connected state is entered only on success.
func (i *Inspector) Connect(ctx context.Context, cfg schema.Config) dialect.ConnectResult {
	i.mu.Lock()
	i.cfg = &cfg
	i.mu.Unlock()

	adapter, err := i.newAdapter(cfg.Dialect, i.log)
	if err != nil {
		return dialect.ConnectResult{Success: false, Message: err.Error()}
	}

	res := adapter.Connect(ctx, cfg)

	i.mu.Lock()
	defer i.mu.Unlock()
	// A concurrent Connect may have replaced the config while this one was
	// dialing. Store the adapter only if it still matches the held config,
	// so cfg and adapter never disagree on the dialect.
	if i.cfg == nil || *i.cfg != cfg {
		return res
	}
	i.adapter = adapter
	if res.Success {
		i.connected = true
		i.log.Info().
			Str("database", cfg.Database).
			Str("dialect", string(cfg.Dialect)).
			Msg("database connected")
	}
	return res
}

// GetSchema returns the project's schema, served from cache while fresh.
// force triggers exactly one adapter fetch regardless of freshness.
//
// A failed refresh never erases a previously cached schema: the stale copy
// is returned and the error is logged. The error surfaces only when there
// is nothing usable to return. Concurrent forced fetches race; the later
// write wins, which is acceptable because fetches are idempotent.
func (i *Inspector) GetSchema(ctx context.Context, force bool) (*schema.Info, error) {
	i.mu.Lock()
	if i.cfg == nil {
		i.mu.Unlock()
		return nil, errs.New(errs.KindConnection, "no database configured")
	}
	cfg := *i.cfg
	adapter := i.adapter
	cached := i.schema
	i.mu.Unlock()

	if !force && cached != nil && !cached.Stale(i.ttl, i.now()) {
		return cached, nil
	}

	if adapter == nil {
		var err error
		adapter, err = i.newAdapter(cfg.Dialect, i.log)
		if err != nil {
			return nil, err
		}
	}

	// The fetch runs outside the lock so a slow crawl never blocks cache
	// reads for other callers.
	fresh, err := adapter.FetchSchema(ctx, cfg)
	if err != nil {
		i.log.Error().Err(err).Str("database", cfg.Database).Msg("schema fetch failed")
		if cached != nil {
			return cached, nil
		}
		return nil, errs.Wrap(errs.KindFetch, "schema fetch failed", err)
	}

	fresh.CachedAt = i.now()

	i.mu.Lock()
	i.schema = fresh
	if i.adapter == nil {
		i.adapter = adapter
	}
	i.mu.Unlock()

	i.log.Info().
		Str("database", cfg.Database).
		Int("tables", len(fresh.Tables)).
		Msg("schema loaded")
	return fresh, nil
}

// TableDetails renders a single table, optionally with sample rows.
func (i *Inspector) TableDetails(ctx context.Context, table string, showSample bool) (string, error) {
	info, err := i.GetSchema(ctx, false)
	if err != nil {
		return "", err
	}

	t := info.Table(table)
	if t == nil {
		return "", errs.New(errs.KindNotFound, "unknown table: "+table)
	}

	var sample []string
	if showSample {
		i.mu.Lock()
		var cfg schema.Config
		if i.cfg != nil {
			cfg = *i.cfg
		}
		adapter := i.adapter
		i.mu.Unlock()

		if adapter != nil {
			sample, err = adapter.FetchSampleRows(ctx, cfg, table, schema.SampleRows)
			if err != nil {
				// Sample data is best-effort; the structural details still render.
				i.log.Warn().Err(err).Str("table", table).Msg("sample fetch failed")
				sample = nil
			}
		}
	}

	return render.TableDetails(t, sample), nil
}

// TTL returns the cache validity window.
func (i *Inspector) TTL() time.Duration {
	return i.ttl
}

// FormatSchema renders the cached schema (which may be nil) as compact text.
func (i *Inspector) FormatSchema() string {
	i.mu.Lock()
	cached := i.schema
	i.mu.Unlock()
	return render.Schema(cached, i.ttl, i.now())
}

// Clear drops config and cached schema and returns to Disconnected.
func (i *Inspector) Clear() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.cfg = nil
	i.adapter = nil
	i.schema = nil
	i.connected = false
}
