package symbols

import (
	"context"
	"strings"
	"time"

	"asyncScope/event"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

const defaultFallbackTimeout = 10 * time.Second

// Resolver maps instruction addresses to function names. It tries an exact
// match in the symbol table first and falls back to an external tool.
// Fallback answers, including failures, are cached per address.
// Safe for concurrent use.
type Resolver struct {
	table    *Table
	fallback Fallback
	cache    *lru.Cache[uint64, fallbackResult]
	timeout  time.Duration
	logger   zerolog.Logger
}

type fallbackResult struct {
	name string
	ok   bool
}

// Option configures a Resolver
type Option func(*Resolver)

// WithLogger sets the logger data-quality warnings are written to
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithTimeout bounds a single fallback invocation
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

// NewResolver creates a resolver. Both table and fallback may be nil.
func NewResolver(table *Table, fallback Fallback, cacheSize int, opts ...Option) (*Resolver, error) {
	cache, err := lru.New[uint64, fallbackResult](cacheSize)
	if err != nil {
		return nil, err
	}
	r := &Resolver{
		table:    table,
		fallback: fallback,
		cache:    cache,
		timeout:  defaultFallbackTimeout,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve always returns a non-empty name, event.UnknownName when neither
// strategy produced one.
func (r *Resolver) Resolve(addr uint64) string {
	name, _ := r.Lookup(addr)
	return name
}

// Lookup is Resolve that also reports whether a strategy succeeded.
func (r *Resolver) Lookup(addr uint64) (string, bool) {
	if name, ok := r.table.Lookup(addr); ok {
		return name, true
	}

	res, cached := r.cache.Get(addr)
	if !cached {
		// Two goroutines may both miss and run the tool; the answer is the same.
		res = r.runFallback(addr)
		r.cache.Add(addr, res)
	}
	if !res.ok {
		return event.UnknownName, false
	}
	return res.name, true
}

func (r *Resolver) runFallback(addr uint64) fallbackResult {
	if r.fallback == nil {
		r.logger.Warn().Str("addr", hexAddr(addr)).Msg("unresolved symbol")
		return fallbackResult{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	lines, err := r.fallback.Lookup(ctx, addr)
	if err != nil {
		r.logger.Warn().Err(err).Str("addr", hexAddr(addr)).Msg("symbol fallback failed")
		return fallbackResult{}
	}
	if len(lines) == 0 {
		r.logger.Warn().Str("addr", hexAddr(addr)).Msg("unresolved symbol")
		return fallbackResult{}
	}

	name := strings.TrimSpace(lines[0])
	// addr2line prints ?? for addresses it does not know
	if name == "" || name == "??" {
		r.logger.Warn().Str("addr", hexAddr(addr)).Msg("unresolved symbol")
		return fallbackResult{}
	}
	return fallbackResult{name: name, ok: true}
}
