package collector

import (
	"fmt"

	"asyncScope/event"

	"github.com/rs/zerolog"
)

// Option configures a Collector
type Option func(*Collector)

// WithLogger sets the logger warnings are reported to
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Collector) { c.logger = logger }
}

// New creates a Collector for a single capture session
func New(resolver Resolver, opts ...Option) *Collector {
	c := &Collector{
		resolver: resolver,
		stacks:   event.NewStacks(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ingest resolves depth and identity for a raw event and appends the result
// to the session's event list. Producer-reported depth is only compared
// against the computed one, never used. Events of an unknown kind are
// dropped and a zero Call is returned.
func (c *Collector) Ingest(raw event.Raw) event.Call {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !raw.Kind.Valid() {
		c.logger.Warn().
			Uint64("tid", raw.ThreadID).
			Uint8("kind", uint8(raw.Kind)).
			Float64("ts", raw.Timestamp).
			Msg("dropping event of unknown kind")
		return event.Call{}
	}

	if len(c.events) == 0 || raw.Timestamp > c.lastTs {
		c.lastTs = raw.Timestamp
	}

	var call event.Call
	switch raw.Kind {
	case event.Entry:
		name := raw.Name
		if name == "" {
			name = c.resolve(raw)
		}
		call = c.stacks.PushEntry(raw.ThreadID, name, raw.Address, raw.Timestamp)
		c.stats.Entries++

	case event.Exit:
		var matched bool
		call, matched = c.stacks.PopExit(raw.ThreadID, raw.Name, raw.Address, raw.Timestamp)
		c.stats.Exits++
		if !matched {
			c.stats.DanglingExits++
			c.warn(Warning{
				Kind:      DanglingExit,
				ThreadID:  raw.ThreadID,
				Address:   raw.Address,
				Timestamp: raw.Timestamp,
				Message:   "exit without a matching entry",
			})
		} else if !raw.ReturnSite && raw.Address != call.Address {
			c.warn(Warning{
				Kind:      AddressMismatch,
				ThreadID:  raw.ThreadID,
				Address:   raw.Address,
				Timestamp: raw.Timestamp,
				Message:   fmt.Sprintf("exit address does not match open frame %s at 0x%x", call.FunctionName, call.Address),
			})
		}
	}

	if raw.HasDepth && raw.RawDepth != call.Depth {
		c.stats.DepthMismatches++
		c.logger.Debug().
			Uint64("tid", raw.ThreadID).
			Str("kind", raw.Kind.String()).
			Int("reported", raw.RawDepth).
			Int("computed", call.Depth).
			Msg("producer depth differs from call stack depth")
	}

	c.events = append(c.events, call)
	return call
}

func (c *Collector) resolve(raw event.Raw) string {
	if c.resolver == nil {
		c.unresolved(raw)
		return event.UnknownName
	}
	name, ok := c.resolver.Lookup(raw.Address)
	if !ok || name == "" {
		c.unresolved(raw)
		return event.UnknownName
	}
	return name
}

func (c *Collector) unresolved(raw event.Raw) {
	c.stats.UnresolvedSymbols++
	c.warn(Warning{
		Kind:      UnresolvedSymbol,
		ThreadID:  raw.ThreadID,
		Address:   raw.Address,
		Timestamp: raw.Timestamp,
		Message:   "no symbol for address",
	})
}

// Finalize closes every frame still open by synthesizing exits at the
// latest timestamp ingested, threads in ascending id order and frames
// innermost first. Calling it again synthesizes nothing new.
func (c *Collector) Finalize() []event.Call {
	c.mu.Lock()
	defer c.mu.Unlock()

	var synthesized []event.Call
	for _, tid := range c.stacks.Threads() {
		for _, frame := range c.stacks.Drain(tid) {
			call := event.Call{
				Timestamp:    c.lastTs,
				ThreadID:     tid,
				Kind:         event.Exit,
				FunctionName: frame.FunctionName,
				Address:      frame.Address,
				Depth:        frame.Depth,
				Synthetic:    true,
			}
			c.stats.SyntheticExits++
			c.warn(Warning{
				Kind:      UnclosedEntry,
				ThreadID:  tid,
				Address:   frame.Address,
				Timestamp: c.lastTs,
				Message:   fmt.Sprintf("%s still open at depth %d, closed synthetically", frame.FunctionName, frame.Depth),
			})
			synthesized = append(synthesized, call)
		}
	}

	c.events = append(c.events, synthesized...)
	return synthesized
}

// Drain returns all events collected so far in insertion order
func (c *Collector) Drain() []event.Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.Call(nil), c.events...)
}

// Warnings returns the warnings reported so far
func (c *Collector) Warnings() []Warning {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Warning(nil), c.warnings...)
}

// Stats returns a snapshot of the collection counters
func (c *Collector) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// warn must be called with c.mu held
func (c *Collector) warn(w Warning) {
	c.warnings = append(c.warnings, w)
	c.logger.Warn().
		Str("kind", w.Kind.String()).
		Uint64("tid", w.ThreadID).
		Str("addr", fmt.Sprintf("0x%x", w.Address)).
		Float64("ts", w.Timestamp).
		Msg(w.Message)
}
