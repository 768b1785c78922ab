package collector

import (
	"sync"

	"asyncScope/event"

	"github.com/rs/zerolog"
)

// Resolver maps a function address to a name. ok is false when the name is
// a placeholder.
type Resolver interface {
	Lookup(addr uint64) (name string, ok bool)
}

// Collector turns raw capture events into depth-resolved call events.
// It owns the per-thread call stacks and the ordered event list for one
// capture session.
type Collector struct {
	mu       sync.Mutex
	resolver Resolver
	stacks   *event.Stacks
	events   []event.Call
	warnings []Warning
	stats    Stats
	lastTs   float64
	logger   zerolog.Logger
}

// WarningKind classifies a data-quality problem found during collection
type WarningKind uint8

const (
	UnresolvedSymbol WarningKind = iota + 1
	DanglingExit
	UnclosedEntry
	AddressMismatch
)

func (k WarningKind) String() string {
	switch k {
	case UnresolvedSymbol:
		return "unresolved-symbol"
	case DanglingExit:
		return "dangling-exit"
	case UnclosedEntry:
		return "unclosed-entry"
	case AddressMismatch:
		return "address-mismatch"
	default:
		return "unknown"
	}
}

// Warning is a recoverable problem; it never aborts a capture
type Warning struct {
	Kind      WarningKind
	ThreadID  uint64
	Address   uint64
	Timestamp float64
	Message   string
}

// Stats counts what the collector has seen
type Stats struct {
	Entries           int
	Exits             int
	DanglingExits     int
	SyntheticExits    int
	UnresolvedSymbols int
	DepthMismatches   int
}
