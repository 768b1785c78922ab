package event

// Kind tells whether an observation is a function entry or exit
type Kind uint8

const (
	Entry Kind = iota + 1
	Exit
)

// Valid reports whether k is Entry or Exit
func (k Kind) Valid() bool {
	return k == Entry || k == Exit
}

func (k Kind) String() string {
	switch k {
	case Entry:
		return "entry"
	case Exit:
		return "exit"
	default:
		return "unknown"
	}
}

const (
	// UnknownName is used when no resolver strategy produced a name
	UnknownName = "unknown"
	// UnmatchedName marks an exit that had no open frame on its thread
	UnmatchedName = "unknown-unmatched"
)

// Raw is a capture event as produced by an ingestion adapter, before depth
// has been resolved.
type Raw struct {
	Timestamp float64 `msgpack:"ts"`   // Opaque, meaningful per thread only
	ThreadID  uint64  `msgpack:"tid"`  // Executing thread
	Kind      Kind    `msgpack:"kind"` // Entry or exit
	Address   uint64  `msgpack:"addr"` // Function address, or return site for live exits

	RawDepth int  `msgpack:"depth,omitempty"`     // Depth reported by the producer
	HasDepth bool `msgpack:"has_depth,omitempty"` // Whether RawDepth was reported

	Name       string `msgpack:"name,omitempty"`        // Function name if the producer already knows it
	ReturnSite bool   `msgpack:"return_site,omitempty"` // Address is a return site, not a function identity
}

// Call is a depth-resolved call trace event.
type Call struct {
	Timestamp    float64
	ThreadID     uint64
	Kind         Kind
	FunctionName string // Never empty
	Address      uint64
	Depth        int  // 1-based; an exit carries the depth of its entry
	Synthetic    bool // Exit fabricated at finalize time
}
