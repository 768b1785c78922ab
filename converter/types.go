package converter

// Phase is the event type of a Trace Event Format record
type Phase string

const (
	PhaseBegin Phase = "B"
	PhaseEnd   Phase = "E"
)

// AddressArg is the args key under which end records carry the function
// address, so anonymous functions with the same name can be told apart.
const AddressArg = "Function address (For recognizing anonymous type)"

// SyntheticArg marks end records fabricated to close calls left open
const SyntheticArg = "synthetic"

// TraceDocument is a Trace Event Format JSON document
type TraceDocument struct {
	TraceEvents     []TraceEvent `json:"traceEvents"`
	DisplayTimeUnit string       `json:"displayTimeUnit"`
}

// TraceEvent is one begin or end record
type TraceEvent struct {
	Name      string                 `json:"name"`
	Phase     Phase                  `json:"ph"`
	Timestamp float64                `json:"ts"`
	ProcessID uint64                 `json:"pid"`
	ThreadID  uint64                 `json:"tid"`
	Args      map[string]interface{} `json:"args,omitempty"`
}

// SampleTypeConfig describes the pprof sample types for Pyroscope
var SampleTypeConfig = map[string]map[string]interface{}{
	"wall": {
		"units":        "ticks",
		"display-name": "self-time",
		"aggregation":  "sum",
		"cumulative":   false,
		"sampled":      false,
	},
	"calls": {
		"units":        "count",
		"display-name": "call-count",
		"aggregation":  "sum",
		"cumulative":   false,
		"sampled":      false,
	},
}
