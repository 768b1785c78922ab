package converter

import (
	"encoding/json"
	"io"

	"asyncScope/event"
	"asyncScope/symbols"

	"github.com/cockroachdb/errors"
)

// ToTraceDocument maps call events to begin/end records in input order.
// There is no process concept in the traced kernel, so the thread id is used
// as the process id as well, which gives every thread its own track.
// Begin/end balance is not checked here; the collector guarantees it.
func ToTraceDocument(events []event.Call) *TraceDocument {
	doc := &TraceDocument{
		TraceEvents:     make([]TraceEvent, 0, len(events)),
		DisplayTimeUnit: "ms",
	}

	for _, e := range events {
		te := TraceEvent{
			Name:      e.FunctionName,
			Phase:     PhaseBegin,
			Timestamp: e.Timestamp,
			ProcessID: e.ThreadID,
			ThreadID:  e.ThreadID,
		}
		if e.Kind == event.Exit {
			te.Phase = PhaseEnd
			te.Args = map[string]interface{}{
				AddressArg: symbols.FormatAddress(e.Address),
			}
			if e.Synthetic {
				te.Args[SyntheticArg] = true
			}
		}
		doc.TraceEvents = append(doc.TraceEvents, te)
	}

	return doc
}

// WriteTraceDocument serializes doc as indented JSON
func WriteTraceDocument(w io.Writer, doc *TraceDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return errors.Wrap(enc.Encode(doc), "encoding trace document")
}
