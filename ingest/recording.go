package ingest

import (
	"bufio"
	"io"
	"os"
	"sync"

	"asyncScope/event"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Recorder forwards raw events to a Sink and keeps a copy so the session
// can be saved and replayed later.
type Recorder struct {
	sink Sink
	mu   sync.Mutex
	raw  []event.Raw
}

// NewRecorder wraps sink
func NewRecorder(sink Sink) *Recorder {
	return &Recorder{sink: sink}
}

// Ingest records raw and forwards it
func (r *Recorder) Ingest(raw event.Raw) event.Call {
	r.mu.Lock()
	r.raw = append(r.raw, raw)
	r.mu.Unlock()
	return r.sink.Ingest(raw)
}

// Events returns the recorded raw events
func (r *Recorder) Events() []event.Raw {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Raw(nil), r.raw...)
}

// Save writes the recorded events to path as a msgpack stream
func (r *Recorder) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating recording %s", path)
	}
	if err := WriteRecording(f, r.Events()); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "closing recording %s", path)
}

// WriteRecording encodes events one after another
func WriteRecording(w io.Writer, events []event.Raw) error {
	bw := bufio.NewWriter(w)
	enc := msgpack.NewEncoder(bw)
	for _, e := range events {
		if err := enc.Encode(&e); err != nil {
			return errors.Wrap(err, "encoding raw event")
		}
	}
	return errors.Wrap(bw.Flush(), "flushing recording")
}

// ReadRecording decodes a msgpack stream written by WriteRecording
func ReadRecording(r io.Reader) ([]event.Raw, error) {
	dec := msgpack.NewDecoder(bufio.NewReader(r))
	var events []event.Raw
	for {
		var e event.Raw
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return events, nil
			}
			return events, errors.Wrapf(err, "decoding raw event %d", len(events))
		}
		if !e.Kind.Valid() {
			return events, event.MalformedInputf("raw event %d has unknown kind %d", len(events), e.Kind)
		}
		events = append(events, e)
	}
}

// LoadRecording reads a recording file
func LoadRecording(path string) ([]event.Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening recording %s", path)
	}
	defer f.Close()
	return ReadRecording(f)
}
