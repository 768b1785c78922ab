package ingest

import (
	"time"

	"asyncScope/event"
)

// Sink consumes raw capture events. *collector.Collector is the usual Sink.
type Sink interface {
	Ingest(raw event.Raw) event.Call
}

// Live adapts debugger breakpoint callbacks into raw capture events.
// How the host debugger detects entries and return sites is up to the host
// integration; it only has to call OnEntry and OnReturn.
type Live struct {
	sink Sink
}

// NewLive creates a live capture adapter feeding sink
func NewLive(sink Sink) *Live {
	return &Live{sink: sink}
}

// OnEntry reports that thread tid stopped at function address pc.
// frameCount is the number of frames the debugger sees, including the new
// one. name may be empty when the debugger does not know the function.
func (l *Live) OnEntry(tid, pc uint64, frameCount int, wallClock time.Time, name string) event.Call {
	return l.sink.Ingest(event.Raw{
		Timestamp: Microseconds(wallClock),
		ThreadID:  tid,
		Kind:      event.Entry,
		Address:   pc,
		RawDepth:  frameCount,
		HasDepth:  frameCount > 0,
		Name:      name,
	})
}

// OnReturn reports that thread tid reached the return site pc of its
// innermost traced call. The frame has already been popped, so the
// debugger's frame count is one less than the call's depth. A negative
// frameCount means the debugger could not count frames.
func (l *Live) OnReturn(tid, pc uint64, frameCount int, wallClock time.Time) event.Call {
	return l.sink.Ingest(event.Raw{
		Timestamp:  Microseconds(wallClock),
		ThreadID:   tid,
		Kind:       event.Exit,
		Address:    pc,
		RawDepth:   frameCount + 1,
		HasDepth:   frameCount >= 0,
		ReturnSite: true,
	})
}

// Microseconds converts collector-local wall clock time to the trace's
// microsecond timestamps.
func Microseconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Microsecond)
}
