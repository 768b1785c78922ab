package ingest

import (
	"bufio"
	"context"
	"io"
	"regexp"
	"strconv"
	"strings"

	"asyncScope/event"

	"fortio.org/safecast"
	"github.com/cockroachdb/errors"
)

// DefaultMarker prefixes the call trace lines printed by the instrumented kernel
const DefaultMarker = "time-threadID-entry/exit-addr-depth:"

// ansiEscape matches colour sequences the kernel console wraps its log in
var ansiEscape = regexp.MustCompile("\x1b\\[[^A-Za-z]*[A-Za-z]")

// Parser turns kernel log lines into raw capture events. Lines look like
//
//	[...] time-threadID-entry/exit-addr-depth: 100 7 entry 4096 0
//
// with a decimal address. Fixed-width log buffers may pad fields with NULs.
// The kernel logs an entry's depth before its frame is pushed, so entry
// depths are shifted by one to match the 1-based depth of the exit.
type Parser struct {
	Marker string
}

// NewParser creates a parser for the given marker, DefaultMarker if empty
func NewParser(marker string) *Parser {
	if marker == "" {
		marker = DefaultMarker
	}
	return &Parser{Marker: marker}
}

// ParseLine parses one log line. ok is false for lines without the marker,
// which are not an error. Lines with the marker that cannot be parsed return
// an error marked with event.ErrMalformedInput.
func (p *Parser) ParseLine(line string) (raw event.Raw, ok bool, err error) {
	_, payload, found := strings.Cut(ansiEscape.ReplaceAllString(line, ""), p.Marker)
	if !found {
		return event.Raw{}, false, nil
	}

	fields := strings.Fields(strings.ReplaceAll(payload, "\x00", ""))
	if len(fields) != 5 {
		return event.Raw{}, false, event.MalformedInputf("expected 5 fields, got %d in %q", len(fields), line)
	}

	ts, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return event.Raw{}, false, event.MalformedInputf("bad timestamp %q in %q", fields[0], line)
	}

	tid, err := parseUnsigned(fields[1])
	if err != nil {
		return event.Raw{}, false, event.MalformedInputf("bad thread id %q in %q", fields[1], line)
	}

	var kind event.Kind
	switch fields[2] {
	case "entry":
		kind = event.Entry
	case "exit":
		kind = event.Exit
	default:
		return event.Raw{}, false, event.MalformedInputf("bad entry/exit tag %q in %q", fields[2], line)
	}

	addr, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return event.Raw{}, false, event.MalformedInputf("bad address %q in %q", fields[3], line)
	}

	depth64, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return event.Raw{}, false, event.MalformedInputf("bad depth %q in %q", fields[4], line)
	}
	depth, err := safecast.Convert[int](depth64)
	if err != nil {
		return event.Raw{}, false, event.MalformedInputf("depth %q out of range in %q", fields[4], line)
	}
	if kind == event.Entry {
		depth++
	}

	return event.Raw{
		Timestamp: ts,
		ThreadID:  tid,
		Kind:      kind,
		Address:   addr,
		RawDepth:  depth,
		HasDepth:  true,
	}, true, nil
}

// parseUnsigned parses a signed decimal and rejects negative values, so a
// wrapped -1 from the kernel is reported instead of becoming a huge id.
func parseUnsigned(s string) (uint64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return safecast.Convert[uint64](v)
}

// ParseAll parses every line of r and hands events to emit in order.
// Malformed lines are collected and skipped. err is only set when reading
// fails or ctx is done.
func (p *Parser) ParseAll(ctx context.Context, r io.Reader, emit func(event.Raw)) (malformed []error, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return malformed, err
		}
		lineNo++

		raw, ok, err := p.ParseLine(scanner.Text())
		if err != nil {
			malformed = append(malformed, errors.Wrapf(err, "log line %d", lineNo))
			continue
		}
		if ok {
			emit(raw)
		}
	}
	if err := scanner.Err(); err != nil {
		return malformed, errors.Wrap(err, "reading log")
	}
	return malformed, nil
}
