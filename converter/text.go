package converter

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"asyncScope/event"

	"github.com/cockroachdb/errors"
)

// WriteTextLog writes one line per event:
//
//	100   7: [entry] foo(0x1000) depth: 1
//	150   7: [exit ] foo(0x1000) depth: 1
func WriteTextLog(w io.Writer, events []event.Call) error {
	bw := bufio.NewWriter(w)
	for _, e := range events {
		tag := "entry"
		if e.Kind == event.Exit {
			tag = "exit "
		}
		suffix := ""
		if e.Synthetic {
			suffix = " (synthetic)"
		}
		if _, err := fmt.Fprintf(bw, "%s   %d: [%s] %s(0x%x) depth: %d%s\n",
			strconv.FormatFloat(e.Timestamp, 'f', -1, 64),
			e.ThreadID, tag, e.FunctionName, e.Address, e.Depth, suffix); err != nil {
			return errors.Wrap(err, "writing text log")
		}
	}
	return errors.Wrap(bw.Flush(), "writing text log")
}
