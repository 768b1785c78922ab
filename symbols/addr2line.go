package symbols

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrExternalTool marks a failure of the address-to-location fallback.
// It is treated as an unresolved symbol, never as a fatal error.
var ErrExternalTool = errors.New("external symbol tool failed")

// Fallback is the slower address-to-source-location capability used when
// the symbol table has no exact match.
type Fallback interface {
	Lookup(ctx context.Context, addr uint64) ([]string, error)
}

// Addr2Line runs addr2line (or a compatible tool) against the target binary
type Addr2Line struct {
	Tool   string // Executable, "addr2line" when empty
	Binary string // Binary the addresses belong to
}

// Lookup runs `<tool> -e <binary> -f -C <hex-addr>` and returns its output
// lines. With -f the first line is the function name.
func (a *Addr2Line) Lookup(ctx context.Context, addr uint64) ([]string, error) {
	if a.Binary == "" {
		return nil, errors.Mark(errors.New("no binary configured"), ErrExternalTool)
	}
	tool := a.Tool
	if tool == "" {
		tool = "addr2line"
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, tool, "-e", a.Binary, "-f", "-C", fmt.Sprintf("%x", addr))
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, errors.Mark(
			errors.Wrapf(err, "%s: %s", cmd.String(), strings.TrimSpace(stderr.String())),
			ErrExternalTool)
	}

	return strings.Split(strings.TrimRight(string(out), "\n"), "\n"), nil
}

// FallbackFunc adapts a function to the Fallback interface
type FallbackFunc func(ctx context.Context, addr uint64) ([]string, error)

func (f FallbackFunc) Lookup(ctx context.Context, addr uint64) ([]string, error) {
	return f(ctx, addr)
}
