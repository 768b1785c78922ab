package symbols

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"asyncScope/event"

	"github.com/cockroachdb/errors"
	"github.com/ianlancetaylor/demangle"
)

// Symbol is one entry of a symbol listing
type Symbol struct {
	Address uint64
	Type    string // Type marker as printed by nm
	Name    string
}

// Table is an exact-match address to name mapping loaded once from a
// symbol listing. It is read-only after load and safe to share.
type Table struct {
	byAddr  map[uint64]string
	ordered []Symbol
}

// TableOption configures symbol table loading
type TableOption func(*tableOptions)

type tableOptions struct {
	demangle bool
}

// WithDemangle demangles Rust and C++ names while loading. Names that are
// not mangled are kept as they are.
func WithDemangle(enabled bool) TableOption {
	return func(o *tableOptions) { o.demangle = enabled }
}

// LoadTableFile loads a symbol listing from disk. Malformed lines are
// returned as errors alongside the table, they never abort loading.
func LoadTableFile(path string, opts ...TableOption) (*Table, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening symbol file %s", path)
	}
	defer f.Close()

	table, malformed := LoadTable(f, opts...)
	return table, malformed, nil
}

// LoadTable parses lines of the form `<hex-address> <type> <name...>`.
// The name is everything after the type marker and may contain spaces.
func LoadTable(r io.Reader, opts ...TableOption) (*Table, []error) {
	var o tableOptions
	for _, opt := range opts {
		opt(&o)
	}

	t := &Table{byAddr: make(map[uint64]string)}
	var malformed []error

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		sym, err := parseSymbolLine(line)
		if err != nil {
			malformed = append(malformed, errors.Wrapf(err, "symbol line %d", lineNo))
			continue
		}
		if o.demangle {
			sym.Name = demangle.Filter(sym.Name)
		}

		// First definition wins, like a linear scan of the listing would.
		if _, exists := t.byAddr[sym.Address]; exists {
			continue
		}
		t.byAddr[sym.Address] = sym.Name
		t.ordered = append(t.ordered, sym)
	}
	if err := scanner.Err(); err != nil {
		malformed = append(malformed, errors.Wrap(err, "reading symbol listing"))
	}

	sort.Slice(t.ordered, func(i, j int) bool {
		return t.ordered[i].Address < t.ordered[j].Address
	})
	return t, malformed
}

func parseSymbolLine(line string) (Symbol, error) {
	addrField, rest := cutField(line)
	typeField, name := cutField(rest)
	if addrField == "" || typeField == "" || name == "" {
		return Symbol{}, event.MalformedInputf("too few fields in %q", line)
	}

	addr, err := strconv.ParseUint(strings.TrimPrefix(addrField, "0x"), 16, 64)
	if err != nil {
		return Symbol{}, event.MalformedInputf("bad address %q in %q", addrField, line)
	}

	return Symbol{Address: addr, Type: typeField, Name: name}, nil
}

// cutField splits off the first whitespace separated field and returns the
// remainder with leading whitespace removed.
func cutField(s string) (string, string) {
	s = strings.TrimLeft(s, " \t")
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeft(s[i:], " \t")
}

// Lookup returns the name defined at exactly addr
func (t *Table) Lookup(addr uint64) (string, bool) {
	if t == nil {
		return "", false
	}
	name, ok := t.byAddr[addr]
	return name, ok
}

// Len returns the number of symbols in the table
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.ordered)
}

// Symbols returns the symbols in ascending address order
func (t *Table) Symbols() []Symbol {
	if t == nil {
		return nil
	}
	return append([]Symbol(nil), t.ordered...)
}
