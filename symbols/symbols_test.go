package symbols

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"

	"asyncScope/event"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

const listing = `ffffffc0802001a4 t zcore::fs::read::{{closure}}
ffffffc080200000 T <kernel_hal::task::Sleep as core::future::Future>::poll
bogus
ffffffc080200100
zzzz t not_hex
ffffffc080200000 T duplicate
`

func TestLoadTable(t *testing.T) {
	table, malformed := LoadTable(strings.NewReader(listing))
	require.Len(t, malformed, 3)
	for _, err := range malformed {
		require.True(t, errors.Is(err, event.ErrMalformedInput), err.Error())
	}

	require.Equal(t, 2, table.Len())

	name, ok := table.Lookup(0xffffffc080200000)
	require.True(t, ok)
	require.Equal(t, "<kernel_hal::task::Sleep as core::future::Future>::poll", name)

	name, ok = table.Lookup(0xffffffc0802001a4)
	require.True(t, ok)
	require.Equal(t, "zcore::fs::read::{{closure}}", name)

	_, ok = table.Lookup(0x1000)
	require.False(t, ok)

	syms := table.Symbols()
	require.Equal(t, uint64(0xffffffc080200000), syms[0].Address)
	require.Equal(t, "T", syms[0].Type)
	require.Equal(t, uint64(0xffffffc0802001a4), syms[1].Address)
}

func TestLoadTableDemangle(t *testing.T) {
	table, malformed := LoadTable(strings.NewReader("1000 T _ZN3foo3barEv\n2000 T plain_name\n"), WithDemangle(true))
	require.Empty(t, malformed)

	name, _ := table.Lookup(0x1000)
	require.Equal(t, "foo::bar()", name)
	name, _ = table.Lookup(0x2000)
	require.Equal(t, "plain_name", name)
}

func TestLoadTableFileMissing(t *testing.T) {
	_, _, err := LoadTableFile(filepath.Join(t.TempDir(), "missing.sym"))
	require.Error(t, err)
}

func TestResolveExactMatch(t *testing.T) {
	table, _ := LoadTable(strings.NewReader("1000 T foo\n"))
	var calls int32
	fallback := FallbackFunc(func(ctx context.Context, addr uint64) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		return []string{"other"}, nil
	})

	r, err := NewResolver(table, fallback, 16)
	require.NoError(t, err)
	require.Equal(t, "foo", r.Resolve(0x1000))
	require.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestResolveFallback(t *testing.T) {
	table, _ := LoadTable(strings.NewReader("2000 T bar\n"))
	var calls int32
	fallback := FallbackFunc(func(ctx context.Context, addr uint64) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		if addr == 0x1000 {
			return []string{"foo", "src/foo.rs:12"}, nil
		}
		return []string{"??", "??:0"}, nil
	})

	r, err := NewResolver(table, fallback, 16)
	require.NoError(t, err)

	require.Equal(t, "foo", r.Resolve(0x1000))
	require.Equal(t, "foo", r.Resolve(0x1000))
	require.Equal(t, int32(1), atomic.LoadInt32(&calls), "fallback result is cached")

	name, ok := r.Lookup(0x3000)
	require.False(t, ok)
	require.Equal(t, event.UnknownName, name)
}

func TestResolveFallbackFailure(t *testing.T) {
	fallback := FallbackFunc(func(ctx context.Context, addr uint64) ([]string, error) {
		return nil, errors.Mark(errors.New("boom"), ErrExternalTool)
	})
	r, err := NewResolver(nil, fallback, 16)
	require.NoError(t, err)

	name, ok := r.Lookup(0x1000)
	require.False(t, ok)
	require.Equal(t, event.UnknownName, name)
}

func TestResolveWithoutStrategies(t *testing.T) {
	r, err := NewResolver(nil, nil, 16)
	require.NoError(t, err)
	require.Equal(t, event.UnknownName, r.Resolve(0x42))
}

func TestNewResolverRejectsBadCacheSize(t *testing.T) {
	_, err := NewResolver(nil, nil, 0)
	require.Error(t, err)
}

func TestAddr2Line(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the fallback tool")
	}
	dir := t.TempDir()
	tool := filepath.Join(dir, "fake-addr2line")
	script := "#!/bin/sh\n# args: -e <binary> -f -C <addr>\necho \"fn_at_$5\"\necho \"src/lib.rs:7\"\n"
	require.NoError(t, os.WriteFile(tool, []byte(script), 0o755))

	a := &Addr2Line{Tool: tool, Binary: "zcore"}
	lines, err := a.Lookup(context.Background(), 0x1000)
	require.NoError(t, err)
	require.Equal(t, []string{"fn_at_1000", "src/lib.rs:7"}, lines)

	missing := &Addr2Line{Tool: filepath.Join(dir, "nope"), Binary: "zcore"}
	_, err = missing.Lookup(context.Background(), 0x1000)
	require.True(t, errors.Is(err, ErrExternalTool))

	_, err = (&Addr2Line{Tool: tool}).Lookup(context.Background(), 0x1000)
	require.True(t, errors.Is(err, ErrExternalTool))
}

func TestFormatAddress(t *testing.T) {
	require.Equal(t, "0x1000", FormatAddress(4096))
}
