package event

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestExitDepthMatchesEntry(t *testing.T) {
	s := NewStacks()

	outer := s.PushEntry(1, "outer", 0x10, 1)
	inner := s.PushEntry(1, "inner", 0x20, 2)
	require.Equal(t, 1, outer.Depth)
	require.Equal(t, 2, inner.Depth)

	innerExit, ok := s.PopExit(1, "", 0x99, 3)
	require.True(t, ok)
	require.Equal(t, inner.Depth, innerExit.Depth)
	require.Equal(t, "inner", innerExit.FunctionName)
	require.Equal(t, uint64(0x20), innerExit.Address)

	outerExit, ok := s.PopExit(1, "", 0x99, 4)
	require.True(t, ok)
	require.Equal(t, outer.Depth, outerExit.Depth)
	require.Equal(t, "outer", outerExit.FunctionName)
	require.Equal(t, 0, s.Open(1))
}

func TestRecursionOpensDistinctFrames(t *testing.T) {
	s := NewStacks()

	first := s.PushEntry(3, "walk", 0x40, 10)
	second := s.PushEntry(3, "walk", 0x40, 11)
	require.Equal(t, first.Depth+1, second.Depth)
	require.Equal(t, 2, s.Open(3))

	exit, ok := s.PopExit(3, "walk", 0x40, 12)
	require.True(t, ok)
	require.Equal(t, second.Depth, exit.Depth)

	exit, ok = s.PopExit(3, "walk", 0x40, 13)
	require.True(t, ok)
	require.Equal(t, first.Depth, exit.Depth)
}

func TestDanglingExit(t *testing.T) {
	s := NewStacks()

	exit, ok := s.PopExit(5, "whatever", 0x30, 1)
	require.False(t, ok)
	require.Equal(t, 1, exit.Depth)
	require.Equal(t, UnmatchedName, exit.FunctionName)
	require.Equal(t, uint64(0x30), exit.Address)
	require.Equal(t, Exit, exit.Kind)
}

func TestThreadsAreIndependent(t *testing.T) {
	s := NewStacks()

	require.Equal(t, 1, s.PushEntry(1, "a", 1, 1).Depth)
	require.Equal(t, 1, s.PushEntry(2, "b", 2, 2).Depth)
	require.Equal(t, 2, s.PushEntry(1, "c", 3, 3).Depth)
	require.Equal(t, 2, s.PushEntry(2, "d", 4, 4).Depth)

	require.Equal(t, []uint64{1, 2}, s.Threads())

	require.Equal(t, 2, s.Open(2))
	require.Equal(t, "d", s.Drain(2)[0].FunctionName)
}

func TestDrainReturnsInnermostFirst(t *testing.T) {
	s := NewStacks()
	s.PushEntry(1, "a", 1, 1)
	s.PushEntry(1, "b", 2, 2)

	frames := s.Drain(1)
	require.Len(t, frames, 2)
	require.Equal(t, "b", frames[0].FunctionName)
	require.Equal(t, 2, frames[0].Depth)
	require.Equal(t, "a", frames[1].FunctionName)
	require.Equal(t, 0, s.Open(1))
	require.Empty(t, s.Drain(1))
}

func TestMalformedInputMarker(t *testing.T) {
	err := MalformedInputf("line %d: bad", 3)
	require.True(t, errors.Is(err, ErrMalformedInput))
	require.Contains(t, err.Error(), "line 3")
}
