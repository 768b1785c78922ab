package event

import "sort"

// Frame is an entry that has not been matched by its exit yet.
type Frame struct {
	FunctionName string
	Address      uint64
	Depth        int
	Timestamp    float64
}

// Stacks keeps one call stack of open frames per thread. Frames are matched
// strictly LIFO: the most recently opened frame is the first one closed.
// Matching by address is not done because recursive calls would mismatch.
//
// Stacks is not safe for concurrent use; the collector serializes access.
type Stacks struct {
	threads map[uint64][]Frame
}

// NewStacks creates an empty set of thread stacks
func NewStacks() *Stacks {
	return &Stacks{threads: make(map[uint64][]Frame)}
}

// PushEntry opens a frame on the thread's stack and returns the entry event.
func (s *Stacks) PushEntry(tid uint64, name string, addr uint64, ts float64) Call {
	stack := s.threads[tid]
	frame := Frame{
		FunctionName: name,
		Address:      addr,
		Depth:        len(stack) + 1,
		Timestamp:    ts,
	}
	s.threads[tid] = append(stack, frame)

	return Call{
		Timestamp:    ts,
		ThreadID:     tid,
		Kind:         Entry,
		FunctionName: name,
		Address:      addr,
		Depth:        frame.Depth,
	}
}

// PopExit closes the top frame of the thread's stack. The returned exit
// carries the popped frame's depth and identity, not the stack size after
// the pop. When the stack is empty the exit is dangling: it is returned with
// depth 1 and UnmatchedName, and ok is false.
//
// The producer's name is not trusted for matched exits: live captures only
// know the return site. addr is kept on dangling exits for display.
func (s *Stacks) PopExit(tid uint64, name string, addr uint64, ts float64) (Call, bool) {
	stack := s.threads[tid]
	if len(stack) == 0 {
		return Call{
			Timestamp:    ts,
			ThreadID:     tid,
			Kind:         Exit,
			FunctionName: UnmatchedName,
			Address:      addr,
			Depth:        1,
		}, false
	}

	top := stack[len(stack)-1]
	s.threads[tid] = stack[:len(stack)-1]

	return Call{
		Timestamp:    ts,
		ThreadID:     tid,
		Kind:         Exit,
		FunctionName: top.FunctionName,
		Address:      top.Address,
		Depth:        top.Depth,
	}, true
}

// Open returns the number of open frames on a thread.
func (s *Stacks) Open(tid uint64) int {
	return len(s.threads[tid])
}

// Threads returns the ids of all threads seen so far, in ascending order.
func (s *Stacks) Threads() []uint64 {
	ids := make([]uint64, 0, len(s.threads))
	for tid := range s.threads {
		ids = append(ids, tid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Drain empties a thread's stack and returns its frames innermost first.
func (s *Stacks) Drain(tid uint64) []Frame {
	stack := s.threads[tid]
	drained := make([]Frame, 0, len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		drained = append(drained, stack[i])
	}
	s.threads[tid] = stack[:0]
	return drained
}
