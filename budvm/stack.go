package budvm

import (
	"iter"
	"math"
)

// Stack is a bounded value stack. Slots past the live length are always Void.
type Stack struct {
	values    []Value
	length    int
	remaining int
}

func NewStack(initialCapacity, maximumCapacity int) *Stack {
	if maximumCapacity <= 0 {
		maximumCapacity = math.MaxInt
	}
	initialCapacity = max(0, min(initialCapacity, maximumCapacity))
	return &Stack{
		values:    make([]Value, 0, initialCapacity),
		remaining: maximumCapacity,
	}
}

func (s *Stack) Len() int {
	return s.length
}

func (s *Stack) IsEmpty() bool {
	return s.length == 0
}

func (s *Stack) RemainingCapacity() int {
	return s.remaining
}

func (s *Stack) Push(value Value) error {
	if s.remaining == 0 {
		return ErrStackOverflow
	}
	s.remaining--
	if s.length < len(s.values) {
		s.values[s.length] = value
	} else {
		s.values = append(s.values, value)
	}
	s.length++
	return nil
}

// Extend pushes values in order. Nothing is pushed if they do not all fit.
func (s *Stack) Extend(values ...Value) (int, error) {
	if len(values) > s.remaining {
		return 0, ErrStackOverflow
	}
	s.remaining -= len(values)
	n := copy(s.values[s.length:len(s.values)], values)
	s.values = append(s.values, values[n:]...)
	s.length += len(values)
	return len(values), nil
}

func (s *Stack) Pop() (Value, error) {
	if s.length == 0 {
		return Void, ErrStackUnderflow
	}
	s.length--
	s.remaining++
	value := s.values[s.length]
	s.values[s.length] = Void
	return value, nil
}

// PopN removes up to count values from the top. The returned values are
// yielded bottom to top, and must be consumed or closed before the stack
// is pushed to again.
func (s *Stack) PopN(count int) *PoppedValues {
	count = max(0, min(count, s.length))
	start := s.length - count
	s.length = start
	s.remaining += count
	return &PoppedValues{
		stack:   s,
		current: start,
		end:     start + count,
	}
}

func (s *Stack) Top() (Value, error) {
	if s.length == 0 {
		return Void, ErrStackUnderflow
	}
	return s.values[s.length-1], nil
}

// At returns the value at index without removing it.
func (s *Stack) At(index int) (Value, bool) {
	if index < 0 || index >= s.length {
		return Void, false
	}
	return s.values[index], true
}

// All iterates over the live values bottom to top.
func (s *Stack) All() iter.Seq2[int, Value] {
	return func(yield func(int, Value) bool) {
		for i := range s.length {
			if !yield(i, s.values[i]) {
				return
			}
		}
	}
}

func (s *Stack) GrowBy(extra int) error {
	if extra > s.remaining {
		return ErrStackOverflow
	}
	return s.GrowTo(s.length + extra)
}

// GrowTo extends the live length to size, filling new slots with Void.
func (s *Stack) GrowTo(size int) error {
	if size <= s.length {
		return nil
	}
	extra := size - s.length
	if extra > s.remaining {
		return ErrStackOverflow
	}
	s.remaining -= extra
	for len(s.values) < size {
		s.values = append(s.values, Void)
	}
	s.length = size
	return nil
}

// RemoveRange drops values in [start, end) and shifts the rest down.
func (s *Stack) RemoveRange(start, end int) {
	start = max(0, start)
	end = min(end, s.length)
	if start >= end {
		return
	}
	for i := start; i < end; i++ {
		s.values[i].Release()
	}
	n := copy(s.values[start:], s.values[end:s.length])
	clear(s.values[start+n : s.length])
	removed := end - start
	s.length -= removed
	s.remaining += removed
}

func (s *Stack) Clear() {
	for i := range s.length {
		s.values[i].Release()
	}
	s.remaining += s.length
	s.length = 0
}

func (s *Stack) slot(index int) *Value {
	return &s.values[index]
}
