package budvm

import (
	"errors"
	"testing"
)

func TestStackPushPop(t *testing.T) {
	stack := NewStack(0, 2)
	if err := stack.Push(Int(1)); err != nil {
		t.Fatal(err)
	}
	if err := stack.Push(Int(2)); err != nil {
		t.Fatal(err)
	}
	if err := stack.Push(Int(3)); !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if stack.RemainingCapacity() != 0 {
		t.Fatalf("expected 0, got %d", stack.RemainingCapacity())
	}
	value, err := stack.Pop()
	if err != nil || !value.Equal(Int(2)) {
		t.Fatalf("got %v %v", value, err)
	}
	stack.Pop()
	if _, err := stack.Pop(); !errors.Is(err, ErrStackUnderflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
	if stack.RemainingCapacity() != 2 {
		t.Fatalf("expected 2, got %d", stack.RemainingCapacity())
	}
}

func TestStackExtend(t *testing.T) {
	stack := NewStack(1, 3)
	stack.Push(Int(0))
	if _, err := stack.Extend(Int(1), Int(2), Int(3)); !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if stack.Len() != 1 {
		t.Fatalf("extend should be all or nothing, got len %d", stack.Len())
	}
	n, err := stack.Extend(Int(1), Int(2))
	if err != nil || n != 2 {
		t.Fatalf("got %v %v", n, err)
	}
	for i := range 3 {
		value, _ := stack.At(i)
		if !value.Equal(Int(int64(i))) {
			t.Fatalf("at %d: got %v", i, value)
		}
	}
}

func TestStackPopN(t *testing.T) {
	stack := NewStack(0, 0)
	stack.Extend(Int(1), Int(2), Int(3), Int(4))
	popped := stack.PopN(3)
	if popped.Len() != 3 {
		t.Fatalf("expected 3, got %d", popped.Len())
	}
	first, _ := popped.Next()
	if !first.Equal(Int(2)) {
		t.Fatalf("expected bottom first, got %v", first)
	}
	popped.Close()
	if _, ok := popped.Next(); ok {
		t.Fatal("expected exhausted")
	}
	if stack.Len() != 1 {
		t.Fatalf("expected 1, got %d", stack.Len())
	}

	stack.Push(Int(5))
	values := stack.PopN(10).Collect()
	if len(values) != 2 || !values[0].Equal(Int(1)) || !values[1].Equal(Int(5)) {
		t.Fatalf("got %v", values)
	}
	if !stack.IsEmpty() {
		t.Fatal("expected empty")
	}
}

func TestStackPopNReleasesRemainder(t *testing.T) {
	stack := NewStack(0, 0)
	dyn := NewDynamic(&counter{})
	stack.Push(dyn.Clone())
	stack.Push(dyn.Clone())
	if dyn.Refs() != 3 {
		t.Fatalf("expected 3, got %d", dyn.Refs())
	}
	popped := stack.PopN(2)
	taken, _ := popped.Next()
	popped.Close()
	if dyn.Refs() != 2 {
		t.Fatalf("expected 2, got %d", dyn.Refs())
	}
	taken.Release()
	if dyn.Refs() != 1 {
		t.Fatalf("expected 1, got %d", dyn.Refs())
	}
}

func TestStackGrowAndRemoveRange(t *testing.T) {
	stack := NewStack(0, 5)
	stack.Push(Int(1))
	if err := stack.GrowBy(2); err != nil {
		t.Fatal(err)
	}
	if v, _ := stack.At(2); !v.IsVoid() {
		t.Fatalf("expected void, got %v", v)
	}
	if err := stack.GrowTo(6); !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	stack.Push(Int(4))
	stack.RemoveRange(1, 3)
	if stack.Len() != 2 {
		t.Fatalf("expected 2, got %d", stack.Len())
	}
	if v, _ := stack.At(1); !v.Equal(Int(4)) {
		t.Fatalf("expected 4, got %v", v)
	}
	if stack.RemainingCapacity() != 3 {
		t.Fatalf("expected 3, got %d", stack.RemainingCapacity())
	}
	stack.Clear()
	if !stack.IsEmpty() || stack.RemainingCapacity() != 5 {
		t.Fatal("expected cleared stack")
	}
}
