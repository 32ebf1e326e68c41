package asm

import (
	"fmt"

	"github.com/ModProg/budlang/budvm"
	"go.starlark.net/starlark"
)

// opaque carries a Go value through Starlark code.
type opaque[T any] struct {
	kind  string
	value T
}

var _ starlark.Value = opaque[int]{}

func (o opaque[T]) String() string {
	return fmt.Sprintf("%s(%v)", o.kind, o.value)
}

func (o opaque[T]) Type() string {
	return o.kind
}

func (o opaque[T]) Freeze() {}

func (o opaque[T]) Truth() starlark.Bool {
	return starlark.True
}

func (o opaque[T]) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: %s", o.kind)
}

type (
	source      = opaque[budvm.ValueSource]
	destination = opaque[budvm.Destination]
	instruction = opaque[pending]
)

// pending is an instruction whose callee may still be a name.
type pending struct {
	inst   budvm.Instruction
	callee string
}

func toValue(v starlark.Value) (budvm.Value, error) {
	switch v := v.(type) {
	case starlark.NoneType:
		return budvm.Void, nil
	case starlark.Bool:
		return budvm.Bool(bool(v)), nil
	case starlark.Int:
		i, ok := v.Int64()
		if !ok {
			return budvm.Void, fmt.Errorf("integer out of range: %s", v)
		}
		return budvm.Int(i), nil
	case starlark.Float:
		return budvm.Real(float64(v)), nil
	}
	return budvm.Void, fmt.Errorf("cannot use %s as a value", v.Type())
}

func toOperand(v starlark.Value) (budvm.Operand, error) {
	if s, ok := v.(source); ok {
		return s.value, nil
	}
	return toValue(v)
}

func toSource(v starlark.Value) (budvm.ValueSource, error) {
	s, ok := v.(source)
	if !ok {
		return budvm.ValueSource{}, fmt.Errorf("expected arg() or var(), got %s", v.Type())
	}
	return s.value, nil
}

func toDestination(v starlark.Value) (budvm.Destination, error) {
	if v == nil || v == starlark.None {
		return budvm.ToStack, nil
	}
	d, ok := v.(destination)
	if !ok {
		return budvm.Destination{}, fmt.Errorf("expected to_var(), to_stack() or to_return(), got %s", v.Type())
	}
	return d.value, nil
}

func toCode(list *starlark.List) ([]pending, error) {
	ret := make([]pending, 0, list.Len())
	for i := range list.Len() {
		inst, ok := list.Index(i).(instruction)
		if !ok {
			return nil, fmt.Errorf("code[%d]: expected instruction, got %s", i, list.Index(i).Type())
		}
		ret = append(ret, inst.value)
	}
	return ret, nil
}
