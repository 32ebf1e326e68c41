package budvm

import (
	"fmt"
	"sync/atomic"

	"github.com/ModProg/budlang/symbols"
)

// DynamicValue is a host-defined value carried by the virtual machine.
// Clone must return the same concrete type.
type DynamicValue interface {
	Kind() string
	Truthy() bool
	Clone() DynamicValue
}

// Equaler is implemented by dynamic values that can compare against other values.
// ok is false when the comparison is not defined.
type Equaler interface {
	PartialEqual(other Value) (equal bool, ok bool)
}

// Orderer is implemented by dynamic values that can order against other values.
type Orderer interface {
	PartialCompare(other Value) (order int, ok bool)
}

// Caller is implemented by dynamic values that accept method calls.
// Arguments not consumed are released when Call returns.
type Caller interface {
	Call(name symbols.Symbol, args *PoppedValues) (Value, error)
}

type dynamicBox struct {
	refs  atomic.Int64
	value DynamicValue
}

func NewDynamic(value DynamicValue) Value {
	box := &dynamicBox{
		value: value,
	}
	box.refs.Store(1)
	return Value{
		kind: KindDynamic,
		dyn:  box,
	}
}

func (b *dynamicBox) kind() string {
	if b == nil || b.value == nil {
		return ""
	}
	return b.value.Kind()
}

func (b *dynamicBox) truthy() bool {
	if b == nil || b.value == nil {
		return false
	}
	return b.value.Truthy()
}

func (b *dynamicBox) String() string {
	if b == nil || b.value == nil {
		return "<moved>"
	}
	return fmt.Sprint(b.value)
}

func (b *dynamicBox) partialEqual(other Value) (bool, bool) {
	if b == nil {
		return false, false
	}
	eq, ok := b.value.(Equaler)
	if !ok {
		return false, false
	}
	return eq.PartialEqual(other)
}

func (b *dynamicBox) partialCompare(other Value) (int, bool) {
	if b == nil {
		return 0, false
	}
	ord, ok := b.value.(Orderer)
	if !ok {
		return 0, false
	}
	return ord.PartialCompare(other)
}

// AsDynamic returns the dynamic instance if it is a T. The instance may be
// shared and must not be mutated.
func AsDynamic[T DynamicValue](v Value) (T, bool) {
	var zero T
	if v.kind != KindDynamic || v.dyn == nil {
		return zero, false
	}
	ret, ok := v.dyn.value.(T)
	return ret, ok
}

// DynamicMut returns a T that is exclusive to v, cloning the instance first
// if other handles share it.
func DynamicMut[T DynamicValue](v *Value) (T, bool) {
	var zero T
	if _, ok := AsDynamic[T](*v); !ok {
		return zero, false
	}
	v.makeExclusive()
	return v.dyn.value.(T), true
}

// IntoDynamic consumes v and returns its T. The instance is moved out when v
// is the only handle and cloned otherwise. On failure v is left untouched.
func IntoDynamic[T DynamicValue](v Value) (T, bool) {
	return intoDynamic[T](v)
}

func intoDynamic[T any](v Value) (T, bool) {
	var zero T
	if v.kind != KindDynamic || v.dyn == nil {
		return zero, false
	}
	ret, ok := v.dyn.value.(T)
	if !ok {
		return zero, false
	}
	if v.dyn.refs.Load() == 1 {
		v.dyn.value = nil
		v.dyn.refs.Store(0)
		return ret, true
	}
	cloned, ok := v.dyn.value.Clone().(T)
	if !ok {
		return zero, false
	}
	v.Release()
	return cloned, true
}

func (v *Value) makeExclusive() {
	if v.kind != KindDynamic || v.dyn == nil || v.dyn.refs.Load() <= 1 {
		return
	}
	cloned := v.dyn.value.Clone()
	v.dyn.refs.Add(-1)
	*v = NewDynamic(cloned)
}

func (v *Value) callDynamic(name symbols.Symbol, args *PoppedValues) (Value, error) {
	v.makeExclusive()
	caller, ok := v.dyn.value.(Caller)
	if !ok {
		return Void, &UnknownFunctionError{
			Kind: v.ValueKind(),
			Name: name,
		}
	}
	return caller.Call(name, args)
}
