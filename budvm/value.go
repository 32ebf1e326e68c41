package budvm

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
)

type Kind uint8

const (
	KindVoid Kind = iota
	KindInteger
	KindReal
	KindBoolean
	KindDynamic
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "Void"
	case KindInteger:
		return "Integer"
	case KindReal:
		return "Real"
	case KindBoolean:
		return "Boolean"
	case KindDynamic:
		return "Dynamic"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ValueKind is a Kind plus, for dynamic values, the host-defined kind name.
type ValueKind struct {
	Kind Kind
	Name string
}

func (k ValueKind) String() string {
	if k.Kind == KindDynamic && k.Name != "" {
		return k.Name
	}
	return k.Kind.String()
}

// Value is a virtual machine value. The zero Value is Void.
//
// Copying a Value that holds a Dynamic does not add a reference; use Clone
// when both copies stay alive, and Release when a handle is discarded.
type Value struct {
	kind Kind
	bits uint64
	dyn  *dynamicBox
}

var Void Value

func Int(i int64) Value {
	return Value{
		kind: KindInteger,
		bits: uint64(i),
	}
}

func Real(f float64) Value {
	return Value{
		kind: KindReal,
		bits: math.Float64bits(f),
	}
}

func Bool(b bool) Value {
	v := Value{
		kind: KindBoolean,
	}
	if b {
		v.bits = 1
	}
	return v
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) ValueKind() ValueKind {
	ret := ValueKind{
		Kind: v.kind,
	}
	if v.kind == KindDynamic {
		ret.Name = v.dyn.kind()
	}
	return ret
}

func (v Value) IsVoid() bool {
	return v.kind == KindVoid
}

func (v Value) Int() (int64, bool) {
	if v.kind != KindInteger {
		return 0, false
	}
	return int64(v.bits), true
}

func (v Value) Real() (float64, bool) {
	if v.kind != KindReal {
		return 0, false
	}
	return math.Float64frombits(v.bits), true
}

func (v Value) Bool() (bool, bool) {
	if v.kind != KindBoolean {
		return false, false
	}
	return v.bits != 0, true
}

// Truthy reports the value's truth. Void is false. Integers are true when
// nonzero. Reals are true when their magnitude is below epsilon.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindInteger, KindBoolean:
		return v.bits != 0
	case KindReal:
		return math.Abs(math.Float64frombits(v.bits)) < realEpsilon
	case KindDynamic:
		return v.dyn.truthy()
	}
	return false
}

func (v Value) Falsey() bool {
	return !v.Truthy()
}

func (v Value) String() string {
	switch v.kind {
	case KindVoid:
		return "Void"
	case KindInteger:
		return strconv.FormatInt(int64(v.bits), 10)
	case KindReal:
		return strconv.FormatFloat(math.Float64frombits(v.bits), 'g', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.bits != 0)
	case KindDynamic:
		return v.dyn.String()
	}
	return "?"
}

func (v Value) GoString() string {
	return fmt.Sprintf("%s(%s)", v.ValueKind(), v)
}

// Equal compares by kind and payload. Reals use the fuzzy epsilon
// comparison. When either side is dynamic, the dynamic values are asked
// in turn and the answer defaults to false.
func (v Value) Equal(other Value) bool {
	if v.kind == KindDynamic {
		if eq, ok := v.dyn.partialEqual(other); ok {
			return eq
		}
		if other.kind == KindDynamic {
			if eq, ok := other.dyn.partialEqual(v); ok {
				return eq
			}
		}
		return false
	}
	if other.kind == KindDynamic {
		eq, ok := other.dyn.partialEqual(v)
		return ok && eq
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindVoid:
		return true
	case KindInteger, KindBoolean:
		return v.bits == other.bits
	case KindReal:
		return realTotalEqual(
			math.Float64frombits(v.bits),
			math.Float64frombits(other.bits),
		)
	}
	return false
}

// Compare orders two values. It returns false when the values are not
// comparable, such as an Integer against a Real.
func (v Value) Compare(other Value) (int, bool) {
	if v.kind == KindDynamic {
		return dynamicCompare(v, other)
	}
	if other.kind == KindDynamic {
		c, ok := dynamicCompare(other, v)
		return -c, ok
	}
	if v.kind != other.kind {
		return 0, false
	}
	switch v.kind {
	case KindVoid:
		return 0, true
	case KindInteger:
		return cmp.Compare(int64(v.bits), int64(other.bits)), true
	case KindReal:
		return realTotalCompare(
			math.Float64frombits(v.bits),
			math.Float64frombits(other.bits),
		), true
	case KindBoolean:
		return cmp.Compare(v.bits, other.bits), true
	}
	return 0, false
}

func dynamicCompare(left, right Value) (int, bool) {
	if c, ok := left.dyn.partialCompare(right); ok {
		return c, true
	}
	if right.kind == KindDynamic {
		if c, ok := right.dyn.partialCompare(left); ok {
			return -c, true
		}
	}
	return 0, false
}

// Clone returns a handle to the same value. Dynamic instances become shared.
func (v Value) Clone() Value {
	if v.kind == KindDynamic && v.dyn != nil {
		v.dyn.refs.Add(1)
	}
	return v
}

// Release drops this handle and resets it to Void.
func (v *Value) Release() {
	if v.kind == KindDynamic && v.dyn != nil {
		v.dyn.refs.Add(-1)
	}
	*v = Void
}

// Refs returns how many handles share the dynamic instance, or 0 for
// non-dynamic values.
func (v Value) Refs() int {
	if v.kind != KindDynamic || v.dyn == nil {
		return 0
	}
	return int(v.dyn.refs.Load())
}

func (Value) operand() {}
