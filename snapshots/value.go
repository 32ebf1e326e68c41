package snapshots

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sync"

	"github.com/ModProg/budlang/budvm"
	"github.com/fxamacker/cbor/v2"
)

var ErrUnregisteredKind = errors.New("dynamic kind is not registered")

var registry sync.Map // kind name -> func() budvm.DynamicValue

// Register makes a dynamic kind serializable. factory must return a pointer
// that the CBOR payload can be decoded into.
func Register(kind string, factory func() budvm.DynamicValue) {
	registry.Store(kind, factory)
}

func encodeValue(v budvm.Value) (ret wireValue, err error) {
	ret.Kind = uint8(v.Kind())
	switch v.Kind() {
	case budvm.KindInteger:
		ret.Int, _ = v.Int()
	case budvm.KindReal:
		r, _ := v.Real()
		ret.RealBits = math.Float64bits(r)
	case budvm.KindBoolean:
		ret.Bool, _ = v.Bool()
	case budvm.KindDynamic:
		dyn, _ := budvm.AsDynamic[budvm.DynamicValue](v)
		if dyn == nil {
			return ret, fmt.Errorf("snapshots: dynamic value was moved out")
		}
		ret.Dynamic = dyn.Kind()
		if _, ok := registry.Load(ret.Dynamic); !ok {
			return ret, fmt.Errorf("snapshots: %w: %s", ErrUnregisteredKind, ret.Dynamic)
		}
		ret.Payload, err = encMode.Marshal(dyn)
		if err != nil {
			return ret, fmt.Errorf("snapshots: encode %s: %w", ret.Dynamic, err)
		}
	}
	return ret, nil
}

func decodeValue(w wireValue) (budvm.Value, error) {
	switch budvm.Kind(w.Kind) {
	case budvm.KindVoid:
		return budvm.Void, nil
	case budvm.KindInteger:
		return budvm.Int(w.Int), nil
	case budvm.KindReal:
		return budvm.Real(math.Float64frombits(w.RealBits)), nil
	case budvm.KindBoolean:
		return budvm.Bool(w.Bool), nil
	case budvm.KindDynamic:
		v, ok := registry.Load(w.Dynamic)
		if !ok {
			return budvm.Void, fmt.Errorf("snapshots: %w: %s", ErrUnregisteredKind, w.Dynamic)
		}
		dyn := v.(func() budvm.DynamicValue)()
		if reflect.ValueOf(dyn).Kind() != reflect.Pointer {
			return budvm.Void, fmt.Errorf("snapshots: factory for %s must return a pointer", w.Dynamic)
		}
		if err := cbor.Unmarshal(w.Payload, dyn); err != nil {
			return budvm.Void, fmt.Errorf("snapshots: decode %s: %w", w.Dynamic, err)
		}
		return budvm.NewDynamic(dyn), nil
	}
	return budvm.Void, fmt.Errorf("snapshots: unknown value kind %d", w.Kind)
}

func encodeValuePtr(v budvm.Value) (*wireValue, error) {
	w, err := encodeValue(v)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func decodeValuePtr(w *wireValue) (budvm.Value, error) {
	if w == nil {
		return budvm.Void, nil
	}
	return decodeValue(*w)
}
