package debugs

import (
	"fmt"
	"reflect"

	"github.com/ModProg/budlang/budvm"
	"github.com/reusee/starlarkutil"
	"go.starlark.net/starlark"
)

// toStarlarkValue converts VM state into plain Starlark values for
// inspection. Structs become dicts of their exported fields.
func toStarlarkValue(v any) starlark.Value {
	switch v := v.(type) {

	case nil:
		return starlark.None

	case starlark.Value:
		return v

	case budvm.Value:
		return fromBudValue(v)

	case budvm.Instruction:
		return starlark.String(formatInstruction(v))

	case []byte:
		return starlark.Bytes(v)

	case error:
		return starlark.String(v.Error())

	case fmt.Stringer:
		if value := reflect.ValueOf(v); value.Kind() == reflect.Pointer && value.IsNil() {
			return starlark.None
		}
		return starlark.String(v.String())

	case map[string]any:
		d := starlark.NewDict(len(v))
		for k, val := range v {
			d.SetKey(starlark.String(k), toStarlarkValue(val))
		}
		return d

	}

	value := reflect.ValueOf(v)
	switch value.Kind() {

	case reflect.Bool:
		return starlark.Bool(value.Bool())

	case reflect.String:
		return starlark.String(value.String())

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return starlark.MakeInt64(value.Int())

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return starlark.MakeUint64(value.Uint())

	case reflect.Float32, reflect.Float64:
		return starlark.Float(value.Float())

	case reflect.Slice, reflect.Array:
		elems := make([]starlark.Value, value.Len())
		for i := range elems {
			elems[i] = toStarlarkValue(value.Index(i).Interface())
		}
		return starlark.NewList(elems)

	case reflect.Map:
		d := starlark.NewDict(value.Len())
		iter := value.MapRange()
		for iter.Next() {
			d.SetKey(
				toStarlarkValue(iter.Key().Interface()),
				toStarlarkValue(iter.Value().Interface()),
			)
		}
		return d

	case reflect.Struct:
		typ := value.Type()
		d := starlark.NewDict(value.NumField())
		for i := range value.NumField() {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			d.SetKey(
				starlark.String(field.Name),
				toStarlarkValue(value.Field(i).Interface()),
			)
		}
		return d

	case reflect.Pointer, reflect.Interface:
		elem := value.Elem()
		if !elem.IsValid() {
			return starlark.None
		}
		return toStarlarkValue(elem.Interface())

	case reflect.Func:
		return starlarkutil.MakeFunc("", value.Interface())

	}

	panic(fmt.Errorf("unsupported type for starlark: %T", v))
}

// fromBudValue maps primitives to their Starlark counterparts. Dynamic values
// are shown by their display form.
func fromBudValue(v budvm.Value) starlark.Value {
	switch v.Kind() {
	case budvm.KindVoid:
		return starlark.None
	case budvm.KindInteger:
		i, _ := v.Int()
		return starlark.MakeInt64(i)
	case budvm.KindReal:
		r, _ := v.Real()
		return starlark.Float(r)
	case budvm.KindBoolean:
		b, _ := v.Bool()
		return starlark.Bool(b)
	}
	return starlark.String(v.String())
}

func formatInstruction(inst budvm.Instruction) string {
	typ := reflect.TypeOf(inst)
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	return fmt.Sprintf("%s%+v", typ.Name(), inst)
}
