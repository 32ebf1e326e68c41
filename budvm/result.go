package budvm

import "fmt"

const expectedMessage = "@expected expected but received `@received-value` (@received-type)"

// FromValue converts v into T. Supported targets are Value, int64, float64,
// bool, struct{} for Void, and any dynamic value type.
func FromValue[T any](v Value) (T, error) {
	var ret T
	switch p := any(&ret).(type) {
	case *Value:
		*p = v
		return ret, nil
	case *int64:
		i, ok := v.Int()
		if !ok {
			return ret, mismatch(KindInteger, v)
		}
		*p = i
		return ret, nil
	case *float64:
		f, ok := v.Real()
		if !ok {
			return ret, mismatch(KindReal, v)
		}
		*p = f
		return ret, nil
	case *bool:
		b, ok := v.Bool()
		if !ok {
			return ret, mismatch(KindBoolean, v)
		}
		*p = b
		return ret, nil
	case *struct{}:
		if !v.IsVoid() {
			return ret, mismatch(KindVoid, v)
		}
		return ret, nil
	}

	if dyn, ok := intoDynamic[T](v); ok {
		return dyn, nil
	}
	return ret, &TypeMismatchError{
		Message: expectedMessage,
		Expected: ValueKind{
			Kind: KindDynamic,
			Name: fmt.Sprintf("%T", ret),
		},
		Received: v,
	}
}

func mismatch(kind Kind, v Value) error {
	return &TypeMismatchError{
		Message: expectedMessage,
		Expected: ValueKind{
			Kind: kind,
		},
		Received: v,
	}
}

// As converts the result of Run or Call.
func As[T any](v Value, err error) (T, error) {
	if err != nil {
		var zero T
		return zero, err
	}
	return FromValue[T](v)
}
