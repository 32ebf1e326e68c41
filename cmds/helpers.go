package cmds

// Flag holds a value given on the command line and whether it was given.
type Flag[T any] struct {
	value T
	set   bool
}

func (f *Flag[T]) Get() T {
	return f.value
}

// IsSet reports whether the flag was given, which distinguishes an explicit
// zero from an absent flag.
func (f *Flag[T]) IsSet() bool {
	return f.set
}

func (f *Flag[T]) Set(value T) {
	f.value = value
	f.set = true
}

func (f *Flag[T]) Reset() {
	var zero T
	f.value = zero
	f.set = false
}

// Var defines name to set the flag from the next argument, and name+"." to
// unset it.
func Var[T any](name string, desc string) *Flag[T] {
	flag := new(Flag[T])
	Define(name, Func(flag.Set).Desc(desc))
	Define(name+".", Func(flag.Reset).Desc("unset "+name))
	return flag
}

// Switch defines name to turn the flag on and "!"+name to turn it off.
func Switch(name string, desc string) *Flag[bool] {
	flag := new(Flag[bool])
	Define(name, Func(func() {
		flag.Set(true)
	}).Desc(desc))
	Define("!"+name, Func(func() {
		flag.Set(false)
	}).Desc("negate "+name))
	return flag
}

// Collect defines name to append the next argument each time it is given.
func Collect[T any](name string, desc string) *Flag[[]T] {
	flag := new(Flag[[]T])
	Define(name, Func(func(v T) {
		flag.Set(append(flag.Get(), v))
	}).Desc(desc))
	return flag
}
