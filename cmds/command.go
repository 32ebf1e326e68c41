package cmds

import (
	"fmt"
	"reflect"
)

// Command is either a function bound to positional arguments, a set of
// sub commands that become visible after it, or both.
type Command struct {
	fn          reflect.Value
	subs        map[string]*Command
	description string
	aliases     []string
}

var errorType = reflect.TypeFor[error]()

// Func wraps fn, which must return nothing or an error. Its parameters are
// filled from the following arguments; pointer parameters are optional.
func Func(fn any) *Command {
	fnValue := reflect.ValueOf(fn)
	if fnValue.Kind() != reflect.Func {
		panic(fmt.Errorf("must be function, got %T", fn))
	}
	fnType := fnValue.Type()
	switch {
	case fnType.NumOut() > 1:
		panic(fmt.Errorf("must return 0 or 1 value"))
	case fnType.NumOut() == 1 && fnType.Out(0) != errorType:
		panic(fmt.Errorf("must return error"))
	}
	return &Command{
		fn: fnValue,
	}
}

func Sub(subs map[string]*Command) *Command {
	return &Command{
		subs: subs,
	}
}

func (c *Command) Desc(desc string) *Command {
	c.description = desc
	return c
}

func (c *Command) Alias(names ...string) *Command {
	c.aliases = append(c.aliases, names...)
	return c
}

func (c *Command) call(args []string) (rest []string, err error) {
	fnType := c.fn.Type()
	in := make([]reflect.Value, 0, fnType.NumIn())
	for i := range fnType.NumIn() {
		value, consumed, err := parseArg(fnType.In(i), args)
		if err != nil {
			return nil, err
		}
		if consumed {
			args = args[1:]
		}
		in = append(in, value)
	}
	out := c.fn.Call(in)
	if len(out) > 0 && !out[0].IsNil() {
		return nil, out[0].Interface().(error)
	}
	return args, nil
}
