package budvm

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/ModProg/budlang/symbols"
)

const DefaultMaxCallDepth = 1 << 14

type VM struct {
	stack        *Stack
	functions    map[symbols.Symbol]VtableIndex
	vtable       []NamedFunction
	environment  Environment
	logger       *slog.Logger
	maxCallDepth int
	depth        int
	paused       *Continuation
}

type Option func(*VM)

func WithEnvironment(env Environment) Option {
	return func(v *VM) {
		v.environment = env
	}
}

func WithStackCapacity(initial, maximum int) Option {
	return func(v *VM) {
		v.stack = NewStack(initial, maximum)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(v *VM) {
		v.logger = logger
	}
}

// WithMaxCallDepth bounds nested calls. Exceeding it is a stack overflow.
func WithMaxCallDepth(depth int) Option {
	return func(v *VM) {
		v.maxCallDepth = depth
	}
}

func New(options ...Option) *VM {
	v := &VM{
		functions:    make(map[symbols.Symbol]VtableIndex),
		maxCallDepth: DefaultMaxCallDepth,
	}
	for _, option := range options {
		option(v)
	}
	if v.stack == nil {
		v.stack = NewStack(0, math.MaxInt)
	}
	if v.environment == nil {
		v.environment = Unbounded{}
	}
	if v.logger == nil {
		v.logger = slog.New(slog.DiscardHandler)
	}
	return v
}

func (v *VM) Environment() Environment {
	return v.environment
}

// Stack returns the value stack. It must not be modified while a
// continuation is outstanding.
func (v *VM) Stack() *Stack {
	return v.stack
}

func (v *VM) WithFunction(name string, fn *Function) *VM {
	v.DefineFunction(name, fn)
	return v
}

// DefineFunction registers fn. Redefining a name points it at the new
// function; existing vtable indices stay valid.
func (v *VM) DefineFunction(name string, fn *Function) VtableIndex {
	index := VtableIndex(len(v.vtable))
	v.vtable = append(v.vtable, NamedFunction{
		Name:     name,
		Function: fn,
	})
	v.functions[symbols.Intern(name)] = index
	v.logger.Debug("function defined",
		slog.String("name", name),
		slog.Int("vtable", int(index)),
		slog.Int("args", fn.ArgCount),
		slog.Int("vars", fn.VariableCount),
	)
	return index
}

func (v *VM) ResolveFunction(name string) (VtableIndex, bool) {
	sym, ok := symbols.Lookup(name)
	if !ok {
		return NoVtable, false
	}
	index, ok := v.functions[sym]
	return index, ok
}

// Functions returns the vtable in index order.
func (v *VM) Functions() []NamedFunction {
	return append([]NamedFunction(nil), v.vtable...)
}

func (v *VM) function(index VtableIndex) (*Function, bool) {
	if index < 0 || int(index) >= len(v.vtable) {
		return nil, false
	}
	return v.vtable[index].Function, true
}

// Run executes code as a top-level frame with variableCount variables.
// A returned *Fault whose Paused method reports true can be resumed.
func (v *VM) Run(code []Instruction, variableCount int) (Value, error) {
	v.abandon()
	return v.run(code, variableCount, nil)
}

// Call invokes the function registered under name. Arguments are cloned, so
// dynamic values held by the caller are never mutated.
func (v *VM) Call(name string, args ...Value) (Value, error) {
	index, ok := v.ResolveFunction(name)
	if !ok {
		return Void, fmt.Errorf("%w: %s", ErrUndefinedFunction, name)
	}
	v.abandon()
	owned := make([]Value, len(args))
	for i, arg := range args {
		owned[i] = arg.Clone()
	}
	return v.run([]Instruction{
		Call{
			VtableIndex: index,
			ArgCount:    len(args),
			Destination: ToReturn,
		},
	}, 0, owned)
}

func (v *VM) run(code []Instruction, variableCount int, args []Value) (Value, error) {
	variablesOffset := v.stack.Len()
	if err := v.stack.GrowBy(variableCount); err != nil {
		return v.finish(code, Void, toFault(err))
	}
	returnOffset := v.stack.Len()
	if _, err := v.stack.Extend(args...); err != nil {
		for i := range args {
			args[i].Release()
		}
		return v.finish(code, Void, toFault(err))
	}
	f := &frame{
		vm:              v,
		returnOffset:    returnOffset,
		variablesOffset: variablesOffset,
		vtableIndex:     NoVtable,
		destination:     ToReturn,
	}
	value, err := f.execute(code)
	return v.finish(code, value, err)
}

func (v *VM) finish(code []Instruction, value Value, err error) (Value, error) {
	v.depth = 0
	if err != nil {
		fault := toFault(err)
		if cont, ok := fault.Paused(); ok {
			cont.vm = v
			cont.code = code
			v.paused = cont
			v.logger.Debug("execution paused",
				slog.Int("frames", len(cont.frames)),
				slog.Int("stack", v.stack.Len()),
			)
			return Void, fault
		}
		v.stack.Clear()
		v.logger.Debug("execution faulted",
			slog.Any("error", fault.Err),
			slog.Any("trace", fault.Stack),
		)
		return Void, fault
	}
	v.stack.Clear()
	return value, nil
}

func (v *VM) abandon() {
	if v.paused == nil {
		return
	}
	v.logger.Debug("abandoning paused execution")
	v.paused.Discard()
}
