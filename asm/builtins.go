package asm

import (
	"fmt"

	"github.com/ModProg/budlang/budvm"
	"github.com/ModProg/budlang/symbols"
	"github.com/reusee/starlarkutil"
	"go.starlark.net/starlark"
)

type builtin = func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error)

func emit(inst budvm.Instruction) instruction {
	return instruction{
		kind: "instruction",
		value: pending{
			inst: inst,
		},
	}
}

func sourceBuiltin(kind budvm.SourceKind) builtin {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var index int
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &index); err != nil {
			return nil, err
		}
		return source{
			kind: "source",
			value: budvm.ValueSource{
				Kind:  kind,
				Index: index,
			},
		}, nil
	}
}

func destinationBuiltin(kind budvm.DestinationKind) builtin {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var index int
		required := 0
		if kind == budvm.DestinationVariable {
			required = 1
		}
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, required, &index); err != nil {
			return nil, err
		}
		return destination{
			kind: "destination",
			value: budvm.Destination{
				Kind:  kind,
				Index: index,
			},
		}, nil
	}
}

func arithmeticBuiltin(build func(budvm.ValueSource, budvm.Operand, budvm.Destination) budvm.Instruction) builtin {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var left, right, dest starlark.Value
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "left", &left, "right", &right, "dest?", &dest); err != nil {
			return nil, err
		}
		l, err := toSource(left)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		r, err := toOperand(right)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		d, err := toDestination(dest)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		return emit(build(l, r, d)), nil
	}
}

var comparisons = map[string]budvm.Comparison{
	"==": budvm.Equal,
	"!=": budvm.NotEqual,
	"<":  budvm.LessThan,
	"<=": budvm.LessThanOrEqual,
	">":  budvm.GreaterThan,
	">=": budvm.GreaterThanOrEqual,
}

func compare(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var op string
	var left, right, dest starlark.Value
	jumpIfFalse := -1
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"op", &op, "left", &left, "right", &right,
		"dest?", &dest, "jump_if_false?", &jumpIfFalse,
	); err != nil {
		return nil, err
	}
	comparison, ok := comparisons[op]
	if !ok {
		return nil, fmt.Errorf("compare: unknown operator %q", op)
	}
	l, err := toSource(left)
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	r, err := toOperand(right)
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	inst := budvm.Compare{
		Comparison: comparison,
		Left:       l,
		Right:      r,
	}
	if jumpIfFalse >= 0 {
		if dest != nil {
			return nil, fmt.Errorf("compare: dest and jump_if_false are exclusive")
		}
		inst.Action = budvm.JumpIfFalse(jumpIfFalse)
	} else {
		d, err := toDestination(dest)
		if err != nil {
			return nil, fmt.Errorf("compare: %w", err)
		}
		inst.Action = budvm.StoreIn(d)
	}
	return emit(inst), nil
}

func branchUnless(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var cond starlark.Value
	var target int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "cond", &cond, "target", &target); err != nil {
		return nil, err
	}
	c, err := toSource(cond)
	if err != nil {
		return nil, fmt.Errorf("branch_unless: %w", err)
	}
	return emit(budvm.If{Condition: c, FalseJumpTo: target}), nil
}

func jump(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var target int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "target", &target); err != nil {
		return nil, err
	}
	return emit(budvm.JumpTo{Target: target}), nil
}

func push(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var value starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "value", &value); err != nil {
		return nil, err
	}
	v, err := toValue(value)
	if err != nil {
		return nil, fmt.Errorf("push: %w", err)
	}
	return emit(budvm.Push{Value: v}), nil
}

func pushCopy(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var src starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "source", &src); err != nil {
		return nil, err
	}
	s, err := toSource(src)
	if err != nil {
		return nil, fmt.Errorf("push_copy: %w", err)
	}
	return emit(budvm.PushCopy{Source: s}), nil
}

func pop(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	return emit(budvm.PopAndDrop{}), nil
}

// ret without arguments returns the return register.
func ret(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var value starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "value?", &value); err != nil {
		return nil, err
	}
	if value == nil {
		return emit(budvm.Return{}), nil
	}
	v, err := toOperand(value)
	if err != nil {
		return nil, fmt.Errorf("ret: %w", err)
	}
	return emit(budvm.Return{Value: v}), nil
}

func setVar(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var index int
	var value starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "index", &index, "value", &value); err != nil {
		return nil, err
	}
	v, err := toOperand(value)
	if err != nil {
		return nil, fmt.Errorf("set_var: %w", err)
	}
	return emit(budvm.Load{VariableIndex: index, Value: v}), nil
}

// call accepts a function name, a vtable index, or None for the current
// function.
func call(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var fn, dest starlark.Value
	var argc int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "function", &fn, "argc?", &argc, "dest?", &dest); err != nil {
		return nil, err
	}
	d, err := toDestination(dest)
	if err != nil {
		return nil, fmt.Errorf("call: %w", err)
	}
	inst := pending{
		inst: budvm.Call{
			VtableIndex: budvm.NoVtable,
			ArgCount:    argc,
			Destination: d,
		},
	}
	switch fn := fn.(type) {
	case starlark.NoneType:
	case starlark.String:
		inst.callee = string(fn)
	case starlark.Int:
		index, ok := fn.Int64()
		if !ok || index < 0 {
			return nil, fmt.Errorf("call: invalid vtable index %s", fn)
		}
		c := inst.inst.(budvm.Call)
		c.VtableIndex = budvm.VtableIndex(index)
		inst.inst = c
	default:
		return nil, fmt.Errorf("call: expected name, index or None, got %s", fn.Type())
	}
	return instruction{
		kind:  "instruction",
		value: inst,
	}, nil
}

func callMethod(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var argc int
	var dest, target starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"name", &name, "argc?", &argc, "dest?", &dest, "target?", &target,
	); err != nil {
		return nil, err
	}
	d, err := toDestination(dest)
	if err != nil {
		return nil, fmt.Errorf("call_method: %w", err)
	}
	inst := budvm.CallInstance{
		Name:        symbols.Intern(name),
		ArgCount:    argc,
		Destination: d,
	}
	if target != nil && target != starlark.None {
		s, err := toSource(target)
		if err != nil {
			return nil, fmt.Errorf("call_method: %w", err)
		}
		inst.Target = &s
	}
	return emit(inst), nil
}

func (a *assembler) builtins() starlark.StringDict {
	ret := starlark.StringDict{
		"arg":       starlark.NewBuiltin("arg", sourceBuiltin(budvm.SourceArgument)),
		"var":       starlark.NewBuiltin("var", sourceBuiltin(budvm.SourceVariable)),
		"to_var":    starlark.NewBuiltin("to_var", destinationBuiltin(budvm.DestinationVariable)),
		"to_stack":  starlark.NewBuiltin("to_stack", destinationBuiltin(budvm.DestinationStack)),
		"to_return": starlark.NewBuiltin("to_return", destinationBuiltin(budvm.DestinationReturn)),

		"add": starlark.NewBuiltin("add", arithmeticBuiltin(func(l budvm.ValueSource, r budvm.Operand, d budvm.Destination) budvm.Instruction {
			return budvm.Add{Left: l, Right: r, Destination: d}
		})),
		"sub": starlark.NewBuiltin("sub", arithmeticBuiltin(func(l budvm.ValueSource, r budvm.Operand, d budvm.Destination) budvm.Instruction {
			return budvm.Sub{Left: l, Right: r, Destination: d}
		})),
		"mul": starlark.NewBuiltin("mul", arithmeticBuiltin(func(l budvm.ValueSource, r budvm.Operand, d budvm.Destination) budvm.Instruction {
			return budvm.Multiply{Left: l, Right: r, Destination: d}
		})),
		"div": starlark.NewBuiltin("div", arithmeticBuiltin(func(l budvm.ValueSource, r budvm.Operand, d budvm.Destination) budvm.Instruction {
			return budvm.Divide{Left: l, Right: r, Destination: d}
		})),

		"compare":       starlark.NewBuiltin("compare", compare),
		"branch_unless": starlark.NewBuiltin("branch_unless", branchUnless),
		"jump":          starlark.NewBuiltin("jump", jump),
		"push":          starlark.NewBuiltin("push", push),
		"push_copy":     starlark.NewBuiltin("push_copy", pushCopy),
		"pop":           starlark.NewBuiltin("pop", pop),
		"ret":           starlark.NewBuiltin("ret", ret),
		"set_var":       starlark.NewBuiltin("set_var", setVar),
		"call":          starlark.NewBuiltin("call", call),
		"call_method":   starlark.NewBuiltin("call_method", callMethod),

		"function": starlark.NewBuiltin("function", a.function),
		"main":     starlark.NewBuiltin("main", a.main),
		"vtable":   starlarkutil.MakeFunc("vtable", a.vtable),
	}
	return ret
}
