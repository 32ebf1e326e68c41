package asm

import (
	"errors"
	"fmt"

	"github.com/ModProg/budlang/budvm"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

var ErrNoMain = errors.New("program has no main()")

type assembler struct {
	functions []assembledFunction
	indexes   map[string]int
	mainCode  []pending
	variables int
	hasMain   bool
}

type assembledFunction struct {
	name      string
	args      int
	variables int
	code      []pending
}

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// Load executes a Starlark assembly script and links the program it
// describes. src is anything starlark.ExecFile accepts.
func Load(filename string, src any) (*Program, error) {
	a := &assembler{
		indexes: make(map[string]int),
	}
	thread := &starlark.Thread{
		Name: filename,
	}
	if _, err := starlark.ExecFileOptions(fileOptions, thread, filename, src, a.builtins()); err != nil {
		return nil, err
	}
	return a.link()
}

// function(name, args, vars, code)
func (a *assembler) function(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var argc, vars int
	var code *starlark.List
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"name", &name, "args", &argc, "vars", &vars, "code", &code,
	); err != nil {
		return nil, err
	}
	if _, ok := a.indexes[name]; ok {
		return nil, fmt.Errorf("function: %s already defined", name)
	}
	if argc < 0 || vars < 0 {
		return nil, fmt.Errorf("function: %s: negative count", name)
	}
	pendings, err := toCode(code)
	if err != nil {
		return nil, fmt.Errorf("function: %s: %w", name, err)
	}
	a.indexes[name] = len(a.functions)
	a.functions = append(a.functions, assembledFunction{
		name:      name,
		args:      argc,
		variables: vars,
		code:      pendings,
	})
	return starlark.MakeInt(a.indexes[name]), nil
}

// main(code, vars=0)
func (a *assembler) main(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var code *starlark.List
	var vars int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "code", &code, "vars?", &vars); err != nil {
		return nil, err
	}
	if a.hasMain {
		return nil, fmt.Errorf("main: already defined")
	}
	pendings, err := toCode(code)
	if err != nil {
		return nil, fmt.Errorf("main: %w", err)
	}
	a.mainCode = pendings
	a.variables = vars
	a.hasMain = true
	return starlark.None, nil
}

func (a *assembler) vtable(name string) int {
	index, ok := a.indexes[name]
	if !ok {
		return int(budvm.NoVtable)
	}
	return index
}

func (a *assembler) link() (*Program, error) {
	if !a.hasMain {
		return nil, ErrNoMain
	}
	program := &Program{
		Variables: a.variables,
	}
	for _, fn := range a.functions {
		code, err := a.resolve(fn.code)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fn.name, err)
		}
		program.Functions = append(program.Functions, budvm.NamedFunction{
			Name: fn.name,
			Function: &budvm.Function{
				ArgCount:      fn.args,
				VariableCount: fn.variables,
				Code:          code,
			},
		})
	}
	code, err := a.resolve(a.mainCode)
	if err != nil {
		return nil, fmt.Errorf("main: %w", err)
	}
	program.Main = code
	return program, nil
}

func (a *assembler) resolve(pendings []pending) ([]budvm.Instruction, error) {
	ret := make([]budvm.Instruction, 0, len(pendings))
	for i, p := range pendings {
		inst := p.inst
		if p.callee != "" {
			index, ok := a.indexes[p.callee]
			if !ok {
				return nil, fmt.Errorf("instruction %d: %w: %s", i, budvm.ErrUndefinedFunction, p.callee)
			}
			call := inst.(budvm.Call)
			call.VtableIndex = budvm.VtableIndex(index)
			inst = call
		}
		ret = append(ret, inst)
	}
	return ret, nil
}
