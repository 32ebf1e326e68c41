package asm

import (
	"github.com/ModProg/budlang/budvm"
)

// Program is an assembled set of functions plus an entry point.
type Program struct {
	Functions []budvm.NamedFunction
	Main      []budvm.Instruction
	Variables int
}

// Install defines the program's functions. Calls are linked by position, so
// vm should not hold other functions.
func (p *Program) Install(vm *budvm.VM) {
	for _, fn := range p.Functions {
		vm.DefineFunction(fn.Name, fn.Function)
	}
}

// Run installs the program into a new VM and runs its entry point.
func (p *Program) Run(options ...budvm.Option) (*budvm.VM, budvm.Value, error) {
	vm := budvm.New(options...)
	p.Install(vm)
	value, err := vm.Run(p.Main, p.Variables)
	return vm, value, err
}
