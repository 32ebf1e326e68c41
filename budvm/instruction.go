package budvm

import (
	"fmt"

	"github.com/ModProg/budlang/symbols"
)

type SourceKind uint8

const (
	SourceArgument SourceKind = iota
	SourceVariable
)

// ValueSource addresses an argument or variable slot of the current frame.
type ValueSource struct {
	Kind  SourceKind
	Index int
}

func Arg(index int) ValueSource {
	return ValueSource{
		Kind:  SourceArgument,
		Index: index,
	}
}

func Var(index int) ValueSource {
	return ValueSource{
		Kind:  SourceVariable,
		Index: index,
	}
}

func (s ValueSource) String() string {
	if s.Kind == SourceArgument {
		return fmt.Sprintf("$%d", s.Index)
	}
	return fmt.Sprintf("@%d", s.Index)
}

func (ValueSource) operand() {}

// Operand is either a literal Value or a ValueSource.
type Operand interface {
	operand()
}

type DestinationKind uint8

const (
	DestinationStack DestinationKind = iota
	DestinationVariable
	DestinationReturn
)

// Destination is where an instruction stores its result. The zero
// Destination pushes onto the stack.
type Destination struct {
	Kind  DestinationKind
	Index int
}

var (
	ToStack  = Destination{Kind: DestinationStack}
	ToReturn = Destination{Kind: DestinationReturn}
)

func ToVariable(index int) Destination {
	return Destination{
		Kind:  DestinationVariable,
		Index: index,
	}
}

func (d Destination) String() string {
	switch d.Kind {
	case DestinationVariable:
		return fmt.Sprintf("@%d", d.Index)
	case DestinationReturn:
		return "$$"
	}
	return "stack"
}

type Comparison uint8

const (
	Equal Comparison = iota
	NotEqual
	LessThan
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
)

func (c Comparison) String() string {
	switch c {
	case Equal:
		return "=="
	case NotEqual:
		return "!="
	case LessThan:
		return "<"
	case LessThanOrEqual:
		return "<="
	case GreaterThan:
		return ">"
	case GreaterThanOrEqual:
		return ">="
	}
	return fmt.Sprintf("Comparison(%d)", uint8(c))
}

type CompareActionKind uint8

const (
	ActionStore CompareActionKind = iota
	ActionJumpIfFalse
)

type CompareAction struct {
	Kind        CompareActionKind
	Destination Destination
	Target      int
}

func StoreIn(dest Destination) CompareAction {
	return CompareAction{
		Kind:        ActionStore,
		Destination: dest,
	}
}

func JumpIfFalse(target int) CompareAction {
	return CompareAction{
		Kind:   ActionJumpIfFalse,
		Target: target,
	}
}

// VtableIndex identifies a registered function.
type VtableIndex int

// NoVtable in a Call refers to the currently executing function.
const NoVtable VtableIndex = -1

type Instruction interface {
	isInstruction()
}

type Add struct {
	Left        ValueSource
	Right       Operand
	Destination Destination
}

type Sub struct {
	Left        ValueSource
	Right       Operand
	Destination Destination
}

type Multiply struct {
	Left        ValueSource
	Right       Operand
	Destination Destination
}

type Divide struct {
	Left        ValueSource
	Right       Operand
	Destination Destination
}

// If continues when Condition is truthy and jumps to FalseJumpTo otherwise.
type If struct {
	Condition   ValueSource
	FalseJumpTo int
}

type JumpTo struct {
	Target int
}

type Compare struct {
	Comparison Comparison
	Left       ValueSource
	Right      Operand
	Action     CompareAction
}

type Push struct {
	Value Value
}

type PushCopy struct {
	Source ValueSource
}

type PopAndDrop struct{}

// Return exits the function. A nil Value returns the return register.
type Return struct {
	Value Operand
}

type Load struct {
	VariableIndex int
	Value         Operand
}

type Call struct {
	VtableIndex VtableIndex
	ArgCount    int
	Destination Destination
}

// CallInstance invokes Name on a dynamic value. With a nil Target the value
// is taken from the stack slot just below the arguments.
type CallInstance struct {
	Target      *ValueSource
	Name        symbols.Symbol
	ArgCount    int
	Destination Destination
}

func (Add) isInstruction()          {}
func (Sub) isInstruction()          {}
func (Multiply) isInstruction()     {}
func (Divide) isInstruction()       {}
func (If) isInstruction()           {}
func (JumpTo) isInstruction()       {}
func (Compare) isInstruction()      {}
func (Push) isInstruction()         {}
func (PushCopy) isInstruction()     {}
func (PopAndDrop) isInstruction()   {}
func (Return) isInstruction()       {}
func (Load) isInstruction()         {}
func (Call) isInstruction()         {}
func (CallInstance) isInstruction() {}

// Function is a compiled function registered with a VM.
type Function struct {
	ArgCount      int
	VariableCount int
	Code          []Instruction
}

type NamedFunction struct {
	Name     string
	Function *Function
}
