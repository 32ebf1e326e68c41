package budvm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ModProg/budlang/symbols"
)

var (
	ErrStackOverflow        = errors.New("stack pushed to while at maximum capacity")
	ErrStackUnderflow       = errors.New("stack popped but no values present")
	ErrInvalidVariableIndex = errors.New("a variable index was outside of the range allocated for the function")
	ErrInvalidArgumentIndex = errors.New("an argument index was beyond the number of arguments passed to the function")
	ErrInvalidVtableIndex   = errors.New("a vtable index was beyond the number of functions registered in the current module")
	ErrCallDepthExceeded    = fmt.Errorf("%w: call depth exceeded", ErrStackOverflow)
	ErrUndefinedFunction    = errors.New("undefined function")
	ErrStaleContinuation    = errors.New("continuation was already resumed or abandoned")
	ErrInvalidContinuation  = errors.New("invalid continuation state")
)

type UnknownFunctionError struct {
	Kind ValueKind
	Name symbols.Symbol
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function %s on %s", e.Name, e.Kind)
}

type ArityError struct {
	Expected int
	Received int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("function expects %d arguments but received %d", e.Expected, e.Received)
}

// TypeMismatchError reports a value of the wrong kind. Message may contain
// the placeholders @expected, @received-type and @received-value.
type TypeMismatchError struct {
	Message  string
	Expected ValueKind
	Received Value
}

func (e *TypeMismatchError) Error() string {
	return strings.NewReplacer(
		"@expected", e.Expected.String(),
		"@received-type", e.Received.ValueKind().String(),
		"@received-value", e.Received.String(),
	).Replace(e.Message)
}

// InvalidTypeError reports a value that is unusable in context. Message may
// contain the placeholders @received-type and @received-value.
type InvalidTypeError struct {
	Message  string
	Received Value
}

func (e *InvalidTypeError) Error() string {
	return strings.NewReplacer(
		"@received-type", e.Received.ValueKind().String(),
		"@received-value", e.Received.String(),
	).Replace(e.Message)
}

// DynamicFault carries an arbitrary host payload out of the virtual machine.
type DynamicFault struct {
	payload any
}

func NewDynamicFault(payload any) *DynamicFault {
	return &DynamicFault{
		payload: payload,
	}
}

func (d *DynamicFault) Payload() any {
	return d.payload
}

func (d *DynamicFault) Error() string {
	return fmt.Sprint(d.payload)
}

func (d *DynamicFault) Unwrap() error {
	if err, ok := d.payload.(error); ok {
		return err
	}
	return nil
}

func DynamicFaultAs[T any](d *DynamicFault) (T, bool) {
	ret, ok := d.payload.(T)
	return ret, ok
}

// FaultFrame locates one frame of a fault trace.
type FaultFrame struct {
	VtableIndex      VtableIndex
	InstructionIndex int
}

// Fault is the error returned by execution. Stack is ordered innermost
// frame first. A paused execution is a Fault wrapping a *Continuation.
type Fault struct {
	Err   error
	Stack []FaultFrame
}

func (f *Fault) Error() string {
	return f.Err.Error()
}

func (f *Fault) Unwrap() error {
	return f.Err
}

func (f *Fault) Paused() (*Continuation, bool) {
	cont, ok := f.Err.(*Continuation)
	return cont, ok
}

func (f *Fault) Trace() string {
	buf := new(strings.Builder)
	for _, frame := range f.Stack {
		if frame.VtableIndex == NoVtable {
			fmt.Fprintf(buf, "\tat <main>:%d\n", frame.InstructionIndex)
		} else {
			fmt.Fprintf(buf, "\tat vtable %d:%d\n", frame.VtableIndex, frame.InstructionIndex)
		}
	}
	return buf.String()
}

// AsPaused returns the continuation if err is a pause.
func AsPaused(err error) (*Continuation, bool) {
	var cont *Continuation
	if errors.As(err, &cont) {
		return cont, true
	}
	return nil, false
}

func toFault(err error) *Fault {
	if fault, ok := err.(*Fault); ok {
		return fault
	}
	return &Fault{
		Err: err,
	}
}

// hostError keeps recognized fault kinds and wraps everything else as a
// dynamic fault.
func hostError(err error) error {
	var (
		unknown  *UnknownFunctionError
		mismatch *TypeMismatchError
		invalid  *InvalidTypeError
		arity    *ArityError
		dynamic  *DynamicFault
	)
	switch {
	case errors.As(err, &unknown),
		errors.As(err, &mismatch),
		errors.As(err, &invalid),
		errors.As(err, &arity),
		errors.As(err, &dynamic),
		errors.Is(err, ErrStackOverflow),
		errors.Is(err, ErrStackUnderflow),
		errors.Is(err, ErrInvalidVariableIndex),
		errors.Is(err, ErrInvalidArgumentIndex),
		errors.Is(err, ErrInvalidVtableIndex):
		return err
	}
	return NewDynamicFault(err)
}
