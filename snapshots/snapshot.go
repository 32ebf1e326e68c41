package snapshots

import (
	"fmt"

	"github.com/ModProg/budlang/budvm"
	"github.com/fxamacker/cbor/v2"
)

// Snapshot is a paused execution together with the functions it needs.
type Snapshot struct {
	Functions []budvm.NamedFunction
	State     budvm.ContinuationState
	// Budget is the remaining balance of a budgeted environment.
	Budget int
}

// Take captures a paused execution of vm.
func Take(vm *budvm.VM, cont *budvm.Continuation) Snapshot {
	ret := Snapshot{
		Functions: vm.Functions(),
		State:     cont.State(),
	}
	env := cont.Environment()
	for {
		wrapper, ok := env.(interface{ Inner() budvm.Environment })
		if !ok {
			break
		}
		env = wrapper.Inner()
	}
	if budget, ok := env.(*budvm.Budgeted); ok {
		ret.Budget = budget.Balance()
	}
	return ret
}

// Restore builds a VM holding the snapshot's functions and returns the
// continuation to resume.
func (s Snapshot) Restore(options ...budvm.Option) (*budvm.VM, *budvm.Continuation, error) {
	vm := budvm.New(options...)
	for _, fn := range s.Functions {
		vm.DefineFunction(fn.Name, fn.Function)
	}
	cont, err := vm.Restore(s.State)
	if err != nil {
		return nil, nil, err
	}
	return vm, cont, nil
}

func Encode(s Snapshot) ([]byte, error) {
	w := wireSnapshot{
		Version: version,
		Budget:  s.Budget,
	}

	for _, fn := range s.Functions {
		code, err := encodeCode(fn.Function.Code)
		if err != nil {
			return nil, fmt.Errorf("snapshots: function %s: %w", fn.Name, err)
		}
		w.Functions = append(w.Functions, wireFunction{
			Name:          fn.Name,
			ArgCount:      fn.Function.ArgCount,
			VariableCount: fn.Function.VariableCount,
			Code:          code,
		})
	}

	code, err := encodeCode(s.State.Code)
	if err != nil {
		return nil, fmt.Errorf("snapshots: entry code: %w", err)
	}
	w.Code = code

	for _, frame := range s.State.Frames {
		wf := wireFrame{
			ReturnOffset:    frame.ReturnOffset,
			ArgOffset:       frame.ArgOffset,
			VariablesOffset: frame.VariablesOffset,
			VtableIndex:     int(frame.VtableIndex),
			OperationIndex:  frame.OperationIndex,
			Destination:     encodeDestination(frame.Destination),
		}
		if frame.HasReturnValue {
			wf.ReturnValue, err = encodeValuePtr(frame.ReturnValue)
			if err != nil {
				return nil, err
			}
		}
		w.Frames = append(w.Frames, wf)
	}

	for _, value := range s.State.Stack {
		wv, err := encodeValue(value)
		if err != nil {
			return nil, err
		}
		w.Stack = append(w.Stack, wv)
	}

	return encMode.Marshal(w)
}

func Decode(data []byte) (ret Snapshot, err error) {
	var w wireSnapshot
	if err := cbor.Unmarshal(data, &w); err != nil {
		return ret, fmt.Errorf("snapshots: unmarshal: %w", err)
	}
	if w.Version != version {
		return ret, fmt.Errorf("snapshots: unsupported version %d", w.Version)
	}
	ret.Budget = w.Budget

	for _, wf := range w.Functions {
		code, err := decodeCode(wf.Code)
		if err != nil {
			return ret, fmt.Errorf("snapshots: function %s: %w", wf.Name, err)
		}
		ret.Functions = append(ret.Functions, budvm.NamedFunction{
			Name: wf.Name,
			Function: &budvm.Function{
				ArgCount:      wf.ArgCount,
				VariableCount: wf.VariableCount,
				Code:          code,
			},
		})
	}

	ret.State.Code, err = decodeCode(w.Code)
	if err != nil {
		return ret, fmt.Errorf("snapshots: entry code: %w", err)
	}

	for _, wf := range w.Frames {
		frame := budvm.FrameState{
			ReturnOffset:    wf.ReturnOffset,
			ArgOffset:       wf.ArgOffset,
			VariablesOffset: wf.VariablesOffset,
			VtableIndex:     budvm.VtableIndex(wf.VtableIndex),
			OperationIndex:  wf.OperationIndex,
			Destination:     decodeDestination(wf.Destination),
		}
		if wf.ReturnValue != nil {
			frame.ReturnValue, err = decodeValue(*wf.ReturnValue)
			if err != nil {
				return ret, err
			}
			frame.HasReturnValue = true
		}
		ret.State.Frames = append(ret.State.Frames, frame)
	}

	for _, wv := range w.Stack {
		value, err := decodeValue(wv)
		if err != nil {
			return ret, err
		}
		ret.State.Stack = append(ret.State.Stack, value)
	}

	return ret, nil
}
