package budvm

import (
	"fmt"
	"log/slog"
)

// FrameState describes a frame suspended mid-execution.
type FrameState struct {
	ReturnOffset    int
	ArgOffset       int
	VariablesOffset int
	VtableIndex     VtableIndex
	// OperationIndex is the next instruction to run.
	OperationIndex int
	Destination    Destination
	ReturnValue    Value
	HasReturnValue bool
}

// Continuation is a paused execution. Only the most recent continuation of
// a VM can be resumed; starting another execution abandons it.
type Continuation struct {
	vm   *VM
	code []Instruction
	// innermost first
	frames []FrameState
	done   bool
}

var _ error = new(Continuation)

func (c *Continuation) Error() string {
	return "paused execution"
}

func (c *Continuation) Environment() Environment {
	if c.vm == nil {
		return nil
	}
	return c.vm.environment
}

// Depth returns the number of suspended frames.
func (c *Continuation) Depth() int {
	return len(c.frames)
}

func (c *Continuation) live() bool {
	return !c.done && c.vm != nil && c.vm.paused == c
}

// Resume continues execution from the innermost suspended instruction.
func (c *Continuation) Resume() (Value, error) {
	if !c.live() {
		return Void, ErrStaleContinuation
	}
	v := c.vm
	c.done = true
	v.paused = nil
	frames := c.frames
	c.frames = nil

	v.logger.Debug("resuming execution",
		slog.Int("frames", len(frames)),
	)
	outer := v.restoreFrame(frames[len(frames)-1])
	value, err := outer.resume(c.code, frames[:len(frames)-1])
	return v.finish(c.code, value, err)
}

// Discard abandons the execution and clears the stack.
func (c *Continuation) Discard() {
	if !c.live() {
		return
	}
	c.done = true
	c.vm.paused = nil
	for i := range c.frames {
		c.frames[i].ReturnValue.Release()
	}
	c.frames = nil
	c.vm.stack.Clear()
}

func (v *VM) restoreFrame(state FrameState) *frame {
	return &frame{
		vm:              v,
		returnOffset:    state.ReturnOffset,
		argOffset:       state.ArgOffset,
		variablesOffset: state.VariablesOffset,
		vtableIndex:     state.VtableIndex,
		operationIndex:  state.OperationIndex,
		destination:     state.Destination,
		returnValue:     state.ReturnValue,
		hasReturnValue:  state.HasReturnValue,
	}
}

// resume first finishes the suspended callee, if any, then continues this
// frame. inner is ordered innermost first.
func (f *frame) resume(code []Instruction, inner []FrameState) (Value, error) {
	if n := len(inner); n > 0 {
		state := inner[n-1]
		fn, ok := f.vm.function(state.VtableIndex)
		if !ok {
			return Void, f.unwind(ErrInvalidVtableIndex)
		}
		if err := f.enter(); err != nil {
			return Void, f.unwind(err)
		}
		callee := f.vm.restoreFrame(state)
		value, err := callee.resume(fn.Code, inner[:n-1])
		f.leave()
		if err == nil {
			err = f.finishCall(state.ArgOffset, state.Destination, value)
		}
		if err != nil {
			return Void, f.unwind(err)
		}
	}
	return f.execute(code)
}

// ContinuationState is a detached copy of a paused execution.
type ContinuationState struct {
	Code []Instruction
	// innermost first
	Frames []FrameState
	Stack  []Value
}

// State copies the paused execution. Dynamic values are shared with the
// continuation.
func (c *Continuation) State() ContinuationState {
	state := ContinuationState{
		Code:   c.code,
		Frames: make([]FrameState, len(c.frames)),
	}
	for i, frame := range c.frames {
		frame.ReturnValue = frame.ReturnValue.Clone()
		state.Frames[i] = frame
	}
	if c.live() {
		state.Stack = make([]Value, 0, c.vm.stack.Len())
		for _, value := range c.vm.stack.All() {
			state.Stack = append(state.Stack, value.Clone())
		}
	}
	return state
}

// Restore replaces the VM's stack with state and returns a continuation
// that resumes it. Functions referenced by state must already be defined.
func (v *VM) Restore(state ContinuationState) (*Continuation, error) {
	if err := v.validate(state); err != nil {
		return nil, err
	}
	v.abandon()
	v.stack.Clear()
	if _, err := v.stack.Extend(state.Stack...); err != nil {
		return nil, err
	}
	cont := &Continuation{
		vm:     v,
		code:   state.Code,
		frames: make([]FrameState, len(state.Frames)),
	}
	copy(cont.frames, state.Frames)
	v.paused = cont
	v.logger.Debug("execution restored",
		slog.Int("frames", len(cont.frames)),
		slog.Int("stack", len(state.Stack)),
	)
	return cont, nil
}

func (v *VM) validate(state ContinuationState) error {
	if len(state.Frames) == 0 {
		return fmt.Errorf("%w: no frames", ErrInvalidContinuation)
	}
	floor := 0
	for i := len(state.Frames) - 1; i >= 0; i-- {
		frame := state.Frames[i]
		if frame.ArgOffset < floor ||
			frame.ArgOffset > frame.VariablesOffset ||
			frame.VariablesOffset > frame.ReturnOffset ||
			frame.ReturnOffset > len(state.Stack) ||
			frame.OperationIndex < 0 {
			return fmt.Errorf("%w: frame %d has inconsistent offsets", ErrInvalidContinuation, i)
		}
		if i < len(state.Frames)-1 || frame.VtableIndex != NoVtable {
			if _, ok := v.function(frame.VtableIndex); !ok {
				return fmt.Errorf("%w: frame %d: %w", ErrInvalidContinuation, i, ErrInvalidVtableIndex)
			}
		}
		floor = frame.ReturnOffset
	}
	return nil
}
