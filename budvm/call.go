package budvm

func (f *frame) enter() error {
	if f.vm.depth >= f.vm.maxCallDepth {
		return ErrCallDepthExceeded
	}
	f.vm.depth++
	return nil
}

func (f *frame) leave() {
	f.vm.depth--
}

func (f *frame) call(index VtableIndex, argCount int, dest Destination) error {
	if index == NoVtable {
		index = f.vtableIndex
	}
	fn, ok := f.vm.function(index)
	if !ok {
		return ErrInvalidVtableIndex
	}
	if fn.ArgCount != argCount {
		return &ArityError{
			Expected: fn.ArgCount,
			Received: argCount,
		}
	}

	stack := f.vm.stack
	variablesOffset := stack.Len()
	argOffset := variablesOffset - argCount
	if argOffset < f.returnOffset {
		return ErrStackUnderflow
	}
	if err := stack.GrowBy(fn.VariableCount); err != nil {
		return err
	}

	if err := f.enter(); err != nil {
		return err
	}
	callee := frame{
		vm:              f.vm,
		returnOffset:    stack.Len(),
		argOffset:       argOffset,
		variablesOffset: variablesOffset,
		vtableIndex:     index,
		destination:     dest,
	}
	value, err := callee.execute(fn.Code)
	f.leave()
	if err != nil {
		return err
	}
	return f.finishCall(argOffset, dest, value)
}

// finishCall drops the callee's region of the stack and stores its result.
func (f *frame) finishCall(argOffset int, dest Destination, value Value) error {
	f.vm.stack.RemoveRange(argOffset, f.vm.stack.Len())
	return f.store(dest, value)
}

func (f *frame) callInstance(inst CallInstance) error {
	stack := f.vm.stack
	if inst.ArgCount < 0 || stack.Len()-inst.ArgCount < f.returnOffset {
		return ErrStackUnderflow
	}

	var index int
	if inst.Target != nil {
		var err error
		index, err = f.slotIndex(*inst.Target)
		if err != nil {
			return err
		}
	} else {
		index = stack.Len() - inst.ArgCount - 1
		if index < f.returnOffset {
			return ErrStackUnderflow
		}
	}

	slot := stack.slot(index)
	target := *slot
	if target.kind != KindDynamic {
		return &InvalidTypeError{
			Message:  "@received-type does not support function calls",
			Received: target.Clone(),
		}
	}
	*slot = Void

	args := stack.PopN(inst.ArgCount)
	result, err := target.callDynamic(inst.Name, args)
	args.Close()

	if inst.Target != nil {
		*stack.slot(index) = target
	} else {
		if _, popErr := stack.Pop(); popErr != nil && err == nil {
			err = popErr
		}
		target.Release()
	}

	if err != nil {
		result.Release()
		return hostError(err)
	}
	return f.store(inst.Destination, result)
}
