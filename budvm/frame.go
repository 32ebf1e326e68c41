package budvm

import (
	"fmt"
	"math"
)

type frame struct {
	vm              *VM
	returnOffset    int
	argOffset       int
	variablesOffset int
	vtableIndex     VtableIndex
	operationIndex  int
	destination     Destination
	returnValue     Value
	hasReturnValue  bool
}

func (f *frame) state() FrameState {
	return FrameState{
		ReturnOffset:    f.returnOffset,
		ArgOffset:       f.argOffset,
		VariablesOffset: f.variablesOffset,
		VtableIndex:     f.vtableIndex,
		OperationIndex:  f.operationIndex,
		Destination:     f.destination,
		ReturnValue:     f.returnValue,
		HasReturnValue:  f.hasReturnValue,
	}
}

func (f *frame) execute(code []Instruction) (Value, error) {
	for {
		if f.vm.environment.Step() == Pause {
			return Void, &Fault{
				Err: &Continuation{
					frames: []FrameState{f.state()},
				},
				Stack: []FaultFrame{
					{
						VtableIndex:      f.vtableIndex,
						InstructionIndex: f.operationIndex,
					},
				},
			}
		}

		if f.operationIndex < 0 || f.operationIndex >= len(code) {
			return f.implicitReturn(), nil
		}
		instruction := code[f.operationIndex]
		f.operationIndex++

		value, returned, err := f.step(instruction)
		if err != nil {
			return Void, f.unwind(err)
		}
		if returned {
			return value, nil
		}
	}
}

// unwind records this frame in the fault trace, and in the continuation
// when execution is pausing.
func (f *frame) unwind(err error) *Fault {
	fault := toFault(err)
	if cont, ok := fault.Paused(); ok {
		cont.frames = append(cont.frames, f.state())
	} else {
		f.returnValue.Release()
	}
	fault.Stack = append(fault.Stack, FaultFrame{
		VtableIndex:      f.vtableIndex,
		InstructionIndex: f.operationIndex - 1,
	})
	return fault
}

func (f *frame) implicitReturn() Value {
	if f.hasReturnValue {
		return f.takeReturnValue()
	}
	if f.returnOffset < f.vm.stack.Len() {
		slot := f.vm.stack.slot(f.returnOffset)
		value := *slot
		*slot = Void
		return value
	}
	return Void
}

func (f *frame) takeReturnValue() Value {
	value := f.returnValue
	f.returnValue = Void
	f.hasReturnValue = false
	return value
}

func (f *frame) step(instruction Instruction) (Value, bool, error) {
	switch inst := instruction.(type) {

	case Add:
		return Void, false, f.arithmetic(addition, inst.Left, inst.Right, inst.Destination)
	case Sub:
		return Void, false, f.arithmetic(subtraction, inst.Left, inst.Right, inst.Destination)
	case Multiply:
		return Void, false, f.arithmetic(multiplication, inst.Left, inst.Right, inst.Destination)
	case Divide:
		return Void, false, f.arithmetic(division, inst.Left, inst.Right, inst.Destination)

	case If:
		cond, err := f.source(inst.Condition)
		if err != nil {
			return Void, false, err
		}
		if !cond.Truthy() {
			f.operationIndex = inst.FalseJumpTo
		}

	case JumpTo:
		f.operationIndex = inst.Target

	case Compare:
		return Void, false, f.compare(inst)

	case Push:
		return Void, false, f.push(inst.Value.Clone())

	case PushCopy:
		value, err := f.source(inst.Source)
		if err != nil {
			return Void, false, err
		}
		return Void, false, f.push(value.Clone())

	case PopAndDrop:
		if f.vm.stack.Len() <= f.returnOffset {
			return Void, false, ErrStackUnderflow
		}
		value, err := f.vm.stack.Pop()
		if err != nil {
			return Void, false, err
		}
		value.Release()

	case Return:
		if inst.Value == nil {
			if f.hasReturnValue {
				return f.takeReturnValue(), true, nil
			}
			return Void, true, nil
		}
		value, err := f.operand(inst.Value)
		if err != nil {
			return Void, false, err
		}
		value = value.Clone()
		f.returnValue.Release()
		f.hasReturnValue = false
		return value, true, nil

	case Load:
		value, err := f.operand(inst.Value)
		if err != nil {
			return Void, false, err
		}
		return Void, false, f.store(ToVariable(inst.VariableIndex), value.Clone())

	case Call:
		return Void, false, f.call(inst.VtableIndex, inst.ArgCount, inst.Destination)

	case CallInstance:
		return Void, false, f.callInstance(inst)

	default:
		return Void, false, fmt.Errorf("unknown instruction: %T", instruction)
	}

	return Void, false, nil
}

func (f *frame) slotIndex(source ValueSource) (int, error) {
	if source.Kind == SourceArgument {
		if source.Index < 0 || source.Index >= f.variablesOffset-f.argOffset {
			return 0, ErrInvalidArgumentIndex
		}
		return f.argOffset + source.Index, nil
	}
	if source.Index < 0 || source.Index >= f.returnOffset-f.variablesOffset {
		return 0, ErrInvalidVariableIndex
	}
	return f.variablesOffset + source.Index, nil
}

func (f *frame) slot(source ValueSource) (*Value, error) {
	index, err := f.slotIndex(source)
	if err != nil {
		return nil, err
	}
	return f.vm.stack.slot(index), nil
}

// source returns a borrowed copy of the addressed value.
func (f *frame) source(source ValueSource) (Value, error) {
	slot, err := f.slot(source)
	if err != nil {
		return Void, err
	}
	return *slot, nil
}

func (f *frame) operand(operand Operand) (Value, error) {
	switch operand := operand.(type) {
	case nil:
		return Void, nil
	case Value:
		return operand, nil
	case ValueSource:
		return f.source(operand)
	}
	return Void, fmt.Errorf("unknown operand: %T", operand)
}

func (f *frame) push(value Value) error {
	if err := f.vm.stack.Push(value); err != nil {
		value.Release()
		return err
	}
	return nil
}

// store takes ownership of value.
func (f *frame) store(dest Destination, value Value) error {
	switch dest.Kind {
	case DestinationVariable:
		slot, err := f.slot(Var(dest.Index))
		if err != nil {
			value.Release()
			return err
		}
		slot.Release()
		*slot = value
		return nil
	case DestinationReturn:
		f.returnValue.Release()
		f.returnValue = value
		f.hasReturnValue = true
		return nil
	}
	return f.push(value)
}

type arithmetic struct {
	verb       string
	participle string
	integer    func(a, b int64) (int64, bool)
	real       func(a, b float64) float64
}

var (
	addition = arithmetic{
		verb:       "add",
		participle: "added",
		integer: func(a, b int64) (int64, bool) {
			sum := a + b
			return sum, (a^sum)&(b^sum) >= 0
		},
		real: func(a, b float64) float64 {
			return a + b
		},
	}

	subtraction = arithmetic{
		verb:       "subtract",
		participle: "subtracted",
		integer: func(a, b int64) (int64, bool) {
			diff := a - b
			return diff, (a^b)&(a^diff) >= 0
		},
		real: func(a, b float64) float64 {
			return a - b
		},
	}

	multiplication = arithmetic{
		verb:       "multiply",
		participle: "multiplied",
		integer: func(a, b int64) (int64, bool) {
			if a == 0 || b == 0 {
				return 0, true
			}
			if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
				return 0, false
			}
			product := a * b
			return product, product/b == a
		},
		real: func(a, b float64) float64 {
			return a * b
		},
	}

	division = arithmetic{
		verb:       "divide",
		participle: "divided",
		integer: func(a, b int64) (int64, bool) {
			if b == 0 || (a == math.MinInt64 && b == -1) {
				return 0, false
			}
			return a / b, true
		},
		real: func(a, b float64) float64 {
			return a / b
		},
	}
)

// arithmetic stores Void when integer math overflows or divides by zero.
func (f *frame) arithmetic(op arithmetic, left ValueSource, right Operand, dest Destination) error {
	lhs, err := f.source(left)
	if err != nil {
		return err
	}
	rhs, err := f.operand(right)
	if err != nil {
		return err
	}

	var result Value
	switch lhs.kind {
	case KindInteger:
		r, ok := rhs.Int()
		if !ok {
			return &TypeMismatchError{
				Message:  "can't " + op.verb + " @expected and `@received-value` (@received-type)",
				Expected: lhs.ValueKind(),
				Received: rhs.Clone(),
			}
		}
		if n, ok := op.integer(int64(lhs.bits), r); ok {
			result = Int(n)
		}
	case KindReal:
		r, ok := rhs.Real()
		if !ok {
			return &TypeMismatchError{
				Message:  "can't " + op.verb + " @expected and `@received-value` (@received-type)",
				Expected: lhs.ValueKind(),
				Received: rhs.Clone(),
			}
		}
		result = Real(op.real(math.Float64frombits(lhs.bits), r))
	default:
		return &InvalidTypeError{
			Message:  "`@received-value` (@received-type) is not able to be " + op.participle,
			Received: lhs.Clone(),
		}
	}
	return f.store(dest, result)
}

func (f *frame) compare(inst Compare) error {
	lhs, err := f.source(inst.Left)
	if err != nil {
		return err
	}
	rhs, err := f.operand(inst.Right)
	if err != nil {
		return err
	}

	var result bool
	switch inst.Comparison {
	case Equal:
		result = lhs.Equal(rhs)
	case NotEqual:
		result = !lhs.Equal(rhs)
	default:
		order, ok := lhs.Compare(rhs)
		if !ok {
			return &TypeMismatchError{
				Message:  "invalid comparison between @expected and `@received-value` (@received-type)",
				Expected: lhs.ValueKind(),
				Received: rhs.Clone(),
			}
		}
		switch inst.Comparison {
		case LessThan:
			result = order < 0
		case LessThanOrEqual:
			result = order <= 0
		case GreaterThan:
			result = order > 0
		case GreaterThanOrEqual:
			result = order >= 0
		default:
			return fmt.Errorf("unknown comparison: %v", inst.Comparison)
		}
	}

	if inst.Action.Kind == ActionJumpIfFalse {
		if !result {
			f.operationIndex = inst.Action.Target
		}
		return nil
	}
	return f.store(inst.Action.Destination, Bool(result))
}
