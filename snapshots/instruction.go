package snapshots

import (
	"fmt"

	"github.com/ModProg/budlang/budvm"
	"github.com/ModProg/budlang/symbols"
)

func encodeSource(s budvm.ValueSource) *wireSource {
	return &wireSource{
		Kind:  uint8(s.Kind),
		Index: s.Index,
	}
}

func decodeSource(w *wireSource) (budvm.ValueSource, error) {
	if w == nil {
		return budvm.ValueSource{}, fmt.Errorf("snapshots: missing value source")
	}
	return budvm.ValueSource{
		Kind:  budvm.SourceKind(w.Kind),
		Index: w.Index,
	}, nil
}

func encodeOperand(op budvm.Operand) (*wireOperand, error) {
	switch op := op.(type) {
	case nil:
		return nil, nil
	case budvm.ValueSource:
		return &wireOperand{
			Source: encodeSource(op),
		}, nil
	case budvm.Value:
		value, err := encodeValuePtr(op)
		if err != nil {
			return nil, err
		}
		return &wireOperand{
			Value: value,
		}, nil
	}
	return nil, fmt.Errorf("snapshots: unknown operand %T", op)
}

func decodeOperand(w *wireOperand) (budvm.Operand, error) {
	switch {
	case w == nil:
		return nil, nil
	case w.Source != nil:
		return decodeSource(w.Source)
	}
	return decodeValuePtr(w.Value)
}

func encodeDestination(d budvm.Destination) *wireDestination {
	return &wireDestination{
		Kind:  uint8(d.Kind),
		Index: d.Index,
	}
}

func decodeDestination(w *wireDestination) budvm.Destination {
	if w == nil {
		return budvm.ToStack
	}
	return budvm.Destination{
		Kind:  budvm.DestinationKind(w.Kind),
		Index: w.Index,
	}
}

func encodeArithmetic(op opcode, left budvm.ValueSource, right budvm.Operand, dest budvm.Destination) (wireInstruction, error) {
	r, err := encodeOperand(right)
	if err != nil {
		return wireInstruction{}, err
	}
	return wireInstruction{
		Op:          op,
		Left:        encodeSource(left),
		Right:       r,
		Destination: encodeDestination(dest),
	}, nil
}

func encodeInstruction(inst budvm.Instruction) (wireInstruction, error) {
	switch inst := inst.(type) {
	case budvm.Add:
		return encodeArithmetic(opAdd, inst.Left, inst.Right, inst.Destination)
	case budvm.Sub:
		return encodeArithmetic(opSub, inst.Left, inst.Right, inst.Destination)
	case budvm.Multiply:
		return encodeArithmetic(opMultiply, inst.Left, inst.Right, inst.Destination)
	case budvm.Divide:
		return encodeArithmetic(opDivide, inst.Left, inst.Right, inst.Destination)

	case budvm.If:
		return wireInstruction{
			Op:   opIf,
			Left: encodeSource(inst.Condition),
			Jump: &inst.FalseJumpTo,
		}, nil

	case budvm.JumpTo:
		return wireInstruction{
			Op:   opJumpTo,
			Jump: &inst.Target,
		}, nil

	case budvm.Compare:
		right, err := encodeOperand(inst.Right)
		if err != nil {
			return wireInstruction{}, err
		}
		ret := wireInstruction{
			Op:         opCompare,
			Comparison: uint8(inst.Comparison),
			Left:       encodeSource(inst.Left),
			Right:      right,
		}
		if inst.Action.Kind == budvm.ActionJumpIfFalse {
			ret.Jump = &inst.Action.Target
		} else {
			ret.Destination = encodeDestination(inst.Action.Destination)
		}
		return ret, nil

	case budvm.Push:
		value, err := encodeValuePtr(inst.Value)
		if err != nil {
			return wireInstruction{}, err
		}
		return wireInstruction{
			Op:    opPush,
			Value: value,
		}, nil

	case budvm.PushCopy:
		return wireInstruction{
			Op:   opPushCopy,
			Left: encodeSource(inst.Source),
		}, nil

	case budvm.PopAndDrop:
		return wireInstruction{
			Op: opPopAndDrop,
		}, nil

	case budvm.Return:
		value, err := encodeOperand(inst.Value)
		if err != nil {
			return wireInstruction{}, err
		}
		return wireInstruction{
			Op:    opReturn,
			Right: value,
		}, nil

	case budvm.Load:
		value, err := encodeOperand(inst.Value)
		if err != nil {
			return wireInstruction{}, err
		}
		return wireInstruction{
			Op:    opLoad,
			Index: inst.VariableIndex,
			Right: value,
		}, nil

	case budvm.Call:
		return wireInstruction{
			Op:          opCall,
			Index:       int(inst.VtableIndex),
			ArgCount:    inst.ArgCount,
			Destination: encodeDestination(inst.Destination),
		}, nil

	case budvm.CallInstance:
		ret := wireInstruction{
			Op:          opCallInstance,
			Name:        inst.Name.String(),
			ArgCount:    inst.ArgCount,
			Destination: encodeDestination(inst.Destination),
		}
		if inst.Target != nil {
			ret.Left = encodeSource(*inst.Target)
		}
		return ret, nil
	}
	return wireInstruction{}, fmt.Errorf("snapshots: unknown instruction %T", inst)
}

func decodeInstruction(w wireInstruction) (budvm.Instruction, error) {
	jump := func() (int, error) {
		if w.Jump == nil {
			return 0, fmt.Errorf("snapshots: missing jump target")
		}
		return *w.Jump, nil
	}

	switch w.Op {
	case opAdd, opSub, opMultiply, opDivide:
		left, err := decodeSource(w.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeOperand(w.Right)
		if err != nil {
			return nil, err
		}
		dest := decodeDestination(w.Destination)
		switch w.Op {
		case opAdd:
			return budvm.Add{Left: left, Right: right, Destination: dest}, nil
		case opSub:
			return budvm.Sub{Left: left, Right: right, Destination: dest}, nil
		case opMultiply:
			return budvm.Multiply{Left: left, Right: right, Destination: dest}, nil
		}
		return budvm.Divide{Left: left, Right: right, Destination: dest}, nil

	case opIf:
		cond, err := decodeSource(w.Left)
		if err != nil {
			return nil, err
		}
		target, err := jump()
		if err != nil {
			return nil, err
		}
		return budvm.If{Condition: cond, FalseJumpTo: target}, nil

	case opJumpTo:
		target, err := jump()
		if err != nil {
			return nil, err
		}
		return budvm.JumpTo{Target: target}, nil

	case opCompare:
		left, err := decodeSource(w.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeOperand(w.Right)
		if err != nil {
			return nil, err
		}
		ret := budvm.Compare{
			Comparison: budvm.Comparison(w.Comparison),
			Left:       left,
			Right:      right,
		}
		if w.Jump != nil {
			ret.Action = budvm.JumpIfFalse(*w.Jump)
		} else {
			ret.Action = budvm.StoreIn(decodeDestination(w.Destination))
		}
		return ret, nil

	case opPush:
		value, err := decodeValuePtr(w.Value)
		if err != nil {
			return nil, err
		}
		return budvm.Push{Value: value}, nil

	case opPushCopy:
		source, err := decodeSource(w.Left)
		if err != nil {
			return nil, err
		}
		return budvm.PushCopy{Source: source}, nil

	case opPopAndDrop:
		return budvm.PopAndDrop{}, nil

	case opReturn:
		value, err := decodeOperand(w.Right)
		if err != nil {
			return nil, err
		}
		return budvm.Return{Value: value}, nil

	case opLoad:
		value, err := decodeOperand(w.Right)
		if err != nil {
			return nil, err
		}
		return budvm.Load{VariableIndex: w.Index, Value: value}, nil

	case opCall:
		return budvm.Call{
			VtableIndex: budvm.VtableIndex(w.Index),
			ArgCount:    w.ArgCount,
			Destination: decodeDestination(w.Destination),
		}, nil

	case opCallInstance:
		ret := budvm.CallInstance{
			Name:        symbols.Intern(w.Name),
			ArgCount:    w.ArgCount,
			Destination: decodeDestination(w.Destination),
		}
		if w.Left != nil {
			target, err := decodeSource(w.Left)
			if err != nil {
				return nil, err
			}
			ret.Target = &target
		}
		return ret, nil
	}
	return nil, fmt.Errorf("snapshots: unknown opcode %d", w.Op)
}

func encodeCode(code []budvm.Instruction) ([]wireInstruction, error) {
	ret := make([]wireInstruction, 0, len(code))
	for i, inst := range code {
		w, err := encodeInstruction(inst)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		ret = append(ret, w)
	}
	return ret, nil
}

func decodeCode(code []wireInstruction) ([]budvm.Instruction, error) {
	ret := make([]budvm.Instruction, 0, len(code))
	for i, w := range code {
		inst, err := decodeInstruction(w)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		ret = append(ret, inst)
	}
	return ret, nil
}
