package budvm

import (
	"errors"
	"math"
	"testing"

	"github.com/ModProg/budlang/symbols"
)

// sum(n) adds n down to zero recursively
var sumFunction = &Function{
	ArgCount:      1,
	VariableCount: 1,
	Code: []Instruction{
		Compare{
			Comparison: GreaterThan,
			Left:       Arg(0),
			Right:      Int(0),
			Action:     JumpIfFalse(5),
		},
		Sub{Left: Arg(0), Right: Int(1), Destination: ToStack},
		Call{VtableIndex: NoVtable, ArgCount: 1, Destination: ToVariable(0)},
		Add{Left: Var(0), Right: Arg(0), Destination: ToReturn},
		Return{},
		Return{Value: Int(0)},
	},
}

func TestRunArithmetic(t *testing.T) {
	vm := New()
	result, err := As[int64](vm.Run([]Instruction{
		Load{VariableIndex: 0, Value: Int(6)},
		Multiply{Left: Var(0), Right: Int(7), Destination: ToVariable(1)},
		Sub{Left: Var(1), Right: Int(2), Destination: ToVariable(1)},
		Divide{Left: Var(1), Right: Int(4), Destination: ToReturn},
	}, 2))
	if err != nil {
		t.Fatal(err)
	}
	if result != 10 {
		t.Fatalf("expected 10, got %v", result)
	}
	if !vm.Stack().IsEmpty() {
		t.Fatal("expected empty stack")
	}
}

func TestIntegerOverflowIsVoid(t *testing.T) {
	cases := []Instruction{
		Add{Left: Var(0), Right: Int(1), Destination: ToReturn},
		Multiply{Left: Var(0), Right: Int(2), Destination: ToReturn},
		Divide{Left: Var(0), Right: Int(0), Destination: ToReturn},
	}
	for _, inst := range cases {
		result, err := New().Run([]Instruction{
			Load{VariableIndex: 0, Value: Int(math.MaxInt64)},
			inst,
		}, 1)
		if err != nil {
			t.Fatal(err)
		}
		if !result.IsVoid() {
			t.Fatalf("%T: expected void, got %v", inst, result)
		}
	}

	result, err := As[float64](New().Run([]Instruction{
		Load{VariableIndex: 0, Value: Real(1)},
		Divide{Left: Var(0), Right: Real(0), Destination: ToReturn},
	}, 1))
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(result, 1) {
		t.Fatalf("expected +Inf, got %v", result)
	}
}

func TestArithmeticTypeErrors(t *testing.T) {
	_, err := New().Run([]Instruction{
		Load{VariableIndex: 0, Value: Int(1)},
		Add{Left: Var(0), Right: Real(1.5), Destination: ToReturn},
	}, 1)
	var mismatchErr *TypeMismatchError
	if !errors.As(err, &mismatchErr) {
		t.Fatalf("expected type mismatch, got %v", err)
	}
	if err.Error() != "can't add Integer and `1.5` (Real)" {
		t.Fatalf("got %q", err.Error())
	}

	_, err = New().Run([]Instruction{
		Load{VariableIndex: 0, Value: Bool(true)},
		Sub{Left: Var(0), Right: Int(1), Destination: ToReturn},
	}, 1)
	var invalidErr *InvalidTypeError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("expected invalid type, got %v", err)
	}
	if err.Error() != "`true` (Boolean) is not able to be subtracted" {
		t.Fatalf("got %q", err.Error())
	}
}

func TestCompare(t *testing.T) {
	result, err := As[bool](New().Run([]Instruction{
		Load{VariableIndex: 0, Value: Int(3)},
		Compare{
			Comparison: LessThanOrEqual,
			Left:       Var(0),
			Right:      Int(3),
			Action:     StoreIn(ToReturn),
		},
	}, 1))
	if err != nil {
		t.Fatal(err)
	}
	if !result {
		t.Fatal("expected true")
	}

	_, err = New().Run([]Instruction{
		Load{VariableIndex: 0, Value: Int(3)},
		Compare{
			Comparison: LessThan,
			Left:       Var(0),
			Right:      Bool(true),
			Action:     StoreIn(ToReturn),
		},
	}, 1)
	if err == nil || err.Error() != "invalid comparison between Integer and `true` (Boolean)" {
		t.Fatalf("got %v", err)
	}
}

func TestIfAndJump(t *testing.T) {
	code := []Instruction{
		If{Condition: Arg(0), FalseJumpTo: 3},
		Push{Value: Int(1)},
		JumpTo{Target: 4},
		Push{Value: Int(2)},
	}
	vm := New().WithFunction("choose", &Function{ArgCount: 1, Code: code})
	for arg, expected := range map[bool]int64{true: 1, false: 2} {
		result, err := As[int64](vm.Call("choose", Bool(arg)))
		if err != nil {
			t.Fatal(err)
		}
		if result != expected {
			t.Fatalf("expected %v, got %v", expected, result)
		}
	}
}

func TestRecursion(t *testing.T) {
	vm := New().WithFunction("sum", sumFunction)
	result, err := As[int64](vm.Call("sum", Int(100)))
	if err != nil {
		t.Fatal(err)
	}
	if result != 5050 {
		t.Fatalf("expected 5050, got %v", result)
	}
	if !vm.Stack().IsEmpty() {
		t.Fatal("expected empty stack")
	}
}

func TestCallUndefined(t *testing.T) {
	_, err := New().Call("missing")
	if !errors.Is(err, ErrUndefinedFunction) {
		t.Fatalf("got %v", err)
	}
}

func TestArity(t *testing.T) {
	vm := New().WithFunction("sum", sumFunction)
	_, err := vm.Call("sum")
	var arityErr *ArityError
	if !errors.As(err, &arityErr) {
		t.Fatalf("expected arity error, got %v", err)
	}
	if arityErr.Expected != 1 || arityErr.Received != 0 {
		t.Fatalf("got %+v", arityErr)
	}
}

func TestInvalidVariables(t *testing.T) {
	vm := New().WithFunction("test", &Function{
		Code: []Instruction{
			PushCopy{Source: Var(0)},
		},
	})
	_, err := vm.Run([]Instruction{
		Call{VtableIndex: 0, ArgCount: 0, Destination: ToStack},
	}, 0)
	if !errors.Is(err, ErrInvalidVariableIndex) {
		t.Fatalf("got %v", err)
	}
}

func TestInvalidArgument(t *testing.T) {
	vm := New().WithFunction("test", &Function{
		Code: []Instruction{
			PushCopy{Source: Arg(0)},
		},
	})
	_, err := vm.Run([]Instruction{
		Call{VtableIndex: 0, ArgCount: 0, Destination: ToStack},
	}, 0)
	if !errors.Is(err, ErrInvalidArgumentIndex) {
		t.Fatalf("got %v", err)
	}
}

func TestInvalidVtableIndex(t *testing.T) {
	_, err := New().Run([]Instruction{
		Call{VtableIndex: 0, ArgCount: 0, Destination: ToStack},
	}, 0)
	if !errors.Is(err, ErrInvalidVtableIndex) {
		t.Fatalf("got %v", err)
	}
}

func TestFunctionWithoutReturnValue(t *testing.T) {
	vm := New().WithFunction("test", &Function{})
	result, err := vm.Call("test")
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsVoid() {
		t.Fatalf("expected void, got %v", result)
	}
}

func TestFunctionNeedsExtraCleanup(t *testing.T) {
	vm := New().WithFunction("test", &Function{
		Code: []Instruction{
			Push{Value: Int(1)},
			Push{Value: Int(2)},
		},
	})
	result, err := vm.Run([]Instruction{
		Call{VtableIndex: 0, ArgCount: 0, Destination: ToStack},
	}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Equal(Int(1)) {
		t.Fatalf("expected 1, got %v", result)
	}
	if !vm.Stack().IsEmpty() {
		t.Fatal("expected empty stack")
	}
}

func TestStackOverflowFault(t *testing.T) {
	vm := New(WithStackCapacity(0, 4)).WithFunction("sum", sumFunction)
	_, err := vm.Call("sum", Int(10))
	if !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("got %v", err)
	}
	if !vm.Stack().IsEmpty() {
		t.Fatal("expected stack cleared after fault")
	}
}

func TestCallDepth(t *testing.T) {
	vm := New(WithMaxCallDepth(8)).WithFunction("loop", &Function{
		Code: []Instruction{
			Call{VtableIndex: NoVtable, ArgCount: 0, Destination: ToReturn},
		},
	})
	_, err := vm.Call("loop")
	if !errors.Is(err, ErrCallDepthExceeded) {
		t.Fatalf("got %v", err)
	}
	if !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("expected a stack overflow, got %v", err)
	}
}

func TestFaultTrace(t *testing.T) {
	vm := New()
	vm.DefineFunction("inner", &Function{
		Code: []Instruction{
			Push{Value: Int(1)},
			PushCopy{Source: Var(0)},
		},
	})
	vm.DefineFunction("outer", &Function{
		Code: []Instruction{
			Call{VtableIndex: 0, ArgCount: 0, Destination: ToStack},
		},
	})
	_, err := vm.Call("outer")
	var fault *Fault
	if !errors.As(err, &fault) {
		t.Fatalf("expected fault, got %v", err)
	}
	expected := []FaultFrame{
		{VtableIndex: 0, InstructionIndex: 1},
		{VtableIndex: 1, InstructionIndex: 0},
		{VtableIndex: NoVtable, InstructionIndex: 0},
	}
	if len(fault.Stack) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, fault.Stack)
	}
	for i := range expected {
		if fault.Stack[i] != expected[i] {
			t.Fatalf("expected %v, got %v", expected, fault.Stack)
		}
	}
	if _, ok := fault.Paused(); ok {
		t.Fatal("fault is not a pause")
	}
}

func TestCallInstance(t *testing.T) {
	add := symbols.Intern("add")
	vm := New()

	// implicit target below the arguments
	result, err := As[int64](vm.Run([]Instruction{
		Push{Value: NewDynamic(&counter{Count: 1})},
		Push{Value: Int(2)},
		Push{Value: Int(3)},
		CallInstance{Name: add, ArgCount: 2, Destination: ToReturn},
	}, 0))
	if err != nil {
		t.Fatal(err)
	}
	if result != 6 {
		t.Fatalf("expected 6, got %v", result)
	}

	// explicit target is kept in place
	target := Var(0)
	result, err = As[int64](vm.Run([]Instruction{
		Load{VariableIndex: 0, Value: NewDynamic(&counter{})},
		Push{Value: Int(4)},
		CallInstance{Target: &target, Name: add, ArgCount: 1, Destination: ToVariable(1)},
		Push{Value: Int(5)},
		CallInstance{Target: &target, Name: add, ArgCount: 1, Destination: ToReturn},
	}, 2))
	if err != nil {
		t.Fatal(err)
	}
	if result != 9 {
		t.Fatalf("expected 9, got %v", result)
	}
}

func TestCallInstanceDoesNotMutateShared(t *testing.T) {
	shared := NewDynamic(&counter{Count: 1})
	vm := New()
	_, err := vm.Run([]Instruction{
		Push{Value: shared},
		Push{Value: Int(10)},
		CallInstance{Name: symbols.Intern("add"), ArgCount: 1, Destination: ToReturn},
	}, 0)
	if err != nil {
		t.Fatal(err)
	}
	c, _ := AsDynamic[*counter](shared)
	if c.Count != 1 {
		t.Fatalf("expected 1, got %d", c.Count)
	}
	if shared.Refs() != 1 {
		t.Fatalf("expected 1, got %d", shared.Refs())
	}
}

func TestCallArgumentsAreCloned(t *testing.T) {
	target := Arg(0)
	vm := New().WithFunction("bump", &Function{
		ArgCount: 1,
		Code: []Instruction{
			Push{Value: Int(10)},
			CallInstance{Target: &target, Name: symbols.Intern("add"), ArgCount: 1, Destination: ToReturn},
		},
	})
	shared := NewDynamic(&counter{Count: 1})
	result, err := As[int64](vm.Call("bump", shared))
	if err != nil {
		t.Fatal(err)
	}
	if result != 11 {
		t.Fatalf("expected 11, got %v", result)
	}
	c, _ := AsDynamic[*counter](shared)
	if c.Count != 1 {
		t.Fatalf("expected 1, got %d", c.Count)
	}
	if shared.Refs() != 1 {
		t.Fatalf("expected 1, got %d", shared.Refs())
	}
}

func TestCallInstanceErrors(t *testing.T) {
	_, err := New().Run([]Instruction{
		Push{Value: Int(1)},
		CallInstance{Name: symbols.Intern("add"), ArgCount: 0, Destination: ToReturn},
	}, 0)
	var invalidErr *InvalidTypeError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("expected invalid type, got %v", err)
	}
	if err.Error() != "Integer does not support function calls" {
		t.Fatalf("got %q", err.Error())
	}

	_, err = New().Run([]Instruction{
		Push{Value: NewDynamic(&counter{})},
		CallInstance{Name: symbols.Intern("explode"), ArgCount: 0, Destination: ToReturn},
	}, 0)
	var unknownErr *UnknownFunctionError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected unknown function, got %v", err)
	}
	if err.Error() != "unknown function explode on Counter" {
		t.Fatalf("got %q", err.Error())
	}

	_, err = New().Run([]Instruction{
		Push{Value: NewDynamic(&counter{})},
		CallInstance{Name: symbols.Intern("fail"), ArgCount: 0, Destination: ToReturn},
	}, 0)
	var dynamicErr *DynamicFault
	if !errors.As(err, &dynamicErr) || !errors.Is(err, errBoom) {
		t.Fatalf("expected dynamic fault, got %v", err)
	}

	_, err = New().Run([]Instruction{
		CallInstance{Name: symbols.Intern("add"), ArgCount: 0, Destination: ToReturn},
	}, 0)
	if !errors.Is(err, ErrStackUnderflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
}

func TestPopAndDropUnderflow(t *testing.T) {
	_, err := New().Run([]Instruction{
		PopAndDrop{},
	}, 0)
	if !errors.Is(err, ErrStackUnderflow) {
		t.Fatalf("got %v", err)
	}
}

func TestRedefineFunction(t *testing.T) {
	vm := New()
	first := vm.DefineFunction("f", &Function{Code: []Instruction{Return{Value: Int(1)}}})
	second := vm.DefineFunction("f", &Function{Code: []Instruction{Return{Value: Int(2)}}})
	if first == second {
		t.Fatal("expected new vtable index")
	}
	if index, _ := vm.ResolveFunction("f"); index != second {
		t.Fatalf("expected %v, got %v", second, index)
	}
	result, err := As[int64](vm.Run([]Instruction{
		Call{VtableIndex: first, Destination: ToReturn},
	}, 0))
	if err != nil || result != 1 {
		t.Fatalf("got %v %v", result, err)
	}
	if len(vm.Functions()) != 2 {
		t.Fatalf("expected 2 functions")
	}
}
