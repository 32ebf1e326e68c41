package asm

import (
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/ModProg/budlang/budvm"
	"github.com/ModProg/budlang/symbols"
)

func TestLoadSum(t *testing.T) {
	src, err := os.ReadFile("testdata/sum.star")
	if err != nil {
		t.Fatal(err)
	}
	program, err := Load("sum.star", src)
	if err != nil {
		t.Fatal(err)
	}
	if len(program.Functions) != 1 {
		t.Fatalf("expected 1 function, got %v", len(program.Functions))
	}
	_, value, err := program.Run()
	if err != nil {
		t.Fatal(err)
	}
	if i, ok := value.Int(); !ok || i != 5050 {
		t.Fatalf("expected 5050, got %v", value)
	}
}

func TestLinkByName(t *testing.T) {
	program, err := Load("link.star", `
main(code = [
    push(2),
    call("double", 1, dest = to_return()),
])

function("double", args = 1, vars = 0, code = [
    mul(arg(0), 2, dest = to_return()),
])
`)
	if err != nil {
		t.Fatal(err)
	}
	call, ok := program.Main[1].(budvm.Call)
	if !ok {
		t.Fatalf("expected call, got %T", program.Main[1])
	}
	if call.VtableIndex != 0 {
		t.Fatalf("expected vtable 0, got %v", call.VtableIndex)
	}
	_, value, err := program.Run()
	if err != nil {
		t.Fatal(err)
	}
	if i, _ := value.Int(); i != 4 {
		t.Fatalf("expected 4, got %v", value)
	}
}

func TestInstructionShapes(t *testing.T) {
	program, err := Load("shapes.star", `
main(vars = 2, code = [
    compare("<=", var(0), arg(1), dest = to_var(1)),
    compare("!=", var(0), 1.5, jump_if_false = 4),
    branch_unless(var(1), 0),
    jump(0),
    push(True),
    pop(),
    ret(None),
    call_method("len", 2, target = var(0)),
    call_method("len"),
    div(var(0), var(1)),
    ret(),
])
`)
	if err != nil {
		t.Fatal(err)
	}
	target := budvm.Var(0)
	expected := []budvm.Instruction{
		budvm.Compare{
			Comparison: budvm.LessThanOrEqual,
			Left:       budvm.Var(0),
			Right:      budvm.Arg(1),
			Action:     budvm.StoreIn(budvm.ToVariable(1)),
		},
		budvm.Compare{
			Comparison: budvm.NotEqual,
			Left:       budvm.Var(0),
			Right:      budvm.Real(1.5),
			Action:     budvm.JumpIfFalse(4),
		},
		budvm.If{Condition: budvm.Var(1), FalseJumpTo: 0},
		budvm.JumpTo{Target: 0},
		budvm.Push{Value: budvm.Bool(true)},
		budvm.PopAndDrop{},
		budvm.Return{Value: budvm.Void},
		budvm.CallInstance{
			Target:      &target,
			Name:        symbols.Intern("len"),
			ArgCount:    2,
			Destination: budvm.ToStack,
		},
		budvm.CallInstance{
			Name:        symbols.Intern("len"),
			Destination: budvm.ToStack,
		},
		budvm.Divide{Left: budvm.Var(0), Right: budvm.Var(1), Destination: budvm.ToStack},
		budvm.Return{},
	}
	if len(program.Main) != len(expected) {
		t.Fatalf("expected %v instructions, got %v", len(expected), len(program.Main))
	}
	for i, inst := range program.Main {
		if !reflect.DeepEqual(inst, expected[i]) {
			t.Fatalf("instruction %d: expected %#v, got %#v", i, expected[i], inst)
		}
	}
}

func TestVtableBuiltin(t *testing.T) {
	program, err := Load("vtable.star", `
function("a", 0, 0, [ret(1)])
function("b", 0, 0, [ret(2)])
main(code = [call(vtable("b"), dest = to_return())])
if vtable("missing") != -1:
    fail("expected -1")
`)
	if err != nil {
		t.Fatal(err)
	}
	_, value, err := program.Run()
	if err != nil {
		t.Fatal(err)
	}
	if i, _ := value.Int(); i != 2 {
		t.Fatalf("expected 2, got %v", value)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{`function("f", 0, 0, [])`, "no main"},
		{`main([call("nope")])`, "undefined function"},
		{`main([add(1, 2)])`, "expected arg() or var()"},
		{`main([compare("<>", var(0), 1)])`, "unknown operator"},
		{`main([push("text")])`, "cannot use string"},
		{`main([1])`, "expected instruction"},
		{`main([])
main([])`, "already defined"},
		{`function("f", 0, 0, [])
function("f", 0, 0, [])
main([])`, "already defined"},
		{`main([compare("==", var(0), 1, dest = to_stack(), jump_if_false = 1)])`, "exclusive"},
	}
	for _, c := range cases {
		_, err := Load("bad.star", c.src)
		if err == nil {
			t.Fatalf("expected error for %q", c.src)
		}
		if !strings.Contains(err.Error(), c.want) {
			t.Fatalf("expected %q in error, got %v", c.want, err)
		}
	}
}

func TestNoMain(t *testing.T) {
	_, err := Load("empty.star", ``)
	if !errors.Is(err, ErrNoMain) {
		t.Fatalf("expected ErrNoMain, got %v", err)
	}
}
