package debugs

import (
	"testing"

	"github.com/ModProg/budlang/budvm"
	"github.com/ModProg/budlang/snapshots"
	"github.com/reusee/dscope"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

func TestTap(t *testing.T) {
	dscope.New(
		new(Module),
	).Call(func(
		tap Tap,
	) {
		tap(t.Context(), "test", map[string]any{
			"foo": 42,
		})
	})
}

func TestSnapshotGlobals(t *testing.T) {
	snapshot := snapshots.Snapshot{
		Functions: []budvm.NamedFunction{
			{
				Name: "double",
				Function: &budvm.Function{
					ArgCount: 1,
					Code: []budvm.Instruction{
						budvm.Multiply{Left: budvm.Arg(0), Right: budvm.Int(2), Destination: budvm.ToReturn},
					},
				},
			},
		},
		State: budvm.ContinuationState{
			Code: []budvm.Instruction{
				budvm.Push{Value: budvm.Int(21)},
			},
			Frames: []budvm.FrameState{
				{
					VtableIndex:    budvm.NoVtable,
					OperationIndex: 1,
					Destination:    budvm.ToReturn,
				},
			},
			Stack: []budvm.Value{budvm.Int(21), budvm.Bool(true), budvm.Void},
		},
		Budget: 3,
	}

	thread := &starlark.Thread{Name: "test"}
	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{
		TopLevelControl: true,
	}, thread, "check.star", `
if budget != 3:
    fail("budget", budget)
if stack != [21, True, None]:
    fail("stack", stack)
if len(frames) != 1 or frames[0]["OperationIndex"] != 1 or frames[0]["VtableIndex"] != -1:
    fail("frames", frames)
double = functions["double"]
if double["args"] != 1 or double["vtable"] != 0 or len(double["code"]) != 1:
    fail("functions", functions)
first = code[0]
`, Bindings(SnapshotGlobals(snapshot)))
	if err != nil {
		t.Fatal(err)
	}
	first, ok := globals["first"].(starlark.String)
	if !ok {
		t.Fatalf("expected string, got %v", globals["first"])
	}
	if first.GoString() != "Push{Value:21}" {
		t.Fatalf("expected Push{Value:21}, got %v", first.GoString())
	}
}
