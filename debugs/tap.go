package debugs

import (
	"context"
	"maps"
	"slices"

	"github.com/ModProg/budlang/logs"
	"github.com/ModProg/budlang/snapshots"
	"go.starlark.net/repl"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Tap opens a Starlark REPL on stdin with globals bound.
type Tap func(ctx context.Context, what string, globals map[string]any)

func (Module) Tap(
	logger logs.Logger,
) Tap {
	return func(ctx context.Context, what string, globals map[string]any) {
		logger.InfoContext(ctx, "tap: "+what,
			"globals", slices.Sorted(maps.Keys(globals)),
		)
		defer func() {
			logger.InfoContext(ctx, "tap end: "+what)
		}()

		thread := &starlark.Thread{
			Name: "repl",
		}
		repl.REPLOptions(&syntax.FileOptions{
			Set:             true,
			While:           true,
			TopLevelControl: true,
		}, thread, Bindings(globals))
	}
}

// Bindings converts globals to Starlark values.
func Bindings(globals map[string]any) starlark.StringDict {
	ret := make(starlark.StringDict, len(globals))
	for name, value := range globals {
		ret[name] = toStarlarkValue(value)
	}
	return ret
}

// SnapshotGlobals exposes a paused execution for inspection.
func SnapshotGlobals(snapshot snapshots.Snapshot) map[string]any {
	functions := make(map[string]any, len(snapshot.Functions))
	for i, fn := range snapshot.Functions {
		functions[fn.Name] = map[string]any{
			"vtable": i,
			"args":   fn.Function.ArgCount,
			"vars":   fn.Function.VariableCount,
			"code":   fn.Function.Code,
		}
	}
	return map[string]any{
		"frames":    snapshot.State.Frames,
		"stack":     snapshot.State.Stack,
		"code":      snapshot.State.Code,
		"functions": functions,
		"budget":    snapshot.Budget,
	}
}
