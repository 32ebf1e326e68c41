package budconfigs

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ModProg/budlang/configs"
	"github.com/reusee/dscope"
)

func testLoader(t *testing.T, content string) configs.Loader {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bud.cue")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return configs.NewLoader([]string{path}, schema)
}

func TestFromConfig(t *testing.T) {
	loader := testLoader(t, `
stack: {
	initial: 8
	maximum: 128
}
budget: 1000
store_path: "/tmp/bud.db"
`)
	dscope.New(new(Module)).Fork(
		func() configs.Loader {
			return loader
		},
	).Call(func(
		limits StackLimits,
		budget Budget,
		storePath StorePath,
	) {
		if limits.Initial != 8 || limits.Maximum != 128 {
			t.Fatalf("got %+v", limits)
		}
		if budget != 1000 {
			t.Fatalf("got %v", budget)
		}
		if storePath != "/tmp/bud.db" {
			t.Fatalf("got %v", storePath)
		}
	})
}

func TestFlagPrecedence(t *testing.T) {
	budgetFlag.Set(5)
	stackMaximumFlag.Set(4)
	defer func() {
		budgetFlag.Reset()
		stackMaximumFlag.Reset()
	}()
	loader := testLoader(t, `budget: 1000`)
	module := Module{}
	if b := module.Budget(loader); b != 5 {
		t.Fatalf("got %v", b)
	}
	limits := module.StackLimits(loader)
	if limits.Maximum != 4 || limits.Initial != 4 {
		t.Fatalf("got %+v", limits)
	}
}

func TestUnboundedStack(t *testing.T) {
	module := Module{}

	limits := module.StackLimits(testLoader(t, `stack: maximum: 0`))
	if limits.Maximum != math.MaxInt || limits.Initial != defaultInitialStack {
		t.Fatalf("got %+v", limits)
	}

	stackMaximumFlag.Set(0)
	defer stackMaximumFlag.Reset()
	limits = module.StackLimits(testLoader(t, `stack: maximum: 128`))
	if limits.Maximum != math.MaxInt {
		t.Fatalf("got %+v", limits)
	}
}

func TestExplicitZeroBudget(t *testing.T) {
	budgetFlag.Set(0)
	defer budgetFlag.Reset()
	if b := (Module{}).Budget(testLoader(t, `budget: 1000`)); b != 0 {
		t.Fatalf("got %v", b)
	}
}

func TestDefaults(t *testing.T) {
	loader := testLoader(t, ``)
	module := Module{}
	limits := module.StackLimits(loader)
	if limits.Initial != defaultInitialStack || limits.Maximum != defaultMaximumStack {
		t.Fatalf("got %+v", limits)
	}
	if module.Budget(loader) != 0 {
		t.Fatal("expected unbounded budget")
	}
	if filepath.Base(string(module.StorePath(loader))) != "continuations.db" {
		t.Fatal("bad default store path")
	}
}

func TestInvalidConfig(t *testing.T) {
	loader := testLoader(t, `budget: -1`)
	if _, err := loader.Paths(); err == nil {
		t.Fatal("expected schema violation")
	}
}
