package budconfigs

import (
	"cmp"
	"math"

	"github.com/ModProg/budlang/cmds"
	"github.com/ModProg/budlang/configs"
)

// StackLimits bounds the value stack of virtual machines. A maximum given
// explicitly as zero, on the command line or in a config file, lifts the
// bound.
type StackLimits struct {
	Initial int `json:"initial"`
	Maximum int `json:"maximum"`
}

var _ configs.Configurable = StackLimits{}

func (StackLimits) ConfigPath() string {
	return "stack"
}

var (
	stackInitialFlag = cmds.Var[int]("-stack-initial", "initial value stack capacity")
	stackMaximumFlag = cmds.Var[int]("-stack-max", "maximum value stack size, 0 for unbounded")
)

const (
	defaultInitialStack = 64
	defaultMaximumStack = 1 << 20
)

func (Module) StackLimits(
	loader configs.Loader,
) StackLimits {
	config := configs.Get[StackLimits](loader)
	ret := StackLimits{
		Initial: cmp.Or(stackInitialFlag.Get(), config.Initial, defaultInitialStack),
		Maximum: stackMaximum(loader),
	}
	ret.Initial = min(ret.Initial, ret.Maximum)
	return ret
}

func stackMaximum(loader configs.Loader) int {
	if stackMaximumFlag.IsSet() {
		return unboundedIfZero(stackMaximumFlag.Get())
	}
	if p := configs.First[*int](loader, "stack.maximum"); p != nil {
		return unboundedIfZero(*p)
	}
	return defaultMaximumStack
}

func unboundedIfZero(n int) int {
	if n <= 0 {
		return math.MaxInt
	}
	return n
}
