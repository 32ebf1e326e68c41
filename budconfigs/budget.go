package budconfigs

import (
	"github.com/ModProg/budlang/cmds"
	"github.com/ModProg/budlang/configs"
)

// Budget is the number of instructions a run may execute before it is
// paused and persisted. Zero means unbounded.
type Budget int

var _ configs.Configurable = Budget(0)

func (Budget) ConfigPath() string {
	return "budget"
}

var budgetFlag = cmds.Var[int]("-budget", "instructions per run before pausing, 0 for unbounded")

func (Module) Budget(
	loader configs.Loader,
) Budget {
	if budgetFlag.IsSet() {
		return Budget(budgetFlag.Get())
	}
	return configs.Get[Budget](loader)
}
