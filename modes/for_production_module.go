package modes

import (
	"os"
	"syscall"

	"github.com/reusee/dscope"
)

// ModuleForProduction runs against the host: config files and the store
// are read from their configured locations.
type ModuleForProduction struct {
	dscope.Module
}

func ForProduction() ModuleForProduction {
	return ModuleForProduction{}
}

func (ModuleForProduction) Mode() Mode {
	return ModeProduction
}

// PauseSignals pause a running program so it is stored instead of lost.
type PauseSignals []os.Signal

func (ModuleForProduction) PauseSignals() PauseSignals {
	return PauseSignals{os.Interrupt, syscall.SIGTERM}
}
