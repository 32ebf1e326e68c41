package sessions

import (
	"github.com/ModProg/budlang/budconfigs"
	"github.com/ModProg/budlang/logs"
	"github.com/ModProg/budlang/modes"
	"github.com/reusee/dscope"
)

type Module struct {
	dscope.Module
	Configs budconfigs.Module
}

func (Module) Session(
	logger logs.Logger,
	limits budconfigs.StackLimits,
	budget budconfigs.Budget,
	storePath budconfigs.StorePath,
	newSpan logs.NewSpan,
	mode modes.Mode,
) *Session {
	logger.Debug("session",
		"mode", mode,
		"store", storePath,
		"budget", budget,
	)
	return New(logger, limits, budget, storePath, newSpan)
}
