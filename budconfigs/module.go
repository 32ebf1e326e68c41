package budconfigs

import (
	"github.com/ModProg/budlang/logs"
	"github.com/reusee/dscope"
)

type Module struct {
	dscope.Module
	Logs logs.Module
}
