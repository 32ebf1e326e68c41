package budconfigs

import (
	"cmp"
	"os"
	"path/filepath"

	"github.com/ModProg/budlang/cmds"
	"github.com/ModProg/budlang/configs"
)

// StorePath locates the sqlite database holding paused executions.
type StorePath string

var _ configs.Configurable = StorePath("")

func (StorePath) ConfigPath() string {
	return "store_path"
}

var storeFlag = cmds.Var[string]("-store", "sqlite database for paused executions")

func (Module) StorePath(
	loader configs.Loader,
) StorePath {
	return StorePath(cmp.Or(
		storeFlag.Get(),
		string(configs.Get[StorePath](loader)),
		defaultStorePath(),
	))
}

func defaultStorePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "bud", "continuations.db")
}
