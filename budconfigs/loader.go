package budconfigs

import (
	_ "embed"
	"os"
	"path/filepath"

	"github.com/ModProg/budlang/configs"
	"github.com/ModProg/budlang/logs"
)

//go:embed schema.cue
var schema string

var configFilenames = []string{
	"bud.cue",
	".bud.cue",
	"bud.toml",
	".bud.toml",
}

// SearchPaths lists candidate config files by precedence: working
// directory, user config directory, then /etc.
func SearchPaths() []string {
	var dirs []string
	if dir, err := os.Getwd(); err == nil {
		dirs = append(dirs, dir)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, dir)
	}
	dirs = append(dirs, "/etc")

	var ret []string
	for _, dir := range dirs {
		for _, filename := range configFilenames {
			ret = append(ret, filepath.Join(dir, filename))
		}
	}
	return ret
}

func (Module) ConfigsLoader(
	logger logs.Logger,
) configs.Loader {
	loader := configs.NewLoader(SearchPaths(), schema)
	if paths, err := loader.Paths(); err != nil {
		logger.Warn("load config files", "error", err)
	} else if len(paths) > 0 {
		logger.Debug("config files", "paths", paths)
	}
	return loader
}
