package modes

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/ModProg/budlang/budconfigs"
	"github.com/ModProg/budlang/configs"
	"github.com/ModProg/budlang/logs"
	"github.com/reusee/dscope"
)

// ModuleForTest isolates a scope from the host: no config files are read,
// the store lives in a temporary directory and logs go to the test log.
type ModuleForTest struct {
	dscope.Module
	t *testing.T
}

func ForTest(t *testing.T) ModuleForTest {
	return ModuleForTest{
		t: t,
	}
}

func (m ModuleForTest) Mode() Mode {
	return ModeDevelopment
}

func (m ModuleForTest) PauseSignals() PauseSignals {
	return nil
}

func (m ModuleForTest) ConfigsLoader() configs.Loader {
	return configs.NewLoader(nil, "")
}

func (m ModuleForTest) StorePath() budconfigs.StorePath {
	return budconfigs.StorePath(filepath.Join(m.t.TempDir(), "bud.db"))
}

func (m ModuleForTest) Writer() logs.Writer {
	return testLogWriter{
		t: m.t,
	}
}

type testLogWriter struct {
	t *testing.T
}

func (w testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}
