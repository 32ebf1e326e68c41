package configs

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"
)

var ErrValueNotFound = errors.New("config value not found")

// Loader reads CUE files lazily. Earlier files take precedence.
type Loader struct {
	roots func() ([]root, error)
}

type root struct {
	value cue.Value
	path  string
}

// NewLoader validates every file against schema, a set of CUE field
// declarations closed over the file's top level. Files ending in .toml are
// read as TOML. Missing files are skipped.
func NewLoader(filePaths []string, schemaSrc string) Loader {
	return Loader{
		roots: sync.OnceValues(func() ([]root, error) {
			ctx := cuecontext.New()

			var schema cue.Value
			if schemaSrc != "" {
				schema = ctx.CompileString("close({" + schemaSrc + "})")
				if err := schema.Err(); err != nil {
					return nil, fmt.Errorf("config schema: %w", err)
				}
			}

			var ret []root
			for _, filePath := range filePaths {
				content, err := os.ReadFile(filePath)
				if errors.Is(err, os.ErrNotExist) {
					continue
				} else if err != nil {
					return nil, err
				}
				value, err := compile(ctx, filePath, content)
				if err != nil {
					return nil, err
				}
				if schema.Exists() {
					if err := schema.Unify(value).Validate(); err != nil {
						return nil, fmt.Errorf("%s: %w", filePath, err)
					}
				}
				ret = append(ret, root{
					value: value,
					path:  filePath,
				})
			}
			return ret, nil
		}),
	}
}

// compile parses CUE, or TOML for files with a .toml extension.
func compile(ctx *cue.Context, filePath string, content []byte) (cue.Value, error) {
	if filepath.Ext(filePath) == ".toml" {
		var m map[string]any
		if err := toml.Unmarshal(content, &m); err != nil {
			return cue.Value{}, fmt.Errorf("%s: %w", filePath, err)
		}
		value := ctx.Encode(m)
		return value, value.Err()
	}
	value := ctx.CompileBytes(content, cue.Filename(filePath))
	return value, value.Err()
}

// Paths returns the files that were loaded.
func (l Loader) Paths() ([]string, error) {
	roots, err := l.roots()
	if err != nil {
		return nil, err
	}
	ret := make([]string, 0, len(roots))
	for _, r := range roots {
		ret = append(ret, r.path)
	}
	return ret, nil
}

func (l Loader) Values(path string) iter.Seq2[cue.Value, error] {
	return func(yield func(cue.Value, error) bool) {
		roots, err := l.roots()
		if err != nil {
			yield(cue.Value{}, err)
			return
		}
		cuePath := cue.ParsePath(path)
		for _, r := range roots {
			value := r.value.LookupPath(cuePath)
			if !value.Exists() || value.Err() != nil {
				continue
			}
			if !yield(value, nil) {
				return
			}
		}
	}
}

// AssignFirst decodes the first file defining path into target.
func (l Loader) AssignFirst(path string, target any) error {
	for value, err := range l.Values(path) {
		if err != nil {
			return err
		}
		return value.Decode(target)
	}
	return fmt.Errorf("%w: %s", ErrValueNotFound, path)
}
