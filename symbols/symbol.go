package symbols

import "sync"

// Symbol is an interned identifier. Two symbols are equal if and only if
// they were interned from the same name.
type Symbol int32

type Table struct {
	mu     sync.RWMutex
	byName map[string]Symbol
	names  []string
}

func NewTable() *Table {
	return &Table{
		byName: map[string]Symbol{
			"": 0,
		},
		names: []string{""},
	}
}

func (t *Table) Intern(name string) Symbol {
	t.mu.RLock()
	sym, ok := t.byName[name]
	t.mu.RUnlock()
	if ok {
		return sym
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if sym, ok := t.byName[name]; ok {
		return sym
	}
	sym = Symbol(len(t.names))
	t.names = append(t.names, name)
	t.byName[name] = sym
	return sym
}

func (t *Table) Lookup(name string) (Symbol, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	sym, ok := t.byName[name]
	return sym, ok
}

func (t *Table) Name(sym Symbol) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if sym < 0 || int(sym) >= len(t.names) {
		return ""
	}
	return t.names[sym]
}

// symbols are tracked process-wide
var global = NewTable()

func Intern(name string) Symbol {
	return global.Intern(name)
}

func Lookup(name string) (Symbol, bool) {
	return global.Lookup(name)
}

func (s Symbol) String() string {
	return global.Name(s)
}
