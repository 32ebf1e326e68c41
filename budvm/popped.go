package budvm

import "iter"

// PoppedValues yields values removed from a stack by PopN, bottom to top.
type PoppedValues struct {
	stack   *Stack
	current int
	end     int
}

func (p *PoppedValues) Len() int {
	return p.end - p.current
}

func (p *PoppedValues) Next() (Value, bool) {
	if p.current >= p.end {
		return Void, false
	}
	slot := p.stack.slot(p.current)
	value := *slot
	*slot = Void
	p.current++
	return value, true
}

func (p *PoppedValues) All() iter.Seq[Value] {
	return func(yield func(Value) bool) {
		for {
			value, ok := p.Next()
			if !ok {
				return
			}
			if !yield(value) {
				return
			}
		}
	}
}

func (p *PoppedValues) Collect() []Value {
	ret := make([]Value, 0, p.Len())
	for value := range p.All() {
		ret = append(ret, value)
	}
	return ret
}

// Close releases any values not yet consumed.
func (p *PoppedValues) Close() {
	for p.current < p.end {
		p.stack.slot(p.current).Release()
		p.current++
	}
}
