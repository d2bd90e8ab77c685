package stages

import "fmt"

// Table is the ordered, read-only list of stage definitions.
type Table struct {
	defs   []Definition
	byName map[string]int
}

// NewTable validates defs and fills in defaults.
func NewTable(defs ...Definition) (*Table, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("stage table is empty")
	}
	t := &Table{
		defs:   make([]Definition, 0, len(defs)),
		byName: make(map[string]int, len(defs)),
	}
	for i, d := range defs {
		d = d.withDefaults()
		if err := d.validate(); err != nil {
			return nil, fmt.Errorf("stage %d (%q): %w", i+1, d.Name, err)
		}
		if _, dup := t.byName[d.Name]; dup {
			return nil, fmt.Errorf("stage %d: duplicate name %q", i+1, d.Name)
		}
		t.defs = append(t.defs, d)
		t.byName[d.Name] = i + 1
	}
	return t, nil
}

// MustTable is like NewTable but panics on error.
func MustTable(defs ...Definition) *Table {
	t, err := NewTable(defs...)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of stages.
func (t *Table) Len() int { return len(t.defs) }

// Get returns stage i (1-based).
func (t *Table) Get(i int) (Definition, bool) {
	if i < 1 || i > len(t.defs) {
		return Definition{}, false
	}
	return t.defs[i-1], true
}

// Lookup returns the position and definition of the stage called name.
func (t *Table) Lookup(name string) (int, Definition, bool) {
	i, ok := t.byName[name]
	if !ok {
		return 0, Definition{}, false
	}
	return i, t.defs[i-1], true
}

// All returns a copy of every definition in order.
func (t *Table) All() []Definition {
	return append([]Definition(nil), t.defs...)
}
