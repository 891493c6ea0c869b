package manifest

import (
	"sort"

	"github.com/hupe1980/spdata/model"
)

// Manifest is a read-only, de-duplicated view of a manifest file.
type Manifest struct {
	entries map[string]model.DatasetEntry
	names   []string

	// Duplicates counts rows that replaced an earlier row with the same name.
	Duplicates int
}

// New builds a Manifest from entries in file order. A repeated name keeps the
// last entry.
func New(entries []model.DatasetEntry) *Manifest {
	m := &Manifest{entries: make(map[string]model.DatasetEntry, len(entries))}
	for _, e := range entries {
		m.put(e)
	}
	m.seal()
	return m
}

func (m *Manifest) put(e model.DatasetEntry) bool {
	_, dup := m.entries[e.Name]
	if dup {
		m.Duplicates++
	}
	m.entries[e.Name] = e
	return dup
}

func (m *Manifest) seal() {
	m.names = make([]string, 0, len(m.entries))
	for name := range m.entries {
		m.names = append(m.names, name)
	}
	sort.Strings(m.names)
}

// Len returns the number of distinct entries.
func (m *Manifest) Len() int {
	return len(m.names)
}

// Names returns entry names in lexicographic order.
func (m *Manifest) Names() []string {
	return append([]string(nil), m.names...)
}

// Get returns the entry with the given name.
func (m *Manifest) Get(name string) (model.DatasetEntry, bool) {
	e, ok := m.entries[name]
	return e, ok
}

// At returns the i-th entry in lexicographic order.
// It panics if i is out of range.
func (m *Manifest) At(i int) model.DatasetEntry {
	return m.entries[m.names[i]]
}

// Entries returns all entries in lexicographic order.
func (m *Manifest) Entries() []model.DatasetEntry {
	out := make([]model.DatasetEntry, len(m.names))
	for i, name := range m.names {
		out[i] = m.entries[name]
	}
	return out
}
