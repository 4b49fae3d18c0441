// Package generator implements the flow generator (FG): function
// discovery, worklist-based raw block construction, and the three
// refinement passes (overlap fix-up, jump-block merge, call-site
// normalization) described in spec.md §4.3.
package generator

import (
	"sort"

	"bincfg/internal/instr"
)

// InsnMap is an address-ordered view of one disassembled section.
type InsnMap struct {
	keys  []uint64
	byKey map[uint64]instr.Disasm
}

// NewInsnMap builds an InsnMap from an unordered slice of Disasm
// records, sorting by address.
func NewInsnMap(records []instr.Disasm) *InsnMap {
	m := &InsnMap{byKey: make(map[uint64]instr.Disasm, len(records))}
	for _, r := range records {
		if _, exists := m.byKey[r.Addr]; !exists {
			m.keys = append(m.keys, r.Addr)
		}
		m.byKey[r.Addr] = r
	}
	sort.Slice(m.keys, func(i, j int) bool { return m.keys[i] < m.keys[j] })
	return m
}

// Get returns the instruction at addr, if present.
func (m *InsnMap) Get(addr uint64) (instr.Disasm, bool) {
	d, ok := m.byKey[addr]
	return d, ok
}

// Next returns the address of the instruction immediately following
// addr in the section, and whether one exists. InsnMap guarantees (by
// construction of the disassembly reader) that for any address in the
// map there is a next higher key unless addr is the section's last
// instruction.
func (m *InsnMap) Next(addr uint64) (uint64, bool) {
	i := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] > addr })
	if i >= len(m.keys) {
		return 0, false
	}
	return m.keys[i], true
}

// Prev returns the address of the instruction immediately preceding
// addr in the section (the greatest key strictly less than addr).
func (m *InsnMap) Prev(addr uint64) (uint64, bool) {
	i := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] >= addr })
	if i == 0 {
		return 0, false
	}
	return m.keys[i-1], true
}

// Keys returns every instruction address in ascending order.
func (m *InsnMap) Keys() []uint64 { return append([]uint64(nil), m.keys...) }

// Len reports how many instructions the map holds.
func (m *InsnMap) Len() int { return len(m.keys) }

// SymbMap is an address-ordered symbol table partitioning a section
// into named regions.
type SymbMap struct {
	keys  []uint64
	names map[uint64]string
}

// NewSymbMap builds a SymbMap from an address->name mapping.
func NewSymbMap(symbols map[uint64]string) *SymbMap {
	m := &SymbMap{names: make(map[uint64]string, len(symbols))}
	for addr, name := range symbols {
		m.keys = append(m.keys, addr)
		m.names[addr] = name
	}
	sort.Slice(m.keys, func(i, j int) bool { return m.keys[i] < m.keys[j] })
	return m
}

// Lookup returns the exact symbol name at addr, if one exists.
func (m *SymbMap) Lookup(addr uint64) (string, bool) {
	name, ok := m.names[addr]
	return name, ok
}

// Context returns the symbol whose key is the greatest key <= addr —
// the enclosing function/region for a non-symbol address.
func (m *SymbMap) Context(addr uint64) (name string, base uint64, ok bool) {
	i := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] > addr })
	if i == 0 {
		return "", 0, false
	}
	base = m.keys[i-1]
	return m.names[base], base, true
}

// Has reports whether addr is an exact symbol key.
func (m *SymbMap) Has(addr uint64) bool {
	_, ok := m.names[addr]
	return ok
}

// Keys returns every symbol address in ascending order.
func (m *SymbMap) Keys() []uint64 { return append([]uint64(nil), m.keys...) }
