package flow

import (
	"fmt"
	"sort"
)

// Flow is the CFG of one function: an arena of BasicBlocks keyed by
// entry address, the edge multimaps (kept as mutual transposes at all
// times), the post-entry/pre-exit markers, and call-site metadata.
//
// Grounded on Flow.hpp/Flow.cpp from the original implementation, with
// the "pointer-graph -> arena+index" rewrite SPEC_FULL.md §9 describes:
// blocks live in an arena slice and are addressed by entry address in
// all maps, eliminating the iterator-invalidation hazard the original
// split_block overloads had.
type Flow struct {
	name string

	arena   []*BasicBlock
	blocks  map[uint64]*BasicBlock
	nextID  int

	outEdges map[uint64][]uint64
	inEdges  map[uint64][]uint64

	hasPostEntry bool
	postEntry    uint64

	preExits map[uint64]bool

	callSites   []uint64
	callTargets map[uint64][]uint64
}

// New creates an empty Flow for the named function.
func New(name string) *Flow {
	return &Flow{
		name:        name,
		blocks:      make(map[uint64]*BasicBlock),
		outEdges:    make(map[uint64][]uint64),
		inEdges:     make(map[uint64][]uint64),
		preExits:    make(map[uint64]bool),
		callTargets: make(map[uint64][]uint64),
	}
}

// Name returns the flow's function name.
func (f *Flow) Name() string { return f.name }

// AddContiguousBlock creates a single-range block iff no block already
// has entry_addr == low. Returns false (fails closed) otherwise.
func (f *Flow) AddContiguousBlock(low, high uint64, typ BlockType) bool {
	if _, exists := f.blocks[low]; exists {
		return false
	}
	b := &BasicBlock{
		ID:     f.nextID,
		Type:   typ,
		Ranges: []AddrRange{{Low: low, High: high}},
	}
	f.nextID++
	f.arena = append(f.arena, b)
	f.blocks[low] = b
	return true
}

// InsertRanges appends address ranges to an existing block in the order
// given, after its existing ranges, so the block's first range (and
// with it EntryAddr, the block's key) is unchanged.
func (f *Flow) InsertRanges(entryAddr uint64, ranges []AddrRange) bool {
	b, ok := f.blocks[entryAddr]
	if !ok {
		return false
	}
	for _, r := range ranges {
		b.addRange(r)
	}
	return true
}

// Block returns the block with the given entry address.
func (f *Flow) Block(entryAddr uint64) (*BasicBlock, bool) {
	b, ok := f.blocks[entryAddr]
	return b, ok
}

// Blocks returns every block entry address in ascending order.
func (f *Flow) Blocks() []uint64 {
	addrs := make([]uint64, 0, len(f.blocks))
	for a := range f.blocks {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// BlockCount reports how many blocks the flow currently has.
func (f *Flow) BlockCount() int { return len(f.blocks) }

// RemoveBlock removes the block, its incoming/outgoing edges, and its
// pre-exit mark (if any). If updateEntry is true and the block being
// removed is the current post-entry, post_entry is re-pointed to the
// block's unique successor — the precondition (exactly one outgoing
// edge) is an invariant violation if unmet, matching spec.md §4.2.
func (f *Flow) RemoveBlock(entryAddr uint64, updateEntry bool) bool {
	_, ok := f.blocks[entryAddr]
	if !ok {
		return false
	}

	if updateEntry && f.hasPostEntry && f.postEntry == entryAddr {
		outs := f.outEdges[entryAddr]
		if len(outs) != 1 {
			panic(fmt.Sprintf("flow: RemoveBlock(%#x, updateEntry=true) requires exactly one outgoing edge from the post-entry block, found %d", entryAddr, len(outs)))
		}
		f.postEntry = outs[0]
	}

	for _, dst := range append([]uint64(nil), f.outEdges[entryAddr]...) {
		f.RemoveEdge(entryAddr, dst)
	}
	for _, src := range append([]uint64(nil), f.inEdges[entryAddr]...) {
		f.RemoveEdge(src, entryAddr)
	}
	delete(f.preExits, entryAddr)
	delete(f.blocks, entryAddr)
	return true
}

// rekey moves a block from oldEntry to its current EntryAddr() in the
// block map, and fixes up every edge and marker referencing the old
// key. Used unconditionally after trimming inside SplitBlock, per
// SPEC_FULL.md §9's "make re-keying unconditional" resolution of the
// original code's two divergent split_block overloads.
func (f *Flow) rekey(oldEntry uint64) {
	b := f.blocks[oldEntry]
	newEntry := b.EntryAddr()
	if newEntry == oldEntry {
		return
	}
	delete(f.blocks, oldEntry)
	f.blocks[newEntry] = b

	if out, ok := f.outEdges[oldEntry]; ok {
		f.outEdges[newEntry] = out
		delete(f.outEdges, oldEntry)
		for _, dst := range out {
			f.replaceInEdge(dst, oldEntry, newEntry)
		}
	}
	if in, ok := f.inEdges[oldEntry]; ok {
		f.inEdges[newEntry] = in
		delete(f.inEdges, oldEntry)
		for _, src := range in {
			f.replaceOutEdge(src, oldEntry, newEntry)
		}
	}
	if f.hasPostEntry && f.postEntry == oldEntry {
		f.postEntry = newEntry
	}
	if f.preExits[oldEntry] {
		delete(f.preExits, oldEntry)
		f.preExits[newEntry] = true
	}
}

func (f *Flow) replaceInEdge(at, old, new uint64) {
	for i, v := range f.inEdges[at] {
		if v == old {
			f.inEdges[at][i] = new
		}
	}
}

func (f *Flow) replaceOutEdge(at, old, new uint64) {
	for i, v := range f.outEdges[at] {
		if v == old {
			f.outEdges[at][i] = new
		}
	}
}

// SplitLocation denotes a split boundary: the instruction ending at
// InsnAddr remains in the original block; everything from
// InsnAddr+InsnSize onward moves to the new block. RangeHint is the
// fast-path index into the original block's Ranges, as produced by the
// generator while iterating ranges in reverse.
type SplitLocation struct {
	InsnAddr  uint64
	InsnSize  int
	RangeHint int
}

// SplitBlock implements the contract of spec.md §4.2: rejects if a
// block already starts at InsnAddr+InsnSize, or if InsnAddr is the last
// address of the block's last range (nothing to split); otherwise trims
// the trailing ranges into a new block, moves the pre-exit mark if
// necessary, and rewires every outgoing edge of the original block onto
// the new block plus a single edge original -> new.
func (f *Flow) SplitBlock(entryAddr uint64, loc SplitLocation) (ok bool, newEntryAddr uint64) {
	b, exists := f.blocks[entryAddr]
	if !exists {
		return false, 0
	}

	newStart := loc.InsnAddr + uint64(loc.InsnSize)
	if _, taken := f.blocks[newStart]; taken {
		return false, 0
	}
	last := b.LastRange()
	if loc.InsnAddr == last.High {
		return false, 0
	}

	trimmed := b.trim(newStart, loc.InsnSize, loc.RangeHint)
	if trimmed == nil {
		return false, 0
	}
	// trim operates in terms of the address that STARTS the trimmed
	// portion (newStart); the block's own EntryAddr never changes here
	// since we always split off the tail, but rekey is still called to
	// keep the invariant "callers never have to reason about whether a
	// trim changed the key" uniform with the generator's other trim use.
	f.rekey(entryAddr)
	currentEntry := b.EntryAddr()

	f.nextID++
	newBlock := &BasicBlock{
		ID:     f.nextID - 1,
		Type:   Normal,
		Ranges: trimmed,
	}
	f.arena = append(f.arena, newBlock)
	f.blocks[newStart] = newBlock

	if f.preExits[currentEntry] {
		delete(f.preExits, currentEntry)
		f.preExits[newStart] = true
	}

	for _, dst := range append([]uint64(nil), f.outEdges[currentEntry]...) {
		f.RemoveEdge(currentEntry, dst)
		f.AddEdge(newStart, dst)
	}
	f.AddEdge(currentEntry, newStart)

	return true, newStart
}

// AddEdge adds src->dst to both maps if not already present.
func (f *Flow) AddEdge(src, dst uint64) {
	for _, v := range f.outEdges[src] {
		if v == dst {
			return
		}
	}
	f.outEdges[src] = append(f.outEdges[src], dst)
	f.inEdges[dst] = append(f.inEdges[dst], src)
}

// RemoveEdge removes src->dst from both maps if present.
func (f *Flow) RemoveEdge(src, dst uint64) {
	f.outEdges[src] = removeValue(f.outEdges[src], dst)
	f.inEdges[dst] = removeValue(f.inEdges[dst], src)
}

func removeValue(s []uint64, v uint64) []uint64 {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// OutEdges returns the successors of addr in insertion order.
func (f *Flow) OutEdges(addr uint64) []uint64 { return append([]uint64(nil), f.outEdges[addr]...) }

// InEdges returns the predecessors of addr in insertion order.
func (f *Flow) InEdges(addr uint64) []uint64 { return append([]uint64(nil), f.inEdges[addr]...) }

// MarkPostEntry sets the unique successor of the conceptual ENTRY node.
func (f *Flow) MarkPostEntry(addr uint64) {
	f.hasPostEntry = true
	f.postEntry = addr
}

// PostEntry returns the post-entry address, if one has been set.
func (f *Flow) PostEntry() (uint64, bool) { return f.postEntry, f.hasPostEntry }

// MarkPreExit marks addr's block as ending the function.
func (f *Flow) MarkPreExit(addr uint64) { f.preExits[addr] = true }

// UnmarkPreExit clears a pre-exit mark.
func (f *Flow) UnmarkPreExit(addr uint64) { delete(f.preExits, addr) }

// IsPreExit reports whether addr is currently marked pre-exit.
func (f *Flow) IsPreExit(addr uint64) bool { return f.preExits[addr] }

// PreExits returns every pre-exit address in ascending order.
func (f *Flow) PreExits() []uint64 {
	addrs := make([]uint64, 0, len(f.preExits))
	for a := range f.preExits {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// MarkCallSite records a call instruction address and its (possibly
// empty, if unresolved) target list.
func (f *Flow) MarkCallSite(addr uint64, targets []uint64) {
	if _, exists := f.callTargets[addr]; !exists {
		f.callSites = append(f.callSites, addr)
	}
	f.callTargets[addr] = targets
}

// CallSites returns every recorded call-site address in ascending order.
func (f *Flow) CallSites() []uint64 {
	addrs := append([]uint64(nil), f.callSites...)
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// CallTargets returns the resolved target addresses for a call site.
func (f *Flow) CallTargets(addr uint64) []uint64 {
	return append([]uint64(nil), f.callTargets[addr]...)
}

// HasCalls reports whether any recorded call-site address falls within
// any of the block's address ranges.
func (f *Flow) HasCalls(entryAddr uint64) bool {
	b, ok := f.blocks[entryAddr]
	if !ok {
		return false
	}
	for _, site := range f.callSites {
		for _, r := range b.Ranges {
			if site >= r.Low && site <= r.High {
				return true
			}
		}
	}
	return false
}
