package generator

import (
	"fmt"

	"bincfg/internal/flow"
	"bincfg/internal/instr"
)

// CreateFuncFlow runs Phase B (raw worklist construction) followed by
// Phases C, D, E (overlap fix-up, jump-block merge, call-site
// normalization) for a single discovered function, in that exact order
// (spec.md §4.3).
func (g *Generator) CreateFuncFlow(insns *InsnMap, symbols *SymbMap, fn FunctionEntry) (*flow.Flow, error) {
	f := flow.New(fn.Name)
	f.MarkPostEntry(fn.EntryAddr)

	refCount := make(map[uint64]int)
	queue := []uint64{fn.EntryAddr}

	for len(queue) > 0 {
		start := queue[0]
		queue = queue[1:]

		if refCount[start] > 0 {
			refCount[start]++
			continue
		}
		refCount[start] = 1

		next, err := g.walkBlock(insns, f, start, &queue)
		if err != nil {
			return nil, err
		}
		_ = next
	}

	g.fixOverlaps(insns, f)
	g.mergeJumpBlocks(insns, f)
	if err := g.manageFuncCallBlocks(insns, f); err != nil {
		return nil, err
	}
	g.symbolize(symbols, f)

	return f, nil
}

// classifyOrNop classifies d; in ignore-errors mode any error (beyond
// the unknown-mnemonic case Classify itself already downgrades) is
// logged and treated as a non-control-flow NOP rather than aborting the
// walk.
func (g *Generator) classifyOrNop(d instr.Disasm) (instr.Instruction, error) {
	inst, err := g.Classifier.Classify(d, g.IgnoreErrors)
	if err == nil {
		return inst, nil
	}
	if !g.IgnoreErrors {
		return instr.Instruction{}, err
	}
	g.Log.Warnf("classify: treating 0x%x as NOP after error: %v", d.Addr, err)
	return instr.Instruction{Arch: inst.Arch, Mnemonic: "NOP", Raw: d.Raw, SizeBytes: inst.SizeBytes, WordSize: g.Classifier.WordSize()}, nil
}

// pushCandidate enqueues a new worklist item and records the
// control-flow edge from the block currently being walked, mirroring
// the original updateWorklist's pushNewCandidate lambda.
func pushCandidate(queue *[]uint64, f *flow.Flow, src, target uint64) {
	*queue = append(*queue, target)
	f.AddEdge(src, target)
}

// walkBlock walks instructions from start until a skip/branch/jump/
// return predicate finalizes the block, enqueueing successor addresses
// and recording edges and call sites as it goes. Calls do not finalize
// the block — they fall through to the next instruction, per spec.md
// §4.3 Phase B.
func (g *Generator) walkBlock(insns *InsnMap, f *flow.Flow, start uint64, queue *[]uint64) (uint64, error) {
	addr := start
	var last uint64

	for {
		d, ok := insns.Get(addr)
		if !ok {
			// Section ended mid-block: treat as a dead end rather than
			// aborting the whole run, matching spec.md §7's policy of
			// preferring partial graphs to hard failure.
			f.AddContiguousBlock(start, last, flow.Normal)
			g.Log.Warnf("walkBlock: instruction stream ended unexpectedly after 0x%x", last)
			return last, nil
		}
		last = addr

		inst, err := g.classifyOrNop(d)
		if err != nil {
			return 0, err
		}

		switch {
		case inst.IsSkip:
			fallAddr := addr + uint64(inst.SizeBytes)
			afterAddr := fallAddr
			if nd, ok := insns.Get(fallAddr); ok {
				if ninst, err := g.classifyOrNop(nd); err == nil {
					afterAddr = fallAddr + uint64(ninst.SizeBytes)
				}
			}
			f.AddContiguousBlock(start, addr, flow.Normal)
			pushCandidate(queue, f, start, fallAddr)
			pushCandidate(queue, f, start, afterAddr)
			return addr, nil

		case inst.IsBranch:
			targets, err := g.Classifier.Targets(inst, addr)
			if err != nil || len(targets) != 1 {
				if !g.IgnoreErrors {
					if err == nil {
						err = fmt.Errorf("branch at 0x%x resolved to %d targets, expected 1", addr, len(targets))
					}
					return 0, err
				}
				g.Log.Warnf("walkBlock: unresolved branch target at 0x%x", addr)
				f.AddContiguousBlock(start, addr, flow.Normal)
				pushCandidate(queue, f, start, addr+uint64(inst.SizeBytes))
				return addr, nil
			}
			f.AddContiguousBlock(start, addr, flow.Normal)
			pushCandidate(queue, f, start, targets[0])
			pushCandidate(queue, f, start, addr+uint64(inst.SizeBytes))
			return addr, nil

		case inst.IsJump:
			targets, err := g.Classifier.Targets(inst, addr)
			if err != nil || len(targets) != 1 {
				if !g.IgnoreErrors {
					if err == nil {
						err = fmt.Errorf("jump at 0x%x resolved to %d targets, expected 1", addr, len(targets))
					}
					return 0, err
				}
				g.Log.Warnf("walkBlock: unresolved jump target at 0x%x", addr)
				f.AddContiguousBlock(start, addr, flow.Normal)
				return addr, nil
			}
			f.AddContiguousBlock(start, addr, flow.Normal)
			pushCandidate(queue, f, start, targets[0])
			return addr, nil

		case inst.IsReturn:
			f.AddContiguousBlock(start, addr, flow.Normal)
			f.MarkPreExit(start)
			return addr, nil

		case inst.IsCall:
			targets, err := g.Classifier.Targets(inst, addr)
			if err != nil {
				g.Log.Warnf("walkBlock: ignoring unresolved call at 0x%x: %v", addr, err)
			} else if len(targets) == 1 && targets[0] == addr+uint64(inst.SizeBytes) {
				g.Log.Debugf("walkBlock: ignoring self-successor call (push-word idiom) at 0x%x", addr)
			} else if len(targets) > 0 {
				f.MarkCallSite(addr, targets)
			} else {
				g.Log.Warnf("walkBlock: unresolved indirect call target at 0x%x", addr)
			}
			// Calls do not finalize the block; fall through.
		}

		next, ok := insns.Next(addr)
		if !ok {
			f.AddContiguousBlock(start, addr, flow.Normal)
			return addr, nil
		}
		addr = next
	}
}

// fixOverlaps implements Phase C. Iterating blocks in ascending entry
// order, a single-range block (low,high) that runs into a later block's
// entry U (low < U <= high) is shortened to end just before U and an
// edge low->U is added; a block whose range ends exactly where the next
// block begins (U == high + size of the last instruction — a clean
// abutment, per SPEC_FULL.md §9 Design Note (iii)) is left untouched.
func (g *Generator) fixOverlaps(insns *InsnMap, f *flow.Flow) {
	for _, low := range f.Blocks() {
		b, ok := f.Block(low)
		if !ok || len(b.Ranges) != 1 {
			continue
		}
		high := b.Ranges[0].High
		if low == high {
			continue
		}

		u, hasU := nextEntryAfter(f, low)
		if !hasU || u > high {
			continue
		}

		lastInsnAddr, ok := insns.Prev(u)
		if !ok {
			continue
		}

		incoming := f.InEdges(low)
		var filtered []uint64
		for _, src := range incoming {
			if src != low {
				filtered = append(filtered, src)
			}
		}

		f.RemoveBlock(low, false)
		f.AddContiguousBlock(low, lastInsnAddr, flow.Normal)
		for _, src := range filtered {
			f.AddEdge(src, low)
		}
		f.AddEdge(low, u)
	}
}

// nextEntryAfter returns the smallest block entry address strictly
// greater than addr (the "upper_bound" of the original implementation).
func nextEntryAfter(f *flow.Flow, addr uint64) (uint64, bool) {
	for _, e := range f.Blocks() {
		if e > addr {
			return e, true
		}
	}
	return 0, false
}

// jumpPair is a (predecessor, successor) merge candidate collected by
// the first pass of mergeJumpBlocks.
type jumpPair struct {
	a, b uint64
}

// mergeJumpBlocks implements Phase D: blocks A ending in an
// unconditional jump to a sole successor B with exactly one incoming
// edge are merged into A. Collection happens before application so
// iterating the block map is never disturbed mid-scan.
func (g *Generator) mergeJumpBlocks(insns *InsnMap, f *flow.Flow) {
	var pairs []jumpPair
	for _, a := range f.Blocks() {
		outs := f.OutEdges(a)
		if len(outs) != 1 {
			continue
		}
		b := outs[0]
		if len(f.InEdges(b)) != 1 {
			continue
		}

		aBlock, ok := f.Block(a)
		if !ok {
			continue
		}
		d, ok := insns.Get(aBlock.LastRange().High)
		if !ok {
			continue
		}
		inst, err := g.classifyOrNop(d)
		if err != nil || !inst.IsJump {
			continue
		}

		pairs = append(pairs, jumpPair{a: a, b: b})
	}

	for _, p := range pairs {
		bBlock, ok := f.Block(p.b)
		if !ok {
			continue
		}
		if _, ok := f.Block(p.a); !ok {
			continue
		}
		ranges := append([]flow.AddrRange(nil), bBlock.Ranges...)
		outs := f.OutEdges(p.b)
		wasPreExit := f.IsPreExit(p.b)

		f.RemoveBlock(p.b, false)
		f.InsertRanges(p.a, ranges)
		for _, dst := range outs {
			f.AddEdge(p.a, dst)
		}
		if wasPreExit {
			f.MarkPreExit(p.a)
		}
	}
}

// manageFuncCallBlocks implements the first half of Phase E: every
// block containing one or more call sites is split so each call site
// ends a block, splitting from the last call site backwards so earlier
// splits never invalidate the indices of later ones, and the resulting
// blocks are tagged Call or left Normal.
func (g *Generator) manageFuncCallBlocks(insns *InsnMap, f *flow.Flow) error {
	for _, addr := range f.Blocks() {
		if !f.HasCalls(addr) {
			continue
		}
		if err := g.splitAtCallSites(insns, f, addr); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) splitAtCallSites(insns *InsnMap, f *flow.Flow, addr uint64) error {
	b, ok := f.Block(addr)
	if !ok {
		return nil
	}

	var sites []uint64
	for _, cs := range f.CallSites() {
		for _, r := range b.Ranges {
			if cs >= r.Low && cs <= r.High {
				sites = append(sites, cs)
				break
			}
		}
	}
	if len(sites) == 0 {
		return nil
	}

	for i := len(sites) - 1; i >= 0; i-- {
		cs := sites[i]
		b, ok = f.Block(addr)
		if !ok {
			return fmt.Errorf("%w: block at 0x%x vanished mid-split", errInvariant, addr)
		}
		d, ok := insns.Get(cs)
		if !ok {
			return fmt.Errorf("%w: no instruction at call site 0x%x", errInvariant, cs)
		}
		inst, err := g.classifyOrNop(d)
		if err != nil {
			return err
		}

		rangeIdx := -1
		for idx, r := range b.Ranges {
			if cs >= r.Low && cs <= r.High {
				rangeIdx = idx
				break
			}
		}

		ok2, newStart := f.SplitBlock(addr, flow.SplitLocation{
			InsnAddr:  cs,
			InsnSize:  inst.SizeBytes,
			RangeHint: rangeIdx,
		})
		if !ok2 {
			continue
		}
		if i < len(sites)-1 {
			// This new tail block's last instruction is the
			// next-later call site we already split off: it is Call.
			if nb, ok := f.Block(newStart); ok {
				nb.Type = flow.Call
			}
		}
	}

	if hb, ok := f.Block(addr); ok {
		hb.Type = flow.Call
	}
	return nil
}

// symbolize implements the second half of Phase E: every Call block's
// callees list is populated by resolving each call site's recorded
// targets against the symbol table, falling back to a hex literal.
func (g *Generator) symbolize(symbols *SymbMap, f *flow.Flow) {
	for _, addr := range f.Blocks() {
		b, ok := f.Block(addr)
		if !ok || b.Type != flow.Call {
			continue
		}
		for i := len(b.Ranges) - 1; i >= 0; i-- {
			r := b.Ranges[i]
			for _, cs := range f.CallSites() {
				if cs < r.Low || cs > r.High {
					continue
				}
				for _, target := range f.CallTargets(cs) {
					if name, ok := symbols.Lookup(target); ok {
						b.AddCallee(name)
					} else {
						b.AddCallee(fmt.Sprintf("0x%x", target))
					}
				}
			}
		}
	}
}
