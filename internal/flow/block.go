package flow

// BasicBlock is a maximal straight-line instruction sequence, possibly
// spanning multiple non-contiguous address ranges after refinement. Its
// identity inside a Flow is its EntryAddr (the low address of its first
// range); its ID is a small integer, unique within the Flow and assigned
// in creation order. Removing a block does not renumber the others, so
// after RemoveBlock the IDs may have gaps. Edges and maps are keyed off
// EntryAddr, not ID.
type BasicBlock struct {
	ID      int
	Type    BlockType
	Ranges  []AddrRange
	Callees []string
}

// EntryAddr returns the block's identity address: the low bound of its
// chronologically first range. Operations in this package keep Ranges
// in chronological order and only ever append after, or trim off the
// tail of, the first range, so Ranges[0].Low stays equal to the key the
// block was created under (Open Question (ii) of SPEC_FULL.md §9).
func (b *BasicBlock) EntryAddr() uint64 {
	return b.Ranges[0].Low
}

// LastRange returns the block's chronologically last address range.
func (b *BasicBlock) LastRange() AddrRange {
	return b.Ranges[len(b.Ranges)-1]
}

// addRange appends a new range after the existing ones; the caller (Flow.InsertRanges / the generator) is responsible for ensuring
// ranges do not overlap any existing block.
func (b *BasicBlock) addRange(r AddrRange) {
	b.Ranges = append(b.Ranges, r)
}

// trim locates the range containing trimAddr (using rangeHint as a
// fast-path index when it is in bounds and actually contains trimAddr)
// and peels it, plus every subsequent range, off the block. Grounded on
// BasicBlock::trimBlock in the original implementation:
//   - if trimAddr equals the range's Low, the whole range (and every
//     range after it) moves to the returned slice;
//   - otherwise the containing range is shortened to
//     (Low, trimAddr-insnSize) and a new leading range
//     (trimAddr, oldHigh) is prepended to the returned slice, followed
//     by every subsequent range.
func (b *BasicBlock) trim(trimAddr uint64, insnSize int, rangeHint int) []AddrRange {
	idx := -1
	if rangeHint >= 0 && rangeHint < len(b.Ranges) {
		r := b.Ranges[rangeHint]
		if trimAddr >= r.Low && trimAddr <= r.High {
			idx = rangeHint
		}
	}
	if idx == -1 {
		for i, r := range b.Ranges {
			if trimAddr >= r.Low && trimAddr <= r.High {
				idx = i
				break
			}
		}
	}
	if idx == -1 {
		return nil
	}

	r := b.Ranges[idx]
	var trimmed []AddrRange
	if trimAddr == r.Low {
		trimmed = append(trimmed, b.Ranges[idx:]...)
		b.Ranges = b.Ranges[:idx]
		return trimmed
	}

	trimmed = append(trimmed, AddrRange{Low: trimAddr, High: r.High})
	trimmed = append(trimmed, b.Ranges[idx+1:]...)
	b.Ranges = b.Ranges[:idx+1]
	b.Ranges[idx] = AddrRange{Low: r.Low, High: trimAddr - uint64(insnSize)}
	return trimmed
}

// AddCallee appends a resolved callee symbol/address string, used by
// the generator's Phase E symbolize step.
func (b *BasicBlock) AddCallee(symbol string) {
	b.Callees = append(b.Callees, symbol)
}
