package flow

import "testing"

// Invariant 1: for every edge src->dst recorded in outEdges, dst->src
// must appear in inEdges, and vice versa.
func TestEdgeTranspose(t *testing.T) {
	f := New("f")
	f.AddContiguousBlock(0, 2, Normal)
	f.AddContiguousBlock(4, 6, Normal)
	f.AddEdge(0, 4)

	out := f.OutEdges(0)
	if len(out) != 1 || out[0] != 4 {
		t.Fatalf("OutEdges(0) = %v, want [4]", out)
	}
	in := f.InEdges(4)
	if len(in) != 1 || in[0] != 0 {
		t.Fatalf("InEdges(4) = %v, want [0]", in)
	}

	f.RemoveEdge(0, 4)
	if got := f.OutEdges(0); len(got) != 0 {
		t.Errorf("OutEdges(0) after removal = %v, want none", got)
	}
	if got := f.InEdges(4); len(got) != 0 {
		t.Errorf("InEdges(4) after removal = %v, want none", got)
	}
}

// AddEdge must not create duplicate entries for a repeated src->dst pair.
func TestAddEdgeDedup(t *testing.T) {
	f := New("f")
	f.AddEdge(0, 4)
	f.AddEdge(0, 4)
	if got := f.OutEdges(0); len(got) != 1 {
		t.Errorf("OutEdges(0) = %v, want a single entry", got)
	}
}

// Invariant 6: block IDs are assigned densely from 0, one per call to
// AddContiguousBlock (SplitBlock also consumes an ID for its new tail).
func TestBlockIDsFormDenseRange(t *testing.T) {
	f := New("f")
	f.AddContiguousBlock(0, 6, Normal)
	f.AddContiguousBlock(10, 12, Normal)

	seen := make(map[int]bool)
	for _, addr := range f.Blocks() {
		b, _ := f.Block(addr)
		seen[b.ID] = true
	}
	for id := 0; id < len(seen); id++ {
		if !seen[id] {
			t.Fatalf("expected IDs {0..%d}, missing %d", len(seen)-1, id)
		}
	}
}

// RemoveBlock with updateEntry=true must re-point post_entry at the sole
// successor, and must panic if that precondition (exactly one outgoing
// edge) does not hold — this is an invariant violation, not tolerated
// input.
func TestRemoveBlockUpdatesPostEntry(t *testing.T) {
	f := New("f")
	f.MarkPostEntry(0)
	f.AddContiguousBlock(0, 2, Normal)
	f.AddContiguousBlock(4, 6, Normal)
	f.AddEdge(0, 4)

	if ok := f.RemoveBlock(0, true); !ok {
		t.Fatalf("RemoveBlock(0, true) = false, want true")
	}
	if pe, ok := f.PostEntry(); !ok || pe != 4 {
		t.Errorf("PostEntry() = (%d, %v), want (4, true)", pe, ok)
	}
}

func TestRemoveBlockUpdateEntryPanicsOnAmbiguousSuccessor(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic when the post-entry block has != 1 outgoing edge")
		}
	}()

	f := New("f")
	f.MarkPostEntry(0)
	f.AddContiguousBlock(0, 2, Normal)
	f.RemoveBlock(0, true)
}

// SplitBlock rejects a split at the block's very last instruction (there
// would be nothing left to move into a new tail block).
func TestSplitBlockRejectsSplitAtLastInstruction(t *testing.T) {
	f := New("f")
	f.AddContiguousBlock(0, 4, Normal)

	ok, _ := f.SplitBlock(0, SplitLocation{InsnAddr: 4, InsnSize: 2, RangeHint: 0})
	if ok {
		t.Fatal("expected SplitBlock to reject a split at the block's last instruction")
	}
}

// SplitBlock rejects a split whose resulting tail start address already
// names another block (would collide entries).
func TestSplitBlockRejectsCollidingStart(t *testing.T) {
	f := New("f")
	f.AddContiguousBlock(0, 6, Normal)
	f.AddContiguousBlock(4, 4, Normal)

	ok, _ := f.SplitBlock(0, SplitLocation{InsnAddr: 2, InsnSize: 2, RangeHint: 0})
	if ok {
		t.Fatal("expected SplitBlock to reject a tail start that collides with an existing block")
	}
}

// SplitBlock moves every outgoing edge from the original block onto the
// new tail block, plus a fresh original->tail edge, and transfers the
// pre-exit mark when the original was one.
func TestSplitBlockRewiresEdgesAndPreExit(t *testing.T) {
	f := New("f")
	f.AddContiguousBlock(0, 6, Normal)
	f.AddContiguousBlock(20, 22, Normal)
	f.AddEdge(0, 20)
	f.MarkPreExit(0)

	ok, newStart := f.SplitBlock(0, SplitLocation{InsnAddr: 2, InsnSize: 2, RangeHint: 0})
	if !ok {
		t.Fatalf("SplitBlock failed")
	}
	if newStart != 4 {
		t.Fatalf("newStart = %d, want 4", newStart)
	}

	head, _ := f.Block(0)
	if want := []AddrRange{{Low: 0, High: 2}}; !rangesEqual(head.Ranges, want) {
		t.Errorf("head Ranges = %v, want %v", head.Ranges, want)
	}
	tail, ok := f.Block(4)
	if !ok {
		t.Fatalf("expected a tail block at 4")
	}
	if want := []AddrRange{{Low: 4, High: 6}}; !rangesEqual(tail.Ranges, want) {
		t.Errorf("tail Ranges = %v, want %v", tail.Ranges, want)
	}

	if got := f.OutEdges(0); len(got) != 1 || got[0] != 4 {
		t.Errorf("OutEdges(0) = %v, want [4]", got)
	}
	if got := f.OutEdges(4); len(got) != 1 || got[0] != 20 {
		t.Errorf("OutEdges(4) = %v, want [20] (rewired from the original block)", got)
	}
	if f.IsPreExit(0) {
		t.Errorf("original entry should no longer be marked pre-exit")
	}
	if !f.IsPreExit(4) {
		t.Errorf("new tail block should inherit the pre-exit mark")
	}
}

func rangesEqual(a, b []AddrRange) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMarkCallSiteIsIdempotentOnSiteList(t *testing.T) {
	f := New("f")
	f.MarkCallSite(0, []uint64{10})
	f.MarkCallSite(0, []uint64{10, 20})

	sites := f.CallSites()
	if len(sites) != 1 || sites[0] != 0 {
		t.Fatalf("CallSites() = %v, want [0] (re-marking the same site must not duplicate it)", sites)
	}
	targets := f.CallTargets(0)
	if len(targets) != 2 {
		t.Fatalf("CallTargets(0) = %v, want the latest target list [10 20]", targets)
	}
}

func TestHasCallsChecksRangeMembership(t *testing.T) {
	f := New("f")
	f.AddContiguousBlock(0, 6, Normal)
	f.MarkCallSite(4, []uint64{100})

	if !f.HasCalls(0) {
		t.Errorf("HasCalls(0) = false, want true (call site 4 is within range [0,6])")
	}

	f2 := New("f2")
	f2.AddContiguousBlock(0, 2, Normal)
	f2.MarkCallSite(100, []uint64{200})
	if f2.HasCalls(0) {
		t.Errorf("HasCalls(0) = true, want false (call site 100 is outside range [0,2])")
	}
}
