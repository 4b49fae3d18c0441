package generator

import (
	"reflect"
	"testing"

	"bincfg/internal/flow"
	"bincfg/internal/instr"
)

func newAVRGenerator(ignoreErrors bool) *Generator {
	return New(ClassifierFunc{
		ClassifyFn: instr.AVR,
		TargetsFn:  instr.AVRTargets,
		Word:       2,
	}, ignoreErrors, nil)
}

func mustFlow(t *testing.T, g *Generator, insns *InsnMap, symbols *SymbMap, entryAddr uint64) *flow.Flow {
	t.Helper()
	f, err := g.CreateFuncFlow(insns, symbols, FunctionEntry{EntryAddr: entryAddr, Name: "f"})
	if err != nil {
		t.Fatalf("CreateFuncFlow: %v", err)
	}
	return f
}

// S1: straight-line function with no branches. InsnMap: {100: NOP;
// 102: RET}. Expected: single block (100,102), no call sites inside it,
// post_entry 100, pre_exits={100}.
func TestGeneratorStraightLine(t *testing.T) {
	g := newAVRGenerator(false)
	insns := NewInsnMap([]instr.Disasm{
		{Addr: 100, Text: "NOP"},
		{Addr: 102, Text: "RET"},
	})
	symbols := NewSymbMap(nil)

	f := mustFlow(t, g, insns, symbols, 100)

	if got := f.Blocks(); !reflect.DeepEqual(got, []uint64{100}) {
		t.Fatalf("Blocks() = %v, want [100]", got)
	}
	b, _ := f.Block(100)
	wantRanges := []flow.AddrRange{{Low: 100, High: 102}}
	if !reflect.DeepEqual(b.Ranges, wantRanges) {
		t.Errorf("Ranges = %v, want %v", b.Ranges, wantRanges)
	}
	if pe, ok := f.PostEntry(); !ok || pe != 100 {
		t.Errorf("PostEntry() = (%d, %v), want (100, true)", pe, ok)
	}
	if !f.IsPreExit(100) {
		t.Errorf("expected 100 to be marked pre-exit")
	}
	if len(f.CallSites()) != 0 {
		t.Errorf("CallSites() = %v, want none", f.CallSites())
	}
}

// S3: a call site in the middle of an otherwise straight-line function.
// InsnMap: {0: RCALL .+4; 2: NOP; 4: NOP; 6: RET; 10: <callee>}. RCALL's
// target = 0 + (4 + wordSize(2)) = 6, which is not addr+size(2), so it is
// a real call site. Phase B produces one raw block (0,6); Phase E splits
// it at the call site into (0,0) [Call] and (2,6) [Normal], and the
// pre-exit mark (originally on the raw block's start, 0) moves onto the
// new tail block's entry, 2.
func TestGeneratorFunctionCallSplit(t *testing.T) {
	g := newAVRGenerator(false)
	insns := NewInsnMap([]instr.Disasm{
		{Addr: 0, Text: "RCALL .+4"},
		{Addr: 2, Text: "NOP"},
		{Addr: 4, Text: "NOP"},
		{Addr: 6, Text: "RET"},
		{Addr: 10, Text: "NOP"},
	})
	symbols := NewSymbMap(map[uint64]string{10: "callee"})

	f := mustFlow(t, g, insns, symbols, 0)

	if got := f.Blocks(); !reflect.DeepEqual(got, []uint64{0, 2}) {
		t.Fatalf("Blocks() = %v, want [0 2]", got)
	}

	head, _ := f.Block(0)
	if head.Type != flow.Call {
		t.Errorf("head block Type = %v, want Call", head.Type)
	}
	if want := []flow.AddrRange{{Low: 0, High: 0}}; !reflect.DeepEqual(head.Ranges, want) {
		t.Errorf("head Ranges = %v, want %v", head.Ranges, want)
	}
	// Target 6 sits in the middle of the function body, not at a symbol
	// table entry, so it resolves to the hex fallback rather than a name.
	if want := []string{"0x6"}; !reflect.DeepEqual(head.Callees, want) {
		t.Errorf("head Callees = %v, want %v", head.Callees, want)
	}

	tail, ok := f.Block(2)
	if !ok {
		t.Fatalf("expected a tail block at 2")
	}
	if tail.Type != flow.Normal {
		t.Errorf("tail block Type = %v, want Normal", tail.Type)
	}
	if want := []flow.AddrRange{{Low: 2, High: 6}}; !reflect.DeepEqual(tail.Ranges, want) {
		t.Errorf("tail Ranges = %v, want %v", tail.Ranges, want)
	}

	if got := f.PreExits(); !reflect.DeepEqual(got, []uint64{2}) {
		t.Errorf("PreExits() = %v, want [2]", got)
	}
	if got := f.OutEdges(0); !reflect.DeepEqual(got, []uint64{2}) {
		t.Errorf("OutEdges(0) = %v, want [2]", got)
	}
}

// S4: an unconditional jump chain. Block A falls through one NOP then
// jumps unconditionally to B; B is A's only successor and A is B's only
// predecessor, so Phase D merges B's ranges into A and (since B ends in
// RET) carries the pre-exit mark onto the merged block.
func TestGeneratorJumpChainMerge(t *testing.T) {
	g := newAVRGenerator(false)
	insns := NewInsnMap([]instr.Disasm{
		{Addr: 0, Text: "NOP"},
		{Addr: 2, Text: "JMP 0xc"},
		{Addr: 12, Text: "NOP"},
		{Addr: 14, Text: "RET"},
	})
	symbols := NewSymbMap(nil)

	f := mustFlow(t, g, insns, symbols, 0)

	if got := f.Blocks(); !reflect.DeepEqual(got, []uint64{0}) {
		t.Fatalf("Blocks() = %v, want [0] (jump chain should have merged)", got)
	}
	b, _ := f.Block(0)
	want := []flow.AddrRange{{Low: 0, High: 2}, {Low: 12, High: 14}}
	if !reflect.DeepEqual(b.Ranges, want) {
		t.Errorf("merged Ranges = %v, want %v", b.Ranges, want)
	}
	if got := f.OutEdges(0); len(got) != 0 {
		t.Errorf("OutEdges(0) = %v, want none (RET has no successor)", got)
	}
	if got := f.PreExits(); !reflect.DeepEqual(got, []uint64{0}) {
		t.Errorf("PreExits() = %v, want [0] (merged block inherits B's pre-exit mark)", got)
	}
}

// S5: two raw blocks overlap because a branch from elsewhere in the
// function targets an address in the middle of the straight-line walk
// from the entry. fixOverlaps is exercised directly against a
// hand-built Flow, matching the scenario's literal (0,20)/(10,30) shape
// instead of deriving it through a full instruction walk.
func TestGeneratorFixOverlaps(t *testing.T) {
	g := newAVRGenerator(false)
	insns := NewInsnMap([]instr.Disasm{
		{Addr: 0, Text: "NOP"},
		{Addr: 8, Text: "NOP"},
		{Addr: 10, Text: "NOP"},
	})

	f := flow.New("f")
	f.AddContiguousBlock(0, 20, flow.Normal)
	f.AddContiguousBlock(10, 30, flow.Normal)

	g.fixOverlaps(insns, f)

	if got := f.Blocks(); !reflect.DeepEqual(got, []uint64{0, 10}) {
		t.Fatalf("Blocks() = %v, want [0 10]", got)
	}
	b0, _ := f.Block(0)
	if want := []flow.AddrRange{{Low: 0, High: 8}}; !reflect.DeepEqual(b0.Ranges, want) {
		t.Errorf("block 0 Ranges = %v, want %v", b0.Ranges, want)
	}
	b10, _ := f.Block(10)
	if want := []flow.AddrRange{{Low: 10, High: 30}}; !reflect.DeepEqual(b10.Ranges, want) {
		t.Errorf("block 10 Ranges = %v, want %v", b10.Ranges, want)
	}
	if got := f.OutEdges(0); !reflect.DeepEqual(got, []uint64{10}) {
		t.Errorf("OutEdges(0) = %v, want [10]", got)
	}
}

// S2: a conditional branch loops back into the middle of the block
// that contains it. Phase B's raw walk produces overlapping blocks
// entered at 0 and at the branch target 2; Phase C's overlap fix-up
// splits the entry-0 block down to just its leading instruction so the
// back-edge lands on a block boundary, per spec.md's literal
// (0,0)/(2,4)/(6,6) split.
func TestGeneratorConditionalBranchBackEdgeSplit(t *testing.T) {
	g := newAVRGenerator(false)
	insns := NewInsnMap([]instr.Disasm{
		{Addr: 0, Text: "LDI r16, 0"},
		{Addr: 2, Text: "DEC r16"},
		// BRNE .-4 at address 4: diff = -4 + wordSize(2) = -2, target =
		// 4 + (-2) = 2.
		{Addr: 4, Text: "BRNE .-4"},
		{Addr: 6, Text: "RET"},
	})
	symbols := NewSymbMap(nil)

	f := mustFlow(t, g, insns, symbols, 0)

	if got := f.Blocks(); !reflect.DeepEqual(got, []uint64{0, 2, 6}) {
		t.Fatalf("Blocks() = %v, want [0 2 6]", got)
	}
	b0, _ := f.Block(0)
	if want := []flow.AddrRange{{Low: 0, High: 0}}; !reflect.DeepEqual(b0.Ranges, want) {
		t.Errorf("block 0 Ranges = %v, want %v", b0.Ranges, want)
	}
	b2, _ := f.Block(2)
	if want := []flow.AddrRange{{Low: 2, High: 4}}; !reflect.DeepEqual(b2.Ranges, want) {
		t.Errorf("block 2 Ranges = %v, want %v", b2.Ranges, want)
	}
	b6, _ := f.Block(6)
	if want := []flow.AddrRange{{Low: 6, High: 6}}; !reflect.DeepEqual(b6.Ranges, want) {
		t.Errorf("block 6 Ranges = %v, want %v", b6.Ranges, want)
	}

	if got := f.OutEdges(0); !reflect.DeepEqual(got, []uint64{2}) {
		t.Errorf("OutEdges(0) = %v, want [2]", got)
	}
	if got := f.OutEdges(2); !reflect.DeepEqual(got, []uint64{2, 6}) {
		t.Errorf("OutEdges(2) = %v, want [2 6] (loop back-edge then fall-through)", got)
	}
	if got := f.PreExits(); !reflect.DeepEqual(got, []uint64{6}) {
		t.Errorf("PreExits() = %v, want [6]", got)
	}
	if pe, ok := f.PostEntry(); !ok || pe != 0 {
		t.Errorf("PostEntry() = (%d, %v), want (0, true)", pe, ok)
	}
}

// S6: an indirect call (ICALL) never resolves a target under either
// mode — AVRTargets treats it as inherently unresolvable rather than an
// error — so no call site is ever recorded and the block walk proceeds
// through it exactly as if it were a NOP.
func TestGeneratorIndirectCallIgnored(t *testing.T) {
	for _, ignoreErrors := range []bool{false, true} {
		g := newAVRGenerator(ignoreErrors)
		insns := NewInsnMap([]instr.Disasm{
			{Addr: 0, Text: "ICALL"},
			{Addr: 2, Text: "RET"},
		})
		symbols := NewSymbMap(nil)

		f := mustFlow(t, g, insns, symbols, 0)

		if len(f.CallSites()) != 0 {
			t.Errorf("ignoreErrors=%v: CallSites() = %v, want none", ignoreErrors, f.CallSites())
		}
		b, ok := f.Block(0)
		if !ok {
			t.Fatalf("ignoreErrors=%v: expected a block at entry 0", ignoreErrors)
		}
		want := []flow.AddrRange{{Low: 0, High: 2}}
		if !reflect.DeepEqual(b.Ranges, want) {
			t.Errorf("ignoreErrors=%v: Ranges = %v, want %v", ignoreErrors, b.Ranges, want)
		}
		if pe, ok := f.PostEntry(); !ok || pe != 0 {
			t.Errorf("ignoreErrors=%v: PostEntry() = (%d, %v), want (0, true)", ignoreErrors, pe, ok)
		}
	}
}

// Phase B's self-successor filter (walkBlock): a self-successor RCALL (the
// "rcall .+0" idiom some AVR code uses merely to push a word) must not
// be recorded as a real call site.
func TestGeneratorSelfSuccessorCallIgnored(t *testing.T) {
	g := newAVRGenerator(false)
	insns := NewInsnMap([]instr.Disasm{
		// RCALL .+0 at address 0: diff = 0 + wordSize(2) = 2, target =
		// 0 + 2 = 2, which equals addr+size(2) — the push-word idiom.
		{Addr: 0, Text: "RCALL .+0"},
		{Addr: 2, Text: "RET"},
	})
	symbols := NewSymbMap(nil)

	f := mustFlow(t, g, insns, symbols, 0)

	if len(f.CallSites()) != 0 {
		t.Errorf("CallSites() = %v, want none (self-successor call is the push-word idiom, not a real call)", f.CallSites())
	}
	if got := f.Blocks(); !reflect.DeepEqual(got, []uint64{0}) {
		t.Errorf("Blocks() = %v, want [0]", got)
	}
}
