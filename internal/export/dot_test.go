package export

import (
	"strings"
	"testing"

	"bincfg/internal/flow"
)

func TestWriteDOTRendersCallSplice(t *testing.T) {
	f := flow.New("helper")
	f.AddContiguousBlock(0, 0, flow.Call)
	f.AddContiguousBlock(2, 6, flow.Normal)
	f.MarkPostEntry(0)
	f.MarkPreExit(2)
	f.AddEdge(0, 2)
	f.MarkCallSite(0, []uint64{0x64})

	b, _ := f.Block(0)
	b.AddCallee("0x64")

	var buf strings.Builder
	if err := WriteDOT(&buf, f); err != nil {
		t.Fatalf("WriteDOT: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, `label="helper"`) {
		t.Errorf("missing flow label:\n%s", out)
	}
	if !strings.Contains(out, "entry -> bb_0;") {
		t.Errorf("missing entry edge:\n%s", out)
	}
	if !strings.Contains(out, "FCall: 0x64") {
		t.Errorf("missing call-splice node:\n%s", out)
	}
	if !strings.Contains(out, "bb_2 -> exit;") {
		t.Errorf("missing exit edge:\n%s", out)
	}
}

func TestWriteDOTStraightLineNoCallNodes(t *testing.T) {
	f := flow.New("f")
	f.AddContiguousBlock(0, 4, flow.Normal)
	f.MarkPostEntry(0)
	f.MarkPreExit(0)

	var buf strings.Builder
	if err := WriteDOT(&buf, f); err != nil {
		t.Fatalf("WriteDOT: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "fcall_") {
		t.Errorf("unexpected call-splice node in a call-free flow:\n%s", out)
	}
}
