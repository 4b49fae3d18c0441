package export

import (
	"strings"
	"testing"

	"bincfg/internal/flow"
	"bincfg/internal/generator"
	"bincfg/internal/instr"
)

func TestWriteCSVStraightLineSteps(t *testing.T) {
	f := flow.New("f")
	f.AddContiguousBlock(0, 2, flow.Normal)
	f.MarkPostEntry(0)
	f.MarkPreExit(0)

	insns := generator.NewInsnMap([]instr.Disasm{
		{Addr: 0, Text: "NOP"},
		{Addr: 2, Text: "RET"},
	})

	var buf strings.Builder
	if err := WriteCSV(&buf, f, insns, nil, DefaultCSVOptions()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	if lines[0] != "# Block number,Step address,Target address" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "0;0;2" {
		t.Errorf("step row = %q, want %q", lines[1], "0;0;2")
	}
	if lines[2] != "0;2;0" {
		t.Errorf("terminal row (no out-edges) = %q, want %q", lines[2], "0;2;0")
	}
}

func TestWriteCSVExpandCallsSplitsTargets(t *testing.T) {
	f := flow.New("caller")
	f.AddContiguousBlock(0, 0, flow.Call)
	f.AddContiguousBlock(2, 6, flow.Normal)
	f.MarkPostEntry(0)
	f.MarkPreExit(2)
	f.AddEdge(0, 2)
	f.MarkCallSite(0, []uint64{0x64})

	insns := generator.NewInsnMap([]instr.Disasm{
		{Addr: 0, Text: "CALL 0x64"},
		{Addr: 2, Text: "NOP"},
		{Addr: 4, Text: "RET"},
	})

	opts := DefaultCSVOptions()
	opts.ExpandCalls = true

	var buf strings.Builder
	if err := WriteCSV(&buf, f, insns, nil, opts); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "0;0;0\n") {
		t.Errorf("expected a self-loop row for the call step, got:\n%s", out)
	}
	if !strings.Contains(out, "0;0;100\n") {
		t.Errorf("expected a row targeting the call target (100 decimal = 0x64), got:\n%s", out)
	}
}
