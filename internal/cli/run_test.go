package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

const runTestDisassembly = "" +
	"Disassembly of section .text:\n" +
	"\n" +
	"00000000 <main>:\n" +
	"0:\t0e 94 32 00\tCALL 0x64\n" +
	"4:\t08 95\tRET\n" +
	"\n" +
	"00000064 <helper>:\n" +
	"64:\t00 00\tNOP\n" +
	"66:\t08 95\tRET\n"

func resetRunFlags() {
	flagAsm, flagArch, flagFlowOut, flagDebugOut, flagElf = "", "", "", "", ""
	flagIncInsn, flagIncSymb, flagIgnoreErrors, flagSuppressLog, flagListArch, flagCSVExpandCalls = false, false, false, false, false, false
}

func TestRunRunWritesJSONFlowExport(t *testing.T) {
	resetRunFlags()
	t.Cleanup(resetRunFlags)

	dir := t.TempDir()
	asmPath := filepath.Join(dir, "fw.asm")
	if err := os.WriteFile(asmPath, []byte(runTestDisassembly), 0o644); err != nil {
		t.Fatal(err)
	}
	flowPath := filepath.Join(dir, "fw.json")

	flagAsm = asmPath
	flagArch = "avr"
	flagFlowOut = flowPath
	flagSuppressLog = true

	if err := runRun(runCmd, nil); err != nil {
		t.Fatalf("runRun: %v", err)
	}

	data, err := os.ReadFile(flowPath)
	if err != nil {
		t.Fatalf("reading %s: %v", flowPath, err)
	}

	var doc struct {
		Type        string `json:"Type"`
		Name        string `json:"Name"`
		BasicBlocks []struct {
			ID        int64  `json:"ID"`
			BlockType string `json:"BlockType"`
		} `json:"BasicBlocks"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal flow export: %v\noutput: %s", err, data)
	}
	if doc.Type != "Flow" || doc.Name != "helper" {
		t.Errorf("Type/Name = %q/%q, want Flow/helper", doc.Type, doc.Name)
	}
	if len(doc.BasicBlocks) != 3 {
		t.Errorf("BasicBlocks = %d, want 3 (Entry, one block, Exit)", len(doc.BasicBlocks))
	}
}

func TestRunRunRequiresAsmAndArch(t *testing.T) {
	resetRunFlags()
	t.Cleanup(resetRunFlags)

	if err := runRun(runCmd, nil); err == nil {
		t.Fatal("expected an error when --asm is missing")
	}

	flagAsm = "fw.asm"
	if err := runRun(runCmd, nil); err == nil {
		t.Fatal("expected an error when --arch is missing")
	}
}

func TestRunRunRequiresElfWithDebug(t *testing.T) {
	resetRunFlags()
	t.Cleanup(resetRunFlags)

	flagAsm = "fw.asm"
	flagArch = "avr"
	flagDebugOut = "out.json"

	if err := runRun(runCmd, nil); err == nil {
		t.Fatal("expected an error when --debug is set without --elf")
	}
}
