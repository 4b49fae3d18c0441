package disasmreader

import (
	"errors"
	"strings"
	"testing"

	"bincfg/internal/bincfgerr"
)

const sampleDisassembly = "" +
	"Disassembly of section .text:\n" +
	"\n" +
	"00000000 <main>:\n" +
	"0:\t0c 94 32 00\tJMP 0x64\n" +
	"\n" +
	"00000064 <helper>:\n" +
	"64:\t00 00\tNOP\n" +
	"66:\t08 95\tRET\n" +
	"\n" +
	"Disassembly of section .data:\n" +
	"\n" +
	"00000100 <blob>:\n" +
	"100:\t00 00\tNOP\n"

func TestReadSectionParsesRequestedSectionOnly(t *testing.T) {
	sec, err := ReadSection(strings.NewReader(sampleDisassembly), ".text")
	if err != nil {
		t.Fatalf("ReadSection: %v", err)
	}
	if sec.Name != ".text" {
		t.Errorf("Name = %q, want .text", sec.Name)
	}
	if len(sec.Instructions) != 3 {
		t.Fatalf("Instructions = %d, want 3", len(sec.Instructions))
	}
	if sec.Instructions[0].Addr != 0 || sec.Instructions[0].Text != "JMP 0x64" {
		t.Errorf("Instructions[0] = %+v", sec.Instructions[0])
	}
	if sec.Instructions[2].Addr != 0x66 || sec.Instructions[2].Text != "RET" {
		t.Errorf("Instructions[2] = %+v", sec.Instructions[2])
	}
	if name, ok := sec.Symbols[0x64]; !ok || name != "helper" {
		t.Errorf("Symbols[0x64] = %q, %v, want helper, true", name, ok)
	}
	if _, ok := sec.Symbols[0x100]; ok {
		t.Errorf("did not expect .data's symbol to leak into .text's table")
	}
}

func TestReadSectionMissingReturnsMalformedInput(t *testing.T) {
	_, err := ReadSection(strings.NewReader(sampleDisassembly), ".bss")
	if !errors.Is(err, bincfgerr.ErrMalformedInput) {
		t.Fatalf("err = %v, want wrapping ErrMalformedInput", err)
	}
}

func TestReadAllSectionsReturnsEveryNonEmptySection(t *testing.T) {
	sections, err := ReadAllSections(strings.NewReader(sampleDisassembly))
	if err != nil {
		t.Fatalf("ReadAllSections: %v", err)
	}
	if len(sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(sections))
	}
	if sections[0].Name != ".text" || sections[1].Name != ".data" {
		t.Errorf("section order = [%q %q], want [.text .data]", sections[0].Name, sections[1].Name)
	}
	if len(sections[1].Instructions) != 1 {
		t.Errorf(".data Instructions = %d, want 1", len(sections[1].Instructions))
	}
}

func TestReadAllSectionsEmptyInput(t *testing.T) {
	_, err := ReadAllSections(strings.NewReader("no sections here\n"))
	if !errors.Is(err, bincfgerr.ErrMalformedInput) {
		t.Fatalf("err = %v, want wrapping ErrMalformedInput", err)
	}
}

func TestParseRawBytesLittleEndian(t *testing.T) {
	// "0c 94" -> byte0=0x0c, byte1=0x94 -> raw = 0x0c | (0x94 << 8) = 0x940c.
	if got := parseRawBytes("0c 94"); got != 0x940c {
		t.Errorf("parseRawBytes(\"0c 94\") = %#x, want 0x940c", got)
	}
}
