package instr

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/arch/arm/armasm"

	"bincfg/internal/bincfgerr"
)

// armOp is ARMv5's (experimental) mnemonic enumeration, grounded on the
// original ArmV5Instruction mnemonic table. ARMv5 support is
// incomplete: conditional-suffix stripping is ambiguous for a handful of
// mnemonics (see stripCondition), matching Open Question (i) of
// SPEC_FULL.md §9.
type armOp int

const (
	armUnknown armOp = iota
	armB
	armBL
	armBLX
	armBX
	armADC
	armADD
	armAND
	armBIC
	armCMN
	armCMP
	armEOR
	armMOV
	armMVN
	armORR
	armRSB
	armRSC
	armSBC
	armSUB
	armTEQ
	armTST
	armMLA
	armMUL
	armSMULL
	armUMLAL
	armUMULL
	armMRS
	armMSR
	armCPS
	armCLZ
	armLDR
	armLDRB
	armLDRH
	armLDRSB
	armLDRSH
	armSTR
	armSTRB
	armSTRH
	armLDM
	armSTM
	armSWP
	armSWPB
	armCDP
	armLDC
	armMCR
	armMRC
	armSTC
	armBKPT
	armSWI
	armNOP
	armASR
	armLSL
	armLSR
	armNEG
	armROR
	armPOP
	armPUSH
	armSTMIA
	armData // synthesized for "<UNDEFINED>" comment-marked words
)

var armMnemonicMap = map[string]armOp{
	"B": armB, "BL": armBL, "BLX": armBLX, "BX": armBX,
	"ADC": armADC, "ADD": armADD, "AND": armAND, "BIC": armBIC,
	"CMN": armCMN, "CMP": armCMP, "EOR": armEOR, "MOV": armMOV,
	"MVN": armMVN, "ORR": armORR, "RSB": armRSB, "RSC": armRSC,
	"SBC": armSBC, "SUB": armSUB, "TEQ": armTEQ, "TST": armTST,
	"MLA": armMLA, "MUL": armMUL, "SMULL": armSMULL, "UMLAL": armUMLAL,
	"UMULL": armUMULL, "MRS": armMRS, "MSR": armMSR, "CPS": armCPS,
	"CLZ": armCLZ, "LDR": armLDR, "LDRB": armLDRB, "LDRH": armLDRH,
	"LDRSB": armLDRSB, "LDRSH": armLDRSH, "STR": armSTR, "STRB": armSTRB,
	"STRH": armSTRH, "LDM": armLDM, "STM": armSTM, "SWP": armSWP,
	"SWPB": armSWPB, "CDP": armCDP, "LDC": armLDC, "MCR": armMCR,
	"MRC": armMRC, "STC": armSTC, "BKPT": armBKPT, "SWI": armSWI,
	"NOP": armNOP, "ASR": armASR, "LSL": armLSL, "LSR": armLSR,
	"NEG": armNEG, "ROR": armROR, "POP": armPOP, "PUSH": armPUSH,
	"STMIA": armSTMIA,
}

// condSuffix strips trailing condition codes (EQ, NE, ..., AL) and an
// optional ".N"/".W" width suffix. This is the documented ambiguous
// step: the lazy base match takes the shortest split that leaves a
// two-letter condition, so "MOVS" splits as "MO" + "VS", "TEQ" as
// "T" + "EQ" and "UMLAL" as "UML" + "AL". Such a base is not in
// armMnemonicMap, so these mnemonics are reported as unknown (or
// classified as NOP in ignore-errors mode); disambiguate only runs for
// splits whose base is a known mnemonic.
var condSuffix = regexp.MustCompile(`^([A-Z]+?)(EQ|NE|CS|HS|CC|LO|MI|PL|VS|VC|HI|LS|GE|LT|GT|LE|AL)?(\.[NW])?$`)

var conditionCodes = map[string]bool{
	"EQ": true, "NE": true, "CS": true, "HS": true, "CC": true, "LO": true,
	"MI": true, "PL": true, "VS": true, "VC": true, "HI": true, "LS": true,
	"GE": true, "LT": true, "GT": true, "LE": true, "AL": true,
}

func stripCondition(mnemonic string) (base string, cond string, hasCond bool) {
	m := condSuffix.FindStringSubmatch(mnemonic)
	if m == nil {
		return mnemonic, "", false
	}
	base, cond = m[1], m[2]
	if cond == "" {
		return base, "", false
	}
	return base, cond, true
}

const armv5WordSize = 4

// ARMv5 classifies one Disasm record against the (experimental) ARMv5
// instruction set. The "<UNDEFINED>" comment marker (inline data mixed
// with code, common in AVR/ARM disassembly of const pools) is treated
// as a non-control-flow NOP, as is any unknown mnemonic in ignore-errors
// mode.
func ARMv5(d Disasm, ignoreErrors bool) (Instruction, error) {
	if strings.Contains(d.Comment, "<UNDEFINED>") {
		return Instruction{
			Arch: ArchARMv5, Mnemonic: "NOP", Raw: d.Raw,
			SizeBytes: armv5Size(d.Raw), WordSize: armv5WordSize,
		}, nil
	}

	mnemonic, operands := ParsePreamble(d.Text)
	if mnemonic == "" {
		return Instruction{}, fmt.Errorf("%w: empty instruction text at 0x%x", bincfgerr.ErrMalformedInput, d.Addr)
	}

	base, cond, hasCond := stripCondition(mnemonic)
	op, known := armMnemonicMap[base]
	if !known {
		if !ignoreErrors {
			return Instruction{}, &ParseError{Arch: ArchARMv5, Mnemonic: mnemonic, Addr: d.Addr}
		}
		op = armNOP
		base = "NOP"
		cond, hasCond = "", false
	}

	disambiguate(d, &op, &base, &cond, &hasCond)

	inst := Instruction{
		Arch:      ArchARMv5,
		Mnemonic:  base,
		Operands:  operands,
		Raw:       d.Raw,
		WordSize:  armv5WordSize,
		SizeBytes: armv5Size(d.Raw),
	}
	writesPC := armMayWritePC(op, operands)
	inst.IsCall = op == armBL || op == armBLX
	inst.IsReturn = armIsReturn(op, operands)
	if !inst.IsCall && !inst.IsReturn && writesPC {
		if hasCond {
			inst.IsBranch = true
		} else {
			inst.IsJump = true
		}
	}
	return inst, nil
}

// disambiguate narrows the condition-suffix ambiguity documented above
// using golang.org/x/arch/arm/armasm's raw-opcode decoder when the raw
// encoding is available and wide enough to decode (4 bytes). If the
// encoding's condition field is AL and armasm decodes an S-flag-bearing
// op where the regex split out a trailing two-letter condition, the
// split is corrected back to an unconditional instruction.
func disambiguate(d Disasm, op *armOp, base *string, cond *string, hasCond *bool) {
	if !*hasCond || d.Raw == 0 {
		return
	}
	if armv5Size(d.Raw) != 4 {
		return
	}
	buf := []byte{
		byte(d.Raw), byte(d.Raw >> 8), byte(d.Raw >> 16), byte(d.Raw >> 24),
	}
	decoded, err := armasm.Decode(buf, armasm.ModeARM)
	if err != nil {
		return
	}
	// Bits 31..28 of an ARM encoding hold the condition field; 0xE is
	// AL (always). AL plus an S-flag-bearing opcode means the regex's
	// "condition" was actually part of the mnemonic, so drop it.
	const condAL = 0xE
	if uint32(d.Raw)>>28 == condAL && strings.HasSuffix(decoded.Op.String(), "S") {
		*hasCond = false
		*cond = ""
	}
}

func armIsReturn(op armOp, operands []string) bool {
	if len(operands) == 0 {
		return false
	}
	last := strings.ToLower(operands[len(operands)-1])
	switch op {
	case armB, armBX:
		return last == "lr" || last == "r14"
	case armPOP:
		return strings.Contains(strings.ToLower(strings.Join(operands, ",")), "pc") ||
			strings.Contains(strings.ToLower(strings.Join(operands, ",")), "r15")
	}
	return false
}

// armMayWritePC reports whether an instruction (other than BL/BLX/BX
// handled separately) writes the program counter: any opcode whose
// first operand is pc/r15 is treated as a PC write.
func armMayWritePC(op armOp, operands []string) bool {
	switch op {
	case armB:
		return true
	}
	if len(operands) == 0 {
		return false
	}
	dest := strings.ToLower(operands[0])
	return dest == "pc" || dest == "r15"
}

// armv5Size returns 2 for Thumb-width encodings (raw fits in 16 bits)
// and 4 otherwise, per spec.md §4.1.
func armv5Size(raw uint64) int {
	if raw <= 0xFFFF {
		return 2
	}
	return 4
}

// ARMv5Targets computes the target address set for a classified ARMv5
// instruction. Only a bare hexadecimal literal operand is resolvable;
// register-indirect and PC-relative-with-register forms return an
// empty slice, which the generator logs as unresolved (a strict-mode
// run fails instead on an empty jump or branch target), per spec.md §4.1.
func ARMv5Targets(inst Instruction, currentAddr uint64) ([]uint64, error) {
	if !inst.IsCall && !inst.IsJump && !inst.IsBranch {
		return nil, nil
	}
	if len(inst.Operands) == 0 {
		return nil, fmt.Errorf("%w: %s at 0x%x missing operand", bincfgerr.ErrUnresolvableTarget, inst.Mnemonic, currentAddr)
	}
	if addr, ok := AbsoluteAddr(strings.TrimPrefix(inst.Operands[0], "#")); ok {
		return []uint64{addr}, nil
	}
	return nil, nil
}
