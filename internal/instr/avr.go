package instr

import (
	"fmt"
	"strings"

	"bincfg/internal/bincfgerr"
)

// avrOp is AVR's mnemonic enumeration, grounded on the original
// AvrInstruction mnemonic table. The predicates (avrIsSkip,
// avrIsBranch, ...) test explicit sets of values, so the declaration
// order below does not affect classification.
type avrOp int

const (
	avrUnknown avrOp = iota
	avrADC
	avrADD
	avrADIW
	avrAND
	avrANDI
	avrASR
	avrBCLR
	avrBLD
	avrBRBC
	avrBRBS
	avrBRCC
	avrBRCS
	avrBREAK
	avrBREQ
	avrBRGE
	avrBRHC
	avrBRHS
	avrBRID
	avrBRIE
	avrBRLO
	avrBRLT
	avrBRMI
	avrBRNE
	avrBRPL
	avrBRSH
	avrBRTC
	avrBRTS
	avrBRVC
	avrBRVS
	avrBSET
	avrBST
	avrCALL
	avrCBI
	avrCBR
	avrCLC
	avrCLH
	avrCLI
	avrCLN
	avrCLR
	avrCLS
	avrCLT
	avrCLV
	avrCLZ
	avrCOM
	avrCP
	avrCPC
	avrCPI
	// skip instructions (see avrIsSkip)
	avrCPSE
	avrSBRC
	avrSBRS
	avrSBIC
	avrSBIS
	avrDEC
	avrDES
	avrEICALL
	avrEIJMP
	avrELPM
	avrEOR
	avrFMUL
	avrFMULS
	avrFMULSU
	avrICALL
	avrIJMP
	avrIN
	avrINC
	avrJMP
	avrLAC
	avrLAS
	avrLAT
	avrLD
	avrLDD
	avrLDI
	avrLDS
	avrLPM
	avrLSL
	avrLSR
	avrMOV
	avrMOVW
	avrMUL
	avrMULS
	avrMULSU
	avrNEG
	avrNOP
	avrOR
	avrORI
	avrOUT
	avrPOP
	avrPUSH
	avrRCALL
	avrRET
	avrRETI
	avrRJMP
	avrROL
	avrROR
	avrSBC
	avrSBCI
	avrSBI
	avrSBIW
	avrSBR
	avrSEC
	avrSEH
	avrSEI
	avrSEN
	avrSER
	avrSES
	avrSET
	avrSEV
	avrSEZ
	avrSLEEP
	avrSPM
	avrST
	avrSTD
	avrSTS
	avrSUB
	avrSUBI
	avrSWAP
	avrWDR
	avrXCH
	avrBYTE
	avrWORD
)

var avrMnemonicMap = map[string]avrOp{
	"ADC": avrADC, "ADD": avrADD, "ADIW": avrADIW, "AND": avrAND, "ANDI": avrANDI,
	"ASR": avrASR, "BCLR": avrBCLR, "BLD": avrBLD, "BRBC": avrBRBC, "BRBS": avrBRBS,
	"BRCC": avrBRCC, "BRCS": avrBRCS, "BREAK": avrBREAK, "BREQ": avrBREQ, "BRGE": avrBRGE,
	"BRHC": avrBRHC, "BRHS": avrBRHS, "BRID": avrBRID, "BRIE": avrBRIE, "BRLO": avrBRLO,
	"BRLT": avrBRLT, "BRMI": avrBRMI, "BRNE": avrBRNE, "BRPL": avrBRPL, "BRSH": avrBRSH,
	"BRTC": avrBRTC, "BRTS": avrBRTS, "BRVC": avrBRVC, "BRVS": avrBRVS, "BSET": avrBSET,
	"BST": avrBST, "CALL": avrCALL, "CBI": avrCBI, "CBR": avrCBR, "CLC": avrCLC,
	"CLH": avrCLH, "CLI": avrCLI, "CLN": avrCLN, "CLR": avrCLR, "CLS": avrCLS,
	"CLT": avrCLT, "CLV": avrCLV, "CLZ": avrCLZ, "COM": avrCOM, "CP": avrCP,
	"CPC": avrCPC, "CPI": avrCPI, "CPSE": avrCPSE, "SBRC": avrSBRC, "SBRS": avrSBRS,
	"SBIC": avrSBIC, "SBIS": avrSBIS, "DEC": avrDEC, "DES": avrDES, "EICALL": avrEICALL,
	"EIJMP": avrEIJMP, "ELPM": avrELPM, "EOR": avrEOR, "FMUL": avrFMUL, "FMULS": avrFMULS,
	"FMULSU": avrFMULSU, "ICALL": avrICALL, "IJMP": avrIJMP, "IN": avrIN, "INC": avrINC,
	"JMP": avrJMP, "LAC": avrLAC, "LAS": avrLAS, "LAT": avrLAT, "LD": avrLD,
	"LDD": avrLDD, "LDI": avrLDI, "LDS": avrLDS, "LPM": avrLPM, "LSL": avrLSL,
	"LSR": avrLSR, "MOV": avrMOV, "MOVW": avrMOVW, "MUL": avrMUL, "MULS": avrMULS,
	"MULSU": avrMULSU, "NEG": avrNEG, "NOP": avrNOP, "OR": avrOR, "ORI": avrORI,
	"OUT": avrOUT, "POP": avrPOP, "PUSH": avrPUSH, "RCALL": avrRCALL, "RET": avrRET,
	"RETI": avrRETI, "RJMP": avrRJMP, "ROL": avrROL, "ROR": avrROR, "SBC": avrSBC,
	"SBCI": avrSBCI, "SBI": avrSBI, "SBIW": avrSBIW, "SBR": avrSBR, "SEC": avrSEC,
	"SEH": avrSEH, "SEI": avrSEI, "SEN": avrSEN, "SER": avrSER, "SES": avrSES,
	"SET": avrSET, "SEV": avrSEV, "SEZ": avrSEZ, "SLEEP": avrSLEEP, "SPM": avrSPM,
	"ST": avrST, "STD": avrSTD, "STS": avrSTS, "SUB": avrSUB, "SUBI": avrSUBI,
	"SWAP": avrSWAP, "WDR": avrWDR, "XCH": avrXCH,
	"BYTE": avrBYTE, "WORD": avrWORD,
}

const avrWordSize = 2

// AVR classifies one Disasm record against the AVR instruction set.
// Unknown mnemonics return *instr.ParseError unless ignoreErrors is set,
// in which case the instruction is classified as a NOP (no predicate
// true), matching spec.md's "ignore-errors" failure semantics.
func AVR(d Disasm, ignoreErrors bool) (Instruction, error) {
	mnemonic, operands := ParsePreamble(d.Text)
	if mnemonic == "" || strings.EqualFold(mnemonic, "BYTE") {
		return Instruction{
			Arch: ArchAVR, Mnemonic: "BYTE", Raw: d.Raw,
			SizeBytes: 1, WordSize: avrWordSize,
		}, nil
	}

	op, known := avrMnemonicMap[mnemonic]
	if !known {
		if !ignoreErrors {
			return Instruction{}, &ParseError{Arch: ArchAVR, Mnemonic: mnemonic, Addr: d.Addr}
		}
		op = avrNOP
		mnemonic = "NOP"
	}

	inst := Instruction{
		Arch:      ArchAVR,
		Mnemonic:  mnemonic,
		Operands:  operands,
		Raw:       d.Raw,
		WordSize:  avrWordSize,
		SizeBytes: avrSize(op),
	}
	inst.IsSkip = avrIsSkip(op)
	inst.IsJump = avrIsJump(op)
	inst.IsBranch = avrIsBranch(op)
	inst.IsCall = avrIsCall(op)
	inst.IsReturn = avrIsReturn(op)
	return inst, nil
}

func avrIsSkip(op avrOp) bool {
	switch op {
	case avrCPSE, avrSBRC, avrSBRS, avrSBIC, avrSBIS:
		return true
	}
	return false
}

func avrIsJump(op avrOp) bool {
	switch op {
	case avrRJMP, avrJMP, avrIJMP:
		return true
	}
	return false
}

// avrIsBranch covers every conditional BR* mnemonic (BRBC..BRVS in the
// table above) via an explicit switch instead of a numeric range
// comparison, which would be fragile against reordering.
func avrIsBranch(op avrOp) bool {
	switch op {
	case avrBRBC, avrBRBS, avrBRCC, avrBRCS, avrBREQ, avrBRGE, avrBRHC, avrBRHS,
		avrBRID, avrBRIE, avrBRLO, avrBRLT, avrBRMI, avrBRNE, avrBRPL, avrBRSH,
		avrBRTC, avrBRTS, avrBRVC, avrBRVS:
		return true
	}
	return false
}

func avrIsCall(op avrOp) bool {
	switch op {
	case avrCALL, avrRCALL, avrICALL:
		return true
	}
	return false
}

func avrIsReturn(op avrOp) bool {
	switch op {
	case avrRET, avrRETI:
		return true
	}
	return false
}

func avrSize(op avrOp) int {
	switch op {
	case avrCALL, avrJMP, avrLDS, avrSTS:
		return 4
	case avrBYTE:
		return 1
	default:
		return 2
	}
}

// AVRTargets computes the target address set for a classified AVR
// instruction. Absolute-addressed families (CALL/JMP) read a hex
// literal operand; relative families (RCALL/RJMP, and every BR*) apply
// currentAddr + offset + wordSize, per spec.md §4.1. ICALL/IJMP have no
// statically resolvable target and return an empty slice.
func AVRTargets(inst Instruction, currentAddr uint64) ([]uint64, error) {
	switch inst.Mnemonic {
	case "CALL", "JMP":
		if len(inst.Operands) == 0 {
			return nil, fmt.Errorf("%w: %s at 0x%x missing operand", bincfgerr.ErrUnresolvableTarget, inst.Mnemonic, currentAddr)
		}
		addr, ok := AbsoluteAddr(inst.Operands[0])
		if !ok {
			return nil, fmt.Errorf("%w: %s at 0x%x", bincfgerr.ErrUnresolvableTarget, inst.Mnemonic, currentAddr)
		}
		return []uint64{addr}, nil
	case "ICALL", "IJMP":
		return nil, nil
	default:
		if inst.IsCall || inst.IsJump || inst.IsBranch {
			if len(inst.Operands) == 0 {
				return nil, fmt.Errorf("%w: %s at 0x%x missing operand", bincfgerr.ErrUnresolvableTarget, inst.Mnemonic, currentAddr)
			}
			diff, ok := RelativeDiff(inst.Operands[0], inst.WordSize)
			if !ok {
				return nil, fmt.Errorf("%w: %s at 0x%x", bincfgerr.ErrUnresolvableTarget, inst.Mnemonic, currentAddr)
			}
			return []uint64{uint64(int64(currentAddr) + diff)}, nil
		}
		return nil, nil
	}
}
