package export

import (
	"encoding/json"
	"io"

	"bincfg/internal/dwarfreader"
	"bincfg/internal/generator"
)

// DebugOptions controls which optional sections --debug populates,
// mirroring the --inc-insn/--inc-symb CLI flags of spec.md §6.
type DebugOptions struct {
	IncludeInsn bool
	IncludeSymb bool
}

type debugInstruction struct {
	Addr     uint64   `json:"Addr"`
	Mnemonic string   `json:"Mnemonic"`
	Operands []string `json:"Operands,omitempty"`
	Targets  []uint64 `json:"Targets,omitempty"`
}

type debugDocument struct {
	Instructions []debugInstruction      `json:"Instructions,omitempty"`
	Symbols      map[string]uint64       `json:"Symbols,omitempty"`
	Dies         []*dwarfreader.DieNode  `json:"Dies,omitempty"`
}

// Classifier is the subset of generator.Classifier the debug exporter
// needs to re-derive each instruction's mnemonic/operands/targets for
// the --inc-insn supplement.
type Classifier = generator.Classifier

// WriteDebug renders the --debug JSON document: DWARF DIE tree always,
// plus re-derived instruction records (--inc-insn) and the raw symbol
// table (--inc-symb), per SPEC_FULL.md §12 items 1-2.
func WriteDebug(w io.Writer, dw *dwarfreader.Reader, insns *generator.InsnMap, symbols *generator.SymbMap, classifier Classifier, ignoreErrors bool, opts DebugOptions) error {
	doc := debugDocument{}
	if dw != nil {
		doc.Dies = dw.DieTree()
	}

	if opts.IncludeInsn && insns != nil && classifier != nil {
		for _, addr := range insns.Keys() {
			d, _ := insns.Get(addr)
			inst, err := classifier.Classify(d, ignoreErrors)
			if err != nil {
				continue
			}
			rec := debugInstruction{Addr: addr, Mnemonic: inst.Mnemonic, Operands: inst.Operands}
			if inst.ControlFlow() {
				if targets, err := classifier.Targets(inst, addr); err == nil {
					rec.Targets = targets
				}
			}
			doc.Instructions = append(doc.Instructions, rec)
		}
	}

	if opts.IncludeSymb && symbols != nil {
		doc.Symbols = make(map[string]uint64)
		for _, addr := range allSymbolAddrs(symbols) {
			if name, ok := symbols.Lookup(addr); ok {
				doc.Symbols[name] = addr
			}
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func allSymbolAddrs(symbols *generator.SymbMap) []uint64 {
	return symbols.Keys()
}
