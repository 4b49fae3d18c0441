// Package colorize applies chroma syntax highlighting to rendered AVR
// and ARMv5 instruction lines, grounded on internal/ui/colorize from
// the teacher repo.
package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

func init() {
	_ = DisasmDark
}

// DisasmDark is a custom chroma style matching bincfg's disassembly
// color scheme: instructions/operators in white, registers in teal,
// immediates in pink, labels in gold, strings in gold-yellow.
var DisasmDark = styles.Register(chroma.MustNewStyle("bincfg-disasm-dark", chroma.StyleEntries{
	chroma.Text:           "#FFFFFF",
	chroma.Background:     "bg:#1e1e1e",
	chroma.Comment:        "#7C8B8D",
	chroma.CommentPreproc: "#7C8B8D",

	chroma.Keyword:       "#FFFFFF",
	chroma.KeywordPseudo: "#FFFFFF",
	chroma.Name:          "#7C9C9D",
	chroma.NameBuiltin:   "#7C9C9D",
	chroma.NameVariable:  "#7C9C9D",

	chroma.LiteralNumber:        "#FF5F87",
	chroma.LiteralNumberHex:     "#FF5F87",
	chroma.LiteralNumberBin:     "#FF5F87",
	chroma.LiteralNumberOct:     "#FF5F87",
	chroma.LiteralNumberInteger: "#FF5F87",
	chroma.LiteralNumberFloat:   "#FF5F87",

	chroma.NameLabel:    "#FFD700",
	chroma.NameFunction: "#FFFFFF",

	chroma.Operator:    "#FFFFFF",
	chroma.Punctuation: "#FFFFFF",

	chroma.String: "#EACD53",
}))
