package colorize

import (
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// noColorEnv disables colorization, mirroring the teacher's
// REVERSE_NO_COLOR, renamed to bincfg's namespace.
const noColorEnv = "BINCFG_NO_COLOR"

func disabled() bool {
	return os.Getenv(noColorEnv) != ""
}

func getAssemblyLexer() chroma.Lexer {
	for _, name := range []string{"gas", "GAS", "Gas", "nasm", "armasm"} {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

func getDisasmStyle() *chroma.Style {
	for _, name := range []string{"bincfg-disasm-dark", "disasm-dark", "dracula", "monokai"} {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

func getTerminalFormatter() chroma.Formatter {
	for _, name := range []string{"terminal16m", "terminal256"} {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// Line applies chroma syntax highlighting to a single rendered
// instruction line of the form "0xaddr  mnemonic operands  ; comment",
// the layout of the run command's instruction listing.
func Line(line string) string {
	if disabled() {
		return line
	}

	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, ";") {
		return line
	}

	parts := strings.SplitN(line, " ", 2)
	if len(parts) < 2 || !isHexAddr(parts[0]) {
		return colorizeFullLine(line)
	}

	addr := "\033[38;2;79;79;79m" + parts[0] + "\033[0m"
	return addr + " " + colorizeFullLine(parts[1])
}

func isHexAddr(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if !((ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')) {
			return false
		}
	}
	return true
}

func colorizeFullLine(line string) string {
	if disabled() {
		return line
	}

	lexer := getAssemblyLexer()
	if lexer == nil {
		return line
	}

	style := getDisasmStyle()
	formatter := getTerminalFormatter()

	iterator, err := lexer.Tokenise(nil, line)
	if err != nil {
		return line
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return line
	}
	return buf.String()
}
