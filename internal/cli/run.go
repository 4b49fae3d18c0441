package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"bincfg/internal/colorize"
	"bincfg/internal/detect"
	"bincfg/internal/disasmreader"
	"bincfg/internal/dwarfreader"
	"bincfg/internal/export"
	"bincfg/internal/factory"
	"bincfg/internal/flow"
	"bincfg/internal/generator"
	"bincfg/internal/logging"
	"bincfg/internal/styles"
)

var (
	flagAsm            string
	flagArch           string
	flagFlowOut        string
	flagDebugOut       string
	flagElf            string
	flagIncInsn        bool
	flagIncSymb        bool
	flagIgnoreErrors   bool
	flagSuppressLog    bool
	flagListArch       bool
	flagCSVExpandCalls bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconstruct and export control-flow graphs for a disassembly file",
	Long: `run reads spec.md's address-ordered disassembly text format, builds
one Flow per discovered function, and optionally exports it as JSON,
DOT, or CSV and/or writes a --debug document combining DWARF DIE
information with re-derived instruction/symbol records.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&flagAsm, "asm", "", "Path to the address-ordered disassembly text file (required)")
	runCmd.Flags().StringVar(&flagArch, "arch", "", "Target architecture: avr or armv5 (required)")
	runCmd.Flags().StringVar(&flagFlowOut, "flow", "", "Output path for the flow export (.json, .dot, or .csv by extension)")
	runCmd.Flags().StringVar(&flagDebugOut, "debug", "", "Output path for the --debug JSON document")
	runCmd.Flags().StringVar(&flagElf, "elf", "", "Path to the ELF binary (required when --debug is set)")
	runCmd.Flags().BoolVar(&flagIncInsn, "inc-insn", false, "Include re-derived instruction records in --debug output")
	runCmd.Flags().BoolVar(&flagIncSymb, "inc-symb", false, "Include the raw symbol table in --debug output")
	runCmd.Flags().BoolVar(&flagIgnoreErrors, "ignore-errors", false, "Downgrade unknown-mnemonic/unresolvable-target errors to warnings")
	runCmd.Flags().BoolVar(&flagSuppressLog, "suppress-log", false, "Disable log output")
	runCmd.Flags().BoolVar(&flagListArch, "list-arch", false, "List supported architectures and exit")
	runCmd.Flags().BoolVar(&flagCSVExpandCalls, "csv-expand-calls", false, "Expand call-site rows in CSV output (SPEC_FULL.md §12)")
}

func runRun(cmd *cobra.Command, args []string) error {
	if flagListArch {
		for _, name := range factory.List() {
			fmt.Println(name)
		}
		return nil
	}

	if flagAsm == "" {
		return fmt.Errorf("--asm is required")
	}
	if flagArch == "" {
		return fmt.Errorf("--arch is required")
	}
	if flagDebugOut != "" && flagElf == "" {
		return fmt.Errorf("--elf is required when --debug is set")
	}

	var log *logging.LoggerCloser
	if !flagSuppressLog {
		log = logging.NewLogger()
		defer log.Close()
	}

	classifier, err := factory.Create(flagArch)
	if err != nil {
		return err
	}

	asmFile, err := os.Open(flagAsm)
	if err != nil {
		return fmt.Errorf("open %s: %w", flagAsm, err)
	}
	defer asmFile.Close()

	sections, err := disasmreader.ReadAllSections(asmFile)
	if err != nil {
		return err
	}

	var dwReader *dwarfreader.Reader
	if flagElf != "" {
		dwReader, err = dwarfreader.Open(flagElf)
		if err != nil {
			return err
		}
		defer dwReader.Close()
	}

	var flowWriter *os.File
	if flagFlowOut != "" {
		flowWriter, err = os.Create(flagFlowOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", flagFlowOut, err)
		}
		defer flowWriter.Close()
	}

	var debugWriter *os.File
	if flagDebugOut != "" {
		debugWriter, err = os.Create(flagDebugOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", flagDebugOut, err)
		}
		defer debugWriter.Close()
	}

	gen := generator.New(classifier, flagIgnoreErrors, loggerOrNil(log))
	detectors := detect.NewChain(detect.UnresolvedTargetDetector{}, detect.DeadEndDetector{})

	listing := term.IsTerminal(os.Stdout.Fd())
	var functionCount, blockCount, unresolvedCount int

	for i, sec := range sections {
		if listing {
			writeInstructionListing(os.Stderr, sec)
		}

		insns := generator.NewInsnMap(sec.Instructions)
		symb := generator.NewSymbMap(sec.Symbols)

		flows, err := gen.GenerateFlows(insns, symb)
		if err != nil {
			return fmt.Errorf("section %s: %w", sec.Name, err)
		}

		for _, addr := range flows.EntryAddrs() {
			f, _ := flows.Get(addr)
			functionCount++
			blockCount += f.BlockCount()

			for _, finding := range detectors.Detect(f) {
				if finding.Kind == "unresolved-target" {
					unresolvedCount++
				}
				if log != nil {
					log.Warnf("%s at 0x%x in %s: %s", finding.Kind, finding.Addr, f.Name(), finding.Detail)
				}
			}

			if flowWriter != nil {
				if err := writeFlow(flowWriter, f, insns, dwReader); err != nil {
					return err
				}
			}
		}

		// --debug is a whole-binary DIE-tree dump (DWARF has no notion
		// of disassembly sections); emit it once, against the first
		// section's instruction/symbol tables.
		if debugWriter != nil && i == 0 {
			opts := export.DebugOptions{IncludeInsn: flagIncInsn, IncludeSymb: flagIncSymb}
			if err := export.WriteDebug(debugWriter, dwReader, insns, symb, classifier, flagIgnoreErrors, opts); err != nil {
				return err
			}
		}
	}

	writeRunSummary(os.Stderr, flagAsm, functionCount, blockCount, unresolvedCount)
	return nil
}

// writeInstructionListing renders sec's instructions to w, one
// chroma-colorized line per instruction, in the "0xaddr  mnemonic
// operands  ; comment" layout.
func writeInstructionListing(w io.Writer, sec *disasmreader.Section) {
	fmt.Fprintf(w, "Disassembly of section %s:\n", sec.Name)
	for _, d := range sec.Instructions {
		line := fmt.Sprintf("%#08x  %s", d.Addr, d.Text)
		if d.Comment != "" {
			line += "  ; " + d.Comment
		}
		fmt.Fprintln(w, colorize.Line(line))
	}
}

// writeRunSummary renders a short glamour-rendered Markdown summary of
// the run to w, independent of any machine-readable exporter.
func writeRunSummary(w io.Writer, asmPath string, functionCount, blockCount, unresolvedCount int) {
	md := fmt.Sprintf(
		"## Summary: %s\n\n- Functions: %d\n- Basic blocks: %d\n- Unresolved targets: %d\n",
		asmPath, functionCount, blockCount, unresolvedCount,
	)

	renderer := styles.MarkdownRenderer(80)
	rendered, err := renderer.Render(md)
	if err != nil {
		rendered = md
	}
	fmt.Fprint(w, rendered)
}

func loggerOrNil(l *logging.LoggerCloser) generator.Logger {
	if l == nil {
		return nil
	}
	return l
}

// writeFlow appends one flow's export to w. A --flow output covering
// multiple discovered functions contains one such record per function,
// each self-delimiting (a JSON value, a CSV block with its own header
// comment line, or a standalone DOT digraph).
func writeFlow(w *os.File, f *flow.Flow, insns *generator.InsnMap, dw *dwarfreader.Reader) error {
	switch strings.ToLower(filepath.Ext(flagFlowOut)) {
	case ".dot":
		return export.WriteDOT(w, f)
	case ".csv":
		opts := export.DefaultCSVOptions()
		opts.ExpandCalls = flagCSVExpandCalls
		opts.HeaderPrefix = fmt.Sprintf("# %s\n# ", f.Name())
		return export.WriteCSV(w, f, insns, dw, opts)
	default:
		return export.WriteJSON(w, f)
	}
}
