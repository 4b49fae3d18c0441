// Package cli implements bincfg's cobra command tree: run, list-arch,
// schema, and view. Grounded on the reference tool's internal/reverse/cmd
// package (rootCmd + fang.Execute dispatch), stripped of its
// XXTEA/decrypt/find-signature-specific subcommands and flags.
package cli

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bincfg",
	Short: "Reconstruct control-flow graphs from AVR/ARMv5 disassembly",
	Long: `bincfg reconstructs per-function control-flow graphs from
address-ordered ELF disassembly text and optional DWARF debug info, for
embedded AVR (stable) and ARMv5 (experimental) targets.`,
	Example: `
# Build a flow graph and export it as JSON
bincfg run --asm fw.asm --arch avr --flow fw.json

# Include DWARF line info and a DIE-tree debug dump
bincfg run --asm fw.asm --arch armv5 --elf fw.elf --debug fw.debug.json
  `,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listArchCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(viewCmd)
}

// Execute runs the CLI. It matches the reference tool's Execute(): use
// fang for interactive terminals (markdown-rendered help, signal
// handling), fall back to plain cobra when output is piped so scripts
// parsing stdout don't see ANSI escapes.
func Execute() {
	if !term.IsTerminal(os.Stdout.Fd()) {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := fang.Execute(context.Background(), rootCmd, fang.WithNotifySignal(os.Interrupt)); err != nil {
		os.Exit(1)
	}
}
