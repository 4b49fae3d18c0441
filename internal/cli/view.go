package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/spf13/cobra"

	"bincfg/internal/tui"
)

var viewCmd = &cobra.Command{
	Use:   "view <flow.json>",
	Short: "Browse a previously-exported JSON flow in an interactive TUI",
	Long: `view opens a flow document written by "bincfg run --flow out.json"
and lets you browse its basic blocks, address ranges, callees, and
successor edges interactively.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := tui.LoadFlow(args[0])
		if err != nil {
			return err
		}

		program := tea.NewProgram(
			tui.New(args[0], doc),
			tea.WithAltScreen(),
			tea.WithContext(cmd.Context()),
		)

		if _, err := program.Run(); err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	},
}
