package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bincfg/internal/factory"
)

var listArchCmd = &cobra.Command{
	Use:   "list-arch",
	Short: "List supported target architectures",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range factory.List() {
			fmt.Println(name)
		}
		return nil
	},
}
