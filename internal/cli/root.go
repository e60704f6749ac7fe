package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "termhost",
	Short: "termhost – terminal surfaces for local and web hosts",
	Long:  "termhost runs shells behind render-loop driven surfaces and shows them in the terminal or in a browser.",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default action: attach in the terminal
		return attachCmd.RunE(cmd, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
