package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cfg "termhost/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSchemaCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Initialise config.yaml and print its location",
	Long:  "Creates ~/.termhost/config.yaml with default values when missing, normalises an existing one, and prints the path.",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := cfg.Path()
		if err != nil {
			return err
		}
		existed := fileExists(p)
		c, err := cfg.Load()
		if err != nil {
			return err
		}
		if err := cfg.Save(c); err != nil {
			return err
		}
		if existed {
			fmt.Fprintf(cmd.OutOrStdout(), "• config.yaml normalised: %s\n", p)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ created config.yaml: %s\n", p)
		}
		return nil
	},
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of config.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := cfg.MarshalSchema(cfg.Schema())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

func fileExists(path string) bool {
	if st, err := os.Stat(path); err == nil && !st.IsDir() {
		return true
	}
	return false
}
