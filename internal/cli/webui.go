package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"termhost/internal/app"
	cfg "termhost/internal/config"
)

func init() {
	rootCmd.AddCommand(webuiCmd)
	webuiCmd.Flags().StringP("addr", "a", "", "address to bind (host:port); defaults to webui.addr")
	webuiCmd.Flags().BoolP("open", "o", false, "open the browser after start")
}

var webuiCmd = &cobra.Command{
	Use:   "webui",
	Short: "Start the local Web UI server",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cfg.Load()
		if err != nil {
			return err
		}
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = c.WebUI.Addr
		}
		open, _ := cmd.Flags().GetBool("open")

		// Handle Ctrl+C
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return app.Serve(ctx, c, addr, open)
	},
}
