package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yoremi/kotor-go/pkg/config"
	"github.com/yoremi/kotor-go/pkg/provider"
	"github.com/yoremi/kotor-go/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve [modules...]",
	Short: "Serve game resources over HTTP",
	Long: `Serve the override folder, the given module archives and the KEY/BIF
set of the game directory, in that lookup order:

  GET /resources                 list every resource id
  GET /resources/{resref}.{ext}  fetch one resource`,
	RunE: func(cmd *cobra.Command, args []string) error {
		chain, err := provider.OpenGame(cfg.GameDir, args...)
		if err != nil {
			return err
		}
		defer chain.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.New(chain).ListenAndServe(ctx, cfg.Listen)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "127.0.0.1:8087", "address to listen on")
	_ = v.BindPFlag(config.KeyListen, serveCmd.Flags().Lookup("listen"))
}
