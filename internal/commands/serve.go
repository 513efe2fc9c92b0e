package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go.aimuz.me/livetrans/internal/app"
	"go.aimuz.me/livetrans/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the translator to browsers",
	Long: `Start the HTTP server.

Endpoints:
  GET  /ws              WebSocket session for the browser page
  POST /api/translate   one-shot translation as newline-delimited JSON
  GET  /healthz         liveness probe`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Shutdown()

		srv := server.New(a, server.Options{AllowedOrigins: cfg.Server.AllowedOrigins})
		return srv.Run(ctx, cfg.Server.Addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
