package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"go_branch_chat/bootstrap"
	"go_branch_chat/config"
	"go_branch_chat/pkg/logging"
)

func newServeCommand() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			if port != "" {
				cfg.HttpPort = port
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := bootstrap.NewApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Shutdown(); err != nil {
					logging.Logger.Error().Err(err).Msg("fail Shutdown")
				}
			}()

			server := app.NewServer()
			errCh := make(chan error, 1)
			go func() {
				logging.Logger.Info().Str("port", cfg.HttpPort).Msg("Server running on http://localhost:" + cfg.HttpPort)
				errCh <- server.Listen(":" + cfg.HttpPort)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logging.Logger.Info().Msg("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return server.ShutdownWithContext(shutdownCtx)
			}
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	return cmd
}
