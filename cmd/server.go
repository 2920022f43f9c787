package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/concierge/internal/app"
	"github.com/example/concierge/internal/config"
	"github.com/example/concierge/internal/web"
)

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Run the operator web UI and metrics endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if err := cfg.RequireCookieKeys(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ws := &web.Server{
				Sessions:     web.NewSessions(cfg.CookieHashKey, cfg.CookieBlockKey),
				Users:        a.Users,
				Reservations: a.Reservations,
				Breakers:     a.Breakers,
				Metrics:      a.Metrics.Handler(),
				Log:          a.Log,
			}
			a.Log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
			return web.Start(ctx, cfg.ListenAddr, ws.Routes())
		},
	}
}
