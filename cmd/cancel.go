package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/concierge/internal/app"
	"github.com/example/concierge/internal/config"
)

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <confirmation-id-or-restaurant>",
		Short: "Cancel a reservation by confirmation id or restaurant name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Orchestrator.Cancel(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Cancelled %s on %s (confirmation %s)\n",
				res.RestaurantName, res.Platform, res.ConfirmationID)
			return nil
		},
	}
}
