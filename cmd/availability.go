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
	"github.com/example/concierge/internal/domain/reservation"
	"github.com/example/concierge/internal/orchestrator"
)

func newAvailabilityCmd() *cobra.Command {
	var (
		date      string
		timeOfDay string
		partySize int
	)

	cmd := &cobra.Command{
		Use:   "availability <restaurant>",
		Short: "Check open tables without booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hhmm := ""
			if timeOfDay != "" {
				var err error
				if hhmm, err = reservation.NormalizeTime(timeOfDay); err != nil {
					return fmt.Errorf("invalid --time: %w", err)
				}
			}

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

			result, err := a.Orchestrator.CheckAvailability(ctx, orchestrator.AvailabilityRequest{
				RestaurantName: args[0],
				Date:           date,
				Time:           hhmm,
				PartySize:      partySize,
			})
			if err != nil {
				return err
			}
			fmt.Println(result.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "reservation date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&timeOfDay, "time", "", "target time; empty lists all open slots")
	cmd.Flags().IntVar(&partySize, "party", 2, "party size")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}
