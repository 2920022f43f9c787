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

func newBookCmd() *cobra.Command {
	var (
		date           string
		timeOfDay      string
		partySize      int
		specialRequest string
	)

	cmd := &cobra.Command{
		Use:   "book <restaurant>",
		Short: "Book a table, trying Resy first, then OpenTable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hhmm, err := reservation.NormalizeTime(timeOfDay)
			if err != nil {
				return fmt.Errorf("invalid --time: %w", err)
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

			result, err := a.Orchestrator.Book(ctx, orchestrator.BookRequest{
				RestaurantName: args[0],
				Date:           date,
				Time:           hhmm,
				PartySize:      partySize,
				SpecialRequest: specialRequest,
			})
			if err != nil {
				return err
			}
			printResult(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "reservation date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&timeOfDay, "time", "19:00", "reservation time (HH:MM or 7:00 PM)")
	cmd.Flags().IntVar(&partySize, "party", 2, "party size")
	cmd.Flags().StringVar(&specialRequest, "note", "", "special request passed to the restaurant")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func printResult(r orchestrator.Result) {
	if r.Reservation != nil {
		res := r.Reservation
		fmt.Printf("Booked %s on %s, %s at %s for %d (confirmation %s)\n",
			res.RestaurantName, res.Platform, res.Date, reservation.To12Hour(res.Time), res.PartySize, res.ConfirmationID)
		return
	}
	fmt.Println(r.Message)
	for _, l := range r.DeepLinks {
		fmt.Printf("  %s: %s\n", l.Platform, l.URL)
	}
}
