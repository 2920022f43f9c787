package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/example/concierge/internal/app"
	"github.com/example/concierge/internal/config"
	"github.com/example/concierge/internal/domain/restaurant"
)

func newRestaurantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restaurant",
		Short: "Manage the cached restaurant records",
	}
	cmd.AddCommand(newRestaurantAddCmd())
	cmd.AddCommand(newRestaurantResolveCmd())
	return cmd
}

func newRestaurantAddCmd() *cobra.Command {
	var address string
	var lat, lng float64

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a restaurant to the local cache",
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

			now := time.Now().UTC()
			r := restaurant.Restaurant{
				ID:        uuid.NewString(),
				Name:      args[0],
				Address:   address,
				Lat:       lat,
				Lng:       lng,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := a.Restaurants.Create(ctx, r); err != nil {
				return err
			}
			fmt.Printf("added %s (%s)\n", r.Name, r.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "street address, used to disambiguate search hits")
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude hint for platform search")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude hint for platform search")
	return cmd
}

func newRestaurantResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <name>",
		Short: "Resolve and cache the restaurant's venue handle on each platform",
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

			rest, err := a.Restaurants.GetByName(ctx, args[0])
			if err != nil {
				return err
			}
			for _, client := range a.Clients {
				if err := a.Auth.EnsureValidToken(ctx, client); err != nil {
					fmt.Printf("%s: skipped (%v)\n", client.Platform(), err)
					continue
				}
				handle, err := a.Resolver.Resolve(ctx, &rest, client)
				switch {
				case err != nil:
					fmt.Printf("%s: error (%v)\n", client.Platform(), err)
				case handle == "":
					fmt.Printf("%s: not found\n", client.Platform())
				default:
					fmt.Printf("%s: %s\n", client.Platform(), handle)
				}
			}
			return nil
		},
	}
}
