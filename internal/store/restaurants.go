// Package store holds the Postgres-backed repositories.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/example/concierge/internal/db"
	"github.com/example/concierge/internal/domain/reservation"
	"github.com/example/concierge/internal/domain/restaurant"
)

type Restaurants struct {
	db *db.DB
}

func NewRestaurants(d *db.DB) *Restaurants { return &Restaurants{db: d} }

const restaurantCols = `id, name, address, lat, lng, resy_venue_id, opentable_venue_id, created_at, updated_at`

func (s *Restaurants) Create(ctx context.Context, r restaurant.Restaurant) error {
	return s.db.Exec(ctx, `
		INSERT INTO restaurants (`+restaurantCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		r.ID, r.Name, r.Address, r.Lat, r.Lng,
		r.ResyVenueID, r.OpenTableVenueID, r.CreatedAt, r.UpdatedAt,
	)
}

func (s *Restaurants) GetByName(ctx context.Context, name string) (restaurant.Restaurant, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+restaurantCols+` FROM restaurants WHERE lower(name)=lower($1)`, name)
	return scanRestaurant(row)
}

func (s *Restaurants) GetByID(ctx context.Context, id string) (restaurant.Restaurant, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+restaurantCols+` FROM restaurants WHERE id=$1`, id)
	return scanRestaurant(row)
}

// UpdateHandle persists one platform's resolved venue handle. Only that
// platform's column is touched.
func (s *Restaurants) UpdateHandle(ctx context.Context, restaurantID string, platform reservation.Platform, handle string) error {
	var col string
	switch platform {
	case reservation.PlatformResy:
		col = "resy_venue_id"
	case reservation.PlatformOpenTable:
		col = "opentable_venue_id"
	default:
		return fmt.Errorf("unknown platform %q", platform)
	}
	return s.db.Exec(ctx,
		`UPDATE restaurants SET `+col+`=$1, updated_at=$2 WHERE id=$3`,
		handle, time.Now().UTC(), restaurantID,
	)
}

func scanRestaurant(row db.Row) (restaurant.Restaurant, error) {
	var r restaurant.Restaurant
	err := row.Scan(&r.ID, &r.Name, &r.Address, &r.Lat, &r.Lng,
		&r.ResyVenueID, &r.OpenTableVenueID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return restaurant.Restaurant{}, db.WrapNotFound(err)
	}
	return r, nil
}
