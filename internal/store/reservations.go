package store

import (
	"context"
	"time"

	"github.com/example/concierge/internal/db"
	"github.com/example/concierge/internal/domain/reservation"
)

type Reservations struct {
	db *db.DB
}

func NewReservations(d *db.DB) *Reservations { return &Reservations{db: d} }

const reservationCols = `id, restaurant_id, restaurant_name, platform, confirmation_id,
	date, time, party_size, special_request, status, created_at, cancelled_at`

func (s *Reservations) Create(ctx context.Context, r reservation.Reservation) error {
	return s.db.Exec(ctx, `
		INSERT INTO reservations (`+reservationCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		r.ID, r.RestaurantID, r.RestaurantName, r.Platform, r.ConfirmationID,
		r.Date, r.Time, r.PartySize, r.SpecialRequest, r.Status, r.CreatedAt, r.CancelledAt,
	)
}

func (s *Reservations) GetByConfirmationID(ctx context.Context, confirmationID string) (reservation.Reservation, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE confirmation_id=$1`, confirmationID)
	return scanReservation(row)
}

// ListUpcoming returns confirmed reservations, newest booking first.
func (s *Reservations) ListUpcoming(ctx context.Context) ([]reservation.Reservation, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+reservationCols+` FROM reservations
		WHERE status=$1
		ORDER BY created_at DESC`, reservation.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reservation.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Reservations) ListAll(ctx context.Context) ([]reservation.Reservation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+reservationCols+` FROM reservations ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reservation.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Reservations) MarkCancelled(ctx context.Context, id string, at time.Time) error {
	return s.db.Exec(ctx, `
		UPDATE reservations SET status=$1, cancelled_at=$2 WHERE id=$3`,
		reservation.StatusCancelled, at, id,
	)
}

func scanReservation(row db.Row) (reservation.Reservation, error) {
	var r reservation.Reservation
	err := row.Scan(&r.ID, &r.RestaurantID, &r.RestaurantName, &r.Platform, &r.ConfirmationID,
		&r.Date, &r.Time, &r.PartySize, &r.SpecialRequest, &r.Status, &r.CreatedAt, &r.CancelledAt)
	if err != nil {
		return reservation.Reservation{}, db.WrapNotFound(err)
	}
	return r, nil
}
