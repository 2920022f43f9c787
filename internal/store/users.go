package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/concierge/internal/db"
)

// User is a local operator account for the web UI.
type User struct {
	ID           string
	Username     string
	PasswordHash []byte
	CreatedAt    time.Time
}

type Users struct {
	db *db.DB
}

func NewUsers(d *db.DB) *Users { return &Users{db: d} }

func (s *Users) Create(ctx context.Context, username, password string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	u := User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	err = s.db.Exec(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES ($1,$2,$3,$4)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt,
	)
	return u, err
}

func (s *Users) GetByUsername(ctx context.Context, username string) (User, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username=$1`, username)
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		return User{}, db.WrapNotFound(err)
	}
	return u, nil
}

// Authenticate verifies the password against the stored bcrypt hash.
func (s *Users) Authenticate(ctx context.Context, username, password string) (User, error) {
	u, err := s.GetByUsername(ctx, username)
	if err != nil {
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return User{}, err
	}
	return u, nil
}
