// Package profiles reads the user profile fields the assistant consumes.
// The persistent user store belongs to the wider platform; this package is
// strictly read-only against it.
package profiles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Profile is the slice of the user record used for context composition.
type Profile struct {
	Username string `json:"username"`
	Bio      string `json:"bio,omitempty"`
}

// Store resolves a user id to their profile. A missing user is not an
// error; composition simply proceeds without a bio.
type Store interface {
	GetByID(ctx context.Context, userID string) (*Profile, error)
}

// Repository reads profiles from the platform's users table.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetByID(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	err := r.pool.QueryRow(ctx,
		`SELECT username, COALESCE(bio, '') FROM users WHERE id = $1`, userID,
	).Scan(&p.Username, &p.Bio)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching profile %s: %w", userID, err)
	}
	return &p, nil
}

// TokenOnly serves deployments without a database connection: the profile
// is whatever the identity token carried, with no bio.
type TokenOnly struct{}

func (TokenOnly) GetByID(context.Context, string) (*Profile, error) {
	return nil, nil
}
