package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/zora/internal/domain/user"
	"github.com/geocoder89/zora/internal/observability"
	"github.com/jackc/pgx/v5"
)

type UsersRepo struct {
	db   DBTX
	prom *observability.Prom
}

func NewUsersRepo(db DBTX, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{db: db, prom: prom}
}

// Create inserts a user. The unique constraint on email decides races between
// concurrent registrations; the loser gets user.ErrEmailTaken.
func (r *UsersRepo) Create(ctx context.Context, email, passwordHash string) (user.User, error) {
	u := user.User{PasswordHash: passwordHash}

	err := r.prom.ObserveDB("users.create", func() error {
		return r.db.QueryRow(
			ctx,
			`INSERT INTO users (email, password_hash)
			VALUES ($1, $2)
			RETURNING id, email, created_at`,
			email,
			passwordHash,
		).Scan(&u.ID, &u.Email, &u.CreatedAt)
	})

	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, fmt.Errorf("create user: %w", err)
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.get_by_email", func() error {
		return r.db.QueryRow(
			ctx,
			`SELECT id, email, password_hash, created_at
			FROM users
			WHERE email = $1`,
			email,
		).Scan(
			&u.ID,
			&u.Email,
			&u.PasswordHash,
			&u.CreatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.get_by_id", func() error {
		return r.db.QueryRow(
			ctx,
			`SELECT id, email, password_hash, created_at
			FROM users
			WHERE id = $1`,
			id,
		).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}
