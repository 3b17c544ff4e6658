package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/cardlink/internal/auth"
	"github.com/jason-s-yu/cardlink/internal/rating"
)

// Account is one row of the accounts table.
type Account struct {
	Name   string
	Rating rating.Rating
}

// CreateAccount inserts name with an argon2id hash of password and the
// default rating.
func (s *Store) CreateAccount(ctx context.Context, name, password string) error {
	hash, err := auth.HashPassword(password, auth.DefaultHashParams)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	r := rating.Default()

	q := `INSERT INTO accounts (name, password, rating, deviation, volatility)
	      VALUES ($1, $2, $3, $4, $5)`
	err = pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q, name, hash, r.Value, r.Deviation, r.Volatility)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// VerifyPassword checks password against the stored hash. An unknown
// account is created with password on first use.
func (s *Store) VerifyPassword(ctx context.Context, name, password string) (bool, error) {
	var hash string
	err := s.pool.QueryRow(ctx, `SELECT password FROM accounts WHERE name=$1`, name).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		if err := s.CreateAccount(ctx, name, password); err != nil {
			return false, err
		}
		s.log.WithField("account", name).Info("created account")
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("query account: %w", err)
	}
	return auth.CheckPassword(password, hash)
}

// GetAccount loads name.
func (s *Store) GetAccount(ctx context.Context, name string) (*Account, error) {
	a := Account{Name: name}
	q := `SELECT rating, deviation, volatility FROM accounts WHERE name=$1`
	err := s.pool.QueryRow(ctx, q, name).Scan(&a.Rating.Value, &a.Rating.Deviation, &a.Rating.Volatility)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
