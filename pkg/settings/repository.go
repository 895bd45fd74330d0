package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the generic key-value settings store shared with the rest of the
// dashboard. Absent keys read as the empty string.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type StoreImpl struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *StoreImpl {
	return &StoreImpl{db: db}
}

func (s *StoreImpl) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRow(ctx, "SELECT value FROM settings WHERE key = $1", key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("could not query setting %s: %w", key, err)
	}
	return value, nil
}

func (s *StoreImpl) Set(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	if _, err := s.db.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("could not store setting %s: %w", key, err)
	}
	return nil
}

func (s *StoreImpl) Delete(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, "DELETE FROM settings WHERE key = $1", key); err != nil {
		return fmt.Errorf("could not delete setting %s: %w", key, err)
	}
	return nil
}
