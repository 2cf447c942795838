package kv

import (
	"context"
	"errors"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"variantcart/internal/domain"
)

type postgresStore struct {
	pool   *pgxpool.Pool
	logger logrus.FieldLogger
}

// NewPostgres stores values in the kv_store table.
func NewPostgres(pool *pgxpool.Pool, logger logrus.FieldLogger) Store {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &postgresStore{pool: pool, logger: logger}
}

func (s *postgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `
SELECT value::text
FROM kv_store
WHERE key = $1
`
	var value string
	if err := s.pool.QueryRow(ctx, q, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Error("kv repo: get failed")
		return nil, err
	}
	return []byte(value), nil
}

// Set upserts value, which must be valid JSON.
func (s *postgresStore) Set(ctx context.Context, key string, value []byte) error {
	const q = `
INSERT INTO kv_store (key, value, updated_at)
VALUES ($1, $2::jsonb, now())
ON CONFLICT (key) DO UPDATE SET
    value = EXCLUDED.value,
    updated_at = EXCLUDED.updated_at
`
	if _, err := s.pool.Exec(ctx, q, key, string(value)); err != nil {
		s.logger.WithFields(logrus.Fields{"key": key, "bytes": len(value)}).WithError(err).Error("kv repo: set failed")
		return err
	}
	return nil
}

func (s *postgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, key)
	return err
}
