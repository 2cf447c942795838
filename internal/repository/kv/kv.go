// Package kv implements the durable key-value port the cart persists into.
package kv

import (
	"context"
)

// Store reads and writes opaque values. Get returns domain.ErrNotFound for missing keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
