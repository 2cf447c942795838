package cart

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

// DefaultRegistrySize bounds how many open stores a Registry keeps in memory.
const DefaultRegistrySize = 10000

// Registry opens one Store per cart id. Only carts that were created or are
// already persisted are opened; the least recently used store is dropped
// once size is reached and reloaded from the port on its next use.
type Registry struct {
	mu     sync.Mutex
	port   Port
	logger logrus.FieldLogger
	stores *lru.Cache[string, *Store]
}

// NewRegistry builds a Registry over port holding at most size open stores.
func NewRegistry(port Port, size int, logger logrus.FieldLogger) *Registry {
	if size <= 0 {
		size = DefaultRegistrySize
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	r := &Registry{port: port, logger: logger}
	// lru.NewWithEvict only fails for a non-positive size.
	r.stores, _ = lru.NewWithEvict(size, func(cartID string, _ *Store) {
		r.logger.WithField("cart_id", cartID).Debug("cart registry: evicted idle store")
	})
	return r
}

// StoreKey is the persistence key of cart id.
func StoreKey(cartID string) string {
	return DefaultKey + ":" + strings.TrimSpace(cartID)
}

// Create persists an empty cart under cartID and returns its store.
func (r *Registry) Create(ctx context.Context, cartID string) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores.Get(cartID); ok {
		return s, nil
	}
	s, err := restore(ctx, r.port, StoreKey(cartID), r.logger, false)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	err = s.persist(ctx, s.items)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("create cart %s: %w", cartID, err)
	}
	r.stores.Add(cartID, s)
	return s, nil
}

// Get returns the store of cartID, restoring it from the port when it is not
// open. A cart that was never created yields domain.ErrNotFound.
func (r *Registry) Get(ctx context.Context, cartID string) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores.Get(cartID); ok {
		return s, nil
	}
	s, err := restore(ctx, r.port, StoreKey(cartID), r.logger, true)
	if err != nil {
		return nil, err
	}
	r.stores.Add(cartID, s)
	return s, nil
}

// Len reports how many stores are open.
func (r *Registry) Len() int { return r.stores.Len() }
