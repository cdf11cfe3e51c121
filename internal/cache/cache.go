package cache

import (
	"context"
	"time"

	"titipjual/backend/internal/domain"
)

// AvailabilityCache serves the storefront read path only. Cached entries are
// point-in-time and may lag the ledger by up to their TTL; reservation and
// settlement gating always read the repository directly.
type AvailabilityCache interface {
	Get(ctx context.Context, key string) (*domain.ItemAvailability, bool, error)
	Set(ctx context.Context, key string, value *domain.ItemAvailability, ttl time.Duration) error
}

type NoopAvailabilityCache struct{}

func (NoopAvailabilityCache) Get(_ context.Context, _ string) (*domain.ItemAvailability, bool, error) {
	return nil, false, nil
}

func (NoopAvailabilityCache) Set(_ context.Context, _ string, _ *domain.ItemAvailability, _ time.Duration) error {
	return nil
}
