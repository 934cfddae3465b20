package oracle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pitchfeed/internal/models"
)

// Static serves a fixed asset table. It backs the in-memory demo and tests.
type Static struct {
	mu          sync.RWMutex
	assets      map[string]models.AssetSnapshot
	unavailable map[string]bool
	now         func() time.Time
}

func NewStatic(assets ...models.AssetSnapshot) *Static {
	s := &Static{
		assets:      make(map[string]models.AssetSnapshot),
		unavailable: make(map[string]bool),
		now:         time.Now,
	}
	for _, a := range assets {
		s.assets[a.AssetID] = a
	}
	return s
}

// Put adds or replaces an asset.
func (s *Static) Put(a models.AssetSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[a.AssetID] = a
}

// SetPrice moves the live price of a known asset.
func (s *Static) SetPrice(assetID string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.assets[assetID]
	a.Price = price
	s.assets[assetID] = a
}

// SetUnavailable makes price lookups for assetID fail.
func (s *Static) SetUnavailable(assetID string, down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable[assetID] = down
}

func (s *Static) CurrentPrice(ctx context.Context, assetID string) (Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.unavailable[assetID] {
		return Quote{}, fmt.Errorf("%s: %w", assetID, ErrUnavailable)
	}
	a, ok := s.assets[assetID]
	if !ok {
		return Quote{}, fmt.Errorf("%s: %w", assetID, ErrNotFound)
	}
	return Quote{AssetID: assetID, Price: a.Price, AsOf: s.now().UTC()}, nil
}

func (s *Static) AssetMetadata(ctx context.Context, assetID string) (models.AssetSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assets[assetID]
	if !ok {
		return models.AssetSnapshot{}, fmt.Errorf("%s: %w", assetID, ErrNotFound)
	}
	if s.unavailable[assetID] {
		return models.AssetSnapshot{}, fmt.Errorf("%s: %w", assetID, ErrUnavailable)
	}
	a.CapturedAt = s.now().UTC()
	return a, nil
}
