// Package oracle is the read-only source of asset prices and metadata.
package oracle

import (
	"context"
	"errors"
	"time"

	"pitchfeed/internal/models"
)

var (
	ErrNotFound    = errors.New("asset not found")
	ErrUnavailable = errors.New("price unavailable")
)

// Quote is a live price observation.
type Quote struct {
	AssetID string
	Price   float64
	AsOf    time.Time
}

// Oracle resolves assets. Implementations never return stale prices as live
// ones; any failure to reach the source is ErrUnavailable.
type Oracle interface {
	CurrentPrice(ctx context.Context, assetID string) (Quote, error)
	// AssetMetadata returns the snapshot fields for assetID with Price set to
	// the price at call time.
	AssetMetadata(ctx context.Context, assetID string) (models.AssetSnapshot, error)
}
