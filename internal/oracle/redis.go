package oracle

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"pitchfeed/internal/models"

	"github.com/go-redis/redis/v8"
)

// Redis reads asset hashes written by external market-data collectors.
// Key layout: asset:<id> -> {symbol, name, class, price, market_cap, sector,
// industry, category, platform, updated_at (unix seconds)}.
type Redis struct {
	rdb    *redis.Client
	maxAge time.Duration
	now    func() time.Time
}

// NewRedis returns an oracle over rdb. Prices older than maxAge are treated
// as unavailable; zero disables the check.
func NewRedis(rdb *redis.Client, maxAge time.Duration) *Redis {
	return &Redis{rdb: rdb, maxAge: maxAge, now: time.Now}
}

func assetKey(assetID string) string {
	return fmt.Sprintf("asset:%s", assetID)
}

func (r *Redis) load(ctx context.Context, assetID string) (map[string]string, error) {
	fields, err := r.rdb.HGetAll(ctx, assetKey(assetID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", assetID, err, ErrUnavailable)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%s: %w", assetID, ErrNotFound)
	}
	return fields, nil
}

func (r *Redis) quote(assetID string, fields map[string]string) (Quote, error) {
	price, err := strconv.ParseFloat(fields["price"], 64)
	if err != nil || price <= 0 {
		return Quote{}, fmt.Errorf("%s: bad price %q: %w", assetID, fields["price"], ErrUnavailable)
	}
	asOf := r.now().UTC()
	if ts, err := strconv.ParseInt(fields["updated_at"], 10, 64); err == nil {
		asOf = time.Unix(ts, 0).UTC()
	}
	if r.maxAge > 0 && r.now().Sub(asOf) > r.maxAge {
		return Quote{}, fmt.Errorf("%s: price from %s is too old: %w", assetID, asOf.Format(time.RFC3339), ErrUnavailable)
	}
	return Quote{AssetID: assetID, Price: price, AsOf: asOf}, nil
}

func (r *Redis) CurrentPrice(ctx context.Context, assetID string) (Quote, error) {
	fields, err := r.load(ctx, assetID)
	if err != nil {
		return Quote{}, err
	}
	return r.quote(assetID, fields)
}

func (r *Redis) AssetMetadata(ctx context.Context, assetID string) (models.AssetSnapshot, error) {
	fields, err := r.load(ctx, assetID)
	if err != nil {
		return models.AssetSnapshot{}, err
	}
	q, err := r.quote(assetID, fields)
	if err != nil {
		return models.AssetSnapshot{}, err
	}
	class := models.AssetClass(fields["class"])
	if !class.Valid() {
		class = models.AssetStock
	}
	marketCap, _ := strconv.ParseFloat(fields["market_cap"], 64)
	return models.AssetSnapshot{
		AssetID:    assetID,
		Symbol:     fields["symbol"],
		Name:       fields["name"],
		Class:      class,
		Price:      q.Price,
		MarketCap:  marketCap,
		Sector:     fields["sector"],
		Industry:   fields["industry"],
		Category:   fields["category"],
		Platform:   fields["platform"],
		CapturedAt: r.now().UTC(),
	}, nil
}
