package geo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedGeocoder memoises successful lookups of next in Redis.  Redis
// failures fall through to next.
type CachedGeocoder struct {
	next   Geocoder
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewCachedGeocoder(next Geocoder, rdb *redis.Client, ttl time.Duration) *CachedGeocoder {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedGeocoder{next: next, rdb: rdb, ttl: ttl, prefix: "tripshare:geo:"}
}

func (c *CachedGeocoder) Geocode(ctx context.Context, city string) (Point, error) {
	key := c.prefix + normalize(city)
	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var p Point
		if json.Unmarshal(raw, &p) == nil {
			return p, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return c.next.Geocode(ctx, city)
	}

	p, err := c.next.Geocode(ctx, city)
	if err != nil {
		return Point{}, err
	}
	if raw, err := json.Marshal(p); err == nil {
		_ = c.rdb.Set(ctx, key, raw, c.ttl).Err()
	}
	return p, nil
}
