package prices

import (
	"context"
	"time"

	"walletwatcher/internal/cache"
	"walletwatcher/internal/core"
)

const feedKey = "all"

// CachedFeed serves the upstream payload from a TTL cache so the proxy
// endpoint and the refresher share one request per interval.
type CachedFeed struct {
	client *Client
	cache  *cache.LRUCache[[]byte]
}

func NewCachedFeed(client *Client, ttl time.Duration) *CachedFeed {
	return &CachedFeed{client: client, cache: cache.NewLRUCache[[]byte](1, ttl)}
}

// Cache exposes the underlying cache for registration with a cache.Manager.
func (f *CachedFeed) Cache() *cache.LRUCache[[]byte] { return f.cache }

func (f *CachedFeed) Raw(ctx context.Context) ([]byte, error) {
	return f.cache.GetOrLoad(ctx, feedKey, f.client.FetchRaw)
}

func (f *CachedFeed) Quote(ctx context.Context) (Quote, error) {
	raw, err := f.Raw(ctx)
	if err != nil {
		return Quote{}, err
	}
	return DecodeQuote(raw)
}

// FetchSamples implements the refresher's fetcher.
func (f *CachedFeed) FetchSamples(ctx context.Context, at time.Time) ([]core.AssetPrice, error) {
	q, err := f.Quote(ctx)
	if err != nil {
		return nil, err
	}
	return Samples(q, at), nil
}
