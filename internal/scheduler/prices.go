package scheduler

import (
	"context"
	"sync"
	"time"

	"walletwatcher/internal/core"
	"walletwatcher/internal/log"
	"walletwatcher/internal/markers"
)

// SampleFetcher returns the current price samples stamped with at.
type SampleFetcher interface {
	FetchSamples(ctx context.Context, at time.Time) ([]core.AssetPrice, error)
}

// SampleSink stores price samples, returning how many were kept.
type SampleSink interface {
	AddAssetPriceSamples(ctx context.Context, samples []core.AssetPrice) (int, error)
}

type RefreshResult struct {
	Ran    bool
	Stored int
}

// PriceRefresher refetches asset prices when more than the configured
// interval has elapsed since the last successful fetch. There is no backoff:
// a failed fetch is retried on the next call.
type PriceRefresher struct {
	fetcher SampleFetcher
	sink    SampleSink
	markers markers.Store
	cfg     settings
	mu      sync.Mutex
}

func NewPriceRefresher(f SampleFetcher, sink SampleSink, m markers.Store, opts ...Option) *PriceRefresher {
	cfg := apply(opts)
	cfg.logger = cfg.logger.WithComponent(log.ComponentPrices)
	return &PriceRefresher{fetcher: f, sink: sink, markers: m, cfg: cfg}
}

// Due reports whether a fetch should happen at now.
func (p *PriceRefresher) Due(ctx context.Context, now time.Time) bool {
	raw, ok, err := p.markers.Get(ctx, PriceMarkerKey)
	if err != nil {
		p.cfg.logger.ErrorContext(ctx, "Failed to read price marker", log.FieldError, err)
		return true
	}
	if !ok {
		return true
	}
	last, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		p.cfg.logger.WarnContext(ctx, "Ignoring malformed price marker", log.FieldMarker, raw)
		return true
	}
	return now.Sub(last) > p.cfg.interval
}

func (p *PriceRefresher) Run(ctx context.Context) RefreshResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.cfg.now()
	logger := p.cfg.logger
	if !p.Due(ctx, now) {
		logger.DebugContext(ctx, "Skipping price fetch, interval not elapsed")
		return RefreshResult{}
	}

	samples, err := p.fetcher.FetchSamples(ctx, now)
	if err != nil {
		logger.ErrorContext(ctx, "Price fetch failed", log.FieldError, err, log.FieldOperation, log.OpRefresh)
		return RefreshResult{}
	}
	stored, err := p.sink.AddAssetPriceSamples(ctx, samples)
	if err != nil {
		logger.ErrorContext(ctx, "Storing price samples failed", log.FieldError, err, log.FieldCount, stored)
		return RefreshResult{}
	}

	if err := p.markers.Set(ctx, PriceMarkerKey, now.UTC().Format(time.RFC3339Nano)); err != nil {
		logger.ErrorContext(ctx, "Failed to write price marker", log.FieldError, err)
	}
	for _, s := range samples {
		logger.DebugContext(ctx, "Asset price sample", log.FieldSymbol, s.Symbol, "price", s.Price)
	}
	logger.InfoContext(ctx, "Stored latest asset prices", log.FieldCount, stored)
	return RefreshResult{Ran: true, Stored: stored}
}
