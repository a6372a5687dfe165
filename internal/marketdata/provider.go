package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrSourceUnavailable wraps any transport or upstream failure of the
// simulation source. Handlers map it to a 503.
var ErrSourceUnavailable = errors.New("marketdata: simulation source unavailable")

func sourceUnavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
}

// Provider serves simulation data regardless of where it comes from: the
// live simulation API or the postgres archive bounded by the replay clock.
type Provider interface {
	Series(ctx context.Context, req SeriesRequest) (Series, error)
	Assets(ctx context.Context, currency string) ([]string, error)
	Currencies(ctx context.Context) ([]string, error)
	Status(ctx context.Context) (SimStatus, error)
}

const (
	assetsKeyPrefix = "assets|"
	currenciesKey   = "currencies"
	statusKey       = "status"
)

// CachedProvider decorates a Provider with TTL caches. Series and status
// responses use the short TTL, asset and currency listings the long one.
// InvalidateAll empties everything and is hooked to day-advance events.
type CachedProvider struct {
	src Provider

	series   *Cache[Series]
	listings *Cache[[]string]
	status   *Cache[SimStatus]
	shortTTL time.Duration
	longTTL  time.Duration
}

// NewCachedProvider wraps src. shortTTL guards series/status, longTTL
// guards the asset and currency listings.
func NewCachedProvider(src Provider, shortTTL, longTTL time.Duration) *CachedProvider {
	return &CachedProvider{
		src:      src,
		series:   NewCache[Series](),
		listings: NewCache[[]string](),
		status:   NewCache[SimStatus](),
		shortTTL: shortTTL,
		longTTL:  longTTL,
	}
}

// InvalidateAll drops every cached value so the next reads hit the source.
func (p *CachedProvider) InvalidateAll() {
	p.series.Clear()
	p.listings.Clear()
	p.status.Clear()
}

func (p *CachedProvider) Series(ctx context.Context, req SeriesRequest) (Series, error) {
	key := req.Key()
	if s, ok := p.series.Get(key); ok {
		return s, nil
	}
	s, err := p.src.Series(ctx, req)
	if err != nil {
		return Series{}, err
	}
	p.series.Set(key, s, p.shortTTL)
	return s, nil
}

func (p *CachedProvider) Assets(ctx context.Context, currency string) ([]string, error) {
	key := assetsKeyPrefix + currency
	if v, ok := p.listings.Get(key); ok {
		return v, nil
	}
	v, err := p.src.Assets(ctx, currency)
	if err != nil {
		return nil, err
	}
	p.listings.Set(key, v, p.longTTL)
	return v, nil
}

func (p *CachedProvider) Currencies(ctx context.Context) ([]string, error) {
	if v, ok := p.listings.Get(currenciesKey); ok {
		return v, nil
	}
	v, err := p.src.Currencies(ctx)
	if err != nil {
		return nil, err
	}
	p.listings.Set(currenciesKey, v, p.longTTL)
	return v, nil
}

func (p *CachedProvider) Status(ctx context.Context) (SimStatus, error) {
	if v, ok := p.status.Get(statusKey); ok {
		return v, nil
	}
	v, err := p.src.Status(ctx)
	if err != nil {
		return SimStatus{}, err
	}
	p.status.Set(statusKey, v, p.shortTTL)
	return v, nil
}
