// Package prices resolves dates to SOL/USD prices using CoinGecko,
// with a persistent cache for historical days and a fallback when the
// API is unavailable.
package prices

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/grod220/block-parliament/internal/cache"
	"github.com/grod220/block-parliament/internal/epochs"
)

// FallbackPrice is used when no price can be fetched for a date.
// Reports built on it are flagged as approximate.
const FallbackPrice = 185.0

// recentSize bounds the in-process lookup cache. The dashboard asks for
// the same handful of dates over and over.
const recentSize = 512

// Source is the price API surface the service needs.
type Source interface {
	DailyPrices(ctx context.Context, from, to time.Time) (map[string]float64, error)
	CurrentPrice(ctx context.Context) (float64, error)
}

// Book maps dates (YYYY-MM-DD) to USD prices.
type Book map[string]float64

// Price returns the price for a date. When the exact date is missing it
// falls back to the closest known date, then to FallbackPrice.
func (b Book) Price(date string) float64 {
	if p, ok := b[date]; ok {
		return p
	}

	target, err := time.Parse(epochs.DateLayout, date)
	if err != nil {
		return FallbackPrice
	}

	closest := FallbackPrice
	closestDiff := math.MaxFloat64
	for d, p := range b {
		cached, err := time.Parse(epochs.DateLayout, d)
		if err != nil {
			continue
		}
		diff := math.Abs(target.Sub(cached).Hours())
		if diff < closestDiff {
			closestDiff = diff
			closest = p
		}
	}
	return closest
}

// Service fetches and caches daily SOL prices.
type Service struct {
	source  Source
	cache   cache.Cache
	recent  *lru.Cache[string, float64]
	minDate time.Time
	log     zerolog.Logger
}

// NewService builds a price service. Dates before minDate are ignored
// during collection; prices before the validator existed are noise.
func NewService(source Source, c cache.Cache, minDate string, log zerolog.Logger) (*Service, error) {
	md, err := time.Parse(epochs.DateLayout, minDate)
	if err != nil {
		return nil, fmt.Errorf("min date %q: %w", minDate, err)
	}
	recent, err := lru.New[string, float64](recentSize)
	if err != nil {
		return nil, err
	}
	return &Service{
		source:  source,
		cache:   c,
		recent:  recent,
		minDate: md,
		log:     log.With().Str("component", "prices").Logger(),
	}, nil
}

// Collect resolves prices for all the given dates in one pass. Already
// cached days are served locally; the rest are fetched as a single
// range query. When the fetch fails, missing days get FallbackPrice so
// report generation can still proceed.
func (s *Service) Collect(ctx context.Context, dates []string) (Book, error) {
	book := Book{}

	var missing []time.Time
	seen := map[string]bool{}
	for _, date := range dates {
		if seen[date] {
			continue
		}
		seen[date] = true

		d, err := time.Parse(epochs.DateLayout, date)
		if err != nil || d.Before(s.minDate) {
			continue
		}
		if p, ok := s.lookupCached(ctx, date); ok {
			book[date] = p
			continue
		}
		missing = append(missing, d)
	}

	if len(missing) > 0 {
		sort.Slice(missing, func(i, j int) bool { return missing[i].Before(missing[j]) })
		from, to := missing[0], missing[len(missing)-1]

		fetched, err := s.source.DailyPrices(ctx, from, to)
		if err != nil {
			s.log.Warn().Err(err).
				Int("dates", len(missing)).
				Float64("fallback", FallbackPrice).
				Msg("price fetch failed, reports may be inaccurate")
			for _, d := range missing {
				book[d.Format(epochs.DateLayout)] = FallbackPrice
			}
		} else {
			for date, price := range fetched {
				book[date] = price
				s.storeCached(ctx, date, price)
			}
		}
	}

	today := time.Now().UTC().Format(epochs.DateLayout)
	if _, ok := book[today]; !ok {
		if price, err := s.source.CurrentPrice(ctx); err == nil {
			book[today] = price
		} else {
			s.log.Warn().Err(err).Msg("current price unavailable")
		}
	}

	return book, nil
}

// PriceOn resolves a single date, preferring the in-process cache, then
// disk, then the API.
func (s *Service) PriceOn(ctx context.Context, date string) (float64, error) {
	if p, ok := s.recent.Get(date); ok {
		return p, nil
	}
	if p, ok := s.lookupCached(ctx, date); ok {
		s.recent.Add(date, p)
		return p, nil
	}

	book, err := s.Collect(ctx, []string{date})
	if err != nil {
		return 0, err
	}
	p := book.Price(date)
	s.recent.Add(date, p)
	return p, nil
}

// Current returns the live SOL price.
func (s *Service) Current(ctx context.Context) (float64, error) {
	return s.source.CurrentPrice(ctx)
}

func (s *Service) lookupCached(ctx context.Context, date string) (float64, bool) {
	data, err := s.cache.Get(ctx, "price:"+date)
	if err != nil {
		return 0, false
	}
	p, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return 0, false
	}
	return p, true
}

func (s *Service) storeCached(ctx context.Context, date string, price float64) {
	// Today's close is not final yet, so only completed days persist.
	if date >= time.Now().UTC().Format(epochs.DateLayout) {
		return
	}
	value := strconv.FormatFloat(price, 'f', -1, 64)
	if err := s.cache.Set(ctx, "price:"+date, []byte(value)); err != nil {
		s.log.Warn().Err(err).Str("date", date).Msg("cache write failed")
	}
}
