package prices

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grod220/block-parliament/internal/cache"
)

type fakeSource struct {
	daily      map[string]float64
	dailyErr   error
	dailyCalls int

	current     float64
	currentErr  error
	currentCall int
}

func (f *fakeSource) DailyPrices(_ context.Context, _, _ time.Time) (map[string]float64, error) {
	f.dailyCalls++
	return f.daily, f.dailyErr
}

func (f *fakeSource) CurrentPrice(_ context.Context) (float64, error) {
	f.currentCall++
	return f.current, f.currentErr
}

func newTestService(t *testing.T, source *fakeSource) *Service {
	t.Helper()

	c, err := cache.New(context.Background(), &cache.Config{
		Mode: cache.ModeDisk,
		Disk: cache.DiskConfig{Path: t.TempDir()},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	svc, err := NewService(source, c, "2025-11-01", zerolog.Nop())
	require.NoError(t, err)
	return svc
}

func TestBookPrice(t *testing.T) {
	t.Parallel()

	book := Book{
		"2026-01-01": 220.0,
		"2026-01-10": 200.0,
	}

	assert.InDelta(t, 220.0, book.Price("2026-01-01"), 1e-9, "exact hit")
	assert.InDelta(t, 220.0, book.Price("2026-01-03"), 1e-9, "closest is Jan 1")
	assert.InDelta(t, 200.0, book.Price("2026-01-08"), 1e-9, "closest is Jan 10")
	assert.InDelta(t, FallbackPrice, book.Price("not-a-date"), 1e-9)
	assert.InDelta(t, FallbackPrice, Book{}.Price("2026-01-01"), 1e-9, "empty book")
}

func TestCollect(t *testing.T) {
	t.Parallel()

	source := &fakeSource{
		daily:   map[string]float64{"2026-01-01": 220.0, "2026-01-02": 215.0},
		current: 230.0,
	}
	svc := newTestService(t, source)

	book, err := svc.Collect(context.Background(), []string{"2026-01-01", "2026-01-02", "2026-01-01"})
	require.NoError(t, err)

	assert.InDelta(t, 220.0, book["2026-01-01"], 1e-9)
	assert.InDelta(t, 215.0, book["2026-01-02"], 1e-9)
	assert.Equal(t, 1, source.dailyCalls, "duplicate dates collapse into one range fetch")

	today := time.Now().UTC().Format("2006-01-02")
	assert.InDelta(t, 230.0, book[today], 1e-9, "current price always included")
}

func TestCollectServedFromCache(t *testing.T) {
	t.Parallel()

	source := &fakeSource{
		daily:   map[string]float64{"2026-01-01": 220.0},
		current: 230.0,
	}
	svc := newTestService(t, source)

	_, err := svc.Collect(context.Background(), []string{"2026-01-01"})
	require.NoError(t, err)

	book, err := svc.Collect(context.Background(), []string{"2026-01-01"})
	require.NoError(t, err)

	assert.InDelta(t, 220.0, book["2026-01-01"], 1e-9)
	assert.Equal(t, 1, source.dailyCalls, "second pass hits the disk cache")
}

func TestCollectDatesBeforeMinSkipped(t *testing.T) {
	t.Parallel()

	source := &fakeSource{current: 230.0}
	svc := newTestService(t, source)

	book, err := svc.Collect(context.Background(), []string{"2025-06-01", "garbage"})
	require.NoError(t, err)

	assert.NotContains(t, book, "2025-06-01")
	assert.Zero(t, source.dailyCalls)
}

func TestCollectFallbackOnFetchError(t *testing.T) {
	t.Parallel()

	source := &fakeSource{
		dailyErr:   errors.New("rate limited"),
		currentErr: errors.New("rate limited"),
	}
	svc := newTestService(t, source)

	book, err := svc.Collect(context.Background(), []string{"2026-01-01", "2026-01-02"})
	require.NoError(t, err, "fetch failure degrades to fallback, not an error")

	assert.InDelta(t, FallbackPrice, book["2026-01-01"], 1e-9)
	assert.InDelta(t, FallbackPrice, book["2026-01-02"], 1e-9)
}

func TestPriceOn(t *testing.T) {
	t.Parallel()

	source := &fakeSource{
		daily:   map[string]float64{"2026-01-01": 220.0},
		current: 230.0,
	}
	svc := newTestService(t, source)

	p, err := svc.PriceOn(context.Background(), "2026-01-01")
	require.NoError(t, err)
	assert.InDelta(t, 220.0, p, 1e-9)

	// Second lookup is memoized; no further API traffic.
	calls := source.dailyCalls
	p, err = svc.PriceOn(context.Background(), "2026-01-01")
	require.NoError(t, err)
	assert.InDelta(t, 220.0, p, 1e-9)
	assert.Equal(t, calls, source.dailyCalls)
}
