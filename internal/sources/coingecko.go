package sources

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/grod220/block-parliament/internal/epochs"
	"github.com/grod220/block-parliament/internal/ratelimit"
)

// CoinGecko demo tier allows roughly 30 calls per minute.
const coinGeckoRPM = 30

// CoinGeckoClient fetches SOL/USD prices.
type CoinGeckoClient struct {
	client  *Client
	baseURL string
	apiKey  string
	limiter *ratelimit.Limiter
}

// NewCoinGeckoClient creates a price client. The API key is the demo
// tier key; an empty key still works at a lower quota.
func NewCoinGeckoClient(client *Client, apiKey string) *CoinGeckoClient {
	return &CoinGeckoClient{
		client:  client,
		baseURL: CoinGeckoAPI,
		apiKey:  apiKey,
		limiter: ratelimit.NewLimiter(coinGeckoRPM),
	}
}

// SetBaseURL overrides the API endpoint. Intended for tests.
func (c *CoinGeckoClient) SetBaseURL(url string) {
	c.baseURL = url
}

func (c *CoinGeckoClient) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.client.fetch(ctx, SourceCoinGecko, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("x-cg-demo-api-key", c.apiKey)
		}
		return req, nil
	})
}

// DailyPrices fetches SOL/USD close prices for each day in [from, to].
// The returned map is keyed by YYYY-MM-DD.
func (c *CoinGeckoClient) DailyPrices(ctx context.Context, from, to time.Time) (map[string]float64, error) {
	// Extend the upper bound a day so the last day's samples arrive.
	fromTS := from.UTC().Truncate(24 * time.Hour).Unix()
	toTS := to.UTC().Truncate(24*time.Hour).Add(24 * time.Hour).Unix()

	url := fmt.Sprintf("%s/coins/solana/market_chart/range?vs_currency=usd&from=%d&to=%d",
		c.baseURL, fromTS, toTS)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	// prices is [[timestamp_ms, price], ...]. Later samples overwrite
	// earlier ones, leaving each day's close.
	daily := make(map[string]float64)
	for _, pair := range gjson.GetBytes(body, "prices").Array() {
		entry := pair.Array()
		if len(entry) != 2 {
			continue
		}
		ts := int64(entry[0].Float()) / 1000
		date := time.Unix(ts, 0).UTC().Format(epochs.DateLayout)
		daily[date] = entry[1].Float()
	}

	if len(daily) == 0 {
		return nil, fmt.Errorf("sources: coingecko returned no prices for %s..%s",
			from.Format(epochs.DateLayout), to.Format(epochs.DateLayout))
	}
	return daily, nil
}

// CurrentPrice fetches the live SOL/USD price.
func (c *CoinGeckoClient) CurrentPrice(ctx context.Context) (float64, error) {
	url := c.baseURL + "/simple/price?ids=solana&vs_currencies=usd"

	body, err := c.get(ctx, url)
	if err != nil {
		return 0, err
	}

	price := gjson.GetBytes(body, "solana.usd")
	if !price.Exists() {
		return 0, fmt.Errorf("sources: coingecko response missing solana.usd")
	}
	return price.Float(), nil
}
