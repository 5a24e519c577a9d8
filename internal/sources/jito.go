package sources

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// MevEpoch is one epoch of MEV data from the Jito API.
// MevRewards is the epoch's total tips in lamports; the validator's cut
// is MevRewards scaled by MevCommissionBps.
type MevEpoch struct {
	Epoch                    uint64 `json:"epoch"`
	MevRewards               uint64 `json:"mev_rewards"`
	MevCommissionBps         uint64 `json:"mev_commission_bps"`
	PriorityFeeRewards       uint64 `json:"priority_fee_rewards"`
	PriorityFeeCommissionBps uint64 `json:"priority_fee_commission_bps"`
}

// CommissionLamports returns the validator's share of the epoch's tips.
func (m MevEpoch) CommissionLamports() uint64 {
	rate := float64(m.MevCommissionBps) / 10000.0
	return uint64(float64(m.MevRewards) * rate)
}

// JitoClient reads per-epoch MEV history from the Jito kobe API.
type JitoClient struct {
	client  *Client
	baseURL string
}

// NewJitoClient creates a Jito API client.
func NewJitoClient(client *Client) *JitoClient {
	return &JitoClient{client: client, baseURL: JitoAPIBase}
}

// SetBaseURL overrides the API endpoint. Intended for tests.
func (j *JitoClient) SetBaseURL(url string) {
	j.baseURL = url
}

// MevHistory fetches every epoch of MEV data for a vote account.
// Validators not running the Jito client get an empty slice.
func (j *JitoClient) MevHistory(ctx context.Context, voteAccount string) ([]MevEpoch, error) {
	url := fmt.Sprintf("%s/validators/%s", j.baseURL, voteAccount)

	body, err := j.client.fetch(ctx, SourceJito, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	// The API has answered both as a bare array and wrapped in an
	// object, depending on version.
	parsed := gjson.ParseBytes(body)
	entries := parsed
	if !parsed.IsArray() {
		entries = parsed.Get("epochs")
		if !entries.Exists() {
			return nil, fmt.Errorf("sources: unexpected jito response shape")
		}
	}

	var history []MevEpoch
	for _, e := range entries.Array() {
		history = append(history, MevEpoch{
			Epoch:                    e.Get("epoch").Uint(),
			MevRewards:               e.Get("mev_rewards").Uint(),
			MevCommissionBps:         e.Get("mev_commission_bps").Uint(),
			PriorityFeeRewards:       e.Get("priority_fee_rewards").Uint(),
			PriorityFeeCommissionBps: e.Get("priority_fee_commission_bps").Uint(),
		})
	}
	return history, nil
}
