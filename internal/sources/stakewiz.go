package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// StakewizValidator is the subset of the Stakewiz validator record the
// dashboard displays.
type StakewizValidator struct {
	Rank           uint64  `json:"rank"`
	Identity       string  `json:"identity"`
	VoteIdentity   string  `json:"vote_identity"`
	Name           string  `json:"name"`
	Version        string  `json:"version"`
	ActivatedStake float64 `json:"activated_stake"`
	Commission     int     `json:"commission"`
	Delinquent     bool    `json:"delinquent"`
	SkipRate       float64 `json:"skip_rate"`
	VoteSuccess    float64 `json:"vote_success"`
	WizScore       float64 `json:"wiz_score"`
	Uptime         float64 `json:"uptime"`
	IsJito         bool    `json:"is_jito"`
	JitoCommission uint64  `json:"jito_commission_bps"`
	StakingAPY     float64 `json:"staking_apy"`
	JitoAPY        float64 `json:"jito_apy"`
	TotalAPY       float64 `json:"total_apy"`
	Epoch          uint64  `json:"epoch"`
	IPCity         string  `json:"ip_city"`
	IPCountry      string  `json:"ip_country"`
}

// StakewizClient reads validator scoring data from the Stakewiz API.
type StakewizClient struct {
	client  *Client
	baseURL string
}

// NewStakewizClient creates a Stakewiz API client.
func NewStakewizClient(client *Client) *StakewizClient {
	return &StakewizClient{client: client, baseURL: StakewizAPI}
}

// SetBaseURL overrides the API endpoint. Intended for tests.
func (s *StakewizClient) SetBaseURL(url string) {
	s.baseURL = url
}

// Validator fetches the Stakewiz record for a vote account.
// Stakewiz answers the literal body `false` for validators it does not
// track; that maps to ErrNotFound.
func (s *StakewizClient) Validator(ctx context.Context, voteAccount string) (*StakewizValidator, error) {
	url := fmt.Sprintf("%s/validator/%s", s.baseURL, voteAccount)

	body, err := s.client.fetch(ctx, SourceStakewiz, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	})
	if err != nil {
		return nil, err
	}

	if bytes.Equal(bytes.TrimSpace(body), []byte("false")) {
		return nil, ErrNotFound
	}

	v := gjson.ParseBytes(body)
	return &StakewizValidator{
		Rank:           v.Get("rank").Uint(),
		Identity:       v.Get("identity").String(),
		VoteIdentity:   v.Get("vote_identity").String(),
		Name:           v.Get("name").String(),
		Version:        v.Get("version").String(),
		ActivatedStake: v.Get("activated_stake").Float(),
		Commission:     int(v.Get("commission").Int()),
		Delinquent:     v.Get("delinquent").Bool(),
		SkipRate:       v.Get("skip_rate").Float(),
		VoteSuccess:    v.Get("vote_success").Float(),
		WizScore:       v.Get("wiz_score").Float(),
		Uptime:         v.Get("uptime").Float(),
		IsJito:         v.Get("is_jito").Bool(),
		JitoCommission: v.Get("jito_commission_bps").Uint(),
		StakingAPY:     v.Get("staking_apy").Float(),
		JitoAPY:        v.Get("jito_apy").Float(),
		TotalAPY:       v.Get("total_apy").Float(),
		Epoch:          v.Get("epoch").Uint(),
		IPCity:         v.Get("ip_city").String(),
		IPCountry:      v.Get("ip_country").String(),
	}, nil
}
