package sources

import (
	"context"
	"net/http"

	"github.com/tidwall/gjson"
)

// SFDPStatus is the validator's standing in the Solana Foundation
// Delegation Program.
type SFDPStatus struct {
	IsParticipant  bool   `json:"is_participant"`
	ProgramName    string `json:"program_name,omitempty"`
	Status         string `json:"status,omitempty"`
	OnboardingDate string `json:"onboarding_date,omitempty"`
}

// SFDPClient reads the public SFDP participant registry.
type SFDPClient struct {
	client  *Client
	baseURL string
}

// NewSFDPClient creates an SFDP registry client.
func NewSFDPClient(client *Client) *SFDPClient {
	return &SFDPClient{client: client, baseURL: SFDPAPI}
}

// SetBaseURL overrides the API endpoint. Intended for tests.
func (s *SFDPClient) SetBaseURL(url string) {
	s.baseURL = url
}

// Status looks the validator up in the participant registry by identity
// or vote account. A validator not in the program gets IsParticipant
// false, not an error.
func (s *SFDPClient) Status(ctx context.Context, identity, voteAccount string) (*SFDPStatus, error) {
	body, err := s.client.fetch(ctx, SourceSFDP, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL, http.NoBody)
	})
	if err != nil {
		return nil, err
	}

	for _, p := range gjson.ParseBytes(body).Array() {
		if p.Get("identity").String() != identity && p.Get("vote_account").String() != voteAccount {
			continue
		}
		return &SFDPStatus{
			IsParticipant:  true,
			ProgramName:    p.Get("program_name").String(),
			Status:         p.Get("status").String(),
			OnboardingDate: p.Get("onboarding_date").String(),
		}, nil
	}
	return &SFDPStatus{IsParticipant: false}, nil
}
