package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/grod220/block-parliament/internal/ratelimit"
)

// RPCError is a JSON-RPC error returned by a Solana node.
type RPCError struct {
	Code    int64
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("sources: rpc error %d: %s", e.Code, e.Message)
}

// Long-term storage errors mean the node simply does not have the slot
// anymore; treat them as not-found rather than a source failure.
const (
	rpcErrBlockNotAvailable = -32004
	rpcErrSlotSkipped       = -32007
	rpcErrSlotSkippedAlt    = -32009
)

// EpochInfo mirrors getEpochInfo.
type EpochInfo struct {
	Epoch        uint64 `json:"epoch"`
	AbsoluteSlot uint64 `json:"absoluteSlot"`
	SlotIndex    uint64 `json:"slotIndex"`
	SlotsInEpoch uint64 `json:"slotsInEpoch"`
}

// VoteAccount is one entry from getVoteAccounts.
type VoteAccount struct {
	VotePubkey     string `json:"votePubkey"`
	NodePubkey     string `json:"nodePubkey"`
	ActivatedStake uint64 `json:"activatedStake"`
	Commission     int    `json:"commission"`
	RootSlot       uint64 `json:"rootSlot"`
	LastVote       uint64 `json:"lastVote"`
	EpochCredits   uint64 `json:"epochCredits"`
	Delinquent     bool   `json:"delinquent"`
}

// InflationReward is the validator's staking reward for one epoch.
type InflationReward struct {
	Epoch         uint64 `json:"epoch"`
	EffectiveSlot uint64 `json:"effectiveSlot"`
	Amount        uint64 `json:"amount"`
	PostBalance   uint64 `json:"postBalance"`
}

// BlockReward is one reward entry from getBlock.
type BlockReward struct {
	Pubkey     string `json:"pubkey"`
	Lamports   int64  `json:"lamports"`
	RewardType string `json:"rewardType"`
}

// Block holds the parts of getBlock the fee tracker needs.
type Block struct {
	BlockTime int64         `json:"blockTime"`
	Rewards   []BlockReward `json:"rewards"`
}

// SignatureInfo is one entry from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string `json:"signature"`
	Slot      uint64 `json:"slot"`
	BlockTime int64  `json:"blockTime"`
	Failed    bool   `json:"failed"`
}

// Transaction holds the balance movements of one confirmed transaction.
type Transaction struct {
	Signature    string   `json:"signature"`
	Slot         uint64   `json:"slot"`
	BlockTime    int64    `json:"blockTime"`
	Fee          uint64   `json:"fee"`
	AccountKeys  []string `json:"accountKeys"`
	PreBalances  []int64  `json:"preBalances"`
	PostBalances []int64  `json:"postBalances"`
	Failed       bool     `json:"failed"`
}

// SolanaClient talks JSON-RPC to a list of endpoints, failing over in
// order when one errors.
type SolanaClient struct {
	client    *Client
	endpoints []string
	pacer     *ratelimit.Pacer
}

// NewSolanaClient creates a client over the given endpoints. The first
// endpoint is primary, the rest are fallbacks.
func NewSolanaClient(client *Client, endpoints []string, pacer *ratelimit.Pacer) *SolanaClient {
	if pacer == nil {
		pacer = ratelimit.NewPacer(nil)
	}
	return &SolanaClient{
		client:    client,
		endpoints: endpoints,
		pacer:     pacer,
	}
}

// pacerClass maps RPC methods to pacing classes.
func pacerClass(method string) string {
	switch method {
	case "getSignaturesForAddress":
		return ratelimit.OpSignatures
	case "getTransaction":
		return ratelimit.OpTransactions
	case "getBlock":
		return ratelimit.OpBlocks
	case "getInflationReward":
		return ratelimit.OpRewards
	default:
		return "rpc"
	}
}

// call issues a JSON-RPC request, trying each endpoint in order.
// Returns the parsed "result" field.
func (s *SolanaClient) call(ctx context.Context, method string, params any) (gjson.Result, error) {
	if err := s.pacer.Wait(ctx, pacerClass(method)); err != nil {
		return gjson.Result{}, err
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("sources: marshal rpc params: %w", err)
	}

	reqBody, _ := sjson.Set(`{"jsonrpc":"2.0","id":1}`, "method", method)
	reqBody, _ = sjson.SetRaw(reqBody, "params", string(paramsJSON))

	var lastErr error
	for _, endpoint := range s.endpoints {
		body, err := s.client.fetch(ctx, SourceSolana, func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader([]byte(reqBody)))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/json")
			return req, nil
		})
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return gjson.Result{}, ctx.Err()
			}
			s.client.log.Warn().Str("endpoint", endpoint).Str("method", method).Err(err).
				Msg("rpc endpoint failed, trying next")
			continue
		}

		if rpcErr := gjson.GetBytes(body, "error"); rpcErr.Exists() {
			code := rpcErr.Get("code").Int()
			switch code {
			case rpcErrBlockNotAvailable, rpcErrSlotSkipped, rpcErrSlotSkippedAlt:
				return gjson.Result{}, ErrNotFound
			}
			lastErr = &RPCError{Code: code, Message: rpcErr.Get("message").String()}
			continue
		}

		return gjson.GetBytes(body, "result"), nil
	}

	return gjson.Result{}, fmt.Errorf("sources: all rpc endpoints failed for %s: %w", method, lastErr)
}

// EpochInfo fetches the current epoch state.
func (s *SolanaClient) EpochInfo(ctx context.Context) (*EpochInfo, error) {
	result, err := s.call(ctx, "getEpochInfo", []any{})
	if err != nil {
		return nil, err
	}
	return &EpochInfo{
		Epoch:        result.Get("epoch").Uint(),
		AbsoluteSlot: result.Get("absoluteSlot").Uint(),
		SlotIndex:    result.Get("slotIndex").Uint(),
		SlotsInEpoch: result.Get("slotsInEpoch").Uint(),
	}, nil
}

// VoteAccount looks up a single vote account. Delinquent validators are
// reported with Delinquent set; an absent pubkey returns ErrNotFound.
func (s *SolanaClient) VoteAccount(ctx context.Context, votePubkey string) (*VoteAccount, error) {
	result, err := s.call(ctx, "getVoteAccounts", []any{
		map[string]any{"votePubkey": votePubkey, "commitment": "confirmed"},
	})
	if err != nil {
		return nil, err
	}

	for _, group := range []string{"current", "delinquent"} {
		for _, entry := range result.Get(group).Array() {
			if entry.Get("votePubkey").String() != votePubkey {
				continue
			}
			va := parseVoteAccount(entry)
			va.Delinquent = group == "delinquent"
			return va, nil
		}
	}
	return nil, ErrNotFound
}

// AllVoteAccounts fetches every current (non-delinquent) vote account.
// The dashboard uses it for network stake percentiles.
func (s *SolanaClient) AllVoteAccounts(ctx context.Context) ([]VoteAccount, error) {
	result, err := s.call(ctx, "getVoteAccounts", []any{
		map[string]any{"commitment": "confirmed"},
	})
	if err != nil {
		return nil, err
	}

	entries := result.Get("current").Array()
	accounts := make([]VoteAccount, 0, len(entries))
	for _, entry := range entries {
		accounts = append(accounts, *parseVoteAccount(entry))
	}
	return accounts, nil
}

func parseVoteAccount(entry gjson.Result) *VoteAccount {
	va := &VoteAccount{
		VotePubkey:     entry.Get("votePubkey").String(),
		NodePubkey:     entry.Get("nodePubkey").String(),
		ActivatedStake: entry.Get("activatedStake").Uint(),
		Commission:     int(entry.Get("commission").Int()),
		RootSlot:       entry.Get("rootSlot").Uint(),
		LastVote:       entry.Get("lastVote").Uint(),
	}
	// epochCredits is [[epoch, credits, prevCredits], ...]; take the
	// latest window's earned credits.
	credits := entry.Get("epochCredits").Array()
	if len(credits) > 0 {
		last := credits[len(credits)-1].Array()
		if len(last) == 3 {
			va.EpochCredits = last[1].Uint() - last[2].Uint()
		}
	}
	return va
}

// InflationReward fetches the staking reward credited to the vote
// account for one epoch. Returns ErrNotFound when no reward was paid.
func (s *SolanaClient) InflationReward(ctx context.Context, votePubkey string, epoch uint64) (*InflationReward, error) {
	result, err := s.call(ctx, "getInflationReward", []any{
		[]string{votePubkey},
		map[string]any{"epoch": epoch},
	})
	if err != nil {
		return nil, err
	}

	entries := result.Array()
	if len(entries) == 0 || entries[0].Type == gjson.Null {
		return nil, ErrNotFound
	}

	entry := entries[0]
	return &InflationReward{
		Epoch:         epoch,
		EffectiveSlot: entry.Get("effectiveSlot").Uint(),
		Amount:        entry.Get("amount").Uint(),
		PostBalance:   entry.Get("postBalance").Uint(),
	}, nil
}

// LeaderSlots returns the absolute slots assigned to an identity in the
// epoch starting at epochStartSlot.
func (s *SolanaClient) LeaderSlots(ctx context.Context, epochStartSlot uint64, identity string) ([]uint64, error) {
	result, err := s.call(ctx, "getLeaderSchedule", []any{
		epochStartSlot,
		map[string]any{"identity": identity},
	})
	if err != nil {
		return nil, err
	}

	relative := result.Get(identity).Array()
	slots := make([]uint64, 0, len(relative))
	for _, r := range relative {
		slots = append(slots, epochStartSlot+r.Uint())
	}
	return slots, nil
}

// Block fetches a produced block's rewards and timestamp. Skipped or
// pruned slots return ErrNotFound.
func (s *SolanaClient) Block(ctx context.Context, slot uint64) (*Block, error) {
	result, err := s.call(ctx, "getBlock", []any{
		slot,
		map[string]any{
			"encoding":                       "json",
			"transactionDetails":             "none",
			"rewards":                        true,
			"maxSupportedTransactionVersion": 0,
		},
	})
	if err != nil {
		return nil, err
	}

	block := &Block{BlockTime: result.Get("blockTime").Int()}
	for _, r := range result.Get("rewards").Array() {
		block.Rewards = append(block.Rewards, BlockReward{
			Pubkey:     r.Get("pubkey").String(),
			Lamports:   r.Get("lamports").Int(),
			RewardType: r.Get("rewardType").String(),
		})
	}
	return block, nil
}

// SignaturesForAddress pages through an account's transaction history,
// newest first. before and until are optional cursor signatures.
func (s *SolanaClient) SignaturesForAddress(ctx context.Context, address, before, until string, limit int) ([]SignatureInfo, error) {
	opts := map[string]any{"limit": limit}
	if before != "" {
		opts["before"] = before
	}
	if until != "" {
		opts["until"] = until
	}

	result, err := s.call(ctx, "getSignaturesForAddress", []any{address, opts})
	if err != nil {
		return nil, err
	}

	entries := result.Array()
	sigs := make([]SignatureInfo, 0, len(entries))
	for _, entry := range entries {
		sigs = append(sigs, SignatureInfo{
			Signature: entry.Get("signature").String(),
			Slot:      entry.Get("slot").Uint(),
			BlockTime: entry.Get("blockTime").Int(),
			Failed:    entry.Get("err").Type != gjson.Null,
		})
	}
	return sigs, nil
}

// Transaction fetches one confirmed transaction's balance movements.
func (s *SolanaClient) Transaction(ctx context.Context, signature string) (*Transaction, error) {
	result, err := s.call(ctx, "getTransaction", []any{
		signature,
		map[string]any{
			"encoding":                       "json",
			"maxSupportedTransactionVersion": 0,
		},
	})
	if err != nil {
		return nil, err
	}
	if result.Type == gjson.Null {
		return nil, ErrNotFound
	}

	tx := &Transaction{
		Signature: signature,
		Slot:      result.Get("slot").Uint(),
		BlockTime: result.Get("blockTime").Int(),
		Fee:       result.Get("meta.fee").Uint(),
		Failed:    result.Get("meta.err").Type != gjson.Null,
	}
	for _, k := range result.Get("transaction.message.accountKeys").Array() {
		tx.AccountKeys = append(tx.AccountKeys, k.String())
	}
	for _, b := range result.Get("meta.preBalances").Array() {
		tx.PreBalances = append(tx.PreBalances, b.Int())
	}
	for _, b := range result.Get("meta.postBalances").Array() {
		tx.PostBalances = append(tx.PostBalances, b.Int())
	}
	return tx, nil
}
