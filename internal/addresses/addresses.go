// Package addresses maps known Solana addresses to human-readable labels.
//
// The labels drive automatic transfer categorization: SFDP reimbursements,
// Jito MEV deposits, exchange withdrawals, and program accounts are all
// recognized by address. Sources: Solscan labels, Solana documentation, Jito
// documentation.
package addresses

// Category classifies a Solana address.
type Category string

// Address categories.
const (
	// CategorySolanaFoundation covers SFDP reimbursements and delegations.
	CategorySolanaFoundation Category = "solana_foundation"
	// CategoryJitoMev covers Jito tip distribution and MEV programs.
	CategoryJitoMev Category = "jito_mev"
	// CategoryExchange covers known exchange wallets.
	CategoryExchange Category = "exchange"
	// CategoryValidatorSelf covers the validator's own accounts.
	CategoryValidatorSelf Category = "validator_self"
	// CategoryPersonalWallet covers the operator's personal wallet.
	CategoryPersonalWallet Category = "personal_wallet"
	// CategorySystemProgram is the system program.
	CategorySystemProgram Category = "system_program"
	// CategoryStakeProgram is the stake program.
	CategoryStakeProgram Category = "stake_program"
	// CategoryVoteProgram is the vote program.
	CategoryVoteProgram Category = "vote_program"
	// CategoryUnknown is any address without a known label.
	CategoryUnknown Category = "unknown"
)

// Label carries the category and display name for an address.
type Label struct {
	Category    Category
	Name        string
	Description string
}

// SFDPReimbursement is the Solana Foundation wallet that pays vote cost
// reimbursements, confirmed from on-chain transfers.
const SFDPReimbursement = "DtZWL3BPKa5hw7yQYvaFR29PcXThpLHVU2XAAZrcLiSe"

var known = map[string]Label{
	// Solana Foundation
	"mpa4abUkjQoAvPzREkh5Mo75hZhPFQ2FSH6w7dWKuQ5": {CategorySolanaFoundation, "Solana Foundation", "Main SF wallet for SFDP operations"},
	"7K8DVxtNJGnMtUY1CQJT5jcs8sFGSZTDiG7kowvFpECh": {CategorySolanaFoundation, "Solana Foundation Stake Authority", "SF stake authority for delegations"},
	"DRpbCBMxVnDK7maPM5tGv6MvB3v1sRMC86PZ8okm21hy": {CategorySolanaFoundation, "SF Delegation Program", "SFDP delegation operations"},
	"4ZJhPQAgUseCsWhKvJLTmmRRUV74fdoTpQLNfKoHtFSP": {CategorySolanaFoundation, "Solana Foundation Operations", "SF operational wallet"},
	SFDPReimbursement: {CategorySolanaFoundation, "SFDP Vote Reimbursement", "Solana Foundation vote cost reimbursements"},

	// Jito MEV (mainnet)
	"T1pyyaTNZsKv2WcRAB8oVnk93mLJw2XzjtVYqCsaHqt":  {CategoryJitoMev, "Jito Tip Payment Program", "Program ID for tip payments"},
	"4R3gSG8BpU4t19KYj8CfnbtRpnT8gtk4dvTHxVRwc2r7": {CategoryJitoMev, "Jito Tip Distribution Program", "Program ID for tip distribution"},
	"8F4jGUmxF36vQ6yabnsxX6AQVXdKBhs8kGSUuRKSg8Xt": {CategoryJitoMev, "Jito Merkle Root Upload Authority", "Authority for merkle root uploads"},
	"96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5": {CategoryJitoMev, "Jito Tip Account 1", ""},
	"HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe": {CategoryJitoMev, "Jito Tip Account 2", ""},
	"Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY": {CategoryJitoMev, "Jito Tip Account 3", ""},
	"ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49": {CategoryJitoMev, "Jito Tip Account 4", ""},
	"DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh": {CategoryJitoMev, "Jito Tip Account 5", ""},
	"ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt": {CategoryJitoMev, "Jito Tip Account 6", ""},
	"DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL": {CategoryJitoMev, "Jito Tip Account 7", ""},
	"3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT": {CategoryJitoMev, "Jito Tip Account 8", ""},

	// Exchanges
	"H8sMJSCQxfKiFTCfDR3DUMLPwcRbM61LGFJ8N4dK3WjS": {CategoryExchange, "Coinbase", "Coinbase main wallet"},
	"2AQdpHJ2JpcEgPiATUXjQxA8QmafFegfQwSLWSprPicm": {CategoryExchange, "Binance", "Binance hot wallet"},
	"5tzFkiKscXHK5ZXCGbXZxdw7gTjjD1mBwuoFbhUvuAi9": {CategoryExchange, "Kraken", "Kraken wallet"},

	// Programs
	"11111111111111111111111111111111":             {CategorySystemProgram, "System Program", ""},
	"Stake11111111111111111111111111111111111111":  {CategoryStakeProgram, "Stake Program", ""},
	"Vote111111111111111111111111111111111111111":  {CategoryVoteProgram, "Vote Program", ""},
}

// Lookup returns the label for an address. Unknown addresses get a truncated
// display name and CategoryUnknown.
func Lookup(address string) Label {
	if label, ok := known[address]; ok {
		return label
	}
	return Label{
		Category: CategoryUnknown,
		Name:     truncate(address),
	}
}

// CategoryOf returns the category for an address.
func CategoryOf(address string) Category {
	if label, ok := known[address]; ok {
		return label.Category
	}
	return CategoryUnknown
}

// IsSolanaFoundation reports whether the address belongs to the Solana
// Foundation.
func IsSolanaFoundation(address string) bool {
	return CategoryOf(address) == CategorySolanaFoundation
}

// IsJito reports whether the address is Jito-related.
func IsJito(address string) bool {
	return CategoryOf(address) == CategoryJitoMev
}

// IsExchange reports whether the address is a known exchange wallet.
func IsExchange(address string) bool {
	return CategoryOf(address) == CategoryExchange
}

func truncate(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:4] + "..." + address[len(address)-4:]
}
