// internal/domain/types.go
package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups that found nothing.
var ErrNotFound = errors.New("not found")

// Well-known mints and unit conversions.
const (
	SOLMint          = "So11111111111111111111111111111111111111112"
	LamportsPerSOL   = 1_000_000_000
	SolscanTxBaseURL = "https://solscan.io/tx/"
)

// TokenBalance is the wallet's on-chain holding of one mint.
type TokenBalance struct {
	Mint     string `json:"mint"`
	Raw      uint64 `json:"raw"`
	Accounts int    `json:"accounts"`
}

// Quote is a priced route returned by the swap venue.
type Quote struct {
	InputMint      string          `json:"inputMint"`
	OutputMint     string          `json:"outputMint"`
	InAmount       uint64          `json:"inAmount"`
	OutAmount      uint64          `json:"outAmount"`
	PriceImpactPct float64         `json:"priceImpactPct"`
	SlippageBps    int             `json:"slippageBps"`
	Raw            json.RawMessage `json:"-"`
}

// TokenAnalysis is market data for one mint.
type TokenAnalysis struct {
	Mint           string  `json:"mint"`
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	PriceUSD       float64 `json:"priceUsd"`
	PriceNative    float64 `json:"priceNative"`
	Volume24h      float64 `json:"volume24h"`
	LiquidityUSD   float64 `json:"liquidityUsd"`
	PriceChange24h float64 `json:"priceChange24h"`
	MarketCap      float64 `json:"marketCap"`
	PairAddress    string  `json:"pairAddress,omitempty"`
	DexID          string  `json:"dexId,omitempty"`
	URL            string  `json:"url,omitempty"`
	Source         string  `json:"source"`
}

// Post is a social post that passed the engagement filter.
type Post struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Followers int       `json:"followers"`
	Text      string    `json:"text"`
	Likes     int       `json:"likes"`
	Retweets  int       `json:"retweets"`
	Replies   int       `json:"replies"`
	CreatedAt time.Time `json:"createdAt"`
	URL       string    `json:"url,omitempty"`
	Mints     []string  `json:"mints"`
}

// LamportsToSOL converts lamports to SOL.
func LamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / LamportsPerSOL
}

// SolscanURL links a transaction signature.
func SolscanURL(signature string) string {
	return SolscanTxBaseURL + signature
}
