// internal/ledger/position.go
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle stage of a position.
type Status string

const (
	StatusOpen    Status = "open"
	StatusPartial Status = "partial"
	StatusClosed  Status = "closed"
)

// PhantomPnLPct is the P&L recorded for a position whose tokens vanished.
const PhantomPnLPct = -100.0

// Position is the record of one trade in one token mint.
type Position struct {
	ID          string `json:"id"`
	TokenMint   string `json:"tokenMint"`
	TokenSymbol string `json:"tokenSymbol,omitempty"`

	EntryPriceUSD   float64 `json:"entryPriceUsd"`
	CurrentPriceUSD float64 `json:"currentPriceUsd"`
	PnLPct          float64 `json:"pnlPct"`

	// EntrySol is the SOL cost basis still at risk. InvestedSol is
	// everything ever spent on the position and never shrinks.
	EntrySol       decimal.Decimal `json:"entrySol"`
	InvestedSol    decimal.Decimal `json:"investedSol"`
	RealizedPnLSol decimal.Decimal `json:"realizedPnlSol"`
	TokenAmount    uint64          `json:"tokenAmount"`

	Status        Status     `json:"status"`
	OpenedAt      time.Time  `json:"openedAt"`
	ClosedAt      *time.Time `json:"closedAt,omitempty"`
	CloseReason   string     `json:"closeReason,omitempty"`
	SourceTweetID string     `json:"sourceTweetId,omitempty"`
	TxSignatures  []string   `json:"txSignatures"`
}

// IsOpen reports whether the position still holds tokens.
func (p Position) IsOpen() bool {
	return p.Status == StatusOpen || p.Status == StatusPartial
}

// UnrealizedPnLSol estimates the P&L of the at-risk basis at the current price.
func (p Position) UnrealizedPnLSol() decimal.Decimal {
	if !p.IsOpen() {
		return decimal.Zero
	}
	return p.EntrySol.Mul(decimal.NewFromFloat(p.PnLPct)).Div(decimal.NewFromInt(100))
}

// HoldTime is the time between open and close, or until now while open.
func (p Position) HoldTime() time.Duration {
	if p.ClosedAt != nil {
		return p.ClosedAt.Sub(p.OpenedAt)
	}
	return time.Since(p.OpenedAt)
}

func (p Position) clone() Position {
	c := p
	if p.ClosedAt != nil {
		t := *p.ClosedAt
		c.ClosedAt = &t
	}
	c.TxSignatures = append([]string(nil), p.TxSignatures...)
	return c
}

// Snapshot is the unit of durability for the ledger.
type Snapshot struct {
	OpenPositions   map[string]Position `json:"openPositions"`
	ClosedPositions []Position          `json:"closedPositions"`
	SeenTokens      []string            `json:"seenTokens"`
	LastUpdated     time.Time           `json:"lastUpdated"`
}

// EmptySnapshot returns a snapshot with initialised collections.
func EmptySnapshot() Snapshot {
	return Snapshot{
		OpenPositions:   make(map[string]Position),
		ClosedPositions: []Position{},
		SeenTokens:      []string{},
	}
}
