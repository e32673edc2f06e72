// internal/tools/tools.go
package tools

import (
	"context"

	"github.com/digitaltitann/soltrader/internal/activity"
	"github.com/digitaltitann/soltrader/internal/domain"
)

// Name identifies a capability in the planner schema.
type Name string

const (
	SearchX          Name = "search_x_tweets"
	AnalyzeToken     Name = "analyze_token"
	BuyToken         Name = "buy_token"
	SellToken        Name = "sell_token"
	GetPortfolio     Name = "get_portfolio"
	GetWalletBalance Name = "get_wallet_balance"
	SyncPortfolio    Name = "sync_portfolio"
	Wait             Name = "wait"
)

// Result is the uniform outcome of every capability.
type Result struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func ok(data interface{}) Result {
	return Result{Success: true, Data: data}
}

func fail(msg string) Result {
	return Result{Success: false, Error: msg}
}

// Swapper quotes and executes swaps.
type Swapper interface {
	Quote(ctx context.Context, inputMint, outputMint string, amount uint64) (*domain.Quote, error)
	Swap(ctx context.Context, q *domain.Quote) (string, error)
}

// MarketData returns nil without error when nothing is known about mint.
type MarketData interface {
	TokenAnalysis(ctx context.Context, mint string) (*domain.TokenAnalysis, error)
}

// SocialSearch finds posts above engagement thresholds.
type SocialSearch interface {
	Search(ctx context.Context, query string, minLikes, minRetweets int) ([]domain.Post, error)
}

// Wallet reads the trading wallet's on-chain balances.
type Wallet interface {
	Address() string
	SolBalance(ctx context.Context) (float64, error)
	TokenBalance(ctx context.Context, mint string) (domain.TokenBalance, error)
}

// Recorder appends to the activity feed.
type Recorder interface {
	Add(kind activity.Kind, message string, data map[string]interface{}) activity.Entry
}
