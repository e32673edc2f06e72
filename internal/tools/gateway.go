// internal/tools/gateway.go
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/digitaltitann/soltrader/internal/ledger"
)

// Limits bounds what the planner may do with real funds.
type Limits struct {
	BuyAmountSol           float64
	MaxConcurrentPositions int
	FeeReserveSol          float64
	MaxPriceImpactPct      float64
	MinLiquidityUSD        float64
	MinLikes               int
	MinRetweets            int
	SearchPerMinute        int
	AnalyzePerMinute       int
}

// Config wires the gateway to its collaborators.
type Config struct {
	Positions *ledger.Manager
	Activity  Recorder
	Swapper   Swapper
	Market    MarketData
	Social    SocialSearch
	Wallet    Wallet
	Limits    Limits
	Logger    *zap.Logger

	// Sleep backs the wait capability. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

// Gateway executes planner-requested capabilities. Every call yields a
// Result; errors and panics never escape Execute.
type Gateway struct {
	positions *ledger.Manager
	activity  Recorder
	swapper   Swapper
	market    MarketData
	social    SocialSearch
	wallet    Wallet
	limits    Limits
	logger    *zap.Logger
	sleep     func(time.Duration)

	searchLimiter  *rate.Limiter
	analyzeLimiter *rate.Limiter
}

func NewGateway(cfg *Config) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Gateway{
		positions:      cfg.Positions,
		activity:       cfg.Activity,
		swapper:        cfg.Swapper,
		market:         cfg.Market,
		social:         cfg.Social,
		wallet:         cfg.Wallet,
		limits:         cfg.Limits,
		logger:         logger.Named("tools"),
		sleep:          sleep,
		searchLimiter:  perMinute(cfg.Limits.SearchPerMinute),
		analyzeLimiter: perMinute(cfg.Limits.AnalyzePerMinute),
	}
}

func perMinute(n int) *rate.Limiter {
	if n <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
}

// Definitions returns the capability schema offered to the planner.
func (g *Gateway) Definitions() []Definition {
	return Definitions()
}

// Execute validates raw against the schema for name and runs the capability.
func (g *Gateway) Execute(ctx context.Context, name string, raw json.RawMessage) (res Result) {
	tool := Name(name)
	start := time.Now()
	logger := g.logger.With(zap.String("tool", name))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Tool panicked", zap.Any("panic", r), zap.Stack("stack"))
			res = fail(fmt.Sprintf("internal error in %s", name))
		}
		logger.Debug("Tool finished",
			zap.Bool("success", res.Success),
			zap.Duration("elapsed", time.Since(start)))
	}()

	in, err := Decode(tool, raw)
	if err != nil {
		var inputErr *InputError
		if errors.As(err, &inputErr) && errors.Is(inputErr.Err, errUnknownTool) {
			return fail(fmt.Sprintf("Unknown tool: %s", name))
		}
		logger.Warn("Rejected tool input", zap.Error(err))
		return fail(err.Error())
	}

	switch v := in.(type) {
	case *SearchInput:
		if !g.searchLimiter.Allow() {
			return fail("search rate limit reached, try again later")
		}
		return g.search(ctx, v)
	case *AnalyzeInput:
		if !g.analyzeLimiter.Allow() {
			return fail("analyze rate limit reached, try again later")
		}
		return g.analyze(ctx, v)
	case *BuyInput:
		return g.buy(ctx, v)
	case *SellInput:
		return g.sell(ctx, v)
	case *WaitInput:
		return g.wait(v)
	}

	switch tool {
	case GetPortfolio:
		return g.portfolio(ctx)
	case GetWalletBalance:
		return g.balance(ctx)
	case SyncPortfolio:
		return g.reconcile(ctx)
	}
	return fail(fmt.Sprintf("Unknown tool: %s", name))
}
