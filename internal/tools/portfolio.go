// internal/tools/portfolio.go
package tools

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/digitaltitann/soltrader/internal/ledger"
)

const priceFanOut = 5

// RefreshPrices fetches current prices for positions concurrently and
// returns copies with CurrentPriceUSD and PnLPct updated. Lookups that
// fail keep the last known price.
func RefreshPrices(ctx context.Context, market MarketData, positions []ledger.Position, logger *zap.Logger) []ledger.Position {
	prices := make([]float64, len(positions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(priceFanOut)
	for i := range positions {
		i := i
		g.Go(func() error {
			analysis, err := market.TokenAnalysis(gctx, positions[i].TokenMint)
			if err != nil {
				logger.Debug("Price refresh failed",
					zap.String("mint", positions[i].TokenMint), zap.Error(err))
				return nil
			}
			if analysis != nil {
				prices[i] = analysis.PriceUSD
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]ledger.Position, len(positions))
	for i, p := range positions {
		if prices[i] > 0 {
			p.CurrentPriceUSD = prices[i]
			if p.EntryPriceUSD > 0 {
				p.PnLPct = (prices[i] - p.EntryPriceUSD) / p.EntryPriceUSD * 100
			}
		}
		out[i] = p
	}
	return out
}

func (g *Gateway) portfolio(ctx context.Context) Result {
	open := RefreshPrices(ctx, g.market, g.positions.OpenPositions(), g.logger)
	closed := g.positions.ClosedPositions()

	invested := decimal.Zero
	for _, p := range open {
		invested = invested.Add(p.EntrySol)
	}

	return ok(map[string]interface{}{
		"open_positions":     open,
		"open_count":         len(open),
		"closed_count":       len(closed),
		"total_sol_invested": invested.InexactFloat64(),
	})
}

func (g *Gateway) balance(ctx context.Context) Result {
	sol, err := g.wallet.SolBalance(ctx)
	if err != nil {
		return fail("Failed to read wallet balance: " + err.Error())
	}
	return ok(map[string]interface{}{
		"sol_balance": sol,
		"address":     g.wallet.Address(),
	})
}
