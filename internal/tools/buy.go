// internal/tools/buy.go
package tools

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/digitaltitann/soltrader/internal/activity"
	"github.com/digitaltitann/soltrader/internal/domain"
	"github.com/digitaltitann/soltrader/internal/ledger"
)

// checkBuy runs every buy precondition. It touches only local state and
// the wallet balance, so a rejection never leaves a trade half done.
func (g *Gateway) checkBuy(ctx context.Context, in *BuyInput) error {
	if maxAmount := g.limits.BuyAmountSol * 2; in.SolAmount > maxAmount {
		return fmt.Errorf("amount %.4f SOL exceeds max allowed %.4f SOL", in.SolAmount, maxAmount)
	}
	if g.positions.HasOpenOrSeen(in.MintAddress) {
		return fmt.Errorf("already have or had a position in %s", in.MintAddress)
	}
	if open := g.positions.OpenCount(); open >= g.limits.MaxConcurrentPositions {
		return fmt.Errorf("max concurrent positions reached (%d/%d)", open, g.limits.MaxConcurrentPositions)
	}

	balance, err := g.wallet.SolBalance(ctx)
	if err != nil {
		return fmt.Errorf("failed to read wallet balance: %v", err)
	}
	if need := in.SolAmount + g.limits.FeeReserveSol; balance < need {
		return fmt.Errorf("insufficient balance: %.4f SOL, need %.4f SOL including fee reserve", balance, need)
	}
	return nil
}

func (g *Gateway) buy(ctx context.Context, in *BuyInput) Result {
	logger := g.logger.With(zap.String("mint", in.MintAddress), zap.Float64("sol_amount", in.SolAmount))

	if err := g.checkBuy(ctx, in); err != nil {
		logger.Info("Buy rejected", zap.Error(err))
		return fail(err.Error())
	}

	// Market data is advisory here; missing data does not block the trade.
	var symbol string
	var priceUSD float64
	if analysis, err := g.market.TokenAnalysis(ctx, in.MintAddress); err != nil {
		logger.Debug("No market data before buy", zap.Error(err))
	} else if analysis != nil {
		symbol = analysis.Symbol
		priceUSD = analysis.PriceUSD
	}

	lamports := decimal.NewFromFloat(in.SolAmount).Shift(9).IntPart()
	quote, err := g.swapper.Quote(ctx, domain.SOLMint, in.MintAddress, uint64(lamports))
	if err != nil {
		logger.Warn("Buy quote failed", zap.Error(err))
		return fail(fmt.Sprintf("Failed to get quote: %v", err))
	}
	if quote.PriceImpactPct > g.limits.MaxPriceImpactPct {
		logger.Info("Buy rejected on price impact", zap.Float64("impact_pct", quote.PriceImpactPct))
		return fail(fmt.Sprintf("Price impact too high: %.2f%% (max %.2f%%)", quote.PriceImpactPct, g.limits.MaxPriceImpactPct))
	}

	signature, err := g.swapper.Swap(ctx, quote)
	if err != nil {
		logger.Error("Buy swap failed", zap.Error(err))
		return fail(fmt.Sprintf("Swap failed: %v", err))
	}

	spent := decimal.NewFromFloat(in.SolAmount)
	pos := g.positions.Open(ledger.Position{
		TokenMint:       in.MintAddress,
		TokenSymbol:     symbol,
		EntryPriceUSD:   priceUSD,
		CurrentPriceUSD: priceUSD,
		EntrySol:        spent,
		TokenAmount:     quote.OutAmount,
		TxSignatures:    []string{signature},
	})

	name := label(pos)
	g.activity.Add(activity.KindBuy, fmt.Sprintf("Bought %s for %s SOL", name, spent.String()), map[string]interface{}{
		"mint":         in.MintAddress,
		"position_id":  pos.ID,
		"sol_amount":   in.SolAmount,
		"tokens":       quote.OutAmount,
		"price_usd":    priceUSD,
		"tx_signature": signature,
	})

	return ok(map[string]interface{}{
		"message":         fmt.Sprintf("Bought %s", name),
		"position_id":     pos.ID,
		"sol_spent":       in.SolAmount,
		"tokens_received": quote.OutAmount,
		"price_impact":    quote.PriceImpactPct,
		"tx_signature":    signature,
		"solscan_url":     domain.SolscanURL(signature),
	})
}
