// internal/tools/sell.go
package tools

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/digitaltitann/soltrader/internal/activity"
	"github.com/digitaltitann/soltrader/internal/domain"
	"github.com/digitaltitann/soltrader/internal/ledger"
)

var hundred = decimal.NewFromInt(100)

func sellPercentage(in *SellInput) float64 {
	if in.Percentage == nil {
		return 100
	}
	return math.Min(math.Max(*in.Percentage, 1), 100)
}

// sellAmount is the raw token amount for pct of held, rounded down.
func sellAmount(held uint64, pct float64) uint64 {
	if pct >= 100 {
		return held
	}
	amount := decimal.NewFromBigInt(new(big.Int).SetUint64(held), 0).
		Mul(decimal.NewFromFloat(pct)).
		Div(hundred).
		Floor()
	return amount.BigInt().Uint64()
}

// applySale books one sold tranche against the position. Cost basis is
// taken proportionally from the SOL still at risk.
func applySale(p *ledger.Position, pct float64, proceeds decimal.Decimal, remaining uint64, signature string) decimal.Decimal {
	costBasis := p.EntrySol.Mul(decimal.NewFromFloat(pct)).Div(hundred)
	if pct >= 100 {
		costBasis = p.EntrySol
	}

	p.RealizedPnLSol = p.RealizedPnLSol.Add(proceeds.Sub(costBasis))
	p.EntrySol = p.EntrySol.Sub(costBasis)
	p.TxSignatures = append(p.TxSignatures, signature)

	if pct >= 100 {
		p.Status = ledger.StatusClosed
		p.TokenAmount = 0
		p.CloseReason = "sold"
		if p.InvestedSol.IsPositive() {
			p.PnLPct = p.RealizedPnLSol.Div(p.InvestedSol).Mul(hundred).InexactFloat64()
		}
	} else {
		p.Status = ledger.StatusPartial
		p.TokenAmount = remaining
	}
	return costBasis
}

func (g *Gateway) sell(ctx context.Context, in *SellInput) Result {
	pct := sellPercentage(in)
	logger := g.logger.With(zap.String("mint", in.MintAddress), zap.Float64("percentage", pct))

	balance, err := g.wallet.TokenBalance(ctx, in.MintAddress)
	if err != nil {
		logger.Warn("Token balance read failed", zap.Error(err))
		return fail(fmt.Sprintf("Failed to read token balance: %v", err))
	}
	if balance.Raw == 0 {
		return fail("No tokens found in wallet for this mint")
	}

	amount := sellAmount(balance.Raw, pct)
	if amount == 0 {
		return fail("Sell amount too small")
	}

	quote, err := g.swapper.Quote(ctx, in.MintAddress, domain.SOLMint, amount)
	if err != nil {
		logger.Warn("Sell quote failed", zap.Error(err))
		return fail(fmt.Sprintf("Failed to get quote: %v", err))
	}
	signature, err := g.swapper.Swap(ctx, quote)
	if err != nil {
		logger.Error("Sell swap failed", zap.Error(err))
		return fail(fmt.Sprintf("Swap failed: %v", err))
	}

	proceeds := decimal.NewFromInt(int64(quote.OutAmount)).Shift(-9)
	data := map[string]interface{}{
		"message":         fmt.Sprintf("Sold %.0f%% of %s", pct, in.MintAddress),
		"sol_received":    proceeds.InexactFloat64(),
		"percentage_sold": pct,
		"tx_signature":    signature,
		"solscan_url":     domain.SolscanURL(signature),
	}

	var costBasis decimal.Decimal
	pos, tracked := g.positions.Apply(in.MintAddress, func(p *ledger.Position) {
		costBasis = applySale(p, pct, proceeds, balance.Raw-amount, signature)
	})
	if !tracked {
		logger.Warn("Sold untracked holding")
		data["untracked"] = true
	} else {
		pnl := proceeds.Sub(costBasis)
		pnlPct := 0.0
		if costBasis.IsPositive() {
			pnlPct = pnl.Div(costBasis).Mul(hundred).InexactFloat64()
		}
		data["position_id"] = pos.ID
		data["status"] = pos.Status
		data["cost_basis_sol"] = costBasis.InexactFloat64()
		data["real_pnl_sol"] = pnl.InexactFloat64()
		data["real_pnl_pct"] = pnlPct
	}

	name := in.MintAddress
	if tracked {
		name = label(pos)
	}
	entry := map[string]interface{}{
		"mint":         in.MintAddress,
		"percentage":   pct,
		"sol_received": proceeds.InexactFloat64(),
		"tx_signature": signature,
	}
	if pnl, found := data["real_pnl_sol"]; found {
		entry["real_pnl_sol"] = pnl
	}
	g.activity.Add(activity.KindSell, fmt.Sprintf("Sold %.0f%% of %s for %s SOL", pct, name, proceeds.String()), entry)
	return ok(data)
}
