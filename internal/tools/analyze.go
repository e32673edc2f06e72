// internal/tools/analyze.go
package tools

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

func (g *Gateway) analyze(ctx context.Context, in *AnalyzeInput) Result {
	analysis, err := g.market.TokenAnalysis(ctx, in.MintAddress)
	if err != nil {
		g.logger.Warn("Token analysis failed", zap.String("mint", in.MintAddress), zap.Error(err))
		return fail(fmt.Sprintf("Failed to analyze token: %v", err))
	}
	if analysis == nil {
		return fail("No data found for token")
	}

	data := map[string]interface{}{
		"analysis":        analysis,
		"meets_liquidity": analysis.LiquidityUSD >= g.limits.MinLiquidityUSD,
		"already_traded":  g.positions.HasOpenOrSeen(in.MintAddress),
	}
	return ok(data)
}
