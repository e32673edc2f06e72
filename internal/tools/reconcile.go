// internal/tools/reconcile.go
package tools

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/digitaltitann/soltrader/internal/activity"
	"github.com/digitaltitann/soltrader/internal/blockchain/solbc"
	"github.com/digitaltitann/soltrader/internal/ledger"
)

const phantomReason = "phantom: zero on-chain balance"

// reconcile compares every open position with the wallet. Positions whose
// tokens are gone are phantom-closed; a failed balance read skips that
// position only.
func (g *Gateway) reconcile(ctx context.Context) Result {
	var phantoms []string
	corrected, skipped := 0, 0

	open := g.positions.OpenPositions()
	for _, pos := range open {
		logger := g.logger.With(zap.String("mint", pos.TokenMint))

		balance, err := g.wallet.TokenBalance(ctx, pos.TokenMint)
		if err != nil {
			logger.Warn("Reconcile balance read failed, skipping",
				zap.Bool("rpc_error", solbc.IsRPCError(err)),
				zap.Error(err))
			skipped++
			continue
		}

		if balance.Raw == 0 {
			if _, closed := g.positions.PhantomClose(pos.TokenMint, phantomReason); closed {
				phantoms = append(phantoms, pos.TokenMint)
				g.activity.Add(activity.KindInfo,
					fmt.Sprintf("Closed phantom position %s: no tokens in wallet", label(pos)),
					map[string]interface{}{
						"mint":        pos.TokenMint,
						"position_id": pos.ID,
						"entry_sol":   pos.EntrySol.InexactFloat64(),
					})
			}
			continue
		}

		if balance.Raw != pos.TokenAmount {
			held := balance.Raw
			if _, found := g.positions.Apply(pos.TokenMint, func(p *ledger.Position) {
				p.TokenAmount = held
			}); found {
				logger.Info("Corrected tracked token amount",
					zap.Uint64("tracked", pos.TokenAmount), zap.Uint64("on_chain", held))
				corrected++
			}
		}
	}

	if phantoms == nil {
		phantoms = []string{}
	}
	return ok(map[string]interface{}{
		"checked":         len(open),
		"phantoms_closed": phantoms,
		"corrected":       corrected,
		"skipped":         skipped,
	})
}

func label(p ledger.Position) string {
	if p.TokenSymbol != "" {
		return p.TokenSymbol
	}
	return p.TokenMint
}
