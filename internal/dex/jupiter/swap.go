// internal/dex/jupiter/swap.go
package jupiter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/digitaltitann/soltrader/internal/blockchain"
	"github.com/digitaltitann/soltrader/internal/domain"
)

// Signer signs venue-built transactions with the trading wallet.
type Signer interface {
	SignTransaction(tx *solana.Transaction) error
	String() string
}

type swapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool            `json:"dynamicComputeUnitLimit"`
	DynamicSlippage           bool            `json:"dynamicSlippage"`
	PrioritizationFeeLamports priorityFee     `json:"prioritizationFeeLamports"`
}

type priorityFee struct {
	PriorityLevelWithMaxLamports struct {
		MaxLamports   uint64 `json:"maxLamports"`
		PriorityLevel string `json:"priorityLevel"`
	} `json:"priorityLevelWithMaxLamports"`
}

// Swap builds the transaction for q, signs it, submits it and waits for
// confirmation. It returns the transaction signature.
func (c *Client) Swap(ctx context.Context, q *domain.Quote) (string, error) {
	if q == nil || len(q.Raw) == 0 {
		return "", fmt.Errorf("%w: quote payload missing", ErrInvalidResponse)
	}

	reqBody := swapRequest{
		QuoteResponse:           q.Raw,
		UserPublicKey:           c.signer.String(),
		WrapAndUnwrapSol:        true,
		DynamicComputeUnitLimit: true,
		DynamicSlippage:         true,
	}
	reqBody.PrioritizationFeeLamports.PriorityLevelWithMaxLamports.MaxLamports = c.maxPriorityFee
	reqBody.PrioritizationFeeLamports.PriorityLevelWithMaxLamports.PriorityLevel = "high"

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal swap request: %w", err)
	}

	body, err := c.do(ctx, "swap", http.MethodPost, c.baseURL+"/swap", payload)
	if err != nil {
		return "", err
	}
	encoded := gjson.GetBytes(body, "swapTransaction").String()
	if encoded == "" {
		return "", fmt.Errorf("%w: swapTransaction missing", ErrInvalidResponse)
	}

	tx, err := decodeTransaction(encoded)
	if err != nil {
		return "", err
	}
	if err := c.signer.SignTransaction(tx); err != nil {
		return "", fmt.Errorf("sign swap transaction: %w", err)
	}

	sig, err := c.chain.SendTransactionWithOpts(ctx, tx, blockchain.TransactionOptions{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", fmt.Errorf("submit swap: %w", err)
	}
	c.logger.Info("📤 Swap submitted",
		zap.String("signature", sig.String()),
		zap.String("in", q.InputMint),
		zap.String("out", q.OutputMint))

	if err := c.chain.WaitForTransactionConfirmation(ctx, sig, rpc.CommitmentConfirmed); err != nil {
		return "", fmt.Errorf("confirm swap %s: %w", sig, err)
	}
	c.logger.Info("✅ Swap confirmed", zap.String("signature", sig.String()))
	return sig.String(), nil
}

func decodeTransaction(encoded string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: swap transaction is not base64: %v", ErrInvalidResponse, err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: decode swap transaction: %v", ErrInvalidResponse, err)
	}
	return tx, nil
}
