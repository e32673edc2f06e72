// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/digitaltitann/soltrader/internal/blockchain"
	"github.com/digitaltitann/soltrader/internal/domain"
)

// Offset and width of the amount field in an SPL token account. Token-2022
// accounts share the same base layout.
const (
	tokenAmountOffset = 64
	tokenAccountSize  = 72
)

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
type Client struct {
	rpc    *rpc.Client
	logger *zap.Logger

	confirmInterval time.Duration
	confirmTimeout  time.Duration
}

// Определение ошибок
var (
	ErrConfirmTimeout    = errors.New("confirmation timeout")
	ErrTransactionFailed = errors.New("transaction failed on-chain")
)

// NewClient создаёт новый клиент, принимая RPC URL и логгер через dependency injection.
func NewClient(rpcURL string, logger *zap.Logger) *Client {
	return &Client{
		rpc:             rpc.New(rpcURL),
		logger:          logger.Named("solbc-client"),
		confirmInterval: 500 * time.Millisecond,
		confirmTimeout:  60 * time.Second,
	}
}

// GetBalance получает баланс аккаунта.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	result, err := c.rpc.GetBalance(ctx, pubkey, commitment)
	if err != nil {
		c.logger.Error("GetBalance error", zap.Error(err))
		return 0, NewRPCError(err, "getBalance")
	}
	return result.Value, nil
}

// GetTokenBalance sums the raw amount of mint over every token account the
// owner holds. An owner without token accounts has a zero balance.
func (c *Client) GetTokenBalance(ctx context.Context, owner, mint solana.PublicKey) (domain.TokenBalance, error) {
	balance := domain.TokenBalance{Mint: mint.String()}

	result, err := c.rpc.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{Mint: &mint},
		&rpc.GetTokenAccountsOpts{
			Commitment: rpc.CommitmentConfirmed,
			Encoding:   solana.EncodingBase64,
		},
	)
	if err != nil {
		c.logger.Debug("GetTokenAccountsByOwner error",
			zap.String("mint", mint.String()),
			zap.Error(err))
		return balance, NewRPCError(err, "getTokenAccountsByOwner")
	}
	if result == nil {
		return balance, nil
	}

	for _, acc := range result.Value {
		if acc == nil || acc.Account.Data == nil {
			continue
		}
		amount, err := decodeTokenAmount(acc.Account.Data.GetBinary())
		if err != nil {
			c.logger.Warn("Skipping malformed token account",
				zap.String("account", acc.Pubkey.String()),
				zap.Error(err))
			continue
		}
		balance.Raw += amount
		balance.Accounts++
	}
	return balance, nil
}

func decodeTokenAmount(data []byte) (uint64, error) {
	if len(data) < tokenAccountSize {
		return 0, fmt.Errorf("token account data too short: %d bytes", len(data))
	}
	return binary.LittleEndian.Uint64(data[tokenAmountOffset:tokenAccountSize]), nil
}

// SendTransactionWithOpts отправляет транзакцию с заданными опциями.
func (c *Client) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.PreflightCommitment,
	})
	if err != nil {
		c.logger.Error("SendTransactionWithOpts error", zap.Error(err))
		return solana.Signature{}, NewRPCError(err, "sendTransaction")
	}
	return sig, nil
}

// WaitForTransactionConfirmation ожидает подтверждения транзакции (с простым polling‑механизмом).
// A transaction that landed with an error is reported as ErrTransactionFailed.
func (c *Client) WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature, _ rpc.CommitmentType) error {
	ticker := time.NewTicker(c.confirmInterval)
	defer ticker.Stop()
	timeout := time.After(c.confirmTimeout)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("%w: %s", ErrConfirmTimeout, signature)
		case <-ticker.C:
			statuses, err := c.rpc.GetSignatureStatuses(ctx, false, signature)
			if err != nil {
				c.logger.Warn("Error getting signature statuses", zap.Error(err))
				continue
			}
			if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
				continue
			}
			status := statuses.Value[0]
			if status.Err != nil {
				return fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusFinalized ||
				status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed {
				return nil
			}
		}
	}
}

// Гарантируем, что Client реализует интерфейс blockchain.Client.
var _ blockchain.Client = (*Client)(nil)
