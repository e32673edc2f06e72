// internal/blockchain/solbc/account.go
package solbc

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/digitaltitann/soltrader/internal/blockchain"
	"github.com/digitaltitann/soltrader/internal/domain"
)

// Account binds an RPC client to the trading wallet's public key.
type Account struct {
	client blockchain.Client
	owner  solana.PublicKey
}

func NewAccount(client blockchain.Client, owner solana.PublicKey) *Account {
	return &Account{client: client, owner: owner}
}

// Address is the wallet public key in base58.
func (a *Account) Address() string {
	return a.owner.String()
}

// SolBalance returns the wallet balance in SOL.
func (a *Account) SolBalance(ctx context.Context) (float64, error) {
	lamports, err := a.client.GetBalance(ctx, a.owner, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, err
	}
	return domain.LamportsToSOL(lamports), nil
}

// TokenBalance returns the raw on-chain holding of mint.
func (a *Account) TokenBalance(ctx context.Context, mint string) (domain.TokenBalance, error) {
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return domain.TokenBalance{}, fmt.Errorf("invalid mint %q: %w", mint, err)
	}
	return a.client.GetTokenBalance(ctx, a.owner, mintKey)
}
