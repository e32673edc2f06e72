// internal/wallet/wallet_test.go
package wallet

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWallet(t *testing.T) {
	key := solana.NewWallet().PrivateKey

	w, err := NewWallet(base58.Encode(key))

	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), w.PublicKey)
	assert.Equal(t, key.PublicKey().String(), w.String())
}

func TestNewWalletRejectsBadKeys(t *testing.T) {
	_, err := NewWallet("0OIl")
	assert.Error(t, err)

	_, err = NewWallet(base58.Encode([]byte("short")))
	assert.ErrorContains(t, err, "invalid private key length")
}

func TestSignTransaction(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	w, err := NewWallet(base58.Encode(key))
	require.NoError(t, err)

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1, w.PublicKey, solana.NewWallet().PublicKey()).Build(),
		},
		solana.Hash{},
		solana.TransactionPayer(w.PublicKey),
	)
	require.NoError(t, err)

	require.NoError(t, w.SignTransaction(tx))
	require.NoError(t, w.SignTransaction(tx))
	require.Len(t, tx.Signatures, 1)
	assert.NotEqual(t, solana.Signature{}, tx.Signatures[0])
}

func TestSignTransactionUnknownSigner(t *testing.T) {
	w, err := NewWallet(base58.Encode(solana.NewWallet().PrivateKey))
	require.NoError(t, err)

	other := solana.NewWallet().PublicKey()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1, other, w.PublicKey).Build(),
		},
		solana.Hash{},
		solana.TransactionPayer(other),
	)
	require.NoError(t, err)

	assert.ErrorIs(t, w.SignTransaction(tx), ErrSignerMissing)
}
