// internal/dex/jupiter/client_test.go
package jupiter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/digitaltitann/soltrader/internal/blockchain"
	"github.com/digitaltitann/soltrader/internal/domain"
	"github.com/digitaltitann/soltrader/internal/wallet"
)

const testMint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"

type mockChain struct {
	mock.Mock
}

func (m *mockChain) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	args := m.Called(pubkey)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockChain) GetTokenBalance(ctx context.Context, owner, mint solana.PublicKey) (domain.TokenBalance, error) {
	args := m.Called(owner, mint)
	return args.Get(0).(domain.TokenBalance), args.Error(1)
}

func (m *mockChain) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	args := m.Called(tx, opts)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *mockChain) WaitForTransactionConfirmation(ctx context.Context, sig solana.Signature, commitment rpc.CommitmentType) error {
	return m.Called(sig).Error(0)
}

func newTestWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.NewWallet(base58.Encode(solana.NewWallet().PrivateKey))
	require.NoError(t, err)
	return w
}

func encodedSwapTx(t *testing.T, w *wallet.Wallet) string {
	t.Helper()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1, w.PublicKey, solana.NewWallet().PublicKey()).Build(),
		},
		solana.Hash{},
		solana.TransactionPayer(w.PublicKey),
	)
	require.NoError(t, err)
	require.NoError(t, w.SignTransaction(tx))
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func newTestClient(srv *httptest.Server, chain blockchain.Client, signer Signer) *Client {
	c := NewClient(&Config{
		BaseURL:     srv.URL,
		APIKey:      "test-key",
		SlippageBps: 300,
		HTTPClient:  srv.Client(),
		Chain:       chain,
		Signer:      signer,
		Logger:      zap.NewNop(),
	})
	c.retryElapsed = 3 * time.Second
	return c
}

func TestQuoteParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, domain.SOLMint, r.URL.Query().Get("inputMint"))
		assert.Equal(t, "100000000", r.URL.Query().Get("amount"))
		assert.Equal(t, "300", r.URL.Query().Get("slippageBps"))
		_, _ = io.WriteString(w, `{"inputMint":"`+domain.SOLMint+`","outputMint":"`+testMint+`","inAmount":"100000000","outAmount":"5000000000","priceImpactPct":"1.25","slippageBps":300}`)
	}))
	defer srv.Close()

	q, err := newTestClient(srv, nil, nil).Quote(context.Background(), domain.SOLMint, testMint, 100_000_000)

	require.NoError(t, err)
	assert.Equal(t, uint64(100_000_000), q.InAmount)
	assert.Equal(t, uint64(5_000_000_000), q.OutAmount)
	assert.Equal(t, 1.25, q.PriceImpactPct)
	assert.Equal(t, testMint, q.OutputMint)
	assert.True(t, json.Valid(q.Raw))
}

func TestQuoteNoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"error":"Could not find any route"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, nil, nil).Quote(context.Background(), domain.SOLMint, testMint, 1)
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestQuoteClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "bad mint")
	}))
	defer srv.Close()

	_, err := newTestClient(srv, nil, nil).Quote(context.Background(), domain.SOLMint, "bad", 1)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestQuoteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"inAmount":"1","outAmount":"2","priceImpactPct":"0"}`)
	}))
	defer srv.Close()

	q, err := newTestClient(srv, nil, nil).Quote(context.Background(), domain.SOLMint, testMint, 1)

	require.NoError(t, err)
	assert.Equal(t, uint64(2), q.OutAmount)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSwapSignsSubmitsAndConfirms(t *testing.T) {
	w := newTestWallet(t)
	encoded := encodedSwapTx(t, w)

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/swap", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		var req swapRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, w.String(), req.UserPublicKey)
		assert.True(t, req.WrapAndUnwrapSol)
		assert.Equal(t, uint64(DefaultMaxPriorityFee), req.PrioritizationFeeLamports.PriorityLevelWithMaxLamports.MaxLamports)
		assert.Equal(t, "high", req.PrioritizationFeeLamports.PriorityLevelWithMaxLamports.PriorityLevel)
		assert.JSONEq(t, `{"outAmount":"2"}`, string(req.QuoteResponse))
		_, _ = io.WriteString(rw, `{"swapTransaction":"`+encoded+`","lastValidBlockHeight":100}`)
	}))
	defer srv.Close()

	sig := solana.Signature{1, 2, 3}
	chain := &mockChain{}
	chain.On("SendTransactionWithOpts", mock.AnythingOfType("*solana.Transaction"), mock.Anything).Return(sig, nil)
	chain.On("WaitForTransactionConfirmation", sig).Return(nil)

	got, err := newTestClient(srv, chain, w).Swap(context.Background(), &domain.Quote{Raw: json.RawMessage(`{"outAmount":"2"}`)})

	require.NoError(t, err)
	assert.Equal(t, sig.String(), got)
	chain.AssertExpectations(t)
}

func TestSwapConfirmationFailure(t *testing.T) {
	w := newTestWallet(t)
	encoded := encodedSwapTx(t, w)
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(rw, `{"swapTransaction":"`+encoded+`"}`)
	}))
	defer srv.Close()

	sig := solana.Signature{9}
	chain := &mockChain{}
	chain.On("SendTransactionWithOpts", mock.Anything, mock.Anything).Return(sig, nil)
	chain.On("WaitForTransactionConfirmation", sig).Return(errors.New("confirmation timeout"))

	_, err := newTestClient(srv, chain, w).Swap(context.Background(), &domain.Quote{Raw: json.RawMessage(`{}`)})
	assert.ErrorContains(t, err, "confirmation timeout")
}

func TestSwapRejectsGarbagePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(rw, `{"swapTransaction":"!!!"}`)
	}))
	defer srv.Close()

	chain := &mockChain{}
	_, err := newTestClient(srv, chain, newTestWallet(t)).Swap(context.Background(), &domain.Quote{Raw: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, ErrInvalidResponse)
	chain.AssertNotCalled(t, "SendTransactionWithOpts", mock.Anything, mock.Anything)
}
