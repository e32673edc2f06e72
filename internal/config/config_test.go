// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
	t.Setenv("WALLET_PRIVATE_KEY", "test-key")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("X_BEARER_TOKEN", "x-test")
}

func TestLoadDefaultsFromEnvironment(t *testing.T) {
	setRequired(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.RPCURL)
	assert.Equal(t, DefaultBuyAmountSol, cfg.BuyAmountSol)
	assert.Equal(t, DefaultSlippageBps, cfg.SlippageBps)
	assert.Equal(t, DefaultMaxConcurrentPositions, cfg.MaxConcurrentPositions)
	assert.Equal(t, 60*time.Second, cfg.CycleInterval())
	assert.Equal(t, 10*time.Second, cfg.BackoffBase)
	assert.Equal(t, 120*time.Second, cfg.BackoffMax)
	assert.Equal(t, 5*time.Minute, cfg.Cooldown)
	assert.Equal(t, DefaultMaxTurns, cfg.MaxTurns)
	assert.Equal(t, ":3001", cfg.APIAddr())
	assert.Equal(t, DefaultAnthropicModel, cfg.AnthropicModel)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	setRequired(t)
	t.Setenv("BUY_AMOUNT_SOL", "0.25")
	t.Setenv("SOLTRADER_MAX_TURNS", "7")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("buy_amount_sol: 0.5\nmin_likes: 5\ncooldown: 90s\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.25, cfg.BuyAmountSol)
	assert.Equal(t, 5, cfg.MinLikes)
	assert.Equal(t, 7, cfg.MaxTurns)
	assert.Equal(t, 90*time.Second, cfg.Cooldown)
}

func TestLoadRejectsMissingSecrets(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "https://rpc.example.com")
	t.Setenv("WALLET_PRIVATE_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("X_BEARER_TOKEN", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WALLET_PRIVATE_KEY")
}

func TestValidateNumericParams(t *testing.T) {
	setRequired(t)
	cfg, err := Load("")
	require.NoError(t, err)

	bad := *cfg
	bad.SlippageBps = 0
	assert.Error(t, validateNumericParams(&bad))

	bad = *cfg
	bad.BackoffMax = bad.BackoffBase / 2
	assert.Error(t, validateNumericParams(&bad))

	bad = *cfg
	bad.TelegramToken = "token"
	assert.Error(t, validateNumericParams(&bad))
}
