// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	RPCURL           string `mapstructure:"rpc_url"`
	WalletPrivateKey string `mapstructure:"wallet_private_key"`

	AnthropicAPIKey    string `mapstructure:"anthropic_api_key"`
	AnthropicURL       string `mapstructure:"anthropic_url"`
	AnthropicModel     string `mapstructure:"anthropic_model"`
	AnthropicMaxTokens int    `mapstructure:"anthropic_max_tokens"`

	XAPIKey    string `mapstructure:"x_api_key"`
	XSearchURL string `mapstructure:"x_search_url"`

	JupiterAPIKey   string `mapstructure:"jupiter_api_key"`
	JupiterURL      string `mapstructure:"jupiter_url"`
	JupiterPriceURL string `mapstructure:"jupiter_price_url"`
	DexScreenerURL  string `mapstructure:"dexscreener_url"`

	BuyAmountSol           float64 `mapstructure:"buy_amount_sol"`
	SlippageBps            int     `mapstructure:"slippage_bps"`
	MaxConcurrentPositions int     `mapstructure:"max_concurrent_positions"`
	MinLiquidityUSD        float64 `mapstructure:"min_liquidity_usd"`
	MaxPriceImpactPct      float64 `mapstructure:"max_price_impact_pct"`
	FeeReserveSol          float64 `mapstructure:"fee_reserve_sol"`
	MinStartBalanceSol     float64 `mapstructure:"min_start_balance_sol"`
	MinLikes               int     `mapstructure:"min_likes"`
	MinRetweets            int     `mapstructure:"min_retweets"`
	SearchPerMinute        int     `mapstructure:"search_per_minute"`
	AnalyzePerMinute       int     `mapstructure:"analyze_per_minute"`

	PollIntervalMs   int           `mapstructure:"poll_interval_ms"`
	MaxTurns         int           `mapstructure:"max_turns"`
	BackoffBase      time.Duration `mapstructure:"backoff_base"`
	BackoffMax       time.Duration `mapstructure:"backoff_max"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	Cooldown         time.Duration `mapstructure:"cooldown"`

	PositionsFile string `mapstructure:"positions_file"`
	ActivityFile  string `mapstructure:"activity_file"`
	ActivityMax   int    `mapstructure:"activity_max"`

	APIPort       int           `mapstructure:"api_port"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	PriceCacheTTL time.Duration `mapstructure:"price_cache_ttl"`

	TelegramToken  string `mapstructure:"telegram_token"`
	TelegramChatID int64  `mapstructure:"telegram_chat_id"`

	LogFile      string `mapstructure:"log_file"`
	DebugLogging bool   `mapstructure:"debug_logging"`
	Console      bool   `mapstructure:"console"`
}

const (
	DefaultBuyAmountSol           = 0.1
	DefaultSlippageBps            = 300
	DefaultMaxConcurrentPositions = 5
	DefaultMinLiquidityUSD        = 1000
	DefaultMaxPriceImpactPct      = 10
	DefaultFeeReserveSol          = 0.01
	DefaultMinStartBalanceSol     = 0.05
	DefaultPollIntervalMs         = 60000
	DefaultMinLikes               = 50
	DefaultMinRetweets            = 10
	DefaultMaxTurns               = 20
	DefaultFailureThreshold       = 5
	DefaultActivityMax            = 500
	DefaultAPIPort                = 3001
	DefaultAnthropicModel         = "claude-sonnet-4-5-20250929"
)

// envAliases keeps the environment names operators already use.
var envAliases = map[string]string{
	"rpc_url":                  "SOLANA_RPC_URL",
	"wallet_private_key":       "WALLET_PRIVATE_KEY",
	"anthropic_api_key":        "ANTHROPIC_API_KEY",
	"x_api_key":                "X_BEARER_TOKEN",
	"jupiter_api_key":          "JUPITER_API_KEY",
	"buy_amount_sol":           "BUY_AMOUNT_SOL",
	"slippage_bps":             "SLIPPAGE_BPS",
	"max_concurrent_positions": "MAX_CONCURRENT_POSITIONS",
	"min_liquidity_usd":        "MIN_LIQUIDITY_USD",
	"max_price_impact_pct":     "MAX_PRICE_IMPACT_PCT",
	"poll_interval_ms":         "POLL_INTERVAL_MS",
	"min_likes":                "MIN_LIKES",
	"min_retweets":             "MIN_RETWEETS",
	"api_port":                 "API_PORT",
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"rpc_url":                  "",
		"wallet_private_key":       "",
		"anthropic_api_key":        "",
		"anthropic_url":            "https://api.anthropic.com/v1/messages",
		"anthropic_model":          DefaultAnthropicModel,
		"anthropic_max_tokens":     4096,
		"x_api_key":                "",
		"x_search_url":             "https://api.twitterapi.io/twitter/tweet/advanced_search",
		"jupiter_api_key":          "",
		"jupiter_url":              "https://api.jup.ag/swap/v1",
		"jupiter_price_url":        "https://price.jup.ag/v6/price",
		"dexscreener_url":          "https://api.dexscreener.com/latest/dex/tokens",
		"buy_amount_sol":           DefaultBuyAmountSol,
		"slippage_bps":             DefaultSlippageBps,
		"max_concurrent_positions": DefaultMaxConcurrentPositions,
		"min_liquidity_usd":        DefaultMinLiquidityUSD,
		"max_price_impact_pct":     DefaultMaxPriceImpactPct,
		"fee_reserve_sol":          DefaultFeeReserveSol,
		"min_start_balance_sol":    DefaultMinStartBalanceSol,
		"min_likes":                DefaultMinLikes,
		"min_retweets":             DefaultMinRetweets,
		"search_per_minute":        30,
		"analyze_per_minute":       60,
		"poll_interval_ms":         DefaultPollIntervalMs,
		"max_turns":                DefaultMaxTurns,
		"backoff_base":             10 * time.Second,
		"backoff_max":              120 * time.Second,
		"failure_threshold":        DefaultFailureThreshold,
		"cooldown":                 5 * time.Minute,
		"positions_file":           "positions.json",
		"activity_file":            "activity-log.json",
		"activity_max":             DefaultActivityMax,
		"api_port":                 DefaultAPIPort,
		"redis_addr":               "",
		"redis_password":           "",
		"price_cache_ttl":          15 * time.Second,
		"telegram_token":           "",
		"telegram_chat_id":         0,
		"log_file":                 "logs/agent.log",
		"debug_logging":            false,
		"console":                  false,
	}
}

// Load reads configuration from an optional file and the environment.
// A .env file in the working directory is applied first when present.
// Environment values win over the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := bindEnvironment(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &cfg, validateConfig(&cfg)
}

func bindEnvironment(v *viper.Viper) error {
	v.SetEnvPrefix("SOLTRADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range envAliases {
		if err := v.BindEnv(key, env, "SOLTRADER_"+strings.ToUpper(key)); err != nil {
			return fmt.Errorf("bind %s: %w", env, err)
		}
	}
	return nil
}

// CycleInterval is the pause between decision cycles that did not end
// with an explicit wait.
func (c *Config) CycleInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// APIAddr is the listen address of the read API.
func (c *Config) APIAddr() string {
	return fmt.Sprintf(":%d", c.APIPort)
}

func validateConfig(cfg *Config) error {
	if cfg.RPCURL == "" {
		return errors.New("missing SOLANA_RPC_URL")
	}
	if err := validateURL(cfg.RPCURL, "http"); err != nil {
		return fmt.Errorf("rpc_url: %w", err)
	}
	if cfg.WalletPrivateKey == "" {
		return errors.New("missing WALLET_PRIVATE_KEY")
	}
	if cfg.AnthropicAPIKey == "" {
		return errors.New("missing ANTHROPIC_API_KEY")
	}
	if cfg.XAPIKey == "" {
		return errors.New("missing X_BEARER_TOKEN")
	}
	for name, raw := range map[string]string{
		"anthropic_url":     cfg.AnthropicURL,
		"x_search_url":      cfg.XSearchURL,
		"jupiter_url":       cfg.JupiterURL,
		"jupiter_price_url": cfg.JupiterPriceURL,
		"dexscreener_url":   cfg.DexScreenerURL,
	} {
		if err := validateURL(raw, "http"); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.BuyAmountSol <= 0 {
		return errors.New("invalid buy_amount_sol")
	}
	if cfg.SlippageBps <= 0 || cfg.SlippageBps > 10000 {
		return errors.New("invalid slippage_bps")
	}
	if cfg.MaxConcurrentPositions <= 0 {
		return errors.New("invalid max_concurrent_positions")
	}
	if cfg.MaxPriceImpactPct <= 0 {
		return errors.New("invalid max_price_impact_pct")
	}
	if cfg.FeeReserveSol < 0 {
		return errors.New("invalid fee_reserve_sol")
	}
	if cfg.PollIntervalMs < 0 {
		return errors.New("invalid poll_interval_ms")
	}
	if cfg.MaxTurns <= 0 {
		return errors.New("invalid max_turns")
	}
	if cfg.BackoffBase <= 0 || cfg.BackoffMax < cfg.BackoffBase {
		return errors.New("invalid backoff_base/backoff_max")
	}
	if cfg.FailureThreshold <= 0 {
		return errors.New("invalid failure_threshold")
	}
	if cfg.ActivityMax <= 0 {
		return errors.New("invalid activity_max")
	}
	if cfg.SearchPerMinute <= 0 || cfg.AnalyzePerMinute <= 0 {
		return errors.New("invalid rate limits")
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID == 0 {
		return errors.New("telegram_chat_id is required with telegram_token")
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	return nil
}
