// internal/bot/runner.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/digitaltitann/soltrader/internal/activity"
	"github.com/digitaltitann/soltrader/internal/agent"
	"github.com/digitaltitann/soltrader/internal/api"
	"github.com/digitaltitann/soltrader/internal/blockchain/solbc"
	rediscache "github.com/digitaltitann/soltrader/internal/cache/redis"
	"github.com/digitaltitann/soltrader/internal/config"
	"github.com/digitaltitann/soltrader/internal/dex/jupiter"
	"github.com/digitaltitann/soltrader/internal/ledger"
	"github.com/digitaltitann/soltrader/internal/market"
	"github.com/digitaltitann/soltrader/internal/notify"
	"github.com/digitaltitann/soltrader/internal/social"
	"github.com/digitaltitann/soltrader/internal/tools"
	"github.com/digitaltitann/soltrader/internal/ui"
	"github.com/digitaltitann/soltrader/internal/wallet"
)

// ErrBalanceTooLow stops startup when the wallet cannot pay for trades.
var ErrBalanceTooLow = errors.New("wallet balance too low to start trading")

type Runner struct {
	logger     *zap.Logger
	config     *config.Config
	shutdown   *ShutdownHandler
	shutdownCh chan os.Signal
}

func NewRunner(cfg *config.Config, logger *zap.Logger) *Runner {
	return &Runner{
		logger:     logger,
		config:     cfg,
		shutdown:   NewShutdownHandler(logger, 10*time.Second),
		shutdownCh: make(chan os.Signal, 1),
	}
}

// Run wires every component and blocks until a signal arrives, the
// operator exits the console, or a server fails.
func (r *Runner) Run(ctx context.Context) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(r.shutdownCh)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case sig := <-r.shutdownCh:
			r.logger.Info("📡 Signal received: " + sig.String())
			cancel()
		case <-runCtx.Done():
		}
	}()
	defer r.shutdown.Shutdown()

	cfg := r.config
	w, err := wallet.NewWallet(cfg.WalletPrivateKey)
	if err != nil {
		return fmt.Errorf("load wallet: %w", err)
	}
	chain := solbc.NewClient(cfg.RPCURL, r.logger)
	account := solbc.NewAccount(chain, w.PublicKey)

	balance, err := account.SolBalance(runCtx)
	if err != nil {
		if solbc.IsRateLimited(err) {
			r.logger.Error("RPC node is rate limiting requests, configure a private RPC_URL", zap.Error(err))
		}
		return fmt.Errorf("read wallet balance: %w", err)
	}
	r.logger.Info("💼 Wallet loaded",
		zap.String("address", account.Address()),
		zap.Float64("balance_sol", balance))
	if balance < cfg.MinStartBalanceSol {
		r.logger.Error("Wallet balance too low, send SOL to the wallet to start trading",
			zap.String("address", account.Address()),
			zap.Float64("balance_sol", balance),
			zap.Float64("required_sol", cfg.MinStartBalanceSol))
		return ErrBalanceTooLow
	}

	activityLog := activity.NewLog(cfg.ActivityFile, cfg.ActivityMax, r.logger)
	r.logger.Debug("Activity log loaded", zap.Int("entries", activityLog.Len()))
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, r.logger)
		if err != nil {
			r.logger.Warn("Telegram notifications disabled", zap.Error(err))
		} else {
			activityLog.SetNotifier(tg)
			r.shutdown.Add("telegram", tg)
		}
	}

	marketCfg := &market.Config{
		DexScreenerURL:  cfg.DexScreenerURL,
		JupiterPriceURL: cfg.JupiterPriceURL,
		Logger:          r.logger,
	}
	if cfg.RedisAddr != "" {
		rc, err := rediscache.New(runCtx, rediscache.ClientConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			r.logger.Warn("Redis unavailable, market data will not be cached", zap.Error(err))
		} else {
			marketCfg.Cache = rediscache.NewAnalysisCache(rc, cfg.PriceCacheTTL)
			r.shutdown.Add("redis", rc)
		}
	}
	marketData := market.NewService(marketCfg)

	swapper := jupiter.NewClient(&jupiter.Config{
		BaseURL:     cfg.JupiterURL,
		APIKey:      cfg.JupiterAPIKey,
		SlippageBps: cfg.SlippageBps,
		Chain:       chain,
		Signer:      w,
		Logger:      r.logger,
	})
	search := social.NewClient(&social.Config{
		SearchURL: cfg.XSearchURL,
		APIKey:    cfg.XAPIKey,
		Logger:    r.logger,
	})
	positions := ledger.NewManager(ledger.NewFileStore(cfg.PositionsFile, r.logger), r.logger)

	gateway := tools.NewGateway(&tools.Config{
		Positions: positions,
		Activity:  activityLog,
		Swapper:   swapper,
		Market:    marketData,
		Social:    search,
		Wallet:    account,
		Limits: tools.Limits{
			BuyAmountSol:           cfg.BuyAmountSol,
			MaxConcurrentPositions: cfg.MaxConcurrentPositions,
			FeeReserveSol:          cfg.FeeReserveSol,
			MaxPriceImpactPct:      cfg.MaxPriceImpactPct,
			MinLiquidityUSD:        cfg.MinLiquidityUSD,
			MinLikes:               cfg.MinLikes,
			MinRetweets:            cfg.MinRetweets,
			SearchPerMinute:        cfg.SearchPerMinute,
			AnalyzePerMinute:       cfg.AnalyzePerMinute,
		},
		Logger: r.logger,
	})

	planner := agent.NewAnthropicPlanner(&agent.AnthropicConfig{
		URL:       cfg.AnthropicURL,
		APIKey:    cfg.AnthropicAPIKey,
		Model:     cfg.AnthropicModel,
		MaxTokens: cfg.AnthropicMaxTokens,
		Tools:     gateway.Definitions(),
		Logger:    r.logger,
	})
	loop := agent.NewLoop(&agent.LoopConfig{
		Planner:  planner,
		Executor: gateway,
		Activity: activityLog,
		MaxTurns: cfg.MaxTurns,
		Logger:   r.logger,
	})
	supervisor := agent.NewSupervisor(&agent.SupervisorConfig{
		Loop:             loop,
		Activity:         activityLog,
		Logger:           r.logger,
		Interval:         cfg.CycleInterval(),
		BackoffBase:      cfg.BackoffBase,
		BackoffMax:       cfg.BackoffMax,
		FailureThreshold: cfg.FailureThreshold,
		Cooldown:         cfg.Cooldown,
	})

	server := api.NewServer(&api.Config{
		Addr:      cfg.APIAddr(),
		Positions: positions,
		Market:    marketData,
		Wallet:    account,
		Activity:  activityLog,
		Logger:    r.logger,
	})

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		if err := server.Start(gctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("dashboard api: %w", err)
		}
		return nil
	})
	if cfg.Console {
		g.Go(func() error {
			defer cancel()
			return ui.Run(gctx, ui.Backend{
				Positions: positions,
				Wallet:    account,
				Submit:    supervisor.Submit,
			})
		})
	}
	g.Go(func() error {
		if err := supervisor.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	activityLog.Add(activity.KindInfo, fmt.Sprintf("Agent started with %.4f SOL", balance), map[string]interface{}{
		"wallet": account.Address(),
	})

	err = g.Wait()
	r.logger.Info("👋 Agent shutting down")
	return err
}

// Sync flushes the logger, ignoring the errors terminals report for
// stdout and stderr.
func (r *Runner) Sync() {
	if err := r.logger.Sync(); err != nil {
		if !os.IsNotExist(err) &&
			err.Error() != "sync /dev/stdout: invalid argument" &&
			err.Error() != "sync /dev/stderr: inappropriate ioctl for device" {
			fmt.Fprintf(os.Stderr, "failed to sync logger during shutdown: %v\n", err)
		}
	}
}
