// internal/market/service.go
package market

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/digitaltitann/soltrader/internal/domain"
)

const (
	DefaultDexScreenerURL  = "https://api.dexscreener.com/latest/dex/tokens"
	DefaultJupiterPriceURL = "https://price.jup.ag/v6/price"
)

// Cache stores recent analyses. Get returns domain.ErrNotFound on a miss.
type Cache interface {
	Get(ctx context.Context, mint string) (*domain.TokenAnalysis, error)
	Set(ctx context.Context, a *domain.TokenAnalysis) error
}

// Config configures the market data service.
type Config struct {
	DexScreenerURL  string
	JupiterPriceURL string
	HTTPClient      *http.Client
	Cache           Cache
	Logger          *zap.Logger
}

// Service looks up token market data, preferring DexScreener and falling
// back to the Jupiter price feed.
type Service struct {
	dexScreenerURL  string
	jupiterPriceURL string
	http            *http.Client
	cache           Cache
	logger          *zap.Logger
}

func NewService(cfg *Config) *Service {
	s := &Service{
		dexScreenerURL:  cfg.DexScreenerURL,
		jupiterPriceURL: cfg.JupiterPriceURL,
		http:            cfg.HTTPClient,
		cache:           cfg.Cache,
		logger:          cfg.Logger.Named("market"),
	}
	if s.dexScreenerURL == "" {
		s.dexScreenerURL = DefaultDexScreenerURL
	}
	if s.jupiterPriceURL == "" {
		s.jupiterPriceURL = DefaultJupiterPriceURL
	}
	if s.http == nil {
		s.http = &http.Client{Timeout: 10 * time.Second}
	}
	return s
}

// TokenAnalysis returns market data for mint, or nil when no source knows
// the token. Upstream failures are logged and treated as "no data".
func (s *Service) TokenAnalysis(ctx context.Context, mint string) (*domain.TokenAnalysis, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, mint)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Debug("Cache lookup failed", zap.String("mint", mint), zap.Error(err))
		}
	}

	analysis, err := s.fromDexScreener(ctx, mint)
	if err != nil {
		s.logger.Warn("DexScreener failed, trying Jupiter", zap.String("mint", mint), zap.Error(err))
	}
	if analysis == nil {
		analysis, err = s.fromJupiter(ctx, mint)
		if err != nil {
			s.logger.Warn("Jupiter price also failed", zap.String("mint", mint), zap.Error(err))
			return nil, nil
		}
	}
	if analysis == nil {
		return nil, nil
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, analysis); err != nil {
			s.logger.Debug("Cache store failed", zap.String("mint", mint), zap.Error(err))
		}
	}
	return analysis, nil
}

// PriceUSD is a convenience wrapper returning 0 when the price is unknown.
func (s *Service) PriceUSD(ctx context.Context, mint string) float64 {
	a, _ := s.TokenAnalysis(ctx, mint)
	if a == nil {
		return 0
	}
	return a.PriceUSD
}

func (s *Service) fromDexScreener(ctx context.Context, mint string) (*domain.TokenAnalysis, error) {
	body, err := s.get(ctx, s.dexScreenerURL+"/"+url.PathEscape(mint))
	if err != nil {
		return nil, err
	}

	var best gjson.Result
	bestLiquidity := -1.0
	gjson.GetBytes(body, "pairs").ForEach(func(_, pair gjson.Result) bool {
		if liq := pair.Get("liquidity.usd").Float(); liq > bestLiquidity {
			best, bestLiquidity = pair, liq
		}
		return true
	})
	if !best.Exists() {
		return nil, nil
	}

	return &domain.TokenAnalysis{
		Mint:           mint,
		Symbol:         best.Get("baseToken.symbol").String(),
		Name:           best.Get("baseToken.name").String(),
		PriceUSD:       best.Get("priceUsd").Float(),
		PriceNative:    best.Get("priceNative").Float(),
		Volume24h:      best.Get("volume.h24").Float(),
		LiquidityUSD:   best.Get("liquidity.usd").Float(),
		PriceChange24h: best.Get("priceChange.h24").Float(),
		MarketCap:      best.Get("marketCap").Float(),
		PairAddress:    best.Get("pairAddress").String(),
		DexID:          best.Get("dexId").String(),
		URL:            best.Get("url").String(),
		Source:         "dexscreener",
	}, nil
}

func (s *Service) fromJupiter(ctx context.Context, mint string) (*domain.TokenAnalysis, error) {
	body, err := s.get(ctx, s.jupiterPriceURL+"?ids="+url.QueryEscape(mint))
	if err != nil {
		return nil, err
	}
	data := gjson.GetBytes(body, "data."+gjson.Escape(mint))
	if !data.Exists() {
		return nil, fmt.Errorf("no price data for %s", mint)
	}
	return &domain.TokenAnalysis{
		Mint:     mint,
		Symbol:   data.Get("mintSymbol").String(),
		PriceUSD: data.Get("price").Float(),
		Source:   "jupiter",
	}, nil
}

func (s *Service) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid JSON")
	}
	return body, nil
}
