// internal/dex/jupiter/client.go
package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/digitaltitann/soltrader/internal/blockchain"
	"github.com/digitaltitann/soltrader/internal/domain"
)

const (
	DefaultBaseURL         = "https://api.jup.ag/swap/v1"
	DefaultMaxPriorityFee  = 1_000_000
	defaultRetryMaxElapsed = 15 * time.Second
)

// Config configures the aggregator client.
type Config struct {
	BaseURL                string
	APIKey                 string
	SlippageBps            int
	MaxPriorityFeeLamports uint64
	HTTPClient             *http.Client
	Chain                  blockchain.Client
	Signer                 Signer
	Logger                 *zap.Logger
}

// Client quotes and executes swaps through the Jupiter aggregator.
type Client struct {
	baseURL        string
	apiKey         string
	slippageBps    int
	maxPriorityFee uint64
	http           *http.Client
	chain          blockchain.Client
	signer         Signer
	logger         *zap.Logger
	retryElapsed   time.Duration
}

func NewClient(cfg *Config) *Client {
	c := &Client{
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		slippageBps:    cfg.SlippageBps,
		maxPriorityFee: cfg.MaxPriorityFeeLamports,
		http:           cfg.HTTPClient,
		chain:          cfg.Chain,
		signer:         cfg.Signer,
		logger:         cfg.Logger.Named("jupiter"),
		retryElapsed:   defaultRetryMaxElapsed,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.maxPriorityFee == 0 {
		c.maxPriorityFee = DefaultMaxPriorityFee
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 20 * time.Second}
	}
	return c
}

// Quote prices amount (raw units of inputMint) into outputMint.
func (c *Client) Quote(ctx context.Context, inputMint, outputMint string, amount uint64) (*domain.Quote, error) {
	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", strconv.FormatUint(amount, 10))
	params.Set("slippageBps", strconv.Itoa(c.slippageBps))

	body, err := c.do(ctx, "quote", http.MethodGet, c.baseURL+"/quote?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, ErrInvalidResponse
	}
	if msg := gjson.GetBytes(body, "error"); msg.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrNoRoute, msg.String())
	}

	res := gjson.ParseBytes(body)
	q := &domain.Quote{
		InputMint:      res.Get("inputMint").String(),
		OutputMint:     res.Get("outputMint").String(),
		InAmount:       res.Get("inAmount").Uint(),
		OutAmount:      res.Get("outAmount").Uint(),
		PriceImpactPct: res.Get("priceImpactPct").Float(),
		SlippageBps:    int(res.Get("slippageBps").Int()),
		Raw:            json.RawMessage(body),
	}
	if q.OutAmount == 0 {
		return nil, fmt.Errorf("%w: zero output for %s -> %s", ErrNoRoute, inputMint, outputMint)
	}

	c.logger.Debug("Quote received",
		zap.String("in", inputMint),
		zap.String("out", outputMint),
		zap.Uint64("in_amount", q.InAmount),
		zap.Uint64("out_amount", q.OutAmount),
		zap.Float64("price_impact_pct", q.PriceImpactPct))
	return q, nil
}

// do performs one HTTP call with retries on throttling and server errors.
func (c *Client) do(ctx context.Context, endpoint, method, target string, payload []byte) ([]byte, error) {
	operation := func() ([]byte, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.apiKey != "" {
			req.Header.Set("x-api-key", c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			apiErr := &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(body)}
			if apiErr.Retryable() {
				c.logger.Warn("Jupiter request throttled or failed, retrying",
					zap.String("endpoint", endpoint),
					zap.Int("status", resp.StatusCode))
				return nil, apiErr
			}
			return nil, backoff.Permanent(apiErr)
		}
		return body, nil
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(c.retryElapsed),
	)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, fmt.Errorf("jupiter %s: %w", endpoint, err)
	}
	return body, nil
}
