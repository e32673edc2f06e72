// internal/api/server.go
package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/digitaltitann/soltrader/internal/activity"
	"github.com/digitaltitann/soltrader/internal/export"
	"github.com/digitaltitann/soltrader/internal/ledger"
	"github.com/digitaltitann/soltrader/internal/tools"
)

const (
	defaultActivityLimit   = 200
	maxActivityLimit       = 500
	dashboardActivityLimit = 50
	shutdownTimeout        = 5 * time.Second
)

// ActivityFeed is the read side of the activity log.
type ActivityFeed interface {
	Recent(limit int) []activity.Entry
}

// Config wires the read API.
type Config struct {
	Addr      string
	Positions *ledger.Manager
	Market    tools.MarketData
	Wallet    tools.Wallet
	Activity  ActivityFeed
	Logger    *zap.Logger
}

// Server serves read-only dashboard data.
type Server struct {
	addr      string
	router    *gin.Engine
	positions *ledger.Manager
	market    tools.MarketData
	wallet    tools.Wallet
	activity  ActivityFeed
	logger    *zap.Logger
	exporter  *export.PositionExporter
	srv       *http.Server
}

func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		addr:      cfg.Addr,
		router:    gin.New(),
		positions: cfg.Positions,
		market:    cfg.Market,
		wallet:    cfg.Wallet,
		activity:  cfg.Activity,
		logger:    cfg.Logger.Named("api"),
		exporter:  export.NewPositionExporter(cfg.Logger),
	}
	s.router.Use(gin.Recovery(), s.requestLogger(), cors())

	group := s.router.Group("/api")
	group.GET("/dashboard", s.handleDashboard)
	group.GET("/activity", s.handleActivity)
	group.GET("/health", s.handleHealth)
	group.GET("/export", s.handleExport)
	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("📊 Dashboard API listening", zap.String("addr", s.addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return s.Close()
	case err := <-errCh:
		return err
	}
}

// Close shuts the HTTP server down gracefully.
func (s *Server) Close() error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
}

func (s *Server) handleActivity(c *gin.Context) {
	limit := defaultActivityLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	c.JSON(http.StatusOK, s.activity.Recent(limit))
}

type walletView struct {
	PublicKey  string  `json:"publicKey"`
	SolBalance float64 `json:"solBalance"`
}

// Stats aggregates the ledger for the dashboard.
type Stats struct {
	TotalTrades      int     `json:"totalTrades"`
	OpenCount        int     `json:"openCount"`
	ClosedCount      int     `json:"closedCount"`
	WinRate          float64 `json:"winRate"`
	Wins             int     `json:"wins"`
	Losses           int     `json:"losses"`
	RealizedPnLSol   float64 `json:"realizedPnlSol"`
	UnrealizedPnLSol float64 `json:"unrealizedPnlSol"`
}

type dashboard struct {
	Wallet          walletView        `json:"wallet"`
	Stats           Stats             `json:"stats"`
	OpenPositions   []ledger.Position `json:"openPositions"`
	ClosedPositions []ledger.Position `json:"closedPositions"`
	Activity        []activity.Entry  `json:"activity"`
}

func (s *Server) handleDashboard(c *gin.Context) {
	ctx := c.Request.Context()

	balance, err := s.wallet.SolBalance(ctx)
	if err != nil {
		s.logger.Warn("Dashboard balance read failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	open := tools.RefreshPrices(ctx, s.market, s.positions.OpenPositions(), s.logger)
	closed := s.positions.ClosedPositions()

	c.JSON(http.StatusOK, dashboard{
		Wallet:          walletView{PublicKey: s.wallet.Address(), SolBalance: balance},
		Stats:           ComputeStats(open, closed),
		OpenPositions:   open,
		ClosedPositions: closed,
		Activity:        s.activity.Recent(dashboardActivityLimit),
	})
}

// ComputeStats derives dashboard statistics. A closed position is a win
// when its realized SOL P&L is positive. Realized P&L includes tranches
// already sold from positions that are still open.
func ComputeStats(open, closed []ledger.Position) Stats {
	st := Stats{
		TotalTrades: len(open) + len(closed),
		OpenCount:   len(open),
		ClosedCount: len(closed),
	}

	realized := decimal.Zero
	for _, p := range closed {
		realized = realized.Add(p.RealizedPnLSol)
		if p.RealizedPnLSol.IsPositive() {
			st.Wins++
		}
	}
	st.Losses = len(closed) - st.Wins

	unrealized := decimal.Zero
	for _, p := range open {
		realized = realized.Add(p.RealizedPnLSol)
		unrealized = unrealized.Add(p.UnrealizedPnLSol())
	}

	if len(closed) > 0 {
		st.WinRate = math.Round(float64(st.Wins)/float64(len(closed))*1000) / 10
	}
	st.RealizedPnLSol = realized.Round(4).InexactFloat64()
	st.UnrealizedPnLSol = unrealized.Round(4).InexactFloat64()
	return st
}
