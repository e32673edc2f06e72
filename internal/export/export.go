package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/digitaltitann/soltrader/internal/ledger"
)

// Format represents the export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" or "json", case-insensitive. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Options configures the export behavior
type Options struct {
	Format Format
	Since  time.Time // opened at or after
	Until  time.Time // opened at or before
	Mint   string
	Status ledger.Status
}

// PositionExporter writes ledger positions as CSV or JSON.
type PositionExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewPositionExporter(logger *zap.Logger) *PositionExporter {
	return &PositionExporter{
		logger: logger.Named("export"),
		now:    time.Now,
	}
}

// Export writes the positions matching opts to w, oldest first, and
// returns how many were written.
func (pe *PositionExporter) Export(w io.Writer, positions []ledger.Position, opts Options) (int, error) {
	filtered := filterPositions(positions, opts)
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].OpenedAt.Before(filtered[j].OpenedAt)
	})

	var err error
	switch opts.Format {
	case FormatCSV, "":
		err = writeCSV(w, filtered)
	case FormatJSON:
		err = pe.writeJSON(w, filtered)
	default:
		err = fmt.Errorf("unsupported format: %s", opts.Format)
	}
	if err != nil {
		return 0, err
	}

	pe.logger.Info("Positions exported",
		zap.Int("count", len(filtered)),
		zap.String("format", string(opts.Format)))
	return len(filtered), nil
}

// Filename suggests a download name for an export made now.
func (pe *PositionExporter) Filename(opts Options) string {
	prefix := "positions_all"
	if opts.Status != "" {
		prefix = "positions_" + string(opts.Status)
	}
	if len(opts.Mint) >= 8 {
		prefix += "_" + opts.Mint[:8]
	}
	format := opts.Format
	if format == "" {
		format = FormatCSV
	}
	return fmt.Sprintf("%s_%s.%s", prefix, pe.now().Format("20060102_150405"), format)
}

func filterPositions(positions []ledger.Position, opts Options) []ledger.Position {
	filtered := make([]ledger.Position, 0, len(positions))
	for _, p := range positions {
		if !opts.Since.IsZero() && p.OpenedAt.Before(opts.Since) {
			continue
		}
		if !opts.Until.IsZero() && p.OpenedAt.After(opts.Until) {
			continue
		}
		if opts.Mint != "" && p.TokenMint != opts.Mint {
			continue
		}
		if opts.Status != "" && p.Status != opts.Status {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

var csvHeaders = []string{
	"id", "token_mint", "token_symbol", "status", "opened_at", "closed_at",
	"invested_sol", "entry_sol", "realized_pnl_sol", "pnl_pct",
	"entry_price_usd", "current_price_usd", "token_amount", "close_reason", "tx_signatures",
}

func csvRow(p ledger.Position) []string {
	closedAt := ""
	if p.ClosedAt != nil {
		closedAt = p.ClosedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		p.ID,
		p.TokenMint,
		p.TokenSymbol,
		string(p.Status),
		p.OpenedAt.UTC().Format(time.RFC3339),
		closedAt,
		p.InvestedSol.String(),
		p.EntrySol.String(),
		p.RealizedPnLSol.String(),
		strconv.FormatFloat(p.PnLPct, 'f', 2, 64),
		strconv.FormatFloat(p.EntryPriceUSD, 'g', -1, 64),
		strconv.FormatFloat(p.CurrentPriceUSD, 'g', -1, 64),
		strconv.FormatUint(p.TokenAmount, 10),
		p.CloseReason,
		strings.Join(p.TxSignatures, ";"),
	}
}

func writeCSV(w io.Writer, positions []ledger.Position) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, p := range positions {
		if err := writer.Write(csvRow(p)); err != nil {
			return fmt.Errorf("failed to write position %s: %w", p.ID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (pe *PositionExporter) writeJSON(w io.Writer, positions []ledger.Position) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime    time.Time         `json:"export_time"`
		PositionCount int               `json:"position_count"`
		Positions     []ledger.Position `json:"positions"`
		Summary       Summary           `json:"summary"`
	}{
		ExportTime:    pe.now().UTC(),
		PositionCount: len(positions),
		Positions:     positions,
		Summary:       Summarize(positions),
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Summary contains statistics over a set of positions
type Summary struct {
	Positions      int             `json:"positions"`
	Closed         int             `json:"closed"`
	WinCount       int             `json:"win_count"`
	LossCount      int             `json:"loss_count"`
	UniqueTokens   int             `json:"unique_tokens"`
	InvestedSol    decimal.Decimal `json:"invested_sol"`
	RealizedPnLSol decimal.Decimal `json:"realized_pnl_sol"`
	WinRate        float64         `json:"win_rate"`
	FirstOpened    *time.Time      `json:"first_opened,omitempty"`
	LastOpened     *time.Time      `json:"last_opened,omitempty"`
}

// Summarize computes Summary. Wins and losses count closed positions only.
func Summarize(positions []ledger.Position) Summary {
	s := Summary{
		Positions:      len(positions),
		InvestedSol:    decimal.Zero,
		RealizedPnLSol: decimal.Zero,
	}
	tokens := make(map[string]struct{})
	for i, p := range positions {
		tokens[p.TokenMint] = struct{}{}
		s.InvestedSol = s.InvestedSol.Add(p.InvestedSol)
		s.RealizedPnLSol = s.RealizedPnLSol.Add(p.RealizedPnLSol)

		opened := positions[i].OpenedAt
		if s.FirstOpened == nil || opened.Before(*s.FirstOpened) {
			s.FirstOpened = &opened
		}
		if s.LastOpened == nil || opened.After(*s.LastOpened) {
			s.LastOpened = &opened
		}

		if p.Status != ledger.StatusClosed {
			continue
		}
		s.Closed++
		switch {
		case p.RealizedPnLSol.IsPositive():
			s.WinCount++
		case p.RealizedPnLSol.IsNegative():
			s.LossCount++
		}
	}
	s.UniqueTokens = len(tokens)
	if s.Closed > 0 {
		s.WinRate = float64(s.WinCount) / float64(s.Closed) * 100
	}
	return s
}
