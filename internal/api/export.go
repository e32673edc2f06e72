// internal/api/export.go
package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/digitaltitann/soltrader/internal/export"
	"github.com/digitaltitann/soltrader/internal/ledger"
)

// handleExport streams open and closed positions as a CSV or JSON download.
// Query: format, status, mint, since, until (RFC3339).
func (s *Server) handleExport(c *gin.Context) {
	opts, err := exportOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	positions := append(s.positions.OpenPositions(), s.positions.ClosedPositions()...)

	var buf bytes.Buffer
	if _, err := s.exporter.Export(&buf, positions, opts); err != nil {
		s.logger.Error("Export failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	contentType := "text/csv"
	if opts.Format == export.FormatJSON {
		contentType = "application/json"
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, s.exporter.Filename(opts)))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func exportOptions(c *gin.Context) (export.Options, error) {
	var opts export.Options

	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		return opts, err
	}
	opts.Format = format

	switch status := ledger.Status(c.Query("status")); status {
	case "", ledger.StatusOpen, ledger.StatusPartial, ledger.StatusClosed:
		opts.Status = status
	default:
		return opts, fmt.Errorf("invalid status: %s", status)
	}

	opts.Mint = c.Query("mint")

	if v := c.Query("since"); v != "" {
		if opts.Since, err = time.Parse(time.RFC3339, v); err != nil {
			return opts, fmt.Errorf("invalid since: %w", err)
		}
	}
	if v := c.Query("until"); v != "" {
		if opts.Until, err = time.Parse(time.RFC3339, v); err != nil {
			return opts, fmt.Errorf("invalid until: %w", err)
		}
	}
	return opts, nil
}
