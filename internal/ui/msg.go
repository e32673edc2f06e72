package ui

import "github.com/digitaltitann/soltrader/internal/ledger"

// Tea message types for console updates

// BalanceMsg carries a wallet balance read.
type BalanceMsg struct {
	SOL     float64
	Address string
	Err     error
}

// PortfolioMsg carries the open positions snapshot.
type PortfolioMsg struct {
	Positions []ledger.Position
}

// OutputMsg appends a line to the console output.
type OutputMsg struct {
	Text  string
	Error bool
}
