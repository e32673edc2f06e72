package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/digitaltitann/soltrader/internal/blockchain/solbc"
	"github.com/digitaltitann/soltrader/internal/ledger"
	"github.com/digitaltitann/soltrader/internal/tools"
	"github.com/digitaltitann/soltrader/internal/ui/style"
)

const maxOutputLines = 200

const helpText = `Commands:
  <mint address>   buy a token (the agent analyzes it first)
  status           show open positions
  balance          show SOL balance
  help             show this help
  exit             stop the agent`

// Backend is what the console operates on.
type Backend struct {
	Positions *ledger.Manager
	Wallet    tools.Wallet
	Submit    func(mint string) error
}

// Model is the operator console.
type Model struct {
	ctx     context.Context
	backend Backend
	input   textinput.Model
	styles  style.ConsoleStyles
	output  []string
	width   int
	quit    bool
}

func NewModel(ctx context.Context, backend Backend) Model {
	ti := textinput.New()
	ti.Prompt = "soltrader> "
	ti.Placeholder = "paste a mint address or type help"
	ti.CharLimit = 64
	ti.Width = 60
	ti.Focus()

	m := Model{
		ctx:     ctx,
		backend: backend,
		input:   ti,
		styles:  style.NewConsoleStyles(style.DefaultPalette()),
	}
	m.input.PromptStyle = m.styles.Prompt
	m.output = append(m.output, m.styles.Muted.Render(helpText))
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.readBalance())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quit = true
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			m.appendLine(m.styles.Muted.Render("> " + line))
			return m.handle(line)
		}

	case BalanceMsg:
		if msg.Err != nil {
			m.appendError(fmt.Sprintf("balance: %v", msg.Err))
		} else {
			m.appendLine(fmt.Sprintf("SOL balance: %.4f (%s)", msg.SOL, msg.Address))
		}
		return m, nil

	case PortfolioMsg:
		m.appendLine(m.renderPositions(msg.Positions))
		return m, nil

	case OutputMsg:
		if msg.Error {
			m.appendError(msg.Text)
		} else {
			m.appendLine(msg.Text)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handle(line string) (tea.Model, tea.Cmd) {
	switch strings.ToLower(line) {
	case "exit", "quit":
		m.quit = true
		return m, tea.Quit
	case "status", "portfolio":
		return m, m.readPortfolio()
	case "balance":
		return m, m.readBalance()
	case "help":
		m.appendLine(m.styles.Muted.Render(helpText))
		return m, nil
	}

	if !solbc.IsValidMint(line) {
		m.appendError(`Unknown command. Paste a Solana token address to buy, or type "status", "balance", "exit".`)
		return m, nil
	}
	if err := m.backend.Submit(line); err != nil {
		m.appendError(fmt.Sprintf("manual buy not queued: %v", err))
		return m, nil
	}
	m.appendLine(fmt.Sprintf("Manual buy queued for %s", line))
	return m, nil
}

func (m Model) readBalance() tea.Cmd {
	wallet, ctx := m.backend.Wallet, m.ctx
	return func() tea.Msg {
		sol, err := wallet.SolBalance(ctx)
		return BalanceMsg{SOL: sol, Address: wallet.Address(), Err: err}
	}
}

func (m Model) readPortfolio() tea.Cmd {
	positions := m.backend.Positions
	return func() tea.Msg {
		return PortfolioMsg{Positions: positions.OpenPositions()}
	}
}

func (m Model) renderPositions(positions []ledger.Position) string {
	if len(positions) == 0 {
		return "No open positions."
	}
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Open Positions"))
	for _, p := range positions {
		symbol := p.TokenSymbol
		if symbol == "" {
			symbol = p.TokenMint[:8] + "..."
		}
		pnl := m.styles.PnLPositive
		if p.PnLPct < 0 {
			pnl = m.styles.PnLNegative
		}
		fmt.Fprintf(&b, "\n  %s | Invested: %s SOL | P&L: %s | Status: %s",
			symbol, p.InvestedSol.String(), pnl.Render(fmt.Sprintf("%.1f%%", p.PnLPct)), p.Status)
	}
	return b.String()
}

func (m *Model) appendLine(s string) {
	m.output = append(m.output, s)
	if len(m.output) > maxOutputLines {
		m.output = m.output[len(m.output)-maxOutputLines:]
	}
}

func (m *Model) appendError(s string) {
	m.appendLine(m.styles.Error.Render(s))
}

// Quitting reports whether the operator asked to stop.
func (m Model) Quitting() bool {
	return m.quit
}

func (m Model) View() string {
	if m.quit {
		return "Shutting down...\n"
	}
	header := m.styles.Title.Render("=== SolTrader Agent ===")
	body := m.styles.Output.Render(strings.Join(m.output, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, header, body, "", m.input.View()) + "\n"
}

// Run starts the console and blocks until the operator exits or ctx ends.
func Run(ctx context.Context, backend Backend) error {
	program := tea.NewProgram(NewModel(ctx, backend), tea.WithContext(ctx))
	_, err := program.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
