// internal/ledger/manager.go
package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Manager is the in-memory index of positions backed by a Store.
// Every mutation is persisted before the call returns.
type Manager struct {
	mu     sync.RWMutex
	open   map[string]Position
	closed []Position
	seen   map[string]struct{}

	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewManager loads the ledger from store.
func NewManager(store Store, logger *zap.Logger) *Manager {
	snap := store.Load()
	m := &Manager{
		open:   make(map[string]Position, len(snap.OpenPositions)),
		closed: append([]Position(nil), snap.ClosedPositions...),
		seen:   make(map[string]struct{}, len(snap.SeenTokens)),
		store:  store,
		logger: logger.Named("positions"),
		now:    time.Now,
	}
	for mint, p := range snap.OpenPositions {
		m.open[mint] = p
	}
	for _, mint := range snap.SeenTokens {
		m.seen[mint] = struct{}{}
	}

	m.logger.Info("📒 Ledger loaded",
		zap.Int("open", len(m.open)),
		zap.Int("closed", len(m.closed)),
		zap.Int("seen", len(m.seen)))
	return m
}

// HasOpenOrSeen reports whether mint has a live position or was bought before.
func (m *Manager) HasOpenOrSeen(mint string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.open[mint]; ok {
		return true
	}
	_, ok := m.seen[mint]
	return ok
}

// OpenCount counts open and partial positions.
func (m *Manager) OpenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.open)
}

// Open records a new position. Callers check for duplicates beforehand.
func (m *Manager) Open(p Position) Position {
	m.mu.Lock()
	p.ID = uuid.New().String()
	p.Status = StatusOpen
	if p.OpenedAt.IsZero() {
		p.OpenedAt = m.now()
	}
	if p.InvestedSol.IsZero() {
		p.InvestedSol = p.EntrySol
	}
	p = p.clone()
	m.open[p.TokenMint] = p
	m.seen[p.TokenMint] = struct{}{}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.store.Save(snap)
	m.logger.Info("🟢 Position opened",
		zap.String("mint", p.TokenMint),
		zap.String("symbol", p.TokenSymbol),
		zap.String("entry_sol", p.EntrySol.String()))
	return p.clone()
}

// Apply runs mutate against a copy of the open position for mint and
// commits the result. A position whose status becomes closed is moved to
// the closed list in the same critical section. Returns false when mint
// has no open position.
func (m *Manager) Apply(mint string, mutate func(p *Position)) (Position, bool) {
	return m.commit(mint, mutate, false)
}

// PhantomClose closes a position whose tokens are gone without a sale.
// The remaining basis is booked as a loss and the mint becomes eligible
// for a fresh entry.
func (m *Manager) PhantomClose(mint, reason string) (Position, bool) {
	p, ok := m.commit(mint, func(p *Position) {
		now := m.now()
		p.Status = StatusClosed
		p.ClosedAt = &now
		p.CloseReason = reason
		p.PnLPct = PhantomPnLPct
		p.RealizedPnLSol = p.RealizedPnLSol.Sub(p.EntrySol)
		p.EntrySol = decimal.Zero
		p.TokenAmount = 0
	}, true)
	if ok {
		m.logger.Warn("👻 Phantom position closed",
			zap.String("mint", mint),
			zap.String("reason", reason))
	}
	return p, ok
}

func (m *Manager) commit(mint string, mutate func(p *Position), evictSeen bool) (Position, bool) {
	m.mu.Lock()
	current, ok := m.open[mint]
	if !ok {
		m.mu.Unlock()
		return Position{}, false
	}

	next := current.clone()
	mutate(&next)
	next.ID = current.ID
	next.TokenMint = current.TokenMint

	if next.Status == StatusClosed {
		if next.ClosedAt == nil {
			now := m.now()
			next.ClosedAt = &now
		}
		delete(m.open, mint)
		m.closed = append(m.closed, next)
	} else {
		m.open[mint] = next
	}
	if evictSeen {
		delete(m.seen, mint)
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.store.Save(snap)
	return next.clone(), true
}

// Get returns the open position for mint.
func (m *Manager) Get(mint string) (Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.open[mint]
	if !ok {
		return Position{}, false
	}
	return p.clone(), true
}

// OpenPositions returns copies of open positions, oldest first.
func (m *Manager) OpenPositions() []Position {
	m.mu.RLock()
	out := make([]Position, 0, len(m.open))
	for _, p := range m.open {
		out = append(out, p.clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].TokenMint < out[j].TokenMint
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

// ClosedPositions returns copies of closed positions in closing order.
func (m *Manager) ClosedPositions() []Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Position, len(m.closed))
	for i, p := range m.closed {
		out[i] = p.clone()
	}
	return out
}

// Snapshot returns a deep copy of the whole ledger.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		OpenPositions:   make(map[string]Position, len(m.open)),
		ClosedPositions: make([]Position, len(m.closed)),
		SeenTokens:      make([]string, 0, len(m.seen)),
		LastUpdated:     m.now(),
	}
	for mint, p := range m.open {
		snap.OpenPositions[mint] = p.clone()
	}
	for i, p := range m.closed {
		snap.ClosedPositions[i] = p.clone()
	}
	for mint := range m.seen {
		snap.SeenTokens = append(snap.SeenTokens, mint)
	}
	sort.Strings(snap.SeenTokens)
	return snap
}
