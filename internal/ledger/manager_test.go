// internal/ledger/manager_test.go
package ledger

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memStore struct {
	mu    sync.Mutex
	snap  Snapshot
	saves int
}

func (s *memStore) Load() Snapshot { return EmptySnapshot() }

func (s *memStore) Save(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	s.saves++
}

func newTestManager() (*Manager, *memStore) {
	store := &memStore{}
	return NewManager(store, zap.NewNop()), store
}

func openPosition(m *Manager, mint string) Position {
	return m.Open(Position{
		TokenMint:     mint,
		TokenSymbol:   "TST",
		EntryPriceUSD: 1.0,
		EntrySol:      decimal.RequireFromString("0.1"),
		TokenAmount:   1_000_000,
		TxSignatures:  []string{"buy-sig"},
	})
}

func TestOpenAssignsIDAndMarksSeen(t *testing.T) {
	m, store := newTestManager()

	p := openPosition(m, "MintA")

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, StatusOpen, p.Status)
	assert.False(t, p.OpenedAt.IsZero())
	assert.True(t, p.InvestedSol.Equal(p.EntrySol))
	assert.True(t, m.HasOpenOrSeen("MintA"))
	assert.False(t, m.HasOpenOrSeen("MintB"))
	assert.Equal(t, 1, m.OpenCount())
	assert.Equal(t, 1, store.saves)
	assert.Contains(t, store.snap.OpenPositions, "MintA")
	assert.Equal(t, []string{"MintA"}, store.snap.SeenTokens)
}

func TestApplyPartialKeepsPositionOpen(t *testing.T) {
	m, _ := newTestManager()
	openPosition(m, "MintA")

	p, ok := m.Apply("MintA", func(p *Position) {
		p.Status = StatusPartial
		p.TokenAmount = 500_000
		p.TxSignatures = append(p.TxSignatures, "sell-sig")
	})

	require.True(t, ok)
	assert.Equal(t, StatusPartial, p.Status)
	assert.Equal(t, 1, m.OpenCount())
	got, ok := m.Get("MintA")
	require.True(t, ok)
	assert.Equal(t, []string{"buy-sig", "sell-sig"}, got.TxSignatures)
}

func TestApplyCloseMovesToClosedList(t *testing.T) {
	m, store := newTestManager()
	openPosition(m, "MintA")

	p, ok := m.Apply("MintA", func(p *Position) { p.Status = StatusClosed })

	require.True(t, ok)
	require.NotNil(t, p.ClosedAt)
	assert.Equal(t, 0, m.OpenCount())
	_, stillOpen := m.Get("MintA")
	assert.False(t, stillOpen)
	require.Len(t, m.ClosedPositions(), 1)
	assert.NotContains(t, store.snap.OpenPositions, "MintA")
	assert.Len(t, store.snap.ClosedPositions, 1)
	assert.True(t, m.HasOpenOrSeen("MintA"), "a sold mint stays in the seen set")
}

func TestApplyUnknownMint(t *testing.T) {
	m, store := newTestManager()
	_, ok := m.Apply("missing", func(p *Position) { p.Status = StatusClosed })
	assert.False(t, ok)
	assert.Equal(t, 0, store.saves)
}

func TestApplyCannotChangeIdentity(t *testing.T) {
	m, _ := newTestManager()
	opened := openPosition(m, "MintA")

	p, ok := m.Apply("MintA", func(p *Position) {
		p.ID = "other"
		p.TokenMint = "MintB"
	})
	require.True(t, ok)
	assert.Equal(t, opened.ID, p.ID)
	assert.Equal(t, "MintA", p.TokenMint)
}

func TestPhantomCloseAllowsReentry(t *testing.T) {
	m, store := newTestManager()
	openPosition(m, "MintA")

	p, ok := m.PhantomClose("MintA", "zero on-chain balance")

	require.True(t, ok)
	assert.Equal(t, StatusClosed, p.Status)
	assert.Equal(t, PhantomPnLPct, p.PnLPct)
	assert.True(t, p.RealizedPnLSol.Equal(decimal.RequireFromString("-0.1")))
	assert.True(t, p.EntrySol.IsZero())
	require.NotNil(t, p.ClosedAt)

	assert.False(t, m.HasOpenOrSeen("MintA"))
	assert.Empty(t, m.OpenPositions())
	closed := m.ClosedPositions()
	require.Len(t, closed, 1)
	assert.Equal(t, "MintA", closed[0].TokenMint)
	assert.Empty(t, store.snap.SeenTokens)

	reopened := openPosition(m, "MintA")
	assert.NotEqual(t, p.ID, reopened.ID)
	assert.Equal(t, 1, m.OpenCount())
}

func TestPhantomCloseUnknownMint(t *testing.T) {
	m, _ := newTestManager()
	_, ok := m.PhantomClose("missing", "zero balance")
	assert.False(t, ok)
}

func TestQueriesReturnCopies(t *testing.T) {
	m, _ := newTestManager()
	openPosition(m, "MintA")

	list := m.OpenPositions()
	list[0].TxSignatures[0] = "tampered"
	list[0].Status = StatusClosed

	snap := m.Snapshot()
	snap.OpenPositions["MintA"] = Position{}

	got, ok := m.Get("MintA")
	require.True(t, ok)
	assert.Equal(t, "buy-sig", got.TxSignatures[0])
	assert.Equal(t, StatusOpen, got.Status)
}

func TestManagerReloadsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.json")
	m := NewManager(NewFileStore(path, zap.NewNop()), zap.NewNop())
	openPosition(m, "MintA")
	openPosition(m, "MintB")
	m.Apply("MintB", func(p *Position) { p.Status = StatusClosed })

	reloaded := NewManager(NewFileStore(path, zap.NewNop()), zap.NewNop())
	assert.Equal(t, 1, reloaded.OpenCount())
	assert.Len(t, reloaded.ClosedPositions(), 1)
	assert.True(t, reloaded.HasOpenOrSeen("MintB"))
}

func TestConcurrentReadsDuringMutation(t *testing.T) {
	m, _ := newTestManager()
	openPosition(m, "MintA")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				for _, p := range m.OpenPositions() {
					assert.NotEqual(t, StatusClosed, p.Status)
				}
				_ = m.Snapshot()
			}
		}()
	}
	for j := 0; j < 100; j++ {
		m.Apply("MintA", func(p *Position) { p.TokenAmount++ })
	}
	wg.Wait()
}
