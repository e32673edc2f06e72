// internal/ledger/store.go
package ledger

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/digitaltitann/soltrader/internal/utils/jsonfile"
)

// Store persists ledger snapshots.
type Store interface {
	Load() Snapshot
	Save(Snapshot)
}

// FileStore keeps the snapshot in a single JSON file.
type FileStore struct {
	path   string
	logger *zap.Logger
}

func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.Named("ledger-store"),
	}
}

// Load never fails: a missing or unreadable file yields an empty snapshot.
func (s *FileStore) Load() Snapshot {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("No ledger file, starting fresh", zap.String("path", s.path))
		} else {
			s.logger.Warn("Failed to read ledger, starting fresh", zap.String("path", s.path), zap.Error(err))
		}
		return EmptySnapshot()
	}

	snap := EmptySnapshot()
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("Corrupt ledger file, starting fresh", zap.String("path", s.path), zap.Error(err))
		return EmptySnapshot()
	}
	if snap.OpenPositions == nil {
		snap.OpenPositions = make(map[string]Position)
	}
	return normalize(snap)
}

// Save overwrites the ledger file atomically. Errors are logged only.
func (s *FileStore) Save(snap Snapshot) {
	if err := jsonfile.WriteAtomic(s.path, snap); err != nil {
		s.logger.Error("Failed to save ledger", zap.String("path", s.path), zap.Error(err))
	}
}

// normalize moves closed records that leaked into the open index to the
// closed list and makes sure every open mint is marked as seen.
func normalize(snap Snapshot) Snapshot {
	closedIDs := make(map[string]struct{}, len(snap.ClosedPositions))
	for _, p := range snap.ClosedPositions {
		closedIDs[p.ID] = struct{}{}
	}
	seen := make(map[string]struct{}, len(snap.SeenTokens))
	for _, mint := range snap.SeenTokens {
		seen[mint] = struct{}{}
	}

	for mint, p := range snap.OpenPositions {
		if p.Status == StatusClosed {
			delete(snap.OpenPositions, mint)
			if _, dup := closedIDs[p.ID]; !dup {
				snap.ClosedPositions = append(snap.ClosedPositions, p)
				closedIDs[p.ID] = struct{}{}
			}
			continue
		}
		if _, ok := seen[mint]; !ok {
			snap.SeenTokens = append(snap.SeenTokens, mint)
			seen[mint] = struct{}{}
		}
	}
	return snap
}
