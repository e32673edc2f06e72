// internal/activity/activity.go
package activity

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/digitaltitann/soltrader/internal/utils/jsonfile"
)

// Kind classifies an activity entry.
type Kind string

const (
	KindBuy    Kind = "buy"
	KindSell   Kind = "sell"
	KindSignal Kind = "signal"
	KindError  Kind = "error"
	KindInfo   Kind = "info"
	KindAgent  Kind = "agent"
)

// Entry is one line of the activity feed.
type Entry struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Type      Kind                   `json:"type"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Notifier receives entries worth pushing to an operator.
type Notifier interface {
	Notify(e Entry)
}

// Log is a newest-first activity feed capped at a fixed size and mirrored
// to a JSON file.
type Log struct {
	mu       sync.RWMutex
	entries  []Entry
	max      int
	path     string
	notifier Notifier
	logger   *zap.Logger
}

func NewLog(path string, max int, logger *zap.Logger) *Log {
	l := &Log{
		max:    max,
		path:   path,
		logger: logger.Named("activity"),
	}
	l.load()
	return l
}

// SetNotifier installs n; nil disables notifications.
func (l *Log) SetNotifier(n Notifier) {
	l.mu.Lock()
	l.notifier = n
	l.mu.Unlock()
}

func (l *Log) load() {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("Failed to read activity log", zap.Error(err))
		}
		return
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		l.logger.Warn("Corrupt activity log, starting empty", zap.Error(err))
		return
	}
	if len(entries) > l.max {
		entries = entries[:l.max]
	}
	l.entries = entries
}

// Add prepends an entry, drops the oldest beyond the cap and persists.
func (l *Log) Add(kind Kind, message string, data map[string]interface{}) Entry {
	e := Entry{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Type:      kind,
		Message:   message,
		Data:      data,
	}

	l.mu.Lock()
	l.entries = append([]Entry{e}, l.entries...)
	if len(l.entries) > l.max {
		l.entries = l.entries[:l.max]
	}
	snapshot := append([]Entry(nil), l.entries...)
	notifier := l.notifier
	l.mu.Unlock()

	if err := jsonfile.WriteAtomic(l.path, snapshot); err != nil {
		l.logger.Error("Failed to save activity log", zap.Error(err))
	}

	if notifier != nil && kind != KindAgent && kind != KindSignal {
		notifier.Notify(e)
	}
	return e
}

// Recent returns up to limit entries, newest first. limit <= 0 means all.
func (l *Log) Recent(limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := len(l.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	return append([]Entry(nil), l.entries[:n]...)
}

// Len returns the number of stored entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
