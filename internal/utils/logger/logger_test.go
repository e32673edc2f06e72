// internal/utils/logger/logger_test.go
package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.log")
	log, err := New(&Config{LogFile: path, MaxSize: 1, Console: false})
	require.NoError(t, err)

	log.WithComponent("ledger").Info("snapshot saved")
	log.LogError("swap failed", errors.New("blockhash expired"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"ledger"`)
	assert.Contains(t, string(data), `"timestamp"`)
	assert.Contains(t, string(data), `"error":"blockhash expired"`)
}

func TestTrackPerformanceLogsAtDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.log")
	log, err := New(&Config{LogFile: path, MaxSize: 1, Development: true})
	require.NoError(t, err)

	end := log.TrackPerformance("decision_cycle")
	end()
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Operation completed")
	assert.Contains(t, string(data), `"operation":"decision_cycle"`)
}
