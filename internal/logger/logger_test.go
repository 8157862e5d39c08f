package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	log, err := New(Config{Level: "debug", Dir: dir, Name: FileName("BTCUSDT", "60", "ema3")})
	require.NoError(t, err)

	log.Debug("trial finished", zap.Int("trial", 3))
	_ = log.Sync()

	raw, err := os.ReadFile(filepath.Join(dir, "BTCUSDT_60_ema3.log"))
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &entry))
	assert.Equal(t, "trial finished", entry["msg"])
	assert.Equal(t, float64(3), entry["trial"])
	assert.Contains(t, entry, "ts")
}

func TestNew_LevelFilters(t *testing.T) {
	dir := t.TempDir()
	log, err := New(Config{Level: "warn", Dir: dir, Name: "x"})
	require.NoError(t, err)

	log.Info("dropped")
	log.Warn("kept")
	_ = log.Sync()

	raw, err := os.ReadFile(filepath.Join(dir, "x.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "dropped")
	assert.Contains(t, string(raw), "kept")
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Config{Format: "xml", Console: true})
	assert.Error(t, err)
}

func TestNew_NoSinksIsNop(t *testing.T) {
	log, err := New(Config{})
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "BTCUSDT_60", FileName("BTCUSDT", " ", "60"))
	assert.Equal(t, "optimizer", FileName())
}
