package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxtech-lab/margin-emulator/pkg/errors"
)

func TestDefaultConfigIsValid(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	config := DefaultConfig()
	config.InitialBalance = 0

	err := config.Validate()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

	config = DefaultConfig()
	config.Leverage = 200
	require.Error(t, config.Validate())

	config = DefaultConfig()
	config.Symbol = ""
	require.Error(t, config.Validate())

	config = DefaultConfig()
	config.CommissionRate = 1.5
	require.Error(t, config.Validate())
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
symbol: ETHUSDT
initial_balance: 5000
leverage: 10
check_interval: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "ETHUSDT", config.Symbol)
	assert.Equal(t, 5000.0, config.InitialBalance)
	assert.Equal(t, 10, config.Leverage)
	assert.Equal(t, 30*time.Second, config.CheckInterval)

	// Untouched fields keep their defaults.
	defaults := DefaultConfig()
	assert.Equal(t, defaults.CommissionRate, config.CommissionRate)
	assert.Equal(t, defaults.HistoryInterval, config.HistoryInterval)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("symbol: [broken"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func TestLoadConfigInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("leverage: 500"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}
