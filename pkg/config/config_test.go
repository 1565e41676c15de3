package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "mainnet", cfg.Tron.Network)
	assert.Equal(t, "https://apilist.tronscan.org/api", cfg.Tron.TronscanURL)
	assert.Equal(t, "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", cfg.Token.Contract)
	assert.Equal(t, int32(6), cfg.Token.Decimals)
	assert.Equal(t, int64(100_000_000), cfg.Token.FeeLimit)

	assert.Equal(t, int64(100_000), cfg.Fee.MinNativeTransferFee)
	assert.Equal(t, int64(65_000), cfg.Fee.TokenEnergy)
	assert.Equal(t, int64(420), cfg.Fee.EnergyPrice)
	assert.Equal(t, int64(350), cfg.Fee.TokenBandwidth)
	assert.Equal(t, int64(1000), cfg.Fee.BandwidthPrice)
	assert.Equal(t, int64(600), cfg.Fee.FreeDailyBandwidth)

	assert.Contains(t, cfg.Risk.Keywords, "phish")
	assert.Equal(t, 10*time.Minute, cfg.Tx.Expiration)
	assert.Equal(t, "log", cfg.Audit.Sink)
}

func TestLoadFileWithNilePreset(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	content := `
app:
  env: production
tron:
  network: nile
  trongrid_url: https://example.org/
fee:
  free_daily_bandwidth: 0
risk:
  source_timeout: 2s
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0600))

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Env)
	assert.Equal(t, "nile", cfg.Tron.Network)
	assert.Equal(t, "https://nileapi.tronscan.org/api", cfg.Tron.TronscanURL)
	// 显式设置优先，且去掉结尾斜杠
	assert.Equal(t, "https://example.org", cfg.Tron.TronGridURL)
	assert.Equal(t, "TXYZopYRdj2D9XRtbG411XZZ3kM5VkAeBf", cfg.Token.Contract)
	assert.Equal(t, int64(0), cfg.Fee.FreeDailyBandwidth)
	assert.Equal(t, 2*time.Second, cfg.Risk.SourceTimeout)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TRON_NETWORK", "nile")
	t.Setenv("TRON_TRONSCAN_API_KEY", "k-123")
	t.Setenv("FEE_ENERGY_PRICE", "210")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "nile", cfg.Tron.Network)
	assert.Equal(t, "k-123", cfg.Tron.TronscanAPIKey)
	// TronGrid key 回退到 Tronscan key
	assert.Equal(t, "k-123", cfg.Tron.TronGridAPIKey)
	assert.Equal(t, int64(210), cfg.Fee.EnergyPrice)
}

func TestUnknownNetworkFallsBackToMainnet(t *testing.T) {
	t.Setenv("TRON_NETWORK", "shasta")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "mainnet", cfg.Tron.Network)
	assert.Equal(t, Presets["mainnet"].TronGridURL, cfg.Tron.TronGridURL)
}
