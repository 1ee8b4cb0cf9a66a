package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("BYBIT_API_KEY", "key")
	t.Setenv("BYBIT_API_SECRET", "secret")
	t.Setenv("SECRET", "hook-secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://api.bybit.com", cfg.Bybit.BaseURL)
	assert.Equal(t, "UNIFIED", cfg.Bybit.AccountType)
	assert.False(t, cfg.Bybit.Testnet)
	assert.Equal(t, 10000, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Trading.Leverage)
	assert.True(t, cfg.Trading.MarginFraction.Equal(decimal.RequireFromString("0.95")))
	assert.True(t, cfg.Trading.TakeProfitPct.Equal(decimal.RequireFromString("2.72")))
	assert.Equal(t, "oneway", cfg.Trading.PositionMode)
	assert.Equal(t, time.Second, cfg.Reconcile.PollInterval)
	assert.Equal(t, 10, cfg.Reconcile.MaxAttempts)
	assert.Equal(t, 15*time.Second, cfg.Reconcile.Deadline)

	limits := cfg.DefaultLimits()
	assert.True(t, limits.QtyStep.Equal(decimal.RequireFromString("0.001")))
}

func TestLoadConfigNormalizesBaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BYBIT_API_URL", " https://api-testnet.bybit.com/ ")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://api-testnet.bybit.com", cfg.Bybit.BaseURL)
}

func TestLoadConfigMissingSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BYBIT_API_KEY", "key")
	t.Setenv("BYBIT_API_SECRET", "secret")
	t.Setenv("SECRET", "")
	os.Unsetenv("SECRET")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("BYBIT_API_KEY=k\nBYBIT_API_SECRET=s\nSECRET=x\nLEVERAGE=7\n"), 0o600))
	for _, k := range []string{"BYBIT_API_KEY", "BYBIT_API_SECRET", "SECRET", "LEVERAGE"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Trading.Leverage)
}

func TestValidateConfig(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{"레버리지 초과", map[string]string{"LEVERAGE": "150"}},
		{"증거금 비율 초과", map[string]string{"MARGIN_FRACTION": "1.2"}},
		{"수량 범위 역전", map[string]string{"MIN_QTY": "10", "MAX_QTY": "1"}},
		{"반올림 모드", map[string]string{"QTY_ROUNDING": "nearest"}},
		{"포지션 모드", map[string]string{"POSITION_MODE": "both"}},
		{"폴링 횟수", map[string]string{"FLIP_POLL_ATTEMPTS": "0"}},
		{"계정 유형", map[string]string{"ACCOUNT_TYPE": "SPOT"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.ErrorContains(t, err, "설정값 검증 실패")
		})
	}
}

func TestLoadInstruments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instruments.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ethusdt.p:
  min_qty: 0.01
  qty_step: 0.01
  price_tick: "0.05"
BTCUSDT:
  min_notional: 100
`), 0o600))

	got, err := LoadInstruments(path)
	require.NoError(t, err)
	require.Contains(t, got, "ETHUSDT")
	assert.True(t, got["ETHUSDT"].PriceTick.Equal(decimal.RequireFromString("0.05")))
	assert.True(t, got["BTCUSDT"].MinNotional.Equal(decimal.NewFromInt(100)))
	assert.True(t, got["BTCUSDT"].QtyStep.IsZero())

	empty, err := LoadInstruments("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = LoadInstruments(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "https://api.bybit.com", NormalizeBaseURL("https://api.bybit.com//"))
	assert.Equal(t, "https://api.bybit.com", NormalizeBaseURL(" https://api.\tbybit.com "))
}
