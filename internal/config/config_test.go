package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vellum/internal/config"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Address)
	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, "USDT", cfg.FeeCurrency)
	assert.True(t, cfg.MakerFeeRate.Equal(cfg.Fees().MakerRate))
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := config.Parse([]string{"-port=7000", "-maker-fee=0.0005", "-fee-currency=USD"})
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "USD", cfg.FeeCurrency)
	assert.Equal(t, "0.0005", cfg.MakerFeeRate.String())
}

func TestParse_InvalidFeeRate(t *testing.T) {
	_, err := config.Parse([]string{"-maker-fee=not-a-number"})
	assert.Error(t, err)
}
