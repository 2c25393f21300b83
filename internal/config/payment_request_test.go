package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestLoadPaymentRequestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := LoadPaymentRequestConfig()
		assert.Equal(t, 5*time.Minute, cfg.TTL)
		assert.Equal(t, 256, cfg.QRSize)
		assert.Equal(t, "payreq:", cfg.KeyPrefix)
		assert.Equal(t, 10, cfg.MaxPerMinute)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("PAYMENT_REQUEST_TTL", "90s")
		t.Setenv("PAYMENT_REQUEST_QR_SIZE", "512")
		t.Setenv("PAYMENT_REQUEST_MAX_PER_MINUTE", "not-a-number")

		cfg := LoadPaymentRequestConfig()
		assert.Equal(t, 90*time.Second, cfg.TTL)
		assert.Equal(t, 512, cfg.QRSize)
		assert.Equal(t, 10, cfg.MaxPerMinute)
	})
}

func TestLoadLedgerConfig(t *testing.T) {
	defer viper.Reset()

	cfg := LoadLedgerConfig()
	assert.Equal(t, "BRL", cfg.Currency)

	viper.Set("ledger.currency", "USD")
	viper.Set("ledger.bic", "TESTUS33")
	cfg = LoadLedgerConfig()
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, "TESTUS33", cfg.BIC)
}
