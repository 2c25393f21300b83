package config

import (
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

type PaymentRequestConfig struct {
	TTL          time.Duration
	QRSize       int
	KeyPrefix    string
	NonceBytes   int
	MaxPerMinute int
}

func LoadPaymentRequestConfig() *PaymentRequestConfig {
	return &PaymentRequestConfig{
		TTL:          getEnvAsDuration("PAYMENT_REQUEST_TTL", 5*time.Minute),
		QRSize:       getEnvAsInt("PAYMENT_REQUEST_QR_SIZE", 256),
		KeyPrefix:    getEnv("PAYMENT_REQUEST_KEY_PREFIX", "payreq:"),
		NonceBytes:   getEnvAsInt("PAYMENT_REQUEST_NONCE_BYTES", 16),
		MaxPerMinute: getEnvAsInt("PAYMENT_REQUEST_MAX_PER_MINUTE", 10),
	}
}

// LedgerConfig labels exported ISO 20022 documents.
type LedgerConfig struct {
	Currency string
	BIC      string
}

func LoadLedgerConfig() *LedgerConfig {
	viper.SetDefault("ledger.currency", "BRL")
	viper.SetDefault("ledger.bic", "WALLETBRXXX")

	return &LedgerConfig{
		Currency: viper.GetString("ledger.currency"),
		BIC:      viper.GetString("ledger.bic"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
