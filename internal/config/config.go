// internal/config/config.go
package config

import (
	"os"
	"strings"
	"time"

	"subpass-service/internal/domain/wallet"
	"subpass-service/internal/ledger"
	"subpass-service/internal/pkg/jwt"
)

type AppConfig struct {
	// Server
	HTTPAddr       string
	AllowedOrigins []string

	// Storage. "postgres" or "memory"; memory is for development and tests.
	StorageDriver string
	DatabaseURL   string

	// Redis
	RedisAddr string
	RedisPass string

	// JWT
	JWT jwt.Config

	// Ledger
	FeeRecipient   string
	ManagerAddress string
	RenewalPolicy  ledger.RenewalPolicy
	Tokens         []wallet.TokenInfo

	// Admin
	AdminAddress      string
	AdminPasswordHash string

	// Kafka. Empty means events stay in-process.
	KafkaBrokers []string
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8000"),
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"*"}),

		StorageDriver: getEnv("STORAGE_DRIVER", "postgres"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass: getEnv("REDIS_PASS", ""),

		JWT: jwt.Config{
			PrivPath: getEnv("JWT_PRIVATE_KEY_PATH", ""),
			PubPath:  getEnv("JWT_PUBLIC_KEY_PATH", ""),
			Issuer:   "subpass",
			Audience: "subpass-users",
			TTL:      24 * time.Hour,
			KID:      "subpass-key",
		},

		FeeRecipient:   getEnv("FEE_RECIPIENT", "0x00000000000000000000000000000000000fee01"),
		ManagerAddress: getEnv("MANAGER_ADDRESS", "0x000000000000000000000000000000000000a9e1"),
		RenewalPolicy:  ledger.RenewalPolicy(getEnv("RENEWAL_POLICY", string(ledger.RenewalExtend))),
		Tokens:         defaultTokens(),

		AdminAddress:      getEnv("ADMIN_ADDRESS", ""),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),

		KafkaBrokers: getEnvSlice("KAFKA_BROKERS", nil),
	}
}

// defaultTokens registers the stablecoins subscriptions are priced in.
// Amounts are base units: 6 decimals for USDC, 18 for DAI.
func defaultTokens() []wallet.TokenInfo {
	return []wallet.TokenInfo{
		{
			Address:  getEnv("USDC_ADDRESS", "0xa0b86a33e6441b8c4505e2c8c5e6e8b8c4505e2c"),
			Symbol:   "USDC",
			Decimals: 6,
		},
		{
			Address:  getEnv("DAI_ADDRESS", "0x6b175474e89094c44da98b954eedeac495271d0f"),
			Symbol:   "DAI",
			Decimals: 18,
		},
	}
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
