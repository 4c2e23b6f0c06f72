// Package config loads server configuration from a .env file and the
// environment. Flags on the binary override these values.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        int
	DBPath      string
	Environment string

	// DefaultTuitionFee is the base fee billed to students without a
	// specific fee-schedule entry, as a decimal string.
	DefaultTuitionFee string

	// OverpaymentPolicy: "allow" floors the outstanding at zero and keeps
	// the surplus visible in the paid amount; "reject" refuses payments
	// above the outstanding amount.
	OverpaymentPolicy string
}

// Load reads .env if present, then the environment, applying defaults.
func Load() (*Config, error) {
	// Missing .env is fine; plain environment variables still apply.
	_ = godotenv.Load(".env")

	cfg := &Config{
		Port:              8080,
		DBPath:            "finance.db",
		Environment:       getenv("ENV", "development"),
		DefaultTuitionFee: getenv("DEFAULT_TUITION_FEE", "0"),
		OverpaymentPolicy: getenv("OVERPAYMENT_POLICY", "allow"),
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}

	if cfg.OverpaymentPolicy != "allow" && cfg.OverpaymentPolicy != "reject" {
		return nil, fmt.Errorf("invalid OVERPAYMENT_POLICY %q: must be allow or reject", cfg.OverpaymentPolicy)
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
