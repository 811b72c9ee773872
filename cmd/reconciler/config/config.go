package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"payment-advice-reconciler/internal/ledger"
	"payment-advice-reconciler/internal/matcher"
)

// DefaultDatabasePath is used when no database path is configured
const DefaultDatabasePath = "reconciler.db"

// CreateMatchingConfig creates a matching configuration with the specified
// CLI overrides applied on top of the defaults.
func CreateMatchingConfig(amountTolerance float64, autoResolve bool) *matcher.Config {
	config := matcher.DefaultConfig()

	if amountTolerance >= 0 {
		config.AmountTolerance = decimal.NewFromFloat(amountTolerance)
	}
	config.AutoResolve = autoResolve

	return config
}

// CreateLedgerConfig creates a ledger client configuration from the resolved
// settings. The token typically arrives via the RECONCILER_LEDGER_TOKEN
// environment variable rather than a flag.
func CreateLedgerConfig(baseURL, token string, timeoutSeconds int) (*ledger.Config, error) {
	config := ledger.DefaultConfig()
	config.BaseURL = baseURL
	config.Token = token

	if timeoutSeconds > 0 {
		config.Timeout = time.Duration(timeoutSeconds) * time.Second
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ledger config: %w", err)
	}
	return config, nil
}

// ResolveDatabasePath applies the default when no path was configured
func ResolveDatabasePath(path string) string {
	if path == "" {
		return DefaultDatabasePath
	}
	return path
}

// ValidateConfig validates that all required configurations are valid
func ValidateConfig(matchingConfig *matcher.Config, ledgerConfig *ledger.Config) error {
	if err := matchingConfig.Validate(); err != nil {
		return fmt.Errorf("invalid matching config: %w", err)
	}

	if err := ledgerConfig.Validate(); err != nil {
		return fmt.Errorf("invalid ledger config: %w", err)
	}

	return nil
}
