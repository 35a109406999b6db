package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"posto/internal/core"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Contract constants
	DailyRateCents   int64
	MonthlyRentCents int64
	ContractAnchor   string // YYYY-MM-DD
	OccupantPayer    string
	OccupantOwner    string

	// AMQP (statement delivery queue, optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Statement delivery
	StatementBackend     string // "file" or "sheets"
	StatementDir         string
	GoogleSpreadsheetID  string
	GoogleStatementSheet string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8082"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/posto.db"),

		DailyRateCents:   getEnvAmountCents("DAILY_RATE", getEnvInt64("DAILY_RATE_CENTS", 250)),
		MonthlyRentCents: getEnvAmountCents("MONTHLY_RENT", getEnvInt64("MONTHLY_RENT_CENTS", 5000)),
		ContractAnchor:   getEnv("CONTRACT_ANCHOR", "2025-11-10"),
		OccupantPayer:    getEnv("OCCUPANT_PAYER", "anna"),
		OccupantOwner:    getEnv("OCCUPANT_OWNER", "bruno"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "posto"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "statements"),

		StatementBackend:     getEnv("STATEMENT_BACKEND", "file"),
		StatementDir:         getEnv("STATEMENT_DIR", "./data/statements"),
		GoogleSpreadsheetID:  getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleStatementSheet: getEnv("GOOGLE_STATEMENT_SHEET", "Statements"),
	}

	return cfg
}

// Anchor returns the contract anchor as a date. Call Validate first; an
// unparsable anchor returns the zero date here.
func (c *Config) Anchor() core.Date {
	d, err := core.ParseDate(c.ContractAnchor)
	if err != nil {
		return core.Date{}
	}
	return d
}

// Occupants returns the two configured identities, payer first.
func (c *Config) Occupants() [2]string {
	return [2]string{c.OccupantPayer, c.OccupantOwner}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate contract constants
	if c.DailyRateCents <= 0 {
		errors = append(errors, fmt.Sprintf("invalid daily rate %d: must be positive", c.DailyRateCents))
	}
	if c.MonthlyRentCents <= 0 {
		errors = append(errors, fmt.Sprintf("invalid monthly rent %d: must be positive", c.MonthlyRentCents))
	}
	if _, err := core.ParseDate(c.ContractAnchor); err != nil {
		errors = append(errors, fmt.Sprintf("invalid contract anchor '%s': must be YYYY-MM-DD", c.ContractAnchor))
	}

	// Validate occupants
	payer := strings.TrimSpace(c.OccupantPayer)
	owner := strings.TrimSpace(c.OccupantOwner)
	if payer == "" {
		errors = append(errors, "occupant payer cannot be empty")
	}
	if owner == "" {
		errors = append(errors, "occupant owner cannot be empty")
	}
	if payer != "" && payer == owner {
		errors = append(errors, fmt.Sprintf("occupants must be distinct, both are '%s'", payer))
	}

	// Validate SQLite path directory
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate statement backend
	switch c.StatementBackend {
	case "file":
		if c.StatementDir == "" {
			errors = append(errors, "statement directory cannot be empty when using file backend")
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleStatementSheet == "" {
			errors = append(errors, "Google statement sheet name cannot be empty when using sheets backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid statement backend '%s': must be one of [file sheets]", c.StatementBackend))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvAmountCents reads a decimal euro amount (e.g. "2.50") and returns it
// as cents. Unset or unparsable values fall back to the cents default.
func getEnvAmountCents(key string, defaultCents int64) int64 {
	if value := os.Getenv(key); value != "" {
		if cents, err := core.ParseDecimalToCents(value); err == nil {
			return cents
		}
	}
	return defaultCents
}
