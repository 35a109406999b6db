// Package cli consolidates the initialization shared by cmd/posto and
// cmd/statement-worker.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"posto/internal/billing"
	"posto/internal/config"
	"posto/internal/core"
	applog "posto/internal/log"
	"posto/internal/statement"
	gstatement "posto/internal/statement/google"
	"posto/internal/storage"
)

// Bootstrap loads the .env file, configures logging, and returns a validated
// configuration. Exits the process on validation failure.
func Bootstrap() *config.Config {
	// .env is optional outside local development
	_ = godotenv.Load()

	applog.Setup()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the SQLite repository or exits the process on failure.
func InitSQLite(dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		slog.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// Tariff builds the contract cost constants from configuration.
func Tariff(cfg *config.Config) billing.Tariff {
	return billing.Tariff{
		DailyRate:   core.Money{Cents: cfg.DailyRateCents},
		MonthlyRent: core.Money{Cents: cfg.MonthlyRentCents},
		Payer:       cfg.OccupantPayer,
	}
}

// NewStatementWriter selects the statement delivery backend from
// configuration: "sheets" writes rows to a Google spreadsheet, anything else
// writes CSV files to the statement directory.
func NewStatementWriter(ctx context.Context, cfg *config.Config) (statement.Writer, error) {
	switch cfg.StatementBackend {
	case "sheets":
		return gstatement.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleStatementSheet)
	default:
		return statement.NewFileWriter(cfg.StatementDir)
	}
}
