package main

// Run database migrations:
//   go run ./cmd/migrate          apply pending migrations
//   go run ./cmd/migrate status   print migration status

import (
	"context"
	"os"

	"resumind/internal/shared/config"
	"resumind/internal/shared/storage/db"
	"resumind/internal/shared/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		telemetry.Error("config.load_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	_ = telemetry.Init(cfg.Env, cfg.LogLevel)
	defer telemetry.Sync()
	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		telemetry.Error("migrate.no_database", map[string]any{"hint": "set DATABASE_URL"})
		os.Exit(1)
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultCLIOptions()))
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if len(os.Args) > 1 && os.Args[1] == "status" {
		if err := db.MigrationStatus(ctx, sqlDB); err != nil {
			telemetry.Error("migrate.status_failed", map[string]any{"error": err})
			os.Exit(1)
		}
		return
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err})
		os.Exit(1)
	}
	telemetry.Info("migrate.done", nil)
}
