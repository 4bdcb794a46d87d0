package main

import (
	"context"
	"embed"
	"sort"

	"github.com/joho/godotenv"

	"wardrobe/internal/infra"
)

//go:embed migrations/*.sql
var migrations embed.FS

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    filename   TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`); err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare schema_migrations")
	}

	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to read embedded migrations")
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		var applied bool
		err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE filename = $1);`, name).Scan(&applied)
		if err != nil {
			logger.Fatal().Err(err).Str("migration", name).Msg("failed to check migration")
		}
		if applied {
			logger.Debug().Str("migration", name).Msg("already applied")
			continue
		}

		sql, err := migrations.ReadFile("migrations/" + name)
		if err != nil {
			logger.Fatal().Err(err).Str("migration", name).Msg("failed to read migration")
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to begin migration tx")
		}
		if _, err := tx.Exec(ctx, string(sql)); err != nil {
			_ = tx.Rollback(ctx)
			logger.Fatal().Err(err).Str("migration", name).Msg("migration failed")
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1);`, name); err != nil {
			_ = tx.Rollback(ctx)
			logger.Fatal().Err(err).Str("migration", name).Msg("failed to record migration")
		}
		if err := tx.Commit(ctx); err != nil {
			logger.Fatal().Err(err).Str("migration", name).Msg("failed to commit migration")
		}
		logger.Info().Str("migration", name).Msg("applied")
	}

	logger.Info().Msg("migrations up to date")
}
