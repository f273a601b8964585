package storage

import (
	"context"
	"fmt"
	"log/slog"

	"Vigil/internal/config"
	"Vigil/pkg/validator"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPostgres(ctx context.Context, cfg *config.DatabaseConfig, log *slog.Logger) (*pgxpool.Pool, error) {
	if err := validator.ValidateDatabaseName(cfg.DBName); err != nil {
		return nil, err
	}

	if cfg.CreateIfMissing {
		if err := EnsureDatabase(ctx, cfg, log); err != nil {
			return nil, err
		}
	}

	pool, err := pgxpool.New(ctx, cfg.GetDSN())
	if err != nil {
		log.Error("Failed to open connection to postgres", "error", err)
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		log.Error("Failed to ping database", "error", err)
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	if err = Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("Successfully connected to postgres database", "database", cfg.DBName)
	return pool, nil
}

// CreateDatabaseStatement собирает CREATE DATABASE, имя проверяется до подстановки
func CreateDatabaseStatement(name string) (string, error) {
	if err := validator.ValidateDatabaseName(name); err != nil {
		return "", err
	}
	return fmt.Sprintf("CREATE DATABASE %s", name), nil
}

// EnsureDatabase создает базу если ее нет. Подключается к служебной базе postgres
func EnsureDatabase(ctx context.Context, cfg *config.DatabaseConfig, log *slog.Logger) error {
	statement, err := CreateDatabaseStatement(cfg.DBName)
	if err != nil {
		return err
	}

	admin := *cfg
	admin.DBName = "postgres"

	conn, err := pgx.Connect(ctx, admin.GetDSN())
	if err != nil {
		return fmt.Errorf("failed to connect to postgres maintenance database: %w", err)
	}
	defer conn.Close(ctx)

	var exists bool
	err = conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, cfg.DBName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check database existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := conn.Exec(ctx, statement); err != nil {
		return fmt.Errorf("failed to create database %s: %w", cfg.DBName, err)
	}

	log.Info("Database created", "database", cfg.DBName)
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS monitors (
		id                     TEXT PRIMARY KEY,
		name                   TEXT NOT NULL,
		type                   TEXT NOT NULL,
		interval_seconds       INTEGER NOT NULL,
		retry_interval_seconds INTEGER NOT NULL,
		max_retries            INTEGER NOT NULL DEFAULT 0,
		resend_interval        INTEGER NOT NULL DEFAULT 0,
		upside_down            BOOLEAN NOT NULL DEFAULT FALSE,
		active                 BOOLEAN NOT NULL DEFAULT TRUE,
		settings               JSONB NOT NULL DEFAULT '{}',
		notification_ids       TEXT[] NOT NULL DEFAULT '{}',
		maintenance_ids        TEXT[] NOT NULL DEFAULT '{}',
		push_token             TEXT UNIQUE,
		created_at             TIMESTAMPTZ NOT NULL,
		updated_at             TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS heartbeats (
		id               TEXT PRIMARY KEY,
		monitor_id       TEXT NOT NULL REFERENCES monitors(id) ON DELETE CASCADE,
		time             TIMESTAMPTZ NOT NULL,
		status           SMALLINT NOT NULL,
		latency_ms       DOUBLE PRECISION,
		msg              TEXT NOT NULL DEFAULT '',
		important        BOOLEAN NOT NULL DEFAULT FALSE,
		resend           BOOLEAN NOT NULL DEFAULT FALSE,
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		retries          INTEGER NOT NULL DEFAULT 0,
		down_count       INTEGER NOT NULL DEFAULT 0,
		settled          SMALLINT NOT NULL DEFAULT 2
	)`,
	`CREATE INDEX IF NOT EXISTS heartbeats_monitor_time_idx ON heartbeats (monitor_id, time DESC)`,
	`CREATE INDEX IF NOT EXISTS heartbeats_important_idx ON heartbeats (monitor_id, time DESC) WHERE important`,
	`CREATE TABLE IF NOT EXISTS maintenance_windows (
		id               TEXT PRIMARY KEY,
		title            TEXT NOT NULL,
		strategy         TEXT NOT NULL,
		active           BOOLEAN NOT NULL DEFAULT TRUE,
		start_at         TIMESTAMPTZ,
		timezone         TEXT NOT NULL DEFAULT '',
		interval_days    INTEGER NOT NULL DEFAULT 0,
		cron             TEXT NOT NULL DEFAULT '',
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		monitor_ids      TEXT[] NOT NULL DEFAULT '{}',
		created_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		type       TEXT NOT NULL,
		active     BOOLEAN NOT NULL DEFAULT TRUE,
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		template   TEXT NOT NULL DEFAULT '',
		settings   JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate создает таблицы, повторный запуск безопасен
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, statement := range schema {
		if _, err := pool.Exec(ctx, statement); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}
