package postgres

import (
	"database/sql"
	"fmt"

	"simtrade/config"

	"github.com/lib/pq"
)

// CreateDatabase connects to the maintenance database and creates the
// application database if it does not exist. CREATE DATABASE cannot run
// inside a transaction, so this goes through database/sql directly
// rather than gorm.
func CreateDatabase(cfg config.PostgresConfig, env string) error {
	db, err := sql.Open("postgres", cfg.MaintenanceDSN(env))
	if err != nil {
		return fmt.Errorf("connect to maintenance db: %w", err)
	}
	defer db.Close()

	var exists bool
	const q = `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`
	if err := db.QueryRow(q, cfg.DBName).Scan(&exists); err != nil {
		return fmt.Errorf("check database %q: %w", cfg.DBName, err)
	}
	if exists {
		return nil
	}

	if _, err := db.Exec("CREATE DATABASE " + pq.QuoteIdentifier(cfg.DBName)); err != nil {
		return fmt.Errorf("create database %q: %w", cfg.DBName, err)
	}
	return nil
}
