// internal/database/db.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // Import MySQL driver
	_ "github.com/lib/pq"              // Import PostgreSQL driver
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authkeeper/internal/config"
	"github.com/yasinhessnawi1/authkeeper/internal/constants"
)

// Pool represents a database connection pool together with the dialect it
// speaks.
type Pool struct {
	*sql.DB
	Dialect Dialect
}

var (
	// dbPool is the global database connection pool
	dbPool *Pool

	// openDB opens a handle for a driver and DSN. Tests replace it with sqlmock.
	openDB = sql.Open
)

// NewPool wraps an open handle. It is used by Connect and by tests that
// build a pool around sqlmock.
func NewPool(db *sql.DB, driver string) *Pool {
	return &Pool{DB: db, Dialect: DialectFor(driver)}
}

// Connect creates a new database connection pool for the configured driver.
func Connect(cfg *config.AppConfig) (*Pool, error) {
	if err := cfg.Database.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database settings: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.DBConnectionTimeout)
	defer cancel()

	log.Info().
		Str("driver", cfg.Database.Driver).
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("database", cfg.Database.Name).
		Str("user", cfg.Database.User).
		Msg("Connecting to database")

	if cfg.Database.Driver == constants.DriverMySQL {
		if err := ensureMySQLDatabase(ctx, &cfg.Database); err != nil {
			return nil, err
		}
	}

	db, err := openDB(cfg.Database.Driver, cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.Database.MaxConns)
	db.SetMaxIdleConns(cfg.Database.MinConns)
	db.SetConnMaxLifetime(constants.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(constants.DBConnMaxIdleTime)

	// Verify connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to database")

	dbPool = NewPool(db, cfg.Database.Driver)
	return dbPool, nil
}

// ensureMySQLDatabase connects without a schema and creates the configured
// database if it does not exist yet.
func ensureMySQLDatabase(ctx context.Context, dbs *config.DatabaseSettings) error {
	rootSettings := *dbs
	rootSettings.Name = ""

	rootDB, err := openDB(constants.DriverMySQL, rootSettings.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect to root database: %w", err)
	}
	defer rootDB.Close()

	if _, err := rootDB.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", dbs.Name)); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	log.Info().Msgf("Ensured database '%s' exists", dbs.Name)
	return nil
}

// Get returns the global database connection pool
func Get() *Pool {
	if dbPool == nil {
		log.Fatal().Msg("database connection pool not initialized")
	}
	return dbPool
}

// Close closes the database connection pool
func (p *Pool) Close() {
	if p != nil && p.DB != nil {
		log.Info().Msg("Closing database connection pool")
		p.DB.Close()
	}
}

// Transaction executes a function within a transaction
func (p *Pool) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction after panic")
			}
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("failed to rollback transaction: %w", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// HealthCheck performs a health check on the database connection
func (p *Pool) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DBHealthCheckTimeout)
	defer cancel()

	if err := p.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := p.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query test failed: %w", err)
	}

	if result != 1 {
		return fmt.Errorf("database returned unexpected result: %d", result)
	}

	return nil
}
