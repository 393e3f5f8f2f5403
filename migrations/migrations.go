// Package migrations provides a framework for database schema management.
//
// Executed migrations are tracked in a dedicated migrations table, so running
// the migrator more than once is safe. A migration whose table already exists
// is recorded as done without running its SQL.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authkeeper/internal/constants"
	"github.com/yasinhessnawi1/authkeeper/internal/database"
)

// Migration represents a database migration.
// Each migration performs a specific schema change and is tracked
// to ensure it runs exactly once.
type Migration struct {
	// Name is a unique identifier for the migration
	Name string
	// Description is a human-readable explanation of what the migration does
	Description string
	// TableName is the table affected by this migration, used for existence checks
	TableName string
	// Statements returns the DDL to run for a driver, in order
	Statements func(driver string) []string
}

// Migrator handles database migrations.
type Migrator struct {
	db *database.Pool
}

// NewMigrator creates a new migrator.
func NewMigrator(db *database.Pool) *Migrator {
	return &Migrator{
		db: db,
	}
}

// RunMigrations runs all pending database migrations.
//
// Parameters:
//   - ctx: Context for database operations and cancellation
//
// Returns:
//   - error: Any error encountered during migration, nil if successful
func (m *Migrator) RunMigrations(ctx context.Context) error {
	log.Info().Str("driver", m.db.Dialect.Name()).Msg("Running database migrations")
	startTime := time.Now()

	if err := m.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	executed, err := m.getExecutedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to get executed migrations: %w", err)
	}

	migrations := GetMigrations()
	migrationsRun := 0
	recorded := 0

	for _, migration := range migrations {
		if executed[migration.Name] {
			continue
		}

		exists, err := m.tableExists(ctx, migration.TableName)
		if err != nil {
			return fmt.Errorf("failed to check if table %s exists: %w", migration.TableName, err)
		}

		if exists {
			log.Info().
				Str("migration", migration.Name).
				Str("table", migration.TableName).
				Msg("Table already exists, recording migration as completed")

			if err := m.recordMigration(ctx, m.db, migration); err != nil {
				return err
			}
			recorded++
			continue
		}

		log.Info().
			Str("migration", migration.Name).
			Str("table", migration.TableName).
			Msg("Running migration")

		if err := m.runMigration(ctx, migration); err != nil {
			return err
		}
		migrationsRun++
	}

	log.Info().
		Int("migrations_run", migrationsRun).
		Int("migrations_recorded", recorded).
		Int("total_migrations", len(migrations)).
		Dur("duration", time.Since(startTime)).
		Msg("Database migrations completed")

	return nil
}

// createMigrationsTable creates the migrations table if it doesn't exist.
func (m *Migrator) createMigrationsTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			name VARCHAR(255) PRIMARY KEY,
			description TEXT,
			executed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`, constants.TableMigrations)
	_, err := m.db.ExecContext(ctx, query)
	return err
}

// getExecutedMigrations returns the names of executed migrations.
func (m *Migrator) getExecutedMigrations(ctx context.Context) (map[string]bool, error) {
	query := fmt.Sprintf("SELECT name FROM %s", constants.TableMigrations)
	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close rows")
		}
	}()

	migrations := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		migrations[name] = true
	}

	return migrations, rows.Err()
}

// runMigration runs a migration and records it within one transaction.
// MySQL commits DDL implicitly, so there a failure part way leaves the
// earlier statements applied; they are all idempotent.
func (m *Migrator) runMigration(ctx context.Context, migration Migration) error {
	return m.db.Transaction(ctx, func(tx *sql.Tx) error {
		for _, stmt := range migration.Statements(m.db.Dialect.Name()) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration %s failed: %w", migration.Name, err)
			}
		}
		return m.recordMigration(ctx, tx, migration)
	})
}

// recordMigration marks a migration as completed.
func (m *Migrator) recordMigration(ctx context.Context, db database.DBTX, migration Migration) error {
	query := m.db.Dialect.Rebind(fmt.Sprintf(
		"INSERT INTO %s (name, description) VALUES (?, ?)", constants.TableMigrations))
	if _, err := db.ExecContext(ctx, query, migration.Name, migration.Description); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", migration.Name, err)
	}
	return nil
}

// tableExists checks if a table exists in the connection's current schema.
func (m *Migrator) tableExists(ctx context.Context, tableName string) (bool, error) {
	schema := "DATABASE()"
	if m.db.Dialect.Name() == constants.DriverPostgres {
		schema = "current_schema()"
	}
	query := m.db.Dialect.Rebind(fmt.Sprintf(`
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = %s
		AND table_name = ?`, schema))

	var count int
	if err := m.db.QueryRowContext(ctx, query, tableName).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetMigrations returns all migrations in the order they must be applied.
func GetMigrations() []Migration {
	return []Migration{
		createUsersTable(),
	}
}
