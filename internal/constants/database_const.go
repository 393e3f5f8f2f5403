// Package constants provides shared constant values used throughout the application.
//
// The database_const.go file defines table names, column names and driver
// specific values used by the credential store and the migrator.
package constants

// Table Names define the names of database tables used in the application.
const (
	// TableUsers is the name of the table storing user credentials.
	TableUsers = "users"

	// TableMigrations is the bookkeeping table for executed schema migrations.
	TableMigrations = "migrations"
)

// Column Names of the users table.
const (
	ColumnUserID              = "user_id"
	ColumnEmail               = "email"
	ColumnPasswordHash        = "password_hash"
	ColumnResetTokenHash      = "reset_token_hash"
	ColumnResetTokenExpiresAt = "reset_token_expires_at"
	ColumnCreatedAt           = "created_at"
	ColumnUpdatedAt           = "updated_at"
)

// Index Names define database index names.
const (
	// IndexResetTokenHash speeds up reset token redemption lookups.
	IndexResetTokenHash = "idx_users_reset_token_hash"
)

// Supported database drivers. The names match the database/sql driver names
// registered by github.com/go-sql-driver/mysql and github.com/lib/pq.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Connection string parameters
const (
	PostgresConnParams = "sslmode=disable&connect_timeout=15"
	MySQLCharset       = "utf8mb4"
	MySQLCollation     = "utf8mb4_unicode_ci"
)
