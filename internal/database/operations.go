package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authkeeper/internal/constants"
)

// Dialect captures the differences between the supported SQL databases.
// Queries are written with MySQL style "?" placeholders and rebound for
// PostgreSQL.
type Dialect interface {
	// Name returns the database/sql driver name.
	Name() string

	// Rebind rewrites "?" placeholders into the dialect's syntax.
	Rebind(query string) string

	// InsertReturningID runs an INSERT and returns the generated key stored
	// in idColumn.
	InsertReturningID(ctx context.Context, db DBTX, query, idColumn string, args ...interface{}) (int64, error)
}

// DialectFor returns the dialect for a driver name. Unknown drivers get the
// MySQL dialect.
func DialectFor(driver string) Dialect {
	if driver == constants.DriverPostgres {
		return postgresDialect{}
	}
	return mysqlDialect{}
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return constants.DriverMySQL }

func (mysqlDialect) Rebind(query string) string { return query }

// InsertReturningID uses the driver's LastInsertId.
func (mysqlDialect) InsertReturningID(ctx context.Context, db DBTX, query, _ string, args ...interface{}) (int64, error) {
	log.Debug().Str("query", query).Msg("Creating database record")

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return constants.DriverPostgres }

// Rebind replaces each "?" with $1, $2 and so on. Question marks inside
// single quoted literals are left alone.
func (postgresDialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	inLiteral := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inLiteral = !inLiteral
			b.WriteByte(c)
		case c == '?' && !inLiteral:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// InsertReturningID appends a RETURNING clause, since lib/pq does not
// support LastInsertId.
func (d postgresDialect) InsertReturningID(ctx context.Context, db DBTX, query, idColumn string, args ...interface{}) (int64, error) {
	query = d.Rebind(query) + " RETURNING " + idColumn
	log.Debug().Str("query", query).Msg("Creating database record")

	var id int64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
