package migrations

import (
	"fmt"

	"github.com/yasinhessnawi1/authkeeper/internal/constants"
)

// createUsersTable creates the users table. Email comparison is exact: the
// MySQL column uses a binary collation and PostgreSQL compares text
// case-sensitively.
func createUsersTable() Migration {
	return Migration{
		Name:        "create_users_table",
		Description: "Creates the users table with reset token columns",
		TableName:   constants.TableUsers,
		Statements: func(driver string) []string {
			if driver == constants.DriverPostgres {
				return []string{
					fmt.Sprintf(`
						CREATE TABLE IF NOT EXISTS %s (
							%s BIGSERIAL PRIMARY KEY,
							%s VARCHAR(255) NOT NULL,
							%s VARCHAR(255) NOT NULL,
							%s CHAR(64) NULL,
							%s TIMESTAMPTZ NULL,
							%s TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
							%s TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
							CONSTRAINT uq_users_email UNIQUE (%s)
						)`,
						constants.TableUsers,
						constants.ColumnUserID,
						constants.ColumnEmail,
						constants.ColumnPasswordHash,
						constants.ColumnResetTokenHash,
						constants.ColumnResetTokenExpiresAt,
						constants.ColumnCreatedAt,
						constants.ColumnUpdatedAt,
						constants.ColumnEmail,
					),
					fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)",
						constants.IndexResetTokenHash, constants.TableUsers, constants.ColumnResetTokenHash),
				}
			}

			return []string{
				fmt.Sprintf(`
					CREATE TABLE IF NOT EXISTS %s (
						%s BIGINT AUTO_INCREMENT PRIMARY KEY,
						%s VARCHAR(255) NOT NULL,
						%s VARCHAR(255) NOT NULL,
						%s CHAR(64) NULL,
						%s DATETIME(6) NULL,
						%s DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
						%s DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
						CONSTRAINT uq_users_email UNIQUE (%s),
						INDEX %s (%s)
					) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin`,
					constants.TableUsers,
					constants.ColumnUserID,
					constants.ColumnEmail,
					constants.ColumnPasswordHash,
					constants.ColumnResetTokenHash,
					constants.ColumnResetTokenExpiresAt,
					constants.ColumnCreatedAt,
					constants.ColumnUpdatedAt,
					constants.ColumnEmail,
					constants.IndexResetTokenHash,
					constants.ColumnResetTokenHash,
				),
			}
		},
	}
}
