package postgres

import (
	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// New opens a sqlx handle over the pgx stdlib driver and verifies the
// connection.
func New(dsn string) (*sqlx.DB, error) {
	return sqlx.Connect("pgx", dsn)
}
