// Package migrations holds the goose migrations of the statistics archive.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/pressly/goose/v3"
)

// FS contains every *.sql migration in this directory
//
//go:embed *.sql
var FS embed.FS

// DSN builds the clickhouse:// connection string used by database/sql
func DSN(host, port, database, user, password string, useTLS bool) string {
	dsn := fmt.Sprintf("clickhouse://%s:%s@%s:%s/%s?dial_timeout=10s&max_execution_time=60",
		user, password, host, port, database)
	if useTLS {
		dsn += "&secure=true"
	}
	return dsn
}

// Open connects to ClickHouse and checks the connection
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Up applies every pending embedded migration
func Up(db *sql.DB) error {
	if err := Use(); err != nil {
		return err
	}
	return goose.Up(db, ".")
}

// Use points goose at the embedded migrations
func Use() error {
	goose.SetBaseFS(FS)
	return goose.SetDialect("clickhouse")
}
