// Package dbclient abstracts the external database drivers behind a small
// Connector capability: connectivity checks, table metadata, and the bulk
// read/replace primitives the CSV transfer needs.
package dbclient

import (
	"context"
	"fmt"

	"dbkeep/internal/domain"
)

// TableData is a fully materialized table snapshot. Values are strings as
// the CSV layer will write them; NULL is represented by the empty string.
type TableData struct {
	Columns []string
	Rows    [][]string
}

// Connector abstracts interaction with an external database. One Connector
// wraps exactly one underlying handle; Close releases it.
type Connector interface {
	// TestConnection verifies connectivity.
	TestConnection(ctx context.Context) error

	// ListTables returns the base table names visible in the connected
	// database, sorted.
	ListTables(ctx context.Context) ([]string, error)

	// Columns returns the column names of a table in definition order.
	Columns(ctx context.Context, table string) ([]string, error)

	// PrimaryKeys returns the primary key column names of a table, in key
	// order. Empty (not an error) when the table has no primary key.
	PrimaryKeys(ctx context.Context, table string) ([]string, error)

	// ReadTable reads every row of a table, ordered by primary key when
	// one exists so exports are stable.
	ReadTable(ctx context.Context, table string) (*TableData, error)

	// ReplaceTable deletes all rows and inserts the given ones in a single
	// transaction. Empty cells become SQL NULL. Returns rows inserted.
	ReplaceTable(ctx context.Context, table string, columns []string, rows [][]string) (int, error)

	// Close closes the connection.
	Close() error
}

// OpenFunc opens a Connector for a profile. It exists so the session layer
// can substitute a fake in tests.
type OpenFunc func(p *domain.Profile, password string) (Connector, error)

// Open creates a Connector for the profile's driver. The plaintext
// password is passed separately; it is never read from the stored record.
func Open(p *domain.Profile, password string) (Connector, error) {
	switch p.Driver {
	case domain.DriverMySQL:
		return newSQLConnector(p.Driver, buildMySQLDSN(p, password))
	case domain.DriverPostgres:
		return newSQLConnector(p.Driver, buildPostgresDSN(p, password))
	case domain.DriverSQLite:
		return newSQLConnector(p.Driver, buildSQLiteDSN(p))
	default:
		return nil, fmt.Errorf("dbclient: unsupported driver: %q", p.Driver)
	}
}
