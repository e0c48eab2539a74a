package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"dbkeep/internal/domain"
)

// sqlConnector is the shared implementation for MySQL, Postgres, and SQLite.
type sqlConnector struct {
	driver domain.Driver
	db     *sql.DB
}

func newSQLConnector(driver domain.Driver, dsn string) (*sqlConnector, error) {
	db, err := sql.Open(driverName(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	// One logical connection per session; no pooling across sessions.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(10 * time.Minute)
	return &sqlConnector{driver: driver, db: db}, nil
}

func driverName(d domain.Driver) string {
	// modernc.org/sqlite registers as "sqlite"; the others match.
	return string(d)
}

func (c *sqlConnector) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.db.PingContext(ctx)
}

func (c *sqlConnector) Close() error {
	return c.db.Close()
}

func (c *sqlConnector) ListTables(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var query string
	switch c.driver {
	case domain.DriverMySQL:
		query = `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
			 WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'
			 ORDER BY TABLE_NAME`
	case domain.DriverPostgres:
		query = `SELECT table_name FROM information_schema.tables
			 WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
			 ORDER BY table_name`
	default:
		query = `SELECT name FROM sqlite_master
			 WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
			 ORDER BY name`
	}

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (c *sqlConnector) Columns(ctx context.Context, table string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	// Zero-row probe; works identically across the three engines.
	rows, err := c.db.QueryContext(ctx,
		fmt.Sprintf("SELECT * FROM %s WHERE 1 = 0", c.quote(table)))
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	return cols, nil
}

func (c *sqlConnector) PrimaryKeys(ctx context.Context, table string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	switch c.driver {
	case domain.DriverMySQL:
		return c.scanColumn(ctx,
			`SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
			 WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
			   AND CONSTRAINT_NAME = 'PRIMARY'
			 ORDER BY ORDINAL_POSITION`, table)
	case domain.DriverPostgres:
		return c.scanColumn(ctx,
			`SELECT kcu.column_name
			 FROM information_schema.table_constraints tc
			 JOIN information_schema.key_column_usage kcu
			   ON tc.constraint_name = kcu.constraint_name
			  AND tc.table_schema = kcu.table_schema
			 WHERE tc.constraint_type = 'PRIMARY KEY'
			   AND tc.table_schema = current_schema()
			   AND tc.table_name = $1
			 ORDER BY kcu.ordinal_position`, table)
	default:
		return c.sqlitePrimaryKeys(ctx, table)
	}
}

func (c *sqlConnector) scanColumn(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("primary keys: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan primary key: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (c *sqlConnector) sqlitePrimaryKeys(ctx context.Context, table string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		fmt.Sprintf("PRAGMA table_info(%s)", c.quote(table)))
	if err != nil {
		return nil, fmt.Errorf("primary keys: %w", err)
	}
	defer rows.Close()

	type pkCol struct {
		name string
		ord  int
	}
	var pks []pkCol
	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info: %w", err)
		}
		if pk > 0 {
			pks = append(pks, pkCol{name: name, ord: pk})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	names := make([]string, len(pks))
	for _, col := range pks {
		names[col.ord-1] = col.name
	}
	return names, nil
}

// ReadTable materializes the whole table. No added timeout: a bulk export
// blocks for as long as the driver takes.
func (c *sqlConnector) ReadTable(ctx context.Context, table string) (*TableData, error) {
	pks, err := c.PrimaryKeys(ctx, table)
	if err != nil {
		return nil, err
	}
	order := "1"
	if len(pks) > 0 {
		quoted := make([]string, len(pks))
		for i, pk := range pks {
			quoted[i] = c.quote(pk)
		}
		order = strings.Join(quoted, ", ")
	}

	rows, err := c.db.QueryContext(ctx,
		fmt.Sprintf("SELECT * FROM %s ORDER BY %s", c.quote(table), order))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}

	data := &TableData{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		data.Rows = append(data.Rows, row)
	}
	return data, rows.Err()
}

func (c *sqlConnector) ReplaceTable(ctx context.Context, table string, columns []string, rows [][]string) (int, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s", c.quote(table))); err != nil {
		return 0, fmt.Errorf("clear %s: %w", table, err)
	}

	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = c.quote(col)
		marks[i] = c.placeholder(i + 1)
	}
	stmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			c.quote(table), strings.Join(quoted, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return 0, fmt.Errorf("prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	inserted := 0
	for _, row := range rows {
		args := make([]any, len(columns))
		for i := range columns {
			if i < len(row) && row[i] != "" {
				args[i] = row[i]
			}
			// empty cell stays nil: SQL NULL
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return inserted, fmt.Errorf("insert row %d into %s: %w", inserted+1, table, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// quote wraps an identifier in the engine's quoting style.
func (c *sqlConnector) quote(ident string) string {
	if c.driver == domain.DriverMySQL {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (c *sqlConnector) placeholder(n int) string {
	if c.driver == domain.DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// formatValue converts a database value to its CSV cell representation.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}
