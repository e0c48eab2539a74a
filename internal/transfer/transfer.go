// Package transfer moves whole tables between the database and local CSV
// files, so data can be edited externally and loaded back. Files live at
// <location>/<environment>/<database>/<table>.csv. Large binary, JSON, and
// XML column types are not supported.
package transfer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"dbkeep/internal/dbclient"
)

// ErrNoFile is returned by ImportTable when no CSV exists for the table.
// Bulk imports skip such tables; a named single-table import surfaces it.
var ErrNoFile = errors.New("transfer: no csv file for table")

// Transfer runs exports and imports over one open connector.
type Transfer struct {
	conn    dbclient.Connector
	dir     string
	headers bool
	log     *zap.Logger
}

// New returns a Transfer writing/reading CSV files under dir.
// headers controls whether a header row is written on export and expected
// on import.
func New(conn dbclient.Connector, dir string, headers bool, log *zap.Logger) *Transfer {
	return &Transfer{conn: conn, dir: dir, headers: headers, log: log}
}

func (t *Transfer) csvPath(table string) string {
	return filepath.Join(t.dir, strings.ToLower(table)+".csv")
}

// ExportTable writes the table to its CSV file and returns the row count.
// The file is written to a temp name first and renamed into place, so a
// failed export never truncates a previous one.
func (t *Transfer) ExportTable(ctx context.Context, table string) (int, error) {
	data, err := t.conn.ReadTable(ctx, table)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return 0, fmt.Errorf("transfer: create export directory: %w", err)
	}
	tmp := filepath.Join(t.dir, "tmp_"+strings.ToLower(table)+".csv")
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("transfer: create %s: %w", tmp, err)
	}

	w := csv.NewWriter(f)
	if t.headers {
		if err := w.Write(data.Columns); err != nil {
			f.Close()
			os.Remove(tmp)
			return 0, fmt.Errorf("transfer: write header: %w", err)
		}
	}
	for _, row := range data.Rows {
		if err := w.Write(row); err != nil {
			f.Close()
			os.Remove(tmp)
			return 0, fmt.Errorf("transfer: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(tmp)
		return 0, fmt.Errorf("transfer: flush csv: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("transfer: close csv: %w", err)
	}
	if err := os.Rename(tmp, t.csvPath(table)); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("transfer: replace csv: %w", err)
	}

	t.log.Info("table exported", zap.String("table", table), zap.Int("rows", len(data.Rows)))
	return len(data.Rows), nil
}

// ExportAll exports every table the connector lists.
func (t *Transfer) ExportAll(ctx context.Context) error {
	tables, err := t.conn.ListTables(ctx)
	if err != nil {
		return err
	}
	for _, table := range tables {
		if _, err := t.ExportTable(ctx, table); err != nil {
			return err
		}
	}
	return nil
}

// ImportTable replaces the table's rows with the contents of its CSV file
// and returns the number of rows inserted. All existing rows are deleted
// first; with referential integrity in place, deleting parent rows may
// fail and the transaction rolls back.
func (t *Transfer) ImportTable(ctx context.Context, table string) (int, error) {
	f, err := os.Open(t.csvPath(table))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s", ErrNoFile, t.csvPath(table))
		}
		return 0, fmt.Errorf("transfer: open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("transfer: parse csv: %w", err)
	}

	var columns []string
	var rows [][]string
	if t.headers {
		if len(records) == 0 {
			return 0, fmt.Errorf("transfer: %s: empty file, header row expected", t.csvPath(table))
		}
		columns = records[0]
		rows = records[1:]
	} else {
		// Headerless file: take the column order from the table itself.
		columns, err = t.conn.Columns(ctx, table)
		if err != nil {
			return 0, err
		}
		rows = records
	}

	inserted, err := t.conn.ReplaceTable(ctx, table, columns, rows)
	if err != nil {
		return inserted, err
	}
	t.log.Info("table imported", zap.String("table", table), zap.Int("rows", inserted))
	return inserted, nil
}

// ImportAll imports every table the connector lists, skipping tables that
// have no CSV file.
func (t *Transfer) ImportAll(ctx context.Context) error {
	tables, err := t.conn.ListTables(ctx)
	if err != nil {
		return err
	}
	for _, table := range tables {
		if _, err := t.ImportTable(ctx, table); err != nil {
			if errors.Is(err, ErrNoFile) {
				t.log.Info("no csv file, bypassing table", zap.String("table", table))
				continue
			}
			return err
		}
	}
	return nil
}
