package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dbkeep/internal/transfer"
)

type transferFlags struct {
	headers   bool
	allTables bool
	table     string
}

func (f *transferFlags) register(cmd *cobra.Command) {
	cmd.Flags().String("location", "./db", "directory root for CSV files (env DB_LOCATION)")
	cmd.Flags().BoolVar(&f.headers, "headers", true, "CSV files have a header row")
	cmd.Flags().BoolVarP(&f.allTables, "all-tables", "A", false, "all tables in the database")
	cmd.Flags().StringVarP(&f.table, "table", "T", "", "table name")
}

func (f *transferFlags) validate() error {
	if f.allTables && f.table != "" {
		return errors.New("specify either --all-tables or --table, not both")
	}
	if !f.allTables && f.table == "" {
		return errors.New("either --all-tables or --table is required")
	}
	return nil
}

func (a *app) exportCmd() *cobra.Command {
	f := &transferFlags{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export tables to CSV files",
		Long: `Export tables from the configured database to CSV files under
<location>/<environment>/<database>/<table>.csv, for external editing.
Rows are ordered by primary key so repeated exports are stable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTransfer(cmd.Context(), f, func(ctx context.Context, t *transfer.Transfer) error {
				if f.allTables {
					return t.ExportAll(ctx)
				}
				rows, err := t.ExportTable(ctx, f.table)
				if err != nil {
					return err
				}
				fmt.Printf("Table: %s Rows: %d\n", f.table, rows)
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	f := &transferFlags{}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import tables from CSV files",
		Long: `Import tables into the configured database from CSV files under
<location>/<environment>/<database>/<table>.csv. Existing rows are deleted
before the file is loaded; the tables must already exist.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTransfer(cmd.Context(), f, func(ctx context.Context, t *transfer.Transfer) error {
				if f.allTables {
					return t.ImportAll(ctx)
				}
				rows, err := t.ImportTable(ctx, f.table)
				if err != nil {
					return err
				}
				fmt.Printf("Table: %s Rows: %d\n", f.table, rows)
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func (a *app) runTransfer(ctx context.Context, f *transferFlags, run func(context.Context, *transfer.Transfer) error) error {
	if err := f.validate(); err != nil {
		return err
	}
	sess, err := a.svc.Connect(ctx, a.cfg.Environment, a.cfg.Hostname, a.cfg.Database, a.passphrase)
	if err != nil {
		return err
	}
	defer a.svc.Disconnect(sess)

	if f.table != "" {
		// Named table must exist; --all-tables works off the listing anyway.
		tables, err := a.svc.Tables(ctx, sess)
		if err != nil {
			return err
		}
		if !containsFold(tables, f.table) {
			return fmt.Errorf("table %s not found in database %s", f.table, a.cfg.Database)
		}
	}

	t := transfer.New(sess.Connector(), a.cfg.CSVDir(), f.headers, a.log)
	return run(ctx, t)
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}
