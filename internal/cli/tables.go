package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) tablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables in the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := a.svc.Connect(ctx, a.cfg.Environment, a.cfg.Hostname, a.cfg.Database, a.passphrase)
			if err != nil {
				return err
			}
			defer a.svc.Disconnect(sess)

			tables, err := a.svc.Tables(ctx, sess)
			if err != nil {
				return err
			}
			for _, t := range tables {
				fmt.Println(t)
			}
			return nil
		},
	}
}
