// Package cli defines the dbkeep command tree. Commands stay thin: they
// resolve config, wire the components, and delegate to the session, vault,
// and transfer packages.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dbkeep/internal/config"
	"dbkeep/internal/keystore"
	"dbkeep/internal/logger"
	"dbkeep/internal/prompt"
	"dbkeep/internal/session"
	"dbkeep/internal/vault"
)

// app carries the wired components across commands.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	keys     *keystore.Keystore
	vault    *vault.Vault
	prompter prompt.Prompter
	svc      *session.Service

	// persistent flag values
	passphrase string
}

// Execute runs the root command.
func Execute() error {
	root := NewRootCommand()
	return root.Execute()
}

// NewRootCommand builds the full dbkeep command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "dbkeep",
		Short: "Manage saved database connection credentials and CSV table transfer",
		Long: `dbkeep keeps per-environment database connection settings in local
files, with the password encrypted under a per-user secret key, and moves
table data to and from CSV files for external editing.

The secret key is generated on first use and stored in the user's home
directory. It can be locked with a pass phrase; once locked, credential
operations need the pass phrase (--password or prompted) until the key is
unlocked again.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringP("database", "D", "sample", "database name (env DB_DATABASE)")
	pf.StringP("hostname", "H", "localhost", "database host name (env DB_HOSTNAME)")
	pf.StringP("environment", "E", "dev", "environment, e.g. dev/test/prod (env DB_ENVIRONMENT)")
	pf.StringVarP(&a.passphrase, "password", "P", "", "pass phrase for the secret key (not the database password)")

	root.AddCommand(a.credentialsCmd())
	root.AddCommand(a.exportCmd())
	root.AddCommand(a.importCmd())
	root.AddCommand(a.tablesCmd())
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	a.keys = keystore.New(cfg.KeyFile)
	a.vault = vault.New(cfg.SettingsDir)
	a.prompter = prompt.NewTerminal()
	a.svc = session.NewService(a.keys, a.vault, a.prompter, a.log)
	return nil
}

// Main is the process entry point used by package main.
func Main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
