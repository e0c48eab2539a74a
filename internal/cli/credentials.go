package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dbkeep/internal/domain"
	"dbkeep/internal/keystore"
	"dbkeep/internal/vault"
)

func (a *app) credentialsCmd() *cobra.Command {
	var action string
	var show bool

	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Verify and save connection credentials, or manage the secret key",
		Long: `Verify a database connection from saved or prompted settings and save
them, with the password encrypted under the secret key.

Actions:
  verify   verify connection and save credentials
  lock     lock the secret key with a pass phrase
  unlock   unlock the secret key
  reset    discard the secret key and enter new credentials

Resetting the key invalidates every previously saved password; each
connection must be verified again afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch action {
			case "verify":
				return a.runVerify(cmd.Context(), show)
			case "lock":
				return a.runLock()
			case "unlock":
				return a.runUnlock()
			case "reset":
				return a.runReset(cmd.Context(), show)
			default:
				return fmt.Errorf("unknown action %q (want verify, lock, unlock, or reset)", action)
			}
		},
	}
	cmd.Flags().StringVar(&action, "action", "verify", "credentials action: verify, lock, unlock, reset")
	cmd.Flags().BoolVarP(&show, "show", "S", false, "show credentials (password masked)")
	return cmd
}

func (a *app) runVerify(ctx context.Context, show bool) error {
	key, err := a.svc.Key(a.passphrase)
	if err != nil {
		return err
	}

	env, host, db := a.cfg.Environment, a.cfg.Hostname, a.cfg.Database
	p, err := a.vault.Load(env, host, db)
	switch {
	case errors.Is(err, vault.ErrNotFound):
		a.log.Info("no saved credentials",
			zap.String("environment", env), zap.String("hostname", host), zap.String("database", db))
		return a.promptAndVerify(ctx, key, show)
	case err != nil:
		return err
	}

	password, err := a.vault.Reveal(p, key)
	if err != nil {
		a.log.Warn("saved credentials unusable, prompting for new ones", zap.Error(err))
		return a.promptAndVerify(ctx, key, show)
	}
	p.Password = password

	sess, err := a.svc.Verify(ctx, p, key)
	if err != nil {
		a.log.Warn("current credentials are incorrect", zap.Error(err))
		return a.promptAndVerify(ctx, key, show)
	}
	defer a.svc.Disconnect(sess)

	fmt.Println("Connection credentials are correct")
	if show {
		printProfile(p)
	}
	return nil
}

func (a *app) promptAndVerify(ctx context.Context, key *keystore.Key, show bool) error {
	fmt.Println("Enter the database connection details (enter a period '.' to cancel)")
	p, err := a.svc.PromptProfile(a.cfg.Environment, a.cfg.Hostname, a.cfg.Database)
	if err != nil {
		return err
	}
	sess, err := a.svc.Verify(ctx, p, key)
	if err != nil {
		return err
	}
	defer a.svc.Disconnect(sess)

	fmt.Println("Connection successful with new credentials")
	fmt.Println("Credentials have been saved")
	if show {
		printProfile(p)
	}
	return nil
}

func (a *app) runLock() error {
	passphrase := a.passphrase
	if passphrase == "" {
		first, err := a.prompter.Secret("Enter pass phrase")
		if err != nil {
			return err
		}
		again, err := a.prompter.Secret("Enter pass phrase again")
		if err != nil {
			return err
		}
		if first != again {
			return errors.New("pass phrase mismatch, secret key still unlocked")
		}
		passphrase = first
	}
	if passphrase == "" {
		return errors.New("empty pass phrase, secret key still unlocked")
	}
	if err := a.keys.Lock(passphrase); err != nil {
		return err
	}
	fmt.Println("Secret key successfully locked")
	return nil
}

func (a *app) runUnlock() error {
	passphrase := a.passphrase
	if passphrase == "" {
		var err error
		if passphrase, err = a.prompter.Secret("Enter pass phrase"); err != nil {
			return err
		}
	}
	if _, err := a.keys.Unlock(passphrase, true); err != nil {
		return err
	}
	fmt.Println("Secret key successfully unlocked")
	return nil
}

func (a *app) runReset(ctx context.Context, show bool) error {
	key, err := a.keys.Reset()
	if err != nil {
		return err
	}
	a.log.Warn("secret key reset: every previously saved password is now invalid; " +
		"re-run verify for each saved connection")

	fmt.Println("Reset requested, enter new credentials")
	return a.promptAndVerify(ctx, key, show)
}

// printProfile displays a profile with the password masked.
func printProfile(p *domain.Profile) {
	r := vault.Redacted(p)
	fmt.Printf("Credentials for %s on %s for environment %s\n",
		r.Database, r.Hostname, r.Environment)
	fmt.Printf("  driver:      %s\n", r.Driver)
	fmt.Printf("  hostname:    %s\n", r.Hostname)
	if r.Port != 0 {
		fmt.Printf("  port:        %d\n", r.Port)
	}
	fmt.Printf("  database:    %s\n", r.Database)
	if r.Username != "" {
		fmt.Printf("  username:    %s\n", r.Username)
	}
	fmt.Printf("  password:    %s\n", r.Password)
	if r.SSLMode != "" {
		fmt.Printf("  ssl mode:    %s\n", r.SSLMode)
	}
	if r.ServerCert != "" {
		fmt.Printf("  server cert: %s\n", r.ServerCert)
	}
}
