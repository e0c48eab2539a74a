// Package session orchestrates the keystore, vault, prompter, and database
// driver into the verify/connect/disconnect flows. Plaintext passwords
// exist only in memory here; nothing in this package persists one.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dbkeep/internal/dbclient"
	"dbkeep/internal/domain"
	"dbkeep/internal/keystore"
	"dbkeep/internal/prompt"
	"dbkeep/internal/vault"
)

// ErrNotConnected is returned by operations that need a live session.
var ErrNotConnected = errors.New("session: not connected")

// Session is one live database connection. At most one is expected at a
// time; nothing here coordinates concurrent use.
type Session struct {
	ID        string
	Profile   *domain.Profile
	conn      dbclient.Connector
	connected bool
}

// Connector exposes the underlying driver handle for bulk operations.
func (s *Session) Connector() dbclient.Connector { return s.conn }

// Connected reports whether the session still holds a live handle.
func (s *Session) Connected() bool { return s.connected }

// Service wires the credential components together.
type Service struct {
	keys     *keystore.Keystore
	vault    *vault.Vault
	prompter prompt.Prompter
	open     dbclient.OpenFunc
	log      *zap.Logger
}

// NewService builds a Service using the real driver opener.
func NewService(keys *keystore.Keystore, v *vault.Vault, p prompt.Prompter, log *zap.Logger) *Service {
	return &Service{keys: keys, vault: v, prompter: p, open: dbclient.Open, log: log}
}

// SetOpener overrides the driver opener; used by tests.
func (s *Service) SetOpener(open dbclient.OpenFunc) { s.open = open }

// Key loads the secret key, unlocking it in memory (not on disk) with the
// given pass phrase when the key file is locked. An empty pass phrase
// triggers a prompt.
func (s *Service) Key(passphrase string) (*keystore.Key, error) {
	key, err := s.keys.GetOrCreate()
	if !errors.Is(err, keystore.ErrKeyLocked) {
		return key, err
	}
	if passphrase == "" {
		s.log.Info("secret key file is locked")
		passphrase, err = s.prompter.Secret("Enter secret key pass phrase")
		if err != nil {
			return nil, err
		}
	}
	return s.keys.Unlock(passphrase, false)
}

// PromptProfile interactively gathers connection settings for the triple.
// It does not persist anything; a "." answer cancels with
// prompt.ErrCancelled.
func (s *Service) PromptProfile(env, host, db string) (*domain.Profile, error) {
	p := &domain.Profile{
		Environment: env,
		Hostname:    host,
		Database:    db,
		Driver:      domain.DriverPostgres,
		SSLMode:     "disable",
	}

	driver, err := s.prompter.Field("Enter the database driver (mysql/postgres/sqlite)", string(p.Driver))
	if err != nil {
		return nil, err
	}
	p.Driver = domain.Driver(driver)
	if !p.Driver.Valid() {
		return nil, fmt.Errorf("session: unsupported driver: %q", driver)
	}

	if p.Hostname, err = s.prompter.Field("Enter the host name for the database", p.Hostname); err != nil {
		return nil, err
	}
	if p.Database, err = s.prompter.Field("Enter the database name", p.Database); err != nil {
		return nil, err
	}

	if p.Driver == domain.DriverSQLite {
		// Hostname carries the file path; no credentials to collect.
		return p, nil
	}

	portStr, err := s.prompter.Field("Enter the port for the connection", strconv.Itoa(p.Driver.DefaultPort()))
	if err != nil {
		return nil, err
	}
	if p.Port, err = strconv.Atoi(portStr); err != nil {
		return nil, fmt.Errorf("session: invalid port %q: %w", portStr, err)
	}
	if p.Username, err = s.prompter.Field("Enter the userid for the database connection", p.Username); err != nil {
		return nil, err
	}
	if p.Password, err = s.prompter.Secret("Enter password"); err != nil {
		return nil, err
	}
	if p.SSLMode, err = s.prompter.Field("Enter 'require' to use an encrypted connection", p.SSLMode); err != nil {
		return nil, err
	}
	if p.SSLMode == "require" {
		if p.ServerCert, err = s.prompter.Field("Enter the server certificate file", p.ServerCert); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Verify attempts a real connection with the profile's in-memory plaintext
// password and saves the profile only on success, so bad credentials are
// never persisted. The returned session is live.
func (s *Service) Verify(ctx context.Context, p *domain.Profile, key *keystore.Key) (*Session, error) {
	sess, err := s.dial(ctx, p, p.Password)
	if err != nil {
		return nil, err
	}
	if err := s.vault.Save(p, key); err != nil {
		s.Disconnect(sess)
		return nil, err
	}
	env, host, db := p.Identity()
	s.log.Info("credentials verified and saved",
		zap.String("environment", env), zap.String("hostname", host), zap.String("database", db))
	return sess, nil
}

// Connect loads the saved profile for the triple and opens a connection.
// When no profile exists it falls back to prompting and verifying.
func (s *Service) Connect(ctx context.Context, env, host, db, passphrase string) (*Session, error) {
	key, err := s.Key(passphrase)
	if err != nil {
		return nil, err
	}

	p, err := s.vault.Load(env, host, db)
	if errors.Is(err, vault.ErrNotFound) {
		s.log.Info("no saved credentials, prompting",
			zap.String("environment", env), zap.String("hostname", host), zap.String("database", db))
		p, err = s.PromptProfile(env, host, db)
		if err != nil {
			return nil, err
		}
		return s.Verify(ctx, p, key)
	}
	if err != nil {
		return nil, err
	}

	password, err := s.vault.Reveal(p, key)
	if err != nil {
		return nil, err
	}
	return s.dial(ctx, p, password)
}

// Disconnect releases the driver handle. Calling it again on the same
// session is a no-op.
func (s *Service) Disconnect(sess *Session) error {
	if sess == nil || !sess.connected {
		return nil
	}
	sess.connected = false
	if err := sess.conn.Close(); err != nil {
		return fmt.Errorf("session: disconnect: %w", err)
	}
	s.log.Debug("disconnected", zap.String("session", sess.ID))
	return nil
}

// Tables returns the table names visible on the live session, materialized.
func (s *Service) Tables(ctx context.Context, sess *Session) ([]string, error) {
	if sess == nil || !sess.connected {
		return nil, ErrNotConnected
	}
	return sess.conn.ListTables(ctx)
}

func (s *Service) dial(ctx context.Context, p *domain.Profile, password string) (*Session, error) {
	conn, err := s.open(p, password)
	if err != nil {
		return nil, fmt.Errorf("session: open connection: %w", err)
	}
	if err := conn.TestConnection(ctx); err != nil {
		conn.Close()
		// Driver diagnostic passes through untouched; the password does not.
		return nil, fmt.Errorf("session: connect to %s/%s: %w", p.Hostname, p.Database, err)
	}
	return &Session{
		ID:        uuid.NewString(),
		Profile:   p,
		conn:      conn,
		connected: true,
	}, nil
}
