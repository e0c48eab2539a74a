// Package vault persists one connection profile per
// (environment, hostname, database) triple, with the password field sealed
// under the keystore's secret key. Everything else in the record is stored
// in the clear.
package vault

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"dbkeep/internal/domain"
	"dbkeep/internal/keystore"
)

const recordVersion = 1

var (
	// ErrNotFound means no profile has been saved for the triple.
	ErrNotFound = errors.New("vault: no saved profile for this connection")
	// ErrCorruptRecord means a profile file exists but cannot be parsed.
	ErrCorruptRecord = errors.New("vault: profile record is corrupt")
	// ErrDecryption means the stored password could not be decrypted with
	// the supplied key.
	ErrDecryption = errors.New("vault: password could not be decrypted")
	// ErrKeyMismatch is ErrDecryption detected early, via the key
	// fingerprint stamped into the record at save time.
	ErrKeyMismatch = fmt.Errorf("%w: profile was sealed with a different secret key", ErrDecryption)
)

// Vault stores profile records as JSON files in a single directory.
type Vault struct {
	dir string
}

// New returns a Vault rooted at dir.
func New(dir string) *Vault {
	return &Vault{dir: dir}
}

// Path returns the file a profile for the triple would live at.
func (v *Vault) Path(env, host, db string) string {
	name := fmt.Sprintf("%s_%s_%s.json",
		strings.ToLower(env), strings.ToLower(host), strings.ToLower(db))
	return filepath.Join(v.dir, name)
}

// Load reads the profile for the triple. The password field stays sealed;
// use Reveal to get plaintext.
func (v *Vault) Load(env, host, db string) (*domain.Profile, error) {
	data, err := os.ReadFile(v.Path(env, host, db))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("vault: read profile: %w", err)
	}
	p := &domain.Profile{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return p, nil
}

// Save seals the profile's password under key and writes the whole record,
// replacing any existing file for the triple. The caller's profile is not
// modified.
func (v *Vault) Save(p *domain.Profile, key *keystore.Key) error {
	sealed, err := key.Seal(p.Password)
	if err != nil {
		return fmt.Errorf("vault: seal password: %w", err)
	}
	record := *p
	record.Version = recordVersion
	record.Password = sealed
	record.KeyFingerprint = key.Fingerprint

	data, err := json.MarshalIndent(&record, "", "  ")
	if err != nil {
		return fmt.Errorf("vault: encode profile: %w", err)
	}
	if err := os.MkdirAll(v.dir, 0o755); err != nil {
		return fmt.Errorf("vault: create settings directory: %w", err)
	}
	env, host, db := p.Identity()
	path := v.Path(env, host, db)
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("vault: write profile: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("vault: restrict profile permissions: %w", err)
	}
	return nil
}

// Reveal decrypts the profile's sealed password. A key other than the one
// used at save time yields ErrKeyMismatch (fingerprint check) or
// ErrDecryption (authentication failure), never silent garbage.
func (v *Vault) Reveal(p *domain.Profile, key *keystore.Key) (string, error) {
	if p.KeyFingerprint != "" && p.KeyFingerprint != key.Fingerprint {
		return "", ErrKeyMismatch
	}
	plaintext, err := key.Open(p.Password)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return plaintext, nil
}

// Redacted returns a copy of the profile safe for display: the password is
// replaced by a marker, never shown.
func Redacted(p *domain.Profile) domain.Profile {
	out := *p
	if out.Password != "" {
		out.Password = "[not displayed]"
	} else {
		out.Password = "[no password]"
	}
	return out
}
