// Package keystore manages the per-user secret key used to seal stored
// database passwords. The key file holds either the raw key (unlocked) or
// an AES-GCM blob sealed under a pass-phrase-derived key (locked). The
// in-memory key is always plaintext once loaded; locking only changes the
// on-disk form.
package keystore

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

const fileVersion = 1

var (
	// ErrAlreadyLocked is returned by Lock when the key file is locked.
	ErrAlreadyLocked = errors.New("keystore: secret key is already locked")
	// ErrNotLocked is returned by Unlock when the key file is not locked.
	ErrNotLocked = errors.New("keystore: secret key is not locked")
	// ErrWrongPassword is returned when a pass phrase fails to decrypt the
	// locked key. Expected occasional input, always catchable.
	ErrWrongPassword = errors.New("keystore: pass phrase does not match")
	// ErrKeyLocked is returned by GetOrCreate when the on-disk key is
	// locked; callers must go through Unlock with a pass phrase.
	ErrKeyLocked = errors.New("keystore: secret key file is locked")
)

// keyFile is the versioned on-disk record.
type keyFile struct {
	Version     int    `json:"version"`
	Locked      bool   `json:"locked"`
	Key         string `json:"key"` // base64 raw key, or base64 sealed blob when locked
	Salt        string `json:"salt,omitempty"`
	Iterations  int    `json:"iterations,omitempty"`
	Fingerprint string `json:"fingerprint"`
}

// Key is loaded secret key material.
type Key struct {
	Material    []byte
	Fingerprint string
}

// Seal encrypts plaintext under the key, for storage in a profile record.
func (k *Key) Seal(plaintext string) (string, error) {
	return seal(k.Material, []byte(plaintext))
}

// Open decrypts a value previously produced by Seal.
func (k *Key) Open(sealed string) (string, error) {
	plaintext, err := open(k.Material, sealed)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// Keystore persists the secret key at an explicit path.
type Keystore struct {
	path string
}

// New returns a Keystore backed by the file at path.
func New(path string) *Keystore {
	return &Keystore{path: path}
}

// Path returns the key file location.
func (s *Keystore) Path() string { return s.path }

// GetOrCreate loads the key file, generating and persisting a fresh
// unlocked key when none exists. Returns ErrKeyLocked when the on-disk
// form is locked.
func (s *Keystore) GetOrCreate() (*Key, error) {
	kf, err := s.read()
	if errors.Is(err, os.ErrNotExist) {
		return s.generate()
	}
	if err != nil {
		return nil, err
	}
	if kf.Locked {
		return nil, ErrKeyLocked
	}
	return kf.key()
}

// Locked reports the on-disk state. A missing file counts as unlocked:
// the next GetOrCreate will generate an unlocked key.
func (s *Keystore) Locked() (bool, error) {
	kf, err := s.read()
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return kf.Locked, nil
}

// Lock seals the on-disk key under a pass-phrase-derived key. The salt is
// generated per lock and stored beside the ciphertext.
func (s *Keystore) Lock(passphrase string) error {
	kf, err := s.read()
	if err != nil {
		return err
	}
	if kf.Locked {
		return ErrAlreadyLocked
	}
	raw, err := base64.StdEncoding.DecodeString(kf.Key)
	if err != nil {
		return fmt.Errorf("keystore: decode key material: %w", err)
	}
	salt, err := randomBytes(saltLength)
	if err != nil {
		return err
	}
	sealed, err := seal(deriveKEK(passphrase, salt, kdfIterations), raw)
	if err != nil {
		return err
	}
	kf.Locked = true
	kf.Key = sealed
	kf.Salt = base64.StdEncoding.EncodeToString(salt)
	kf.Iterations = kdfIterations
	return s.write(kf)
}

// Unlock recovers the raw key from the locked file. With persist the file
// is rewritten in unlocked form; otherwise the key is memory-only and the
// file stays locked.
func (s *Keystore) Unlock(passphrase string, persist bool) (*Key, error) {
	kf, err := s.read()
	if err != nil {
		return nil, err
	}
	if !kf.Locked {
		return nil, ErrNotLocked
	}
	salt, err := base64.StdEncoding.DecodeString(kf.Salt)
	if err != nil {
		return nil, fmt.Errorf("keystore: decode salt: %w", err)
	}
	iterations := kf.Iterations
	if iterations <= 0 {
		iterations = kdfIterations
	}
	raw, err := open(deriveKEK(passphrase, salt, iterations), kf.Key)
	if err != nil {
		if errors.Is(err, errAuth) {
			return nil, ErrWrongPassword
		}
		return nil, err
	}
	if persist {
		kf.Locked = false
		kf.Key = base64.StdEncoding.EncodeToString(raw)
		kf.Salt = ""
		kf.Iterations = 0
		if err := s.write(kf); err != nil {
			return nil, err
		}
	}
	return &Key{Material: raw, Fingerprint: kf.Fingerprint}, nil
}

// Reset discards any existing key and generates a fresh unlocked one.
// Every password sealed under the old key becomes undecryptable; callers
// must re-verify each saved profile afterwards.
func (s *Keystore) Reset() (*Key, error) {
	return s.generate()
}

func (s *Keystore) generate() (*Key, error) {
	raw, err := randomBytes(keyLength)
	if err != nil {
		return nil, err
	}
	kf := &keyFile{
		Version:     fileVersion,
		Key:         base64.StdEncoding.EncodeToString(raw),
		Fingerprint: fingerprint(raw),
	}
	if err := s.write(kf); err != nil {
		return nil, err
	}
	return &Key{Material: raw, Fingerprint: kf.Fingerprint}, nil
}

func (kf *keyFile) key() (*Key, error) {
	raw, err := base64.StdEncoding.DecodeString(kf.Key)
	if err != nil {
		return nil, fmt.Errorf("keystore: decode key material: %w", err)
	}
	return &Key{Material: raw, Fingerprint: kf.Fingerprint}, nil
}

func (s *Keystore) read() (*keyFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("keystore: read key file: %w", err)
	}
	kf := &keyFile{}
	if err := json.Unmarshal(data, kf); err != nil {
		return nil, fmt.Errorf("keystore: parse key file: %w", err)
	}
	return kf, nil
}

func (s *Keystore) write(kf *keyFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("keystore: encode key file: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("keystore: create key directory: %w", err)
		}
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("keystore: write key file: %w", err)
	}
	// Owner-only: the key protects every stored password.
	if err := os.Chmod(s.path, 0o600); err != nil {
		return fmt.Errorf("keystore: restrict key file permissions: %w", err)
	}
	return nil
}
