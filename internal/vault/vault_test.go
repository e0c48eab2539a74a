package vault_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbkeep/internal/domain"
	"dbkeep/internal/keystore"
	"dbkeep/internal/vault"
)

func newKey(t *testing.T) *keystore.Key {
	t.Helper()
	key, err := keystore.New(filepath.Join(t.TempDir(), "secret.json")).GetOrCreate()
	require.NoError(t, err)
	return key
}

func sampleProfile() *domain.Profile {
	return &domain.Profile{
		Environment: "dev",
		Hostname:    "localhost",
		Database:    "sample",
		Driver:      domain.DriverPostgres,
		Port:        5432,
		Username:    "alice",
		Password:    "s3cret",
		SSLMode:     "disable",
	}
}

func TestSaveLoadReveal_RoundTrip(t *testing.T) {
	v := vault.New(t.TempDir())
	key := newKey(t)

	require.NoError(t, v.Save(sampleProfile(), key))

	loaded, err := v.Load("dev", "localhost", "sample")
	require.NoError(t, err)
	assert.Equal(t, "alice", loaded.Username)
	assert.Equal(t, domain.DriverPostgres, loaded.Driver)
	assert.NotEqual(t, "s3cret", loaded.Password)

	password, err := v.Reveal(loaded, key)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", password)
}

func TestSave_NeverWritesPlaintextPassword(t *testing.T) {
	dir := t.TempDir()
	v := vault.New(dir)

	require.NoError(t, v.Save(sampleProfile(), newKey(t)))

	data, err := os.ReadFile(v.Path("dev", "localhost", "sample"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "s3cret")
}

func TestSave_DoesNotMutateCaller(t *testing.T) {
	v := vault.New(t.TempDir())
	p := sampleProfile()

	require.NoError(t, v.Save(p, newKey(t)))
	assert.Equal(t, "s3cret", p.Password)
	assert.Empty(t, p.KeyFingerprint)
}

func TestSave_OverwritesExistingRecord(t *testing.T) {
	v := vault.New(t.TempDir())
	k := newKey(t)

	p := sampleProfile()
	require.NoError(t, v.Save(p, k))

	p.Username = "bob"
	p.Password = "n3w-pass"
	require.NoError(t, v.Save(p, k))

	loaded, err := v.Load("dev", "localhost", "sample")
	require.NoError(t, err)
	assert.Equal(t, "bob", loaded.Username)

	password, err := v.Reveal(loaded, k)
	require.NoError(t, err)
	assert.Equal(t, "n3w-pass", password)
}

func TestLoad_NotFound(t *testing.T) {
	v := vault.New(t.TempDir())
	_, err := v.Load("dev", "localhost", "nothere")
	assert.ErrorIs(t, err, vault.ErrNotFound)
}

func TestLoad_CorruptRecord(t *testing.T) {
	dir := t.TempDir()
	v := vault.New(dir)
	require.NoError(t, os.WriteFile(v.Path("dev", "localhost", "sample"), []byte("not json"), 0o600))

	_, err := v.Load("dev", "localhost", "sample")
	assert.ErrorIs(t, err, vault.ErrCorruptRecord)
}

func TestReveal_AfterKeyReset(t *testing.T) {
	v := vault.New(t.TempDir())
	ks := keystore.New(filepath.Join(t.TempDir(), "secret.json"))

	oldKey, err := ks.GetOrCreate()
	require.NoError(t, err)
	require.NoError(t, v.Save(sampleProfile(), oldKey))

	newKey, err := ks.Reset()
	require.NoError(t, err)

	loaded, err := v.Load("dev", "localhost", "sample")
	require.NoError(t, err)

	_, err = v.Reveal(loaded, newKey)
	assert.ErrorIs(t, err, vault.ErrDecryption)
}

func TestReveal_TamperedCiphertext(t *testing.T) {
	v := vault.New(t.TempDir())
	k := newKey(t)
	require.NoError(t, v.Save(sampleProfile(), k))

	loaded, err := v.Load("dev", "localhost", "sample")
	require.NoError(t, err)
	prefix := "AAAA"
	if loaded.Password[:4] == prefix {
		prefix = "BBBB"
	}
	loaded.Password = prefix + loaded.Password[4:]

	_, err = v.Reveal(loaded, k)
	assert.ErrorIs(t, err, vault.ErrDecryption)
}

func TestPath_NormalizesTriple(t *testing.T) {
	v := vault.New("settings")
	assert.Equal(t,
		filepath.Join("settings", "prod_db01.example.com_orders.json"),
		v.Path("PROD", "DB01.example.com", "Orders"))
}

func TestRedacted(t *testing.T) {
	p := sampleProfile()
	r := vault.Redacted(p)
	assert.Equal(t, "[not displayed]", r.Password)
	assert.Equal(t, "s3cret", p.Password)

	p.Password = ""
	assert.Equal(t, "[no password]", vault.Redacted(p).Password)
}
