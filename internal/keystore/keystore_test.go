package keystore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbkeep/internal/keystore"
)

func newKeystore(t *testing.T) *keystore.Keystore {
	t.Helper()
	return keystore.New(filepath.Join(t.TempDir(), "secret.json"))
}

func TestGetOrCreate_GeneratesOnce(t *testing.T) {
	ks := newKeystore(t)

	first, err := ks.GetOrCreate()
	require.NoError(t, err)
	require.Len(t, first.Material, 32)
	require.NotEmpty(t, first.Fingerprint)

	second, err := ks.GetOrCreate()
	require.NoError(t, err)
	assert.Equal(t, first.Material, second.Material)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
}

func TestGetOrCreate_RestrictsFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.json")
	ks := keystore.New(path)

	_, err := ks.GetOrCreate()
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLockUnlock_RoundTrip(t *testing.T) {
	ks := newKeystore(t)
	original, err := ks.GetOrCreate()
	require.NoError(t, err)

	require.NoError(t, ks.Lock("hunter2"))

	locked, err := ks.Locked()
	require.NoError(t, err)
	assert.True(t, locked)

	// Locked on disk means the raw key is not handed out.
	_, err = ks.GetOrCreate()
	assert.ErrorIs(t, err, keystore.ErrKeyLocked)

	recovered, err := ks.Unlock("hunter2", false)
	require.NoError(t, err)
	assert.Equal(t, original.Material, recovered.Material)
	assert.Equal(t, original.Fingerprint, recovered.Fingerprint)

	// Temporary unlock leaves the file locked.
	locked, err = ks.Locked()
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestUnlock_WrongPassword(t *testing.T) {
	ks := newKeystore(t)
	_, err := ks.GetOrCreate()
	require.NoError(t, err)
	require.NoError(t, ks.Lock("hunter2"))

	_, err = ks.Unlock("wrong", false)
	assert.ErrorIs(t, err, keystore.ErrWrongPassword)

	// The right pass phrase still works afterwards.
	_, err = ks.Unlock("hunter2", false)
	assert.NoError(t, err)
}

func TestUnlock_Persist(t *testing.T) {
	ks := newKeystore(t)
	original, err := ks.GetOrCreate()
	require.NoError(t, err)
	require.NoError(t, ks.Lock("hunter2"))

	recovered, err := ks.Unlock("hunter2", true)
	require.NoError(t, err)
	assert.Equal(t, original.Material, recovered.Material)

	locked, err := ks.Locked()
	require.NoError(t, err)
	assert.False(t, locked)

	// Plain load works again.
	loaded, err := ks.GetOrCreate()
	require.NoError(t, err)
	assert.Equal(t, original.Material, loaded.Material)
}

func TestLock_AlreadyLocked(t *testing.T) {
	ks := newKeystore(t)
	_, err := ks.GetOrCreate()
	require.NoError(t, err)
	require.NoError(t, ks.Lock("hunter2"))

	assert.ErrorIs(t, ks.Lock("hunter2"), keystore.ErrAlreadyLocked)
}

func TestUnlock_NotLocked(t *testing.T) {
	ks := newKeystore(t)
	_, err := ks.GetOrCreate()
	require.NoError(t, err)

	_, err = ks.Unlock("hunter2", true)
	assert.ErrorIs(t, err, keystore.ErrNotLocked)
}

func TestReset_ReplacesKey(t *testing.T) {
	ks := newKeystore(t)
	original, err := ks.GetOrCreate()
	require.NoError(t, err)

	fresh, err := ks.Reset()
	require.NoError(t, err)
	assert.NotEqual(t, original.Material, fresh.Material)
	assert.NotEqual(t, original.Fingerprint, fresh.Fingerprint)

	loaded, err := ks.GetOrCreate()
	require.NoError(t, err)
	assert.Equal(t, fresh.Material, loaded.Material)
}

func TestReset_WorksOnLockedFile(t *testing.T) {
	ks := newKeystore(t)
	_, err := ks.GetOrCreate()
	require.NoError(t, err)
	require.NoError(t, ks.Lock("hunter2"))

	_, err = ks.Reset()
	require.NoError(t, err)

	locked, err := ks.Locked()
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestKey_SealOpen(t *testing.T) {
	ks := newKeystore(t)
	key, err := ks.GetOrCreate()
	require.NoError(t, err)

	sealed, err := key.Seal("s3cret")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "s3cret")

	plaintext, err := key.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", plaintext)
}

func TestKey_OpenWithDifferentKey(t *testing.T) {
	key1, err := newKeystore(t).GetOrCreate()
	require.NoError(t, err)
	key2, err := newKeystore(t).GetOrCreate()
	require.NoError(t, err)

	sealed, err := key1.Seal("s3cret")
	require.NoError(t, err)

	_, err = key2.Open(sealed)
	assert.Error(t, err)
}

func TestLocked_NoFile(t *testing.T) {
	locked, err := newKeystore(t).Locked()
	require.NoError(t, err)
	assert.False(t, locked)
}
