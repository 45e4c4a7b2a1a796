package signingkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remotemaster/trustengine/internal/storage"
)

// Small modulus keeps key generation fast in tests; production sizes are
// configured through the config package.
const testKeyBits = 1024

func newTestStore(t *testing.T) (*Store, *storage.Mem) {
	t.Helper()
	fs := storage.NewMem()
	return New(fs, "/keys", []byte("test-passphrase"), testKeyBits), fs
}

func TestEnsureKeys_GeneratesOnce(t *testing.T) {
	store, fs := newTestStore(t)

	require.NoError(t, store.EnsureKeys())
	assert.True(t, fs.Exists(store.PrivateKeyPath()))
	assert.True(t, fs.Exists(store.PublicKeyPath()))

	priv1, err := fs.ReadFile(store.PrivateKeyPath())
	require.NoError(t, err)

	// Second call must leave the existing files untouched.
	require.NoError(t, store.EnsureKeys())
	priv2, err := fs.ReadFile(store.PrivateKeyPath())
	require.NoError(t, err)
	assert.Equal(t, priv1, priv2)
}

func TestEnsureKeys_RestoresMissingPublicKey(t *testing.T) {
	store, fs := newTestStore(t)
	require.NoError(t, store.EnsureKeys())

	// Simulate a lost public key file.
	fs2 := storage.NewMem()
	priv, err := fs.ReadFile(store.PrivateKeyPath())
	require.NoError(t, err)
	require.NoError(t, fs2.WriteFile(store.PrivateKeyPath(), priv, 0o600))

	store2 := New(fs2, "/keys", []byte("test-passphrase"), testKeyBits)
	require.NoError(t, store2.EnsureKeys())
	assert.True(t, fs2.Exists(store2.PublicKeyPath()))

	pub, err := store2.PublicKey()
	require.NoError(t, err)

	signer, err := store2.Signer()
	require.NoError(t, err)
	assert.Equal(t, signer.Public(), pub)
}

func TestSigner_RoundTripsThroughDisk(t *testing.T) {
	store, fs := newTestStore(t)
	require.NoError(t, store.EnsureKeys())

	// Fresh store against the same filesystem simulates a process restart.
	reloaded := New(fs, "/keys", []byte("test-passphrase"), testKeyBits)
	signer, err := reloaded.Signer()
	require.NoError(t, err)

	pub, err := reloaded.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, signer.Public(), pub)
}

func TestSigner_WrongPassphrase(t *testing.T) {
	store, fs := newTestStore(t)
	require.NoError(t, store.EnsureKeys())

	bad := New(fs, "/keys", []byte("wrong"), testKeyBits)
	_, err := bad.Signer()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestPublicKey_NotFound(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.PublicKey()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	_, err = store.Signer()
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
