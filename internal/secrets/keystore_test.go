package secrets

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openKeyStore(t *testing.T, location string, create bool) *KeyStoreCredentialStore {
	t.Helper()
	props, err := NewProperties(location, create)
	require.NoError(t, err)

	store := NewKeyStoreCredentialStore()
	require.NoError(t, store.Initialize(props, BuildPasswordProtection("storepass")))
	return store
}

func TestKeyStoreFileIsEncrypted(t *testing.T) {
	location := filepath.Join(t.TempDir(), "store.cs")
	store := openKeyStore(t, location, true)

	require.NoError(t, StoreSecret(store, "db.password", []byte("s3cr3t-value")))
	require.NoError(t, store.Flush())

	data, err := os.ReadFile(location)
	require.NoError(t, err)

	token := string(data)
	assert.Equal(t, 4, strings.Count(token, "."), "container should be a JWE compact token")
	assert.NotContains(t, token, "s3cr3t-value")
	assert.NotContains(t, token, "db.password")

	info, err := os.Stat(location)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestKeyStoreCreateDoesNotWriteUntilFlush(t *testing.T) {
	location := filepath.Join(t.TempDir(), "nested", "store.cs")
	store := openKeyStore(t, location, true)

	_, err := os.Stat(location)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, store.Flush())
	_, err = os.Stat(location)
	assert.NoError(t, err)
}

func TestKeyStoreUnflushedWritesAreDiscarded(t *testing.T) {
	location := filepath.Join(t.TempDir(), "store.cs")
	store := openKeyStore(t, location, true)
	require.NoError(t, store.Flush())

	require.NoError(t, StoreSecret(store, "pending", []byte("x")))
	require.NoError(t, store.Close())

	reopened := openKeyStore(t, location, false)
	_, ok, err := RetrieveSecret(reopened, "pending")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeyStoreIDIsStable(t *testing.T) {
	location := filepath.Join(t.TempDir(), "store.cs")
	store := openKeyStore(t, location, true)

	id := store.ID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.False(t, store.Created().IsZero())
	require.NoError(t, store.Flush())

	reopened := openKeyStore(t, location, false)
	assert.Equal(t, id, reopened.ID())
	assert.True(t, store.Created().Equal(reopened.Created()))
	assert.Equal(t, location, reopened.Location())
}

func TestKeyStoreReadOnly(t *testing.T) {
	location := filepath.Join(t.TempDir(), "store.cs")
	store := openKeyStore(t, location, true)
	require.NoError(t, StoreSecret(store, "alias", []byte("secret")))
	require.NoError(t, store.Flush())

	props, err := NewProperties(location, false)
	require.NoError(t, err)
	props[PropModifiable] = "false"

	readOnly := NewKeyStoreCredentialStore()
	require.NoError(t, readOnly.Initialize(props, BuildPasswordProtection("storepass")))

	err = StoreSecret(readOnly, "other", []byte("x"))
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, readOnly.Remove("alias"), ErrReadOnly)

	secret, ok, err := RetrieveSecret(readOnly, "alias")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "secret", string(secret))
}

func TestKeyStoreCorruptFile(t *testing.T) {
	location := filepath.Join(t.TempDir(), "store.cs")
	require.NoError(t, os.WriteFile(location, []byte("definitely not a container"), 0600))

	_, err := NewProvider().Open("", location, "storepass", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.True(t, IsKind(err, KindInit))
}

func TestKeyStoreRejectsExcessiveKeyWrapIterations(t *testing.T) {
	location := filepath.Join(t.TempDir(), "store.cs")
	store := openKeyStore(t, location, true)
	require.NoError(t, StoreSecret(store, "db.password", []byte("s3cr3t")))
	require.NoError(t, store.Flush())
	require.NoError(t, store.Close())

	data, err := os.ReadFile(location)
	require.NoError(t, err)
	parts := strings.Split(string(data), ".")
	require.Len(t, parts, 5)

	rawHeader, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	var header map[string]any
	require.NoError(t, json.Unmarshal(rawHeader, &header))
	assert.Equal(t, "PBES2-HS256+A128KW", header["alg"])

	// A tampered iteration count must fail fast instead of stalling the open
	header["p2c"] = 2147483647
	rawHeader, err = json.Marshal(header)
	require.NoError(t, err)
	parts[0] = base64.RawURLEncoding.EncodeToString(rawHeader)
	require.NoError(t, os.WriteFile(location, []byte(strings.Join(parts, ".")), 0600))

	_, err = NewProvider().Open("", location, "storepass", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadPassword)
	assert.True(t, IsKind(err, KindInit))
}

func TestKeyStoreUnsupportedFormat(t *testing.T) {
	props, err := NewProperties(filepath.Join(t.TempDir(), "store.cs"), true)
	require.NoError(t, err)
	props[PropKeyStoreType] = "JCEKS"

	err = NewKeyStoreCredentialStore().Initialize(props, BuildPasswordProtection("storepass"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestKeyStoreLifecycle(t *testing.T) {
	store := NewKeyStoreCredentialStore()
	assert.ErrorIs(t, store.Flush(), ErrNotInitialized)
	_, err := store.Retrieve("x")
	assert.ErrorIs(t, err, ErrNotInitialized)

	location := filepath.Join(t.TempDir(), "store.cs")
	props, err := NewProperties(location, true)
	require.NoError(t, err)
	require.NoError(t, store.Initialize(props, BuildPasswordProtection("storepass")))
	assert.Error(t, store.Initialize(props, BuildPasswordProtection("storepass")))

	require.NoError(t, store.Close())
	_, err = store.Aliases()
	assert.ErrorIs(t, err, ErrNotInitialized)
}
