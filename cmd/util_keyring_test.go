package cmd

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
	"github.com/segmentio/wplogin/internal/sessioncache"
	"github.com/segmentio/wplogin/lib/trust"
	"github.com/segmentio/wplogin/lib/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrustPersistence(t *testing.T) {
	kr := keyring.NewArrayKeyring([]keyring.Item{})

	empty := trust.NewStore()
	require.NoError(t, loadTrust(kr, empty))
	assert.Empty(t, empty.Snapshot().Fingerprints)

	store := trust.NewStore()
	store.Trust("AA:BB")
	store.SetCredentials("self.example", types.HTTPAuth{Username: "gate", Password: "keeper"})
	require.NoError(t, saveTrust(kr, store))

	restored := trust.NewStore()
	require.NoError(t, loadTrust(kr, restored))
	assert.True(t, restored.IsTrusted("aabb"))
	auth, ok := restored.Credentials("self.example")
	require.True(t, ok)
	assert.Equal(t, "keeper", auth.Password)
}

func TestTrustPersistenceCorrupt(t *testing.T) {
	kr := keyring.NewArrayKeyring([]keyring.Item{{Key: trustKeyringItemKey, Data: []byte("{")}})
	assert.Error(t, loadTrust(kr, trust.NewStore()))
}

func TestSessionStoreByBackend(t *testing.T) {
	kr := keyring.NewArrayKeyring([]keyring.Item{})

	for _, b := range []string{"file", "pass", "secret-service"} {
		assert.IsType(t, &sessioncache.KrItemPerSessionStore{}, sessionStore(kr, b), b)
	}
	for _, b := range []string{"", "keychain", "wincred", "kwallet"} {
		assert.IsType(t, &sessioncache.SingleKrItemStore{}, sessionStore(kr, b), b)
	}
}

func TestSessionStoreRoundTrip(t *testing.T) {
	kr := keyring.NewArrayKeyring([]keyring.Item{})
	key := sessioncache.ProfileKey{ProfileName: "blog", ProfileConf: map[string]string{"username": "bob"}}
	session := &sessioncache.Session{Name: "blog", Username: "bob", AccessToken: "tok"}

	require.NoError(t, sessionStore(kr, "file").Put(key, session))
	got, err := sessionStore(kr, "file").Get(key)
	require.NoError(t, err)
	assert.Equal(t, "tok", got.AccessToken)

	require.NoError(t, sessionStore(kr, "file").Delete(key))
	_, err = sessionStore(kr, "file").Get(key)
	assert.True(t, errors.Is(err, keyring.ErrKeyNotFound), "got %v", err)
}
