package accountcredskeyring

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGet(t *testing.T) {
	kr := New(keyring.NewArrayKeyring([]keyring.Item{}))

	_, err := kr.Get("blog")
	assert.True(t, errors.Is(err, keyring.ErrKeyNotFound))

	creds := Creds{Username: "bob", Password: "pw", ServerURL: "https://self.example"}
	require.NoError(t, kr.Put("blog", creds))

	got, err := kr.Get("blog")
	require.NoError(t, err)
	assert.Equal(t, creds, got)

	require.NoError(t, kr.Remove("blog"))
	_, err = kr.Get("blog")
	assert.True(t, errors.Is(err, keyring.ErrKeyNotFound))
}

func TestPutRejectsIncompleteCreds(t *testing.T) {
	kr := New(keyring.NewArrayKeyring([]keyring.Item{}))
	assert.Error(t, kr.Put("blog", Creds{Username: " ", Password: "pw"}))
	assert.Error(t, kr.Put("blog", Creds{Username: "bob"}))
}

func TestConfig(t *testing.T) {
	c := Config("file", nil)
	assert.Equal(t, []keyring.BackendType{keyring.FileBackend}, c.AllowedBackends)
	assert.Equal(t, "wplogin", c.ServiceName)

	assert.Empty(t, Config("", nil).AllowedBackends)
}
