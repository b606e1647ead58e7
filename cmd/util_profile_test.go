package cmd

import (
	"bytes"
	"os"
	"testing"

	"github.com/segmentio/wplogin/profiles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfiles() profiles.Profiles {
	return profiles.Profiles{
		"wplogin": {"client_id": "1234", "client_secret": "s"},
		"blog":    {"server_url": "https://self.example", "username": "bob"},
		"work":    {"source_profile": "blog", "username": "alice"},
	}
}

func TestResolveTarget(t *testing.T) {
	ps := testProfiles()

	tgt, err := resolveTarget(ps, "work")
	require.NoError(t, err)
	assert.Equal(t, "work", tgt.Profile)
	assert.Equal(t, "alice", tgt.Username)
	assert.Equal(t, "https://self.example", tgt.ServerURL)
	assert.Equal(t, "1234", tgt.ClientID)

	_, err = resolveTarget(ps, "missing")
	assert.Error(t, err)

	tgt, err = resolveTarget(ps, DefaultProfile)
	require.NoError(t, err)
	assert.Empty(t, tgt.ServerURL)
	assert.Equal(t, "s", tgt.ClientSecret)
}

func TestResolveTargetClientFromEnv(t *testing.T) {
	os.Setenv(EnvClientID, "env-id")
	defer os.Unsetenv(EnvClientID)

	tgt, err := resolveTarget(profiles.Profiles{}, DefaultProfile)
	require.NoError(t, err)
	assert.Equal(t, "env-id", tgt.ClientID)
}

func TestSessionKeyIgnoresFlags(t *testing.T) {
	ps := testProfiles()
	a, err := resolveTarget(ps, "blog")
	require.NoError(t, err)
	b, err := resolveTarget(ps, "blog")
	require.NoError(t, err)
	b.ServerURL = "https://elsewhere.example"
	assert.Equal(t, a.sessionKey().Key(), b.sessionKey().Key())
}

func TestListProfileNames(t *testing.T) {
	assert.Equal(t, []string{"blog", "work"}, listProfileNames(testProfiles()))
}

func TestProfileArg(t *testing.T) {
	name, err := profileArg(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultProfile, name)

	_, err = profileArg([]string{"a", "b"})
	var argErr *ErrBadArgCount
	assert.ErrorAs(t, err, &argErr)
}

func TestPrintProfiles(t *testing.T) {
	var buf bytes.Buffer
	printProfiles(&buf, testProfiles())
	out := buf.String()
	assert.Contains(t, out, "PROFILE")
	assert.Contains(t, out, "https://self.example")
	assert.NotContains(t, out, "wplogin\t")
}
