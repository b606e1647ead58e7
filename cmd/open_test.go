package cmd

import (
	"testing"

	"github.com/segmentio/wplogin/lib/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickSite(t *testing.T) {
	sites := []types.Site{
		{ID: "1", Name: "First", URL: "https://first.example"},
		{ID: "2", Name: "Second", URL: "https://second.example/"},
	}

	s, err := pickSite(sites, "")
	require.NoError(t, err)
	assert.Equal(t, "1", s.ID)

	for _, want := range []string{"2", "second", "https://second.example"} {
		s, err = pickSite(sites, want)
		require.NoError(t, err, want)
		assert.Equal(t, "2", s.ID, want)
	}

	_, err = pickSite(sites, "third")
	assert.Error(t, err)
	_, err = pickSite(nil, "")
	assert.Error(t, err)
}

func TestAdminURL(t *testing.T) {
	assert.Equal(t, "https://second.example/wp-admin/", adminURL(types.Site{URL: "https://second.example/"}))
	assert.Equal(t, "https://blog.example/sub/wp-admin/", adminURL(types.Site{URL: "https://blog.example/sub"}))
}
