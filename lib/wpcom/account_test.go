package wpcom

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/wplogin/lib/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gock "gopkg.in/h2non/gock.v1"
)

func TestSettings(t *testing.T) {
	defer gock.Off()
	c := newTestClient()

	gock.New(testBase).
		Get("/rest/v1.1/me/settings").
		MatchHeader("Authorization", "Bearer tok").
		Reply(200).
		JSON(map[string]interface{}{"display_name": "Bob B", "user_email": "bob@example.com", "language": "en"})

	s, err := c.Settings(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "Bob B", s.DisplayName)
	assert.Equal(t, "bob@example.com", s.UserEmail)

	gock.New(testBase).
		Post("/rest/v1.1/me/settings").
		MatchHeader("Authorization", "Bearer tok").
		MatchType("json").
		JSON(map[string]string{"display_name": "Robert"}).
		Reply(200).
		JSON(map[string]interface{}{"display_name": "Robert"})

	s, err = c.UpdateSettings(context.Background(), "tok", map[string]string{SettingDisplayName: "Robert"})
	require.NoError(t, err)
	assert.Equal(t, "Robert", s.DisplayName)
	assert.True(t, gock.IsDone())
}

func TestUpdateSettingsErrors(t *testing.T) {
	defer gock.Off()
	c := newTestClient()

	_, err := c.UpdateSettings(context.Background(), "tok", nil)
	assert.True(t, errors.Is(err, types.ErrInvalidArgument))

	gock.New(testBase).
		Post("/rest/v1.1/me/settings").
		Reply(400).
		JSON(map[string]string{"error": "invalid_input", "message": "Display name is too long."})

	_, err = c.UpdateSettings(context.Background(), "tok", map[string]string{SettingDisplayName: "x"})
	var errResp *ErrorResponse
	require.True(t, errors.As(err, &errResp))
	assert.Equal(t, 400, errResp.StatusCode)
	assert.Contains(t, err.Error(), "Display name is too long.")
}

func TestFetchSiteAndPostFormats(t *testing.T) {
	defer gock.Off()
	c := newTestClient()

	gock.New(testBase).
		Get("/rest/v1.1/sites/1001$").
		Reply(200).
		JSON(map[string]interface{}{
			"ID":           1001,
			"name":         "Bob's blog",
			"URL":          "https://bob.wordpress.com",
			"capabilities": map[string]bool{"manage_options": false},
		})

	site, err := c.FetchSite(context.Background(), "tok", "1001")
	require.NoError(t, err)
	assert.Equal(t, "1001", site.ID)
	assert.Equal(t, "Bob's blog", site.Name)
	assert.True(t, site.IsHosted)
	assert.False(t, site.IsAdmin)

	gock.New(testBase).
		Get("/rest/v1.1/sites/1001/post-formats").
		Reply(200).
		JSON(map[string]interface{}{"formats": map[string]string{"video": "Video", "aside": "Aside"}})

	formats, err := c.PostFormats(context.Background(), "tok", "1001")
	require.NoError(t, err)
	assert.Equal(t, []PostFormat{{Slug: "aside", Name: "Aside"}, {Slug: "video", Name: "Video"}}, formats)
	assert.True(t, gock.IsDone())
}
