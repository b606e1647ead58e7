package wpcom

import (
	"context"
	"net/url"
	"sort"

	"github.com/segmentio/wplogin/lib/types"
	"golang.org/x/xerrors"
)

const settingsPath = "rest/v1.1/me/settings"

// SettingDisplayName is the settings key for the public display name.
const SettingDisplayName = "display_name"

type AccountSettings struct {
	DisplayName string `json:"display_name"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Description string `json:"description"`
	UserURL     string `json:"user_URL"`
	UserEmail   string `json:"user_email"`
	Language    string `json:"language"`
}

// Settings fetches the account settings of the token's account.
func (c *Client) Settings(ctx context.Context, token string) (*AccountSettings, error) {
	var s AccountSettings
	if err := c.getJSON(ctx, settingsPath, token, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSettings posts params and returns the settings the server reports
// as changed.
func (c *Client) UpdateSettings(ctx context.Context, token string, params map[string]string) (*AccountSettings, error) {
	if len(params) == 0 {
		return nil, xerrors.Errorf("no settings to update: %w", types.ErrInvalidArgument)
	}
	var s AccountSettings
	if err := c.doJSON(ctx, "POST", settingsPath, token, params, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func sitePath(siteID string) string {
	return "rest/v1.1/sites/" + url.PathEscape(siteID)
}

// FetchSite fetches one site again.
func (c *Client) FetchSite(ctx context.Context, token, siteID string) (types.Site, error) {
	var s siteJSON
	if err := c.getJSON(ctx, sitePath(siteID), token, &s); err != nil {
		return types.Site{}, err
	}
	return s.site(), nil
}

type PostFormat struct {
	Slug string
	Name string
}

type postFormatsResponse struct {
	Formats map[string]string `json:"formats"`
}

// PostFormats lists the post formats a site supports, sorted by slug.
func (c *Client) PostFormats(ctx context.Context, token, siteID string) ([]PostFormat, error) {
	var resp postFormatsResponse
	if err := c.getJSON(ctx, sitePath(siteID)+"/post-formats", token, &resp); err != nil {
		return nil, err
	}
	return SortedPostFormats(resp.Formats), nil
}

// SortedPostFormats turns a slug to name map into a list sorted by slug.
func SortedPostFormats(m map[string]string) []PostFormat {
	formats := make([]PostFormat, 0, len(m))
	for slug, name := range m {
		formats = append(formats, PostFormat{Slug: slug, Name: name})
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i].Slug < formats[j].Slug })
	return formats
}
