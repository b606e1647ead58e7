// Client for the WordPress.com OAuth2 and REST APIs
package wpcom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	"github.com/segmentio/wplogin/lib/trust"
	"github.com/segmentio/wplogin/lib/types"
	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

const (
	DefaultBaseURL = "https://public-api.wordpress.com"

	tokenPath = "oauth2/token"
	mePath    = "rest/v1.1/me"
	sitesPath = "rest/v1.1/me/sites"
)

type Client struct {
	// BaseURL defaults to DefaultBaseURL
	BaseURL      string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	BlogID      string `json:"blog_id"`
	BlogURL     string `json:"blog_url"`
	Scope       string `json:"scope"`
}

// Authenticate exchanges a username and password (and two-step code, when
// set) for an access token.
func (c *Client) Authenticate(ctx context.Context, req types.LoginAttempt) types.AuthChallenge {
	form := url.Values{}
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("grant_type", "password")
	form.Set("username", req.Username)
	form.Set("password", req.Password)
	form.Set("wpcom_supports_2fa", "true")
	if req.TwoStepCode != "" {
		form.Set("wpcom_otp", req.TwoStepCode)
	}

	lctx := log.WithFields(log.Fields{
		"username": req.Username,
		"otp":      req.TwoStepCode != "",
	})
	lctx.Debugf("POST to %s", tokenPath)

	httpReq, err := http.NewRequest("POST", c.fullURL(tokenPath), strings.NewReader(form.Encode()))
	if err != nil {
		return types.AuthFailed(xerrors.Errorf("building token request: %w", err))
	}
	httpReq = httpReq.WithContext(ctx)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	if req.HTTPAuth != nil {
		httpReq.SetBasicAuth(req.HTTPAuth.Username, req.HTTPAuth.Password)
	}

	res, err := c.httpClient().Do(httpReq)
	if err != nil {
		if ue, ok := trust.AsUntrustedCertificate(err); ok {
			return types.AuthNeedsTrust(c.host(), ue.Fingerprint)
		}
		return types.AuthFailed(xerrors.Errorf("POST to %s: %w", tokenPath, trust.WrapTransportError(err)))
	}
	defer res.Body.Close()

	if trust.IsBasicAuthChallenge(res) {
		return types.AuthNeedsHTTPAuth(c.host())
	}

	if res.StatusCode != http.StatusOK {
		errResp := decodeErrorResponse(res)
		lctx.Debugf("token request failed: %s", errResp.Code)
		if errResp.Code == CodeNeeds2FA {
			return types.AuthNeedsTwoFactor()
		}
		return types.AuthFailed(errResp)
	}

	var tok tokenResponse
	if err := json.NewDecoder(res.Body).Decode(&tok); err != nil {
		return types.AuthFailed(xerrors.Errorf("decoding %s response: %v: %w", tokenPath, err, types.ErrUnexpectedResponse))
	}
	if tok.AccessToken == "" {
		return types.AuthFailed(xerrors.Errorf("empty access token: %w", types.ErrUnexpectedResponse))
	}
	lctx.Debug("token granted")
	return types.AuthSuccess(tok.AccessToken, nil)
}

// Account is the subset of /me this client uses.
type Account struct {
	ID             int64  `json:"ID"`
	Username       string `json:"username"`
	DisplayName    string `json:"display_name"`
	Email          string `json:"email"`
	PrimaryBlogURL string `json:"primary_blog_url"`
}

// Me fetches the account the token belongs to.
func (c *Client) Me(ctx context.Context, token string) (*Account, error) {
	var acct Account
	if err := c.getJSON(ctx, mePath, token, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

type siteJSON struct {
	ID      int64  `json:"ID"`
	Name    string `json:"name"`
	URL     string `json:"URL"`
	Options struct {
		XMLRPCURL string `json:"xmlrpc_url"`
	} `json:"options"`
	Capabilities map[string]bool `json:"capabilities"`
}

func (s siteJSON) site() types.Site {
	return types.Site{
		ID:       fmt.Sprint(s.ID),
		Name:     s.Name,
		URL:      s.URL,
		XMLRPC:   s.Options.XMLRPCURL,
		IsAdmin:  s.Capabilities["manage_options"],
		IsHosted: true,
	}
}

type sitesResponse struct {
	Sites []siteJSON `json:"sites"`
}

// FetchSites lists the sites of the token's account.
func (c *Client) FetchSites(ctx context.Context, token string) ([]types.Site, error) {
	var resp sitesResponse
	if err := c.getJSON(ctx, sitesPath, token, &resp); err != nil {
		return nil, err
	}
	sites := make([]types.Site, 0, len(resp.Sites))
	for _, s := range resp.Sites {
		sites = append(sites, s.site())
	}
	return sites, nil
}

func (c *Client) getJSON(ctx context.Context, path, token string, v interface{}) error {
	return c.doJSON(ctx, "GET", path, token, nil, v)
}

// doJSON sends body, when set, as JSON and decodes a 200 answer into v.
func (c *Client) doJSON(ctx context.Context, method, path, token string, body, v interface{}) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return xerrors.Errorf("encoding %s request: %w", path, err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.fullURL(path), r)
	if err != nil {
		return xerrors.Errorf("building request for %s: %w", path, err)
	}
	req = req.WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Tracef("%s %s", method, path)
	res, err := c.httpClient().Do(req)
	if err != nil {
		return xerrors.Errorf("%s %s: %w", method, path, trust.WrapTransportError(err))
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return decodeErrorResponse(res)
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return xerrors.Errorf("decoding %s response: %v: %w", path, err, types.ErrUnexpectedResponse)
	}
	return nil
}

func decodeErrorResponse(res *http.Response) *ErrorResponse {
	errResp := &ErrorResponse{StatusCode: res.StatusCode}
	body, _ := ioutil.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err := json.Unmarshal(body, errResp); err != nil || errResp.Code == "" {
		errResp.Code = ""
		errResp.Description = http.StatusText(res.StatusCode)
	}
	return errResp
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) baseURL() string {
	if c.BaseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(c.BaseURL, "/")
}

func (c *Client) fullURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL(), path)
}

func (c *Client) host() string {
	return trust.HostOf(c.baseURL())
}
