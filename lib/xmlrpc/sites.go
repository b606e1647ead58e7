package xmlrpc

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/segmentio/wplogin/lib/trust"
	"github.com/segmentio/wplogin/lib/types"
	log "github.com/sirupsen/logrus"
)

const (
	MethodListMethods    = "system.listMethods"
	MethodGetUsersBlogs  = "wp.getUsersBlogs"
	MethodGetPostFormats = "wp.getPostFormats"
)

// ListMethods returns the methods endpoint advertises, and the URL that
// answered.
func (c *Client) ListMethods(ctx context.Context, endpoint string, httpAuth *types.HTTPAuth) ([]string, string, error) {
	var methods []string
	final, err := c.Call(ctx, endpoint, MethodListMethods, httpAuth, &methods)
	if err != nil {
		return nil, final, err
	}
	return methods, final, nil
}

// SiteFetcher signs in to a self-hosted site by listing the user's blogs
// with their credentials. Self-hosted sites have no separate
// authentication request.
type SiteFetcher struct {
	Client *Client
}

func (f *SiteFetcher) FetchSites(ctx context.Context, endpoint string, req types.LoginAttempt) types.AuthChallenge {
	var blogs []map[string]interface{}
	_, err := f.Client.Call(ctx, endpoint, MethodGetUsersBlogs, req.HTTPAuth, &blogs, req.Username, req.Password)
	if err != nil {
		log.WithField("endpoint", endpoint).Debugf("%s failed: %s", MethodGetUsersBlogs, err)
		return ChallengeFromError(endpoint, err)
	}
	return types.AuthSuccess("", parseBlogs(blogs))
}

func parseBlogs(blogs []map[string]interface{}) []types.Site {
	sites := make([]types.Site, 0, len(blogs))
	for _, m := range blogs {
		site := types.Site{}
		site.ID = fmt.Sprint(m["blogid"])
		site.Name, _ = m["blogName"].(string)
		site.URL, _ = m["url"].(string)
		site.XMLRPC, _ = m["xmlrpc"].(string)
		site.IsAdmin, _ = m["isAdmin"].(bool)
		sites = append(sites, site)
	}
	return sites
}

// PostFormats returns the post formats of blogID on endpoint, keyed by
// slug.
func (c *Client) PostFormats(ctx context.Context, endpoint, blogID string, req types.LoginAttempt) (map[string]string, error) {
	var raw map[string]interface{}
	if _, err := c.Call(ctx, endpoint, MethodGetPostFormats, req.HTTPAuth, &raw, blogID, req.Username, req.Password); err != nil {
		return nil, err
	}
	formats := make(map[string]string, len(raw))
	for slug, name := range raw {
		formats[slug] = fmt.Sprint(name)
	}
	return formats, nil
}

// ChallengeFromError turns a Call error into the challenge a login flow
// should present.
func ChallengeFromError(endpoint string, err error) types.AuthChallenge {
	if ue, ok := trust.AsUntrustedCertificate(err); ok {
		return types.AuthNeedsTrust(trust.HostOf(endpoint), ue.Fingerprint)
	}
	var se *HTTPStatusError
	if errors.As(err, &se) && se.BasicAuth {
		return types.AuthNeedsHTTPAuth(trust.HostOf(endpoint))
	}
	return types.AuthFailed(err)
}
