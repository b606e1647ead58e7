// Package discovery resolves the address a user typed for a self-hosted
// site into its XML-RPC endpoint.
package discovery

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/segmentio/wplogin/lib/trust"
	"github.com/segmentio/wplogin/lib/types"
	"github.com/segmentio/wplogin/lib/xmlrpc"
	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

const xmlrpcPath = "/xmlrpc.php"

// DefaultHostedDomains are addresses that belong to hosted accounts rather
// than self-hosted sites.
var DefaultHostedDomains = []string{"wordpress.com"}

type Finder struct {
	XMLRPC *xmlrpc.Client
	// HTTPClient fetches pages for RSD discovery. Defaults to XMLRPC's client.
	HTTPClient    *http.Client
	HostedDomains []string
}

// Discover resolves rawURL. Challenges (HTTP auth, untrusted certificate)
// are reported for the endpoint that raised them so the caller can retry.
func (f *Finder) Discover(ctx context.Context, rawURL string, httpAuth *types.HTTPAuth) types.DiscoveryResult {
	base, err := SanitizeURL(rawURL)
	if err != nil {
		return types.DiscoveryFailed(err)
	}
	lctx := log.WithField("url", base)

	if f.isHosted(base) {
		lctx.Debug("discovery: hosted account address")
		return types.IsHostedAccount()
	}

	var lastErr error
	for _, candidate := range candidates(base) {
		lctx.WithField("candidate", candidate).Debug("discovery: probing")
		res, err := f.probe(ctx, candidate, httpAuth)
		if err == nil {
			return res
		}
		if res.Kind == types.DiscoveryHTTPAuthRequired || res.Kind == types.DiscoveryUntrustedCertificate {
			return res
		}
		lastErr = err
		if ctx.Err() != nil {
			return types.DiscoveryFailed(trust.WrapTransportError(ctx.Err()))
		}
	}

	lctx.Debug("discovery: trying RSD")
	res, err := f.discoverRSD(ctx, base, httpAuth)
	if err == nil {
		return res
	}
	if res.Kind != types.DiscoveryError {
		return res
	}
	if lastErr == nil {
		lastErr = err
	}

	lctx.Debugf("discovery: failed: %s", lastErr)
	if xerrors.Is(lastErr, types.ErrNetwork) {
		return types.DiscoveryFailed(lastErr)
	}
	return types.DiscoveryFailed(xerrors.Errorf("%s: %w", base, types.ErrNoEndpoint))
}

// probe checks that endpoint speaks XML-RPC and exposes the WordPress API.
// A nil error always comes with a Resolved or hosted-account result.
func (f *Finder) probe(ctx context.Context, endpoint string, httpAuth *types.HTTPAuth) (types.DiscoveryResult, error) {
	methods, final, err := f.XMLRPC.ListMethods(ctx, endpoint, httpAuth)
	if err != nil {
		return resultFromError(endpoint, err), err
	}
	if final == "" {
		final = endpoint
	}
	if f.isHosted(final) {
		log.WithField("url", final).Debug("discovery: endpoint redirected to a hosted account")
		return types.IsHostedAccount(), nil
	}
	for _, m := range methods {
		if m == xmlrpc.MethodGetUsersBlogs {
			return types.Resolved(final), nil
		}
	}
	err = xerrors.Errorf("%s does not expose %s: %w", final, xmlrpc.MethodGetUsersBlogs, types.ErrNoEndpoint)
	return types.DiscoveryFailed(err), err
}

func resultFromError(endpoint string, err error) types.DiscoveryResult {
	ch := xmlrpc.ChallengeFromError(endpoint, err)
	switch ch.Kind {
	case types.ChallengeUntrustedCertificate:
		return types.DiscoveryNeedsTrust(endpoint, ch.Fingerprint)
	case types.ChallengeHTTPAuthRequired:
		return types.DiscoveryNeedsHTTPAuth(endpoint)
	}
	return types.DiscoveryFailed(err)
}

func (f *Finder) isHosted(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return isHostedHost(u.Hostname(), f.hostedDomains())
}

func (f *Finder) hostedDomains() []string {
	if len(f.HostedDomains) > 0 {
		return f.HostedDomains
	}
	return DefaultHostedDomains
}

func isHostedHost(host string, domains []string) bool {
	host = strings.ToLower(host)
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func candidates(base string) []string {
	if strings.HasSuffix(base, xmlrpcPath) {
		return []string{base}
	}
	return []string{base + xmlrpcPath, base}
}

// SanitizeURL trims what users commonly paste around a site address: it
// adds a missing scheme, and drops admin paths, query, fragment and any
// trailing slash.
func SanitizeURL(rawURL string) (string, error) {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return "", xerrors.Errorf("empty address: %w", types.ErrInvalidURL)
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", xerrors.Errorf("%q: %v: %w", rawURL, err, types.ErrInvalidURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", xerrors.Errorf("%q: unsupported scheme %q: %w", rawURL, u.Scheme, types.ErrInvalidURL)
	}
	if u.Host == "" {
		return "", xerrors.Errorf("%q: missing host: %w", rawURL, types.ErrInvalidURL)
	}
	u.RawQuery = ""
	u.Fragment = ""
	p := strings.TrimRight(u.Path, "/")
	for _, suffix := range []string{"/wp-login.php", "/wp-admin"} {
		if i := strings.Index(p, suffix); i >= 0 {
			p = p[:i]
		}
	}
	u.Path = strings.TrimRight(p, "/")
	u.RawPath = ""
	return u.String(), nil
}
