package trust

import (
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/segmentio/wplogin/lib/types"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/xerrors"
)

const (
	Timeout = time.Duration(60 * time.Second)
)

type HTTPClientOptions struct {
	// RootCAs replaces the system pool for chain verification.
	RootCAs *x509.CertPool
	// http client timeout. default 60s
	Timeout *time.Duration
}

// NewHTTPClient returns a client whose TLS verification consults store, and
// which attaches the store's basic-auth credentials to requests for hosts
// it knows about.
func NewHTTPClient(store *Store, opts *HTTPClientOptions) (*http.Client, error) {
	if opts == nil {
		opts = &HTTPClientOptions{}
	}
	timeout := Timeout
	if opts.Timeout != nil {
		timeout = *opts.Timeout
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, xerrors.Errorf("creating cookie jar: %w", err)
	}

	transCfg := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     TLSConfig(store, opts.RootCAs),
		TLSHandshakeTimeout: timeout,
	}

	return &http.Client{
		Transport: &basicAuthTransport{store: store, next: transCfg},
		Timeout:   timeout,
		Jar:       jar,
	}, nil
}

type basicAuthTransport struct {
	store *Store
	next  http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.store == nil || req.Header.Get("Authorization") != "" {
		return t.next.RoundTrip(req)
	}
	auth, ok := t.store.Credentials(req.URL.Host)
	if !ok {
		return t.next.RoundTrip(req)
	}
	req2 := req.Clone(req.Context())
	req2.SetBasicAuth(auth.Username, auth.Password)
	log.Tracef("attaching http credentials for %s", req.URL.Host)
	return t.next.RoundTrip(req2)
}

// IsBasicAuthChallenge reports whether res asks for HTTP basic auth.
func IsBasicAuthChallenge(res *http.Response) bool {
	if res == nil || res.StatusCode != http.StatusUnauthorized {
		return false
	}
	for _, v := range res.Header.Values("WWW-Authenticate") {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(v)), "basic") {
			return true
		}
	}
	return false
}

// NetworkError marks a transport failure; it matches types.ErrNetwork.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == types.ErrNetwork
}

// WrapTransportError tags err as a NetworkError unless it is a certificate
// problem, which callers surface as a trust challenge instead.
func WrapTransportError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsUntrustedCertificate(err); ok {
		return err
	}
	var ne net.Error
	var ue *url.Error
	if xerrors.As(err, &ne) || xerrors.As(err, &ue) {
		return &NetworkError{Err: err}
	}
	return err
}

// HostOf returns the host[:port] of rawURL, or rawURL itself if it does not
// parse.
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
