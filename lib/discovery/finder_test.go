package discovery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/segmentio/wplogin/lib/trust"
	"github.com/segmentio/wplogin/lib/types"
	"github.com/segmentio/wplogin/lib/xmlrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listMethodsResponse = `<?xml version="1.0"?>
<methodResponse><params><param><value><array><data>
<value><string>wp.getUsersBlogs</string></value>
</data></array></value></param></params></methodResponse>`

func xmlrpcHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "XML-RPC server accepts POST requests only.", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	w.Write([]byte(listMethodsResponse))
}

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{in: "example.com", want: "http://example.com"},
		{in: "  https://example.com/  ", want: "https://example.com"},
		{in: "https://example.com/blog/wp-admin/", want: "https://example.com/blog"},
		{in: "https://example.com/wp-login.php?redirect_to=x#top", want: "https://example.com"},
		{in: "https://example.com/xmlrpc.php", want: "https://example.com/xmlrpc.php"},
		{in: "", err: true},
		{in: "ftp://example.com", err: true},
		{in: "http://", err: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := SanitizeURL(tc.in)
			if tc.err {
				assert.True(t, errors.Is(err, types.ErrInvalidURL), "expected ErrInvalidURL, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDiscoverHostedAccount(t *testing.T) {
	f := &Finder{XMLRPC: &xmlrpc.Client{}}
	for _, in := range []string{"alice.wordpress.com", "https://wordpress.com/", "https://Alice.WordPress.com/wp-admin"} {
		res := f.Discover(context.Background(), in, nil)
		assert.Equal(t, types.DiscoveryHostedAccount, res.Kind, in)
	}

	f.HostedDomains = []string{"example.org"}
	res := f.Discover(context.Background(), "blog.example.org", nil)
	assert.Equal(t, types.DiscoveryHostedAccount, res.Kind)
}

func TestDiscoverXMLRPCPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/xmlrpc.php", xmlrpcHandler)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := &Finder{XMLRPC: &xmlrpc.Client{}}
	res := f.Discover(context.Background(), srv.URL+"/", nil)
	require.Equal(t, types.DiscoveryResolved, res.Kind, "err: %v", res.Err)
	assert.Equal(t, srv.URL+"/xmlrpc.php", res.Endpoint)
}

func TestDiscoverRedirectToHostedAccount(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/xmlrpc.php", func(w http.ResponseWriter, r *http.Request) {
		if r.Host == "localhost"+strings.TrimPrefix(srvURL, "http://127.0.0.1") {
			xmlrpcHandler(w, r)
			return
		}
		to := strings.Replace(srvURL, "127.0.0.1", "localhost", 1) + "/xmlrpc.php"
		http.Redirect(w, r, to, http.StatusPermanentRedirect)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL
	require.True(t, strings.HasPrefix(srvURL, "http://127.0.0.1:"))

	f := &Finder{XMLRPC: &xmlrpc.Client{}, HostedDomains: []string{"localhost"}}
	res := f.Discover(context.Background(), srv.URL, nil)
	assert.Equal(t, types.DiscoveryHostedAccount, res.Kind, "endpoint %q err %v", res.Endpoint, res.Err)
}

func TestDiscoverRedirectResolvesFinalEndpoint(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/xmlrpc.php", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/blog/xmlrpc.php", http.StatusTemporaryRedirect)
	})
	mux.HandleFunc("/blog/xmlrpc.php", xmlrpcHandler)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := &Finder{XMLRPC: &xmlrpc.Client{}}
	res := f.Discover(context.Background(), srv.URL, nil)
	require.Equal(t, types.DiscoveryResolved, res.Kind, "err: %v", res.Err)
	assert.Equal(t, srv.URL+"/blog/xmlrpc.php", res.Endpoint)
}

func TestDiscoverRSD(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/custom/rpc", xmlrpcHandler)
	mux.HandleFunc("/rsd.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<rsd version="1.0" xmlns="http://archipelago.phrasewise.com/rsd">
  <service>
    <engineName>WordPress</engineName>
    <apis>
      <api name="Atom" blogID="" preferred="false" apiLink="/atom"/>
      <api name="WordPress" blogID="1" preferred="true" apiLink="` + srvURL + `/custom/rpc"/>
    </apis>
  </service>
</rsd>`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" || r.Method != "GET" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`<!DOCTYPE html><html><head>
<title>Self</title>
<link rel="EditURI" type="application/rsd+xml" title="RSD" href="/rsd.xml" />
</head><body>hello</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	f := &Finder{XMLRPC: &xmlrpc.Client{}}
	res := f.Discover(context.Background(), srv.URL, nil)
	require.Equal(t, types.DiscoveryResolved, res.Kind, "err: %v", res.Err)
	assert.Equal(t, srv.URL+"/custom/rpc", res.Endpoint)
}

func TestDiscoverNotWordPress(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := &Finder{XMLRPC: &xmlrpc.Client{}}
	res := f.Discover(context.Background(), srv.URL, nil)
	require.Equal(t, types.DiscoveryError, res.Kind)
	assert.True(t, errors.Is(res.Err, types.ErrNoEndpoint), "got %v", res.Err)
}

func TestDiscoverHTTPAuth(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/xmlrpc.php", func(w http.ResponseWriter, r *http.Request) {
		if u, p, ok := r.BasicAuth(); !ok || u != "gate" || p != "keeper" {
			w.Header().Set("WWW-Authenticate", `Basic realm="private"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		xmlrpcHandler(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := &Finder{XMLRPC: &xmlrpc.Client{}}
	res := f.Discover(context.Background(), srv.URL, nil)
	require.Equal(t, types.DiscoveryHTTPAuthRequired, res.Kind)
	assert.Equal(t, srv.URL+"/xmlrpc.php", res.Endpoint)

	res = f.Discover(context.Background(), srv.URL, &types.HTTPAuth{Username: "gate", Password: "keeper"})
	require.Equal(t, types.DiscoveryResolved, res.Kind, "err: %v", res.Err)
}

func TestDiscoverUntrustedCertificate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/xmlrpc.php", xmlrpcHandler)
	srv := httptest.NewTLSServer(mux)
	defer srv.Close()

	store := trust.NewStore()
	client, err := trust.NewHTTPClient(store, nil)
	require.NoError(t, err)
	f := &Finder{XMLRPC: &xmlrpc.Client{HTTPClient: client}}

	res := f.Discover(context.Background(), srv.URL, nil)
	require.Equal(t, types.DiscoveryUntrustedCertificate, res.Kind, "err: %v", res.Err)
	assert.Equal(t, trust.Fingerprint(srv.Certificate()), res.Fingerprint)
	assert.True(t, strings.HasPrefix(res.Endpoint, "https://"))

	store.Trust(res.Fingerprint)

	res = f.Discover(context.Background(), srv.URL, nil)
	require.Equal(t, types.DiscoveryResolved, res.Kind, "err: %v", res.Err)

	// the exception holds for every later lookup in this process
	res = f.Discover(context.Background(), srv.URL+"/xmlrpc.php", nil)
	assert.Equal(t, types.DiscoveryResolved, res.Kind)
}

func TestFindEditURI(t *testing.T) {
	assert.Equal(t, "https://x/rsd", findEditURI(strings.NewReader(`<html><head><link rel="stylesheet" href="a.css"><LINK REL="EditURI" HREF="https://x/rsd"></head></html>`)))
	assert.Equal(t, "", findEditURI(strings.NewReader(`<html><head></head><body><link rel="EditURI" href="/late"></body></html>`)))
	assert.Equal(t, "", findEditURI(strings.NewReader(``)))
}
