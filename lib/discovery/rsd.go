package discovery

import (
	"context"
	"encoding/xml"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	"github.com/segmentio/wplogin/lib/trust"
	"github.com/segmentio/wplogin/lib/types"
	"github.com/segmentio/wplogin/lib/xmlrpc"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/xerrors"
)

const maxPageSize = 2 << 20

// discoverRSD follows the site's <link rel="EditURI"> to its Really Simple
// Discovery document and validates the WordPress API link found there.
func (f *Finder) discoverRSD(ctx context.Context, base string, httpAuth *types.HTTPAuth) (types.DiscoveryResult, error) {
	res, err := f.get(ctx, base, httpAuth)
	if err != nil {
		return resultFromError(base, err), err
	}
	// the homepage may have redirected to a hosted address
	if f.isHosted(res.finalURL) {
		return types.IsHostedAccount(), nil
	}

	rsdURL := findEditURI(strings.NewReader(res.body))
	if rsdURL == "" {
		err := xerrors.Errorf("%s has no EditURI link: %w", base, types.ErrNoEndpoint)
		return types.DiscoveryFailed(err), err
	}
	rsdURL = resolveReference(res.finalURL, rsdURL)
	log.WithField("rsd", rsdURL).Debug("discovery: found EditURI")

	rsd, err := f.get(ctx, rsdURL, httpAuth)
	if err != nil {
		return resultFromError(rsdURL, err), err
	}
	endpoint, err := parseRSD([]byte(rsd.body))
	if err != nil {
		return types.DiscoveryFailed(err), err
	}
	endpoint = resolveReference(rsd.finalURL, endpoint)
	return f.probe(ctx, endpoint, httpAuth)
}

type page struct {
	finalURL string
	body     string
}

func (f *Finder) get(ctx context.Context, rawURL string, httpAuth *types.HTTPAuth) (*page, error) {
	req, err := http.NewRequest("GET", rawURL, nil)
	if err != nil {
		return nil, xerrors.Errorf("%s: %v: %w", rawURL, err, types.ErrInvalidURL)
	}
	req = req.WithContext(ctx)
	if httpAuth != nil {
		req.SetBasicAuth(httpAuth.Username, httpAuth.Password)
	}
	res, err := f.httpClient().Do(req)
	if err != nil {
		return nil, trust.WrapTransportError(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		io.Copy(ioutil.Discard, io.LimitReader(res.Body, maxPageSize))
		return nil, &xmlrpc.HTTPStatusError{
			StatusCode: res.StatusCode,
			Endpoint:   rawURL,
			BasicAuth:  trust.IsBasicAuthChallenge(res),
		}
	}
	body, err := ioutil.ReadAll(io.LimitReader(res.Body, maxPageSize))
	if err != nil {
		return nil, trust.WrapTransportError(err)
	}
	return &page{finalURL: res.Request.URL.String(), body: string(body)}, nil
}

func (f *Finder) httpClient() *http.Client {
	if f.HTTPClient != nil {
		return f.HTTPClient
	}
	if f.XMLRPC != nil && f.XMLRPC.HTTPClient != nil {
		return f.XMLRPC.HTTPClient
	}
	return http.DefaultClient
}

// findEditURI returns the href of the first <link rel="EditURI"> in the
// document, or "".
func findEditURI(r io.Reader) string {
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			t := z.Token()
			if t.Data == "body" {
				return ""
			}
			if t.Data != "link" {
				continue
			}
			var rel, href string
			for _, a := range t.Attr {
				switch strings.ToLower(a.Key) {
				case "rel":
					rel = a.Val
				case "href":
					href = a.Val
				}
			}
			if strings.EqualFold(rel, "EditURI") && href != "" {
				return href
			}
		}
	}
}

type rsdDoc struct {
	APIs []struct {
		Name      string `xml:"name,attr"`
		Preferred string `xml:"preferred,attr"`
		APILink   string `xml:"apiLink,attr"`
	} `xml:"service>apis>api"`
}

func parseRSD(data []byte) (string, error) {
	var doc rsdDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", xerrors.Errorf("parsing RSD: %v: %w", err, types.ErrUnexpectedResponse)
	}
	for _, api := range doc.APIs {
		if api.Name == "WordPress" && api.APILink != "" {
			return api.APILink, nil
		}
	}
	return "", xerrors.Errorf("RSD has no WordPress api: %w", types.ErrNoEndpoint)
}

func resolveReference(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
