// Package xmlrpc talks to a self-hosted WordPress site's xmlrpc.php.
package xmlrpc

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"

	xrpc "github.com/kolo/xmlrpc"
	"github.com/pkg/errors"
	"github.com/segmentio/wplogin/lib/trust"
	"github.com/segmentio/wplogin/lib/types"
	log "github.com/sirupsen/logrus"
)

// responses larger than this are not XML-RPC answers we care about
const maxResponseSize = 8 << 20

type Client struct {
	HTTPClient *http.Client
	UserAgent  string
}

// HTTPStatusError is a non-200 answer from the endpoint.
type HTTPStatusError struct {
	StatusCode int
	Endpoint   string
	// BasicAuth is set when the endpoint asked for HTTP basic credentials.
	BasicAuth bool
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.Endpoint, e.StatusCode, http.StatusText(e.StatusCode))
}

// Fault is an XML-RPC fault response.
type Fault struct {
	Code   int
	String string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("xmlrpc fault %d: %s", f.Code, f.String)
}

// Is maps WordPress's "403 Incorrect username or password" fault onto
// types.ErrInvalidCredentials.
func (f *Fault) Is(target error) bool {
	return target == types.ErrInvalidCredentials && f.Code == 403
}

// Call invokes method on endpoint and decodes the first param of the answer
// into reply. httpAuth, when set, is sent as basic auth. The returned URL is
// the one that answered, after redirects.
func (c *Client) Call(ctx context.Context, endpoint, method string, httpAuth *types.HTTPAuth, reply interface{}, params ...interface{}) (string, error) {
	req, err := xrpc.NewRequest(endpoint, method, params)
	if err != nil {
		return "", errors.Wrapf(types.ErrInvalidURL, "%s: %s", endpoint, err)
	}
	req = req.WithContext(ctx)
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if httpAuth != nil {
		req.SetBasicAuth(httpAuth.Username, httpAuth.Password)
	}

	log.WithFields(log.Fields{
		"endpoint": endpoint,
		"method":   method,
	}).Debug("xmlrpc call")

	res, err := c.httpClient().Do(req)
	if err != nil {
		return "", trust.WrapTransportError(err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		io.Copy(ioutil.Discard, io.LimitReader(res.Body, maxResponseSize))
		return "", &HTTPStatusError{
			StatusCode: res.StatusCode,
			Endpoint:   endpoint,
			BasicAuth:  trust.IsBasicAuthChallenge(res),
		}
	}
	final := res.Request.URL.String()

	data, err := ioutil.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return final, trust.WrapTransportError(err)
	}
	resp := xrpc.Response(data)
	if err := resp.Err(); err != nil {
		var fe xrpc.FaultError
		if errors.As(err, &fe) {
			return final, &Fault{Code: fe.Code, String: fe.String}
		}
		return final, errors.Wrap(types.ErrUnexpectedResponse, err.Error())
	}
	if err := resp.Unmarshal(reply); err != nil {
		return final, errors.Wrapf(types.ErrUnexpectedResponse, "%s: %s", method, err)
	}
	return final, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
