// Package login drives a single sign-in attempt from the first submission of
// credentials, through any two-step, HTTP-auth or certificate-trust
// challenges, to a token (hosted accounts) or a site list (self-hosted
// sites).
//
// Collaborators are called on their own goroutines; every state transition
// and every emitted Outcome happens under one lock, so an attempt is only
// ever touched by one logical sequence. A new Submit supersedes the previous
// attempt: its context is cancelled and anything it still produces is
// dropped.
package login

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/segmentio/wplogin/lib/trust"
	"github.com/segmentio/wplogin/lib/types"
	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// Authenticator signs in to a hosted account.
type Authenticator interface {
	Authenticate(ctx context.Context, req types.LoginAttempt) types.AuthChallenge
}

// EndpointDiscoverer resolves a self-hosted site address to its API endpoint.
type EndpointDiscoverer interface {
	Discover(ctx context.Context, url string, httpAuth *types.HTTPAuth) types.DiscoveryResult
}

// SiteFetcher signs in to a self-hosted endpoint by listing the user's sites.
type SiteFetcher interface {
	FetchSites(ctx context.Context, endpoint string, req types.LoginAttempt) types.AuthChallenge
}

// TrustStore holds the certificate exceptions and HTTP credentials the user
// has confirmed. *trust.Store implements it.
type TrustStore interface {
	IsTrusted(fingerprint string) bool
	Trust(fingerprint string)
	Credentials(host string) (types.HTTPAuth, bool)
	SetCredentials(host string, auth types.HTTPAuth)
}

type Config struct {
	Authenticator Authenticator
	Discoverer    EndpointDiscoverer
	SiteFetcher   SiteFetcher
	TrustStore    TrustStore
	// Logger defaults to the standard logrus logger
	Logger *log.Entry
}

type step int

const (
	stepDiscover step = iota
	stepAuthenticate
	stepFetchSites
)

type attempt struct {
	id    AttemptID
	req   types.LoginAttempt
	state State

	// self-hosted endpoint, as resolved or as reported by a challenge
	endpoint string
	// step to rerun once the pending challenge is answered
	resume      step
	host        string
	fingerprint string

	// seq identifies the collaborator call in flight
	seq    uint64
	ctx    context.Context
	cancel context.CancelFunc
	log    *log.Entry
}

type Orchestrator struct {
	cfg    Config
	log    *log.Entry
	ctx    context.Context
	cancel context.CancelFunc
	out    *outbox

	mu      sync.Mutex
	current *attempt
	closed  bool
}

func New(cfg Config) (*Orchestrator, error) {
	if cfg.Authenticator == nil || cfg.Discoverer == nil || cfg.SiteFetcher == nil || cfg.TrustStore == nil {
		return nil, xerrors.Errorf("authenticator, discoverer, site fetcher and trust store are required: %w", ErrInvalidArgument)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		cfg:    cfg,
		log:    logger,
		ctx:    ctx,
		cancel: cancel,
	}
	o.out = newOutbox(o.currentID)
	return o, nil
}

// Outcomes delivers every outcome of the current attempt, in order. It is
// closed by Close.
func (o *Orchestrator) Outcomes() <-chan Outcome {
	return o.out.out
}

// State returns the current attempt and where it stands; Idle with an empty
// id before the first Submit.
func (o *Orchestrator) State() (AttemptID, State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return "", Idle
	}
	return o.current.id, o.current.state
}

func (o *Orchestrator) currentID() AttemptID {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return ""
	}
	return o.current.id
}

// Close abandons the current attempt and closes the Outcomes channel.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.cancel()
	o.mu.Unlock()
	o.out.close()
}

// Submit starts a new attempt and supersedes any attempt still in flight.
// An empty serverURL signs in to a hosted account. Once Submit returns,
// nothing more is delivered for the superseded attempt.
func (o *Orchestrator) Submit(username, password, serverURL string) (AttemptID, error) {
	if username == "" || password == "" {
		return "", xerrors.Errorf("username and password are required: %w", ErrInvalidArgument)
	}
	uid, err := uuid.NewRandom()
	if err != nil {
		return "", xerrors.Errorf("generating attempt id: %w", err)
	}
	id := AttemptID(uid.String())
	if err := o.start(id, username, password, strings.TrimSpace(serverURL)); err != nil {
		return "", err
	}
	o.out.supersede()
	return id, nil
}

func (o *Orchestrator) start(id AttemptID, username, password, serverURL string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return xerrors.Errorf("submit on closed orchestrator: %w", ErrInvalidState)
	}

	if prev := o.current; prev != nil {
		prev.cancel()
		if !prev.state.Terminal() {
			prev.log.WithField("state", prev.state).Debug("login: attempt superseded")
		}
	}

	ctx, cancel := context.WithCancel(o.ctx)
	a := &attempt{
		id:     id,
		req:    types.LoginAttempt{Username: username, Password: password},
		state:  Idle,
		ctx:    ctx,
		cancel: cancel,
		log:    o.log.WithField("attempt", id),
	}
	o.current = a

	if serverURL == "" {
		a.log.Debug("login: hosted account")
		o.authenticate(a)
		return nil
	}

	a.req.ServerURL = serverURL
	if auth, ok := o.cfg.TrustStore.Credentials(hostFor(serverURL)); ok {
		a.req.HTTPAuth = &auth
	}
	a.log.WithField("url", serverURL).Debug("login: self-hosted site")
	o.discover(a)
	return nil
}

// SupplyTwoFactorCode resumes an attempt waiting on a two-step code.
func (o *Orchestrator) SupplyTwoFactorCode(id AttemptID, code string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	a, err := o.resumable(id, AwaitingTwoFactor, "supply two-factor code")
	if err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return xerrors.Errorf("two-factor code required: %w", ErrInvalidArgument)
	}
	a.req.TwoStepCode = code
	o.retry(a)
	return nil
}

// SupplyHTTPAuthCredentials resumes an attempt waiting on HTTP basic-auth
// credentials, and remembers them for the challenging host.
func (o *Orchestrator) SupplyHTTPAuthCredentials(id AttemptID, username, password string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	a, err := o.resumable(id, AwaitingHTTPAuth, "supply http credentials")
	if err != nil {
		return err
	}
	if username == "" {
		return xerrors.Errorf("http auth username required: %w", ErrInvalidArgument)
	}
	auth := types.HTTPAuth{Username: username, Password: password}
	o.cfg.TrustStore.SetCredentials(a.host, auth)
	a.req.HTTPAuth = &auth
	o.retry(a)
	return nil
}

// AcceptCertificate resumes an attempt waiting on a certificate exception.
// fingerprint must be the one the attempt reported.
func (o *Orchestrator) AcceptCertificate(id AttemptID, fingerprint string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	a, err := o.resumable(id, AwaitingCertTrust, "accept certificate")
	if err != nil {
		return err
	}
	if trust.NormalizeFingerprint(fingerprint) != trust.NormalizeFingerprint(a.fingerprint) {
		return xerrors.Errorf("fingerprint %q is not the pending %q: %w", fingerprint, a.fingerprint, ErrInvalidArgument)
	}
	o.cfg.TrustStore.Trust(a.fingerprint)
	o.retry(a)
	return nil
}

// resumable must be called with o.mu held.
func (o *Orchestrator) resumable(id AttemptID, want State, op string) (*attempt, error) {
	a := o.current
	if a == nil || a.id != id || o.closed {
		return nil, xerrors.Errorf("%s for %s: %w", op, id, ErrStaleAttempt)
	}
	if a.state != want {
		a.log.WithField("state", a.state).Debugf("login: %s rejected", op)
		return nil, &InvalidStateError{Op: op, Current: a.state}
	}
	return a, nil
}

func (o *Orchestrator) retry(a *attempt) {
	a.fingerprint = ""
	switch a.resume {
	case stepDiscover:
		o.discover(a)
	case stepAuthenticate:
		o.authenticate(a)
	case stepFetchSites:
		o.fetchSites(a)
	}
}

// call runs fn on its own goroutine and hands its result back under the lock,
// unless a has been superseded or has moved on in the meantime.
func (o *Orchestrator) call(a *attempt, fn func(ctx context.Context) func()) {
	a.seq++
	seq := a.seq
	ctx := a.ctx
	go func() {
		apply := fn(ctx)
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.closed || o.current != a || a.seq != seq {
			a.log.Debug("login: dropping result of superseded call")
			return
		}
		apply()
	}()
}

func (o *Orchestrator) discover(a *attempt) {
	a.state = Discovering
	a.resume = stepDiscover
	url, auth := a.req.ServerURL, a.req.HTTPAuth
	a.log.Debug("login: discovering endpoint")
	o.call(a, func(ctx context.Context) func() {
		res := o.cfg.Discoverer.Discover(ctx, url, auth)
		return func() { o.onDiscovery(a, res) }
	})
}

func (o *Orchestrator) authenticate(a *attempt) {
	a.state = Authenticating
	a.resume = stepAuthenticate
	req := a.req
	a.log.WithField("otp", req.TwoStepCode != "").Debug("login: authenticating")
	o.call(a, func(ctx context.Context) func() {
		ch := o.cfg.Authenticator.Authenticate(ctx, req)
		return func() { o.onChallenge(a, stepAuthenticate, ch) }
	})
}

func (o *Orchestrator) fetchSites(a *attempt) {
	a.state = Authenticating
	a.resume = stepFetchSites
	endpoint, req := a.endpoint, a.req
	a.log.WithField("endpoint", endpoint).Debug("login: fetching sites")
	o.call(a, func(ctx context.Context) func() {
		ch := o.cfg.SiteFetcher.FetchSites(ctx, endpoint, req)
		return func() { o.onChallenge(a, stepFetchSites, ch) }
	})
}

func (o *Orchestrator) onDiscovery(a *attempt, res types.DiscoveryResult) {
	a.log.WithField("result", res.Kind).Debug("login: discovery finished")
	switch res.Kind {
	case types.DiscoveryHostedAccount:
		// the address belongs to a hosted account; sign in there with the
		// same username and password
		a.req.ServerURL = ""
		a.req.HTTPAuth = nil
		a.endpoint = ""
		o.authenticate(a)

	case types.DiscoveryResolved:
		a.endpoint = res.Endpoint
		if a.req.HTTPAuth == nil {
			if auth, ok := o.cfg.TrustStore.Credentials(hostFor(res.Endpoint)); ok {
				a.req.HTTPAuth = &auth
			}
		}
		o.fetchSites(a)

	case types.DiscoveryHTTPAuthRequired:
		endpoint := res.Endpoint
		if endpoint == "" {
			endpoint = a.req.ServerURL
		}
		a.endpoint = endpoint
		o.awaitHTTPAuth(a, stepDiscover, hostFor(endpoint))

	case types.DiscoveryUntrustedCertificate:
		if res.Endpoint != "" {
			a.endpoint = res.Endpoint
		}
		o.awaitTrust(a, stepDiscover, res.Fingerprint)

	case types.DiscoveryError:
		o.fail(a, res.Err)

	default:
		o.fail(a, xerrors.Errorf("discovery result %s: %w", res.Kind, types.ErrUnexpectedResponse))
	}
}

func (o *Orchestrator) onChallenge(a *attempt, from step, ch types.AuthChallenge) {
	a.log.WithField("result", ch.Kind).Debug("login: authentication finished")
	switch ch.Kind {
	case types.ChallengeSuccess:
		a.state = Succeeded
		o.emit(a, Outcome{
			Kind:        LoggedIn,
			AccessToken: ch.AccessToken,
			Sites:       ch.Sites,
			Endpoint:    a.endpoint,
		})
		a.cancel()

	case types.ChallengeTwoFactorRequired:
		if from == stepFetchSites {
			o.fail(a, xerrors.Errorf("two-step verification requested by self-hosted site: %w", ErrUnexpectedChallenge))
			return
		}
		a.state = AwaitingTwoFactor
		a.resume = stepAuthenticate
		o.emit(a, Outcome{Kind: AwaitingTwoFactorCode})

	case types.ChallengeHTTPAuthRequired:
		host := ch.Host
		if host == "" && a.endpoint != "" {
			host = hostFor(a.endpoint)
		}
		if host == "" && a.req.ServerURL != "" {
			host = hostFor(a.req.ServerURL)
		}
		if host == "" {
			// nowhere to store the credentials
			o.fail(a, xerrors.Errorf("http auth challenge without a host: %w", types.ErrUnexpectedResponse))
			return
		}
		o.awaitHTTPAuth(a, from, host)

	case types.ChallengeUntrustedCertificate:
		o.awaitTrust(a, from, ch.Fingerprint)

	case types.ChallengeError:
		o.fail(a, ch.Err)

	default:
		o.fail(a, xerrors.Errorf("authentication result %s: %w", ch.Kind, types.ErrUnexpectedResponse))
	}
}

func (o *Orchestrator) awaitHTTPAuth(a *attempt, from step, host string) {
	a.state = AwaitingHTTPAuth
	a.resume = from
	a.host = host
	o.emit(a, Outcome{Kind: AwaitingHTTPAuthCredentials, Host: host})
}

func (o *Orchestrator) awaitTrust(a *attempt, from step, fingerprint string) {
	if fingerprint == "" || o.cfg.TrustStore.IsTrusted(fingerprint) {
		// asking again would loop forever
		o.fail(a, xerrors.Errorf("certificate %q: %w", fingerprint, ErrCertificateRejected))
		return
	}
	a.state = AwaitingCertTrust
	a.resume = from
	a.fingerprint = fingerprint
	o.emit(a, Outcome{Kind: AwaitingCertificateTrust, Fingerprint: fingerprint})
}

func (o *Orchestrator) fail(a *attempt, err error) {
	a.state = Failed
	o.emit(a, Outcome{Kind: LoginFailed, Err: err, Cause: describe(err)})
	a.cancel()
}

// emit must be called with o.mu held.
func (o *Orchestrator) emit(a *attempt, out Outcome) {
	out.AttemptID = a.id
	a.log.WithField("outcome", out.Kind).Debug("login: emit")
	o.out.push(out)
}

// hostFor returns the host of a site address, which users often type
// without a scheme.
func hostFor(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	return trust.HostOf(s)
}
