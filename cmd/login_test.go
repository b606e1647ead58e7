package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	accountcredskeyring "github.com/segmentio/wplogin/lib/keyrings/accountcreds"
	"github.com/segmentio/wplogin/lib/login"
	"github.com/segmentio/wplogin/lib/trust"
	"github.com/segmentio/wplogin/lib/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedPrompter answers prompts in order and records the labels it saw
type scriptedPrompter struct {
	mu      sync.Mutex
	answers []string
	labels  []string
}

func (p *scriptedPrompter) Prompt(label string, sensitive bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.labels = append(p.labels, label)
	if len(p.answers) == 0 {
		return "", fmt.Errorf("unexpected prompt %q", label)
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

type authFunc func(context.Context, types.LoginAttempt) types.AuthChallenge

func (f authFunc) Authenticate(ctx context.Context, req types.LoginAttempt) types.AuthChallenge {
	return f(ctx, req)
}

type discoverFunc func(context.Context, string, *types.HTTPAuth) types.DiscoveryResult

func (f discoverFunc) Discover(ctx context.Context, url string, auth *types.HTTPAuth) types.DiscoveryResult {
	return f(ctx, url, auth)
}

type fetchFunc func(context.Context, string, types.LoginAttempt) types.AuthChallenge

func (f fetchFunc) FetchSites(ctx context.Context, endpoint string, req types.LoginAttempt) types.AuthChallenge {
	return f(ctx, endpoint, req)
}

func newTestOrchestrator(t *testing.T, store *trust.Store, a authFunc, d discoverFunc, f fetchFunc) *login.Orchestrator {
	t.Helper()
	o, err := login.New(login.Config{
		Authenticator: a,
		Discoverer:    d,
		SiteFetcher:   f,
		TrustStore:    store,
	})
	require.NoError(t, err)
	t.Cleanup(o.Close)
	return o
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRunLoginHostedTwoFactor(t *testing.T) {
	var codes []string
	o := newTestOrchestrator(t, trust.NewStore(),
		func(_ context.Context, req types.LoginAttempt) types.AuthChallenge {
			codes = append(codes, req.TwoStepCode)
			if req.TwoStepCode == "" {
				return types.AuthNeedsTwoFactor()
			}
			return types.AuthSuccess("tok", nil)
		},
		nil, nil,
	)
	p := &scriptedPrompter{answers: []string{"", "123456"}}

	out, err := runLogin(testContext(t), o, p, &bytes.Buffer{}, "bob", "pw", "")
	require.NoError(t, err)
	assert.Equal(t, login.LoggedIn, out.Kind)
	assert.Equal(t, "tok", out.AccessToken)
	assert.Equal(t, []string{"", "123456"}, codes)
	assert.Equal(t, []string{"Two-step verification code", "Two-step verification code"}, p.labels)
}

func TestRunLoginSelfHostedChallenges(t *testing.T) {
	const endpoint = "https://self.example/xmlrpc.php"
	const fp = "AA:BB"
	store := trust.NewStore()
	o := newTestOrchestrator(t, store,
		nil,
		func(_ context.Context, _ string, auth *types.HTTPAuth) types.DiscoveryResult {
			if !store.IsTrusted(fp) {
				return types.DiscoveryNeedsTrust(endpoint, fp)
			}
			if auth == nil {
				return types.DiscoveryNeedsHTTPAuth(endpoint)
			}
			return types.Resolved(endpoint)
		},
		func(_ context.Context, _ string, req types.LoginAttempt) types.AuthChallenge {
			return types.AuthSuccess("", []types.Site{{ID: "1", URL: "https://self.example"}})
		},
	)
	p := &scriptedPrompter{answers: []string{"yes", "gate", "keeper"}}
	stderr := &bytes.Buffer{}

	out, err := runLogin(testContext(t), o, p, stderr, "bob", "pw", "self.example")
	require.NoError(t, err)
	assert.Equal(t, login.LoggedIn, out.Kind)
	assert.Equal(t, endpoint, out.Endpoint)
	assert.Contains(t, stderr.String(), fp)
	assert.Contains(t, stderr.String(), "self.example requires HTTP authentication")

	auth, ok := store.Credentials("self.example")
	require.True(t, ok)
	assert.Equal(t, "gate", auth.Username)
}

func TestRunLoginCertificateDeclined(t *testing.T) {
	store := trust.NewStore()
	o := newTestOrchestrator(t, store,
		nil,
		func(context.Context, string, *types.HTTPAuth) types.DiscoveryResult {
			return types.DiscoveryNeedsTrust("https://self.example/xmlrpc.php", "AA:BB")
		},
		nil,
	)
	p := &scriptedPrompter{answers: []string{"n"}}

	_, err := runLogin(testContext(t), o, p, &bytes.Buffer{}, "bob", "pw", "self.example")
	assert.True(t, errors.Is(err, types.ErrCertificateRejected))
	assert.False(t, store.IsTrusted("AA:BB"))
}

func TestRunLoginFailure(t *testing.T) {
	o := newTestOrchestrator(t, trust.NewStore(),
		func(context.Context, types.LoginAttempt) types.AuthChallenge {
			return types.AuthFailed(types.ErrInvalidCredentials)
		},
		nil, nil,
	)

	out, err := runLogin(testContext(t), o, &scriptedPrompter{}, &bytes.Buffer{}, "bob", "pw", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidCredentials))
	assert.Equal(t, login.LoginFailed, out.Kind)
}

func TestRunLoginInvalidArguments(t *testing.T) {
	o := newTestOrchestrator(t, trust.NewStore(), nil, nil, nil)
	_, err := runLogin(testContext(t), o, &scriptedPrompter{}, &bytes.Buffer{}, "", "pw", "")
	assert.True(t, errors.Is(err, types.ErrInvalidArgument))
}

func TestCredentialsFor(t *testing.T) {
	saved := accountcredskeyring.Creds{Username: "bob", Password: "pw", ServerURL: "https://saved.example"}

	got := credentialsFor(target{}, saved, "", "")
	assert.Equal(t, saved, got)

	got = credentialsFor(target{ServerURL: "https://profile.example"}, saved, "", "")
	assert.Equal(t, "https://profile.example", got.ServerURL)
	assert.Equal(t, "pw", got.Password)

	got = credentialsFor(target{Username: "bob"}, saved, "", "https://flag.example")
	assert.Equal(t, "https://flag.example", got.ServerURL)
	assert.Equal(t, "pw", got.Password)

	got = credentialsFor(target{Username: "bob"}, saved, "alice", "")
	assert.Equal(t, "alice", got.Username)
	assert.Empty(t, got.Password, "saved password belongs to another user")

	got = credentialsFor(target{}, accountcredskeyring.Creds{}, "", "")
	assert.Equal(t, accountcredskeyring.Creds{}, got)
}

func TestNewSession(t *testing.T) {
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	tgt := target{Profile: "blog"}

	hosted := newSession(tgt, "bob", "bob.wordpress.com", login.Outcome{Kind: login.LoggedIn, AccessToken: "tok"}, now, 0)
	assert.True(t, hosted.Hosted())
	assert.Empty(t, hosted.ServerURL)
	assert.True(t, hosted.ExpiresAt.IsZero())
	assert.Equal(t, "blog", hosted.Name)

	self := newSession(tgt, "bob", "https://self.example", login.Outcome{Kind: login.LoggedIn, Endpoint: "https://self.example/xmlrpc.php"}, now, time.Hour)
	assert.False(t, self.Hosted())
	assert.Equal(t, "https://self.example", self.ServerURL)
	assert.Equal(t, now.Add(time.Hour), self.ExpiresAt)
}

func TestPrintSites(t *testing.T) {
	var buf bytes.Buffer
	printSites(&buf, []types.Site{{ID: "7", Name: "blog", URL: "https://blog.example", IsAdmin: true}})
	assert.Contains(t, buf.String(), "ID")
	assert.Contains(t, buf.String(), "https://blog.example")
	assert.Contains(t, buf.String(), "yes")
}
