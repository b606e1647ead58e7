package types

// HTTPAuth is a set of HTTP basic-auth credentials for a host sitting in
// front of a self-hosted site.
type HTTPAuth struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginAttempt carries everything a collaborator needs to authenticate.
//
// An empty ServerURL selects the hosted-account flow.
type LoginAttempt struct {
	Username    string
	Password    string
	ServerURL   string
	TwoStepCode string
	HTTPAuth    *HTTPAuth
}

// Site is a blog the authenticated user has access to.
type Site struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	XMLRPC   string `json:"xmlrpc,omitempty"`
	IsAdmin  bool   `json:"is_admin"`
	IsHosted bool   `json:"is_hosted"`
}

type DiscoveryKind int

const (
	DiscoveryResolved DiscoveryKind = iota
	DiscoveryHostedAccount
	DiscoveryHTTPAuthRequired
	DiscoveryUntrustedCertificate
	DiscoveryError
)

func (k DiscoveryKind) String() string {
	switch k {
	case DiscoveryResolved:
		return "resolved"
	case DiscoveryHostedAccount:
		return "hosted-account"
	case DiscoveryHTTPAuthRequired:
		return "http-auth-required"
	case DiscoveryUntrustedCertificate:
		return "untrusted-certificate"
	case DiscoveryError:
		return "error"
	}
	return "unknown"
}

// DiscoveryResult is the outcome of resolving a self-hosted URL.
type DiscoveryResult struct {
	Kind DiscoveryKind
	// Endpoint is the resolved endpoint, or the endpoint that failed for the
	// challenge kinds.
	Endpoint    string
	Fingerprint string
	Err         error
}

func Resolved(endpoint string) DiscoveryResult {
	return DiscoveryResult{Kind: DiscoveryResolved, Endpoint: endpoint}
}

func IsHostedAccount() DiscoveryResult {
	return DiscoveryResult{Kind: DiscoveryHostedAccount}
}

func DiscoveryNeedsHTTPAuth(endpoint string) DiscoveryResult {
	return DiscoveryResult{Kind: DiscoveryHTTPAuthRequired, Endpoint: endpoint}
}

func DiscoveryNeedsTrust(endpoint, fingerprint string) DiscoveryResult {
	return DiscoveryResult{Kind: DiscoveryUntrustedCertificate, Endpoint: endpoint, Fingerprint: fingerprint}
}

func DiscoveryFailed(err error) DiscoveryResult {
	return DiscoveryResult{Kind: DiscoveryError, Err: err}
}

type ChallengeKind int

const (
	ChallengeSuccess ChallengeKind = iota
	ChallengeTwoFactorRequired
	ChallengeHTTPAuthRequired
	ChallengeUntrustedCertificate
	ChallengeError
)

func (k ChallengeKind) String() string {
	switch k {
	case ChallengeSuccess:
		return "success"
	case ChallengeTwoFactorRequired:
		return "two-factor-required"
	case ChallengeHTTPAuthRequired:
		return "http-auth-required"
	case ChallengeUntrustedCertificate:
		return "untrusted-certificate"
	case ChallengeError:
		return "error"
	}
	return "unknown"
}

// AuthChallenge is the outcome of one authentication request.
type AuthChallenge struct {
	Kind ChallengeKind

	// set on ChallengeSuccess. Self-hosted logins have no token, only sites.
	AccessToken string
	Sites       []Site

	// Host is the host that asked for HTTP auth or presented the certificate.
	Host        string
	Fingerprint string

	Err error
}

func AuthSuccess(token string, sites []Site) AuthChallenge {
	return AuthChallenge{Kind: ChallengeSuccess, AccessToken: token, Sites: sites}
}

func AuthNeedsTwoFactor() AuthChallenge {
	return AuthChallenge{Kind: ChallengeTwoFactorRequired}
}

func AuthNeedsHTTPAuth(host string) AuthChallenge {
	return AuthChallenge{Kind: ChallengeHTTPAuthRequired, Host: host}
}

func AuthNeedsTrust(host, fingerprint string) AuthChallenge {
	return AuthChallenge{Kind: ChallengeUntrustedCertificate, Host: host, Fingerprint: fingerprint}
}

func AuthFailed(err error) AuthChallenge {
	return AuthChallenge{Kind: ChallengeError, Err: err}
}
