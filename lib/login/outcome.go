package login

import (
	"fmt"

	"github.com/segmentio/wplogin/lib/types"
)

// AttemptID identifies one Submit. Outcomes carry the id of the attempt they
// belong to.
type AttemptID string

type State int

const (
	Idle State = iota
	Discovering
	AwaitingHTTPAuth
	AwaitingCertTrust
	Authenticating
	AwaitingTwoFactor
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Discovering:
		return "discovering"
	case AwaitingHTTPAuth:
		return "awaiting-http-auth"
	case AwaitingCertTrust:
		return "awaiting-cert-trust"
	case Authenticating:
		return "authenticating"
	case AwaitingTwoFactor:
		return "awaiting-two-factor"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further outcome can follow s.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed
}

// Suspended reports whether s waits on a resume call from the user.
func (s State) Suspended() bool {
	return s == AwaitingHTTPAuth || s == AwaitingCertTrust || s == AwaitingTwoFactor
}

type OutcomeKind int

const (
	LoggedIn OutcomeKind = iota
	AwaitingTwoFactorCode
	AwaitingHTTPAuthCredentials
	AwaitingCertificateTrust
	LoginFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case LoggedIn:
		return "logged-in"
	case AwaitingTwoFactorCode:
		return "awaiting-two-factor"
	case AwaitingHTTPAuthCredentials:
		return "awaiting-http-auth"
	case AwaitingCertificateTrust:
		return "awaiting-certificate-trust"
	case LoginFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome is an observable step of an attempt. Only the fields relevant to
// Kind are set.
type Outcome struct {
	AttemptID AttemptID
	Kind      OutcomeKind

	// LoggedIn
	AccessToken string
	Sites       []types.Site
	// Endpoint is the self-hosted XML-RPC endpoint; empty for hosted logins.
	Endpoint string

	// AwaitingHTTPAuthCredentials
	Host string
	// AwaitingCertificateTrust
	Fingerprint string

	// LoginFailed
	Err   error
	Cause string
}

func (o Outcome) String() string {
	switch o.Kind {
	case AwaitingHTTPAuthCredentials:
		return fmt.Sprintf("%s %s (%s)", o.AttemptID, o.Kind, o.Host)
	case AwaitingCertificateTrust:
		return fmt.Sprintf("%s %s (%s)", o.AttemptID, o.Kind, o.Fingerprint)
	case LoginFailed:
		return fmt.Sprintf("%s %s: %s", o.AttemptID, o.Kind, o.Cause)
	}
	return fmt.Sprintf("%s %s", o.AttemptID, o.Kind)
}
