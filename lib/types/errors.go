package types

import "errors"

var (
	// ErrNetwork is a transient transport failure reported by a collaborator.
	ErrNetwork            = errors.New("network error")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInvalidOTP         = errors.New("invalid two-step verification code")

	ErrStaleAttempt        = errors.New("stale login attempt")
	ErrInvalidState        = errors.New("invalid login state")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrUnexpectedChallenge = errors.New("unexpected challenge")
	ErrCertificateRejected = errors.New("certificate rejected")

	ErrInvalidURL         = errors.New("invalid site address")
	ErrNoEndpoint         = errors.New("no XML-RPC endpoint found")
	ErrUnexpectedResponse = errors.New("unexpected response")
)
