package trust

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// Checker reports whether the user accepted a certificate fingerprint.
type Checker interface {
	IsTrusted(fingerprint string) bool
}

// Fingerprint is the SHA-256 of the certificate's DER encoding, as colon
// separated upper-case hex.
func Fingerprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return NormalizeFingerprint(fmt.Sprintf("%x", sum[:]))
}

// UntrustedCertificateError is returned from a TLS handshake when the peer
// certificate neither chains to a known root nor has been accepted by the
// user.
type UntrustedCertificateError struct {
	Host        string
	Fingerprint string
	Subject     string
	Err         error
}

func (e *UntrustedCertificateError) Error() string {
	return fmt.Sprintf("untrusted certificate for %s (%s): %v", e.Host, e.Fingerprint, e.Err)
}

func (e *UntrustedCertificateError) Unwrap() error {
	return e.Err
}

// AsUntrustedCertificate finds an UntrustedCertificateError in err's chain.
func AsUntrustedCertificate(err error) (*UntrustedCertificateError, bool) {
	var ue *UntrustedCertificateError
	if xerrors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

// TLSConfig returns a client config that verifies peers against roots (the
// system pool when nil) and lets through any leaf certificate the store
// trusts.
func TLSConfig(store Checker, roots *x509.CertPool) *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		// verification happens in VerifyConnection so that trusted
		// fingerprints can bypass the chain check
		InsecureSkipVerify: true,
		VerifyConnection: func(cs tls.ConnectionState) error {
			return verifyConnection(store, roots, cs)
		},
	}
}

func verifyConnection(store Checker, roots *x509.CertPool, cs tls.ConnectionState) error {
	if len(cs.PeerCertificates) == 0 {
		return xerrors.New("tls: no peer certificates")
	}
	leaf := cs.PeerCertificates[0]
	fp := Fingerprint(leaf)
	lctx := log.WithFields(log.Fields{
		"host":        cs.ServerName,
		"fingerprint": fp,
	})

	if store != nil && store.IsTrusted(fp) {
		lctx.Debug("tls: certificate trusted by user")
		return nil
	}

	intermediates := x509.NewCertPool()
	for _, c := range cs.PeerCertificates[1:] {
		intermediates.AddCert(c)
	}
	_, err := leaf.Verify(x509.VerifyOptions{
		DNSName:       cs.ServerName,
		Roots:         roots,
		Intermediates: intermediates,
	})
	if err != nil {
		lctx.Debugf("tls: verification failed: %s", err)
		return &UntrustedCertificateError{
			Host:        cs.ServerName,
			Fingerprint: fp,
			Subject:     leaf.Subject.String(),
			Err:         err,
		}
	}
	return nil
}
