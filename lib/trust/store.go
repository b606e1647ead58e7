// Package trust remembers the certificate exceptions and HTTP basic-auth
// credentials a user has confirmed during this process.
//
// Nothing in a Store expires or is revoked; entries live as long as the
// process does, unless a caller persists a Snapshot.
package trust

import (
	"sort"
	"strings"
	"sync"

	"github.com/segmentio/wplogin/lib/types"
	log "github.com/sirupsen/logrus"
)

type Store struct {
	mu           sync.RWMutex
	fingerprints map[string]struct{}
	credentials  map[string]types.HTTPAuth
}

func NewStore() *Store {
	return &Store{
		fingerprints: map[string]struct{}{},
		credentials:  map[string]types.HTTPAuth{},
	}
}

var defaultStore = NewStore()

// Default returns the process-wide store shared by every orchestrator and
// HTTP client that isn't given one explicitly.
func Default() *Store {
	return defaultStore
}

func (s *Store) IsTrusted(fingerprint string) bool {
	fp := NormalizeFingerprint(fingerprint)
	if fp == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.fingerprints[fp]
	return ok
}

func (s *Store) Trust(fingerprint string) {
	fp := NormalizeFingerprint(fingerprint)
	if fp == "" {
		return
	}
	s.mu.Lock()
	s.fingerprints[fp] = struct{}{}
	s.mu.Unlock()
	log.WithField("fingerprint", fp).Debug("trust: certificate accepted")
}

// Credentials returns the basic-auth credentials recorded for host.
func (s *Store) Credentials(host string) (types.HTTPAuth, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	auth, ok := s.credentials[normalizeHost(host)]
	return auth, ok
}

func (s *Store) SetCredentials(host string, auth types.HTTPAuth) {
	h := normalizeHost(host)
	if h == "" {
		return
	}
	s.mu.Lock()
	s.credentials[h] = auth
	s.mu.Unlock()
	log.WithFields(log.Fields{
		"host":     h,
		"username": auth.Username,
	}).Debug("trust: http credentials recorded")
}

// Snapshot is the serializable content of a Store.
type Snapshot struct {
	Fingerprints []string                  `json:"fingerprints,omitempty"`
	Credentials  map[string]types.HTTPAuth `json:"credentials,omitempty"`
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Credentials: map[string]types.HTTPAuth{}}
	for fp := range s.fingerprints {
		snap.Fingerprints = append(snap.Fingerprints, fp)
	}
	sort.Strings(snap.Fingerprints)
	for host, auth := range s.credentials {
		snap.Credentials[host] = auth
	}
	return snap
}

// Restore adds everything in snap to s. Existing entries are kept.
func (s *Store) Restore(snap Snapshot) {
	for _, fp := range snap.Fingerprints {
		if fp = NormalizeFingerprint(fp); fp == "" {
			continue
		}
		s.mu.Lock()
		s.fingerprints[fp] = struct{}{}
		s.mu.Unlock()
	}
	for host, auth := range snap.Credentials {
		if h := normalizeHost(host); h != "" {
			s.mu.Lock()
			s.credentials[h] = auth
			s.mu.Unlock()
		}
	}
}

// NormalizeFingerprint upper-cases a hex fingerprint and separates its bytes
// with colons, so "aabb" and "AA:BB" compare equal.
func NormalizeFingerprint(fp string) string {
	hex := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'A' && r <= 'F':
			return r
		case r >= 'a' && r <= 'f':
			return r - 'a' + 'A'
		}
		return -1
	}, fp)
	if len(hex) == 0 || len(hex)%2 != 0 {
		return strings.ToUpper(strings.TrimSpace(fp))
	}
	var b strings.Builder
	for i := 0; i < len(hex); i += 2 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(hex[i : i+2])
	}
	return b.String()
}

// normalizeHost lower-cases host and strips the default https/http ports.
func normalizeHost(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	h = strings.TrimSuffix(h, ":443")
	h = strings.TrimSuffix(h, ":80")
	return h
}
