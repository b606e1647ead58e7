package sessioncache

import (
	"encoding/json"
	"time"

	"github.com/99designs/keyring"
	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// KrItemPerSessionStore stores each session in its own keyring item. It
// suits backends without per-item authorization prompts (file, pass,
// secret-service).
type KrItemPerSessionStore struct {
	Keyring keyring.Keyring
}

func (s *KrItemPerSessionStore) Get(k Key) (*Session, error) {
	item, err := s.Keyring.Get(k.Key())
	if err != nil {
		return nil, xerrors.Errorf("failed Keyring.Get(%q): %w", k.Key(), err)
	}

	var session Session
	if err = json.Unmarshal(item.Data, &session); err != nil {
		return nil, xerrors.Errorf("failed unmarshal for %q: %w", k.Key(), err)
	}

	if session.Expired(time.Now()) {
		return nil, xerrors.Errorf("session expired for %q: %w", k.Key(), ErrSessionExpired)
	}

	return &session, nil
}

func (s *KrItemPerSessionStore) Put(k Key, session *Session) error {
	bytes, err := session.Bytes()
	if err != nil {
		return xerrors.Errorf("marshalling session for %q: %w", k.Key(), err)
	}

	log.Debugf("Writing session for %s to keyring", session.Name)
	err = s.Keyring.Set(keyring.Item{
		Key:                         k.Key(),
		Label:                       "wplogin session for " + session.Name,
		Data:                        bytes,
		KeychainNotTrustApplication: false,
	})
	if err != nil {
		return xerrors.Errorf("writing session for %q: %w", k.Key(), err)
	}
	return nil
}

func (s *KrItemPerSessionStore) Delete(k Key) error {
	if err := s.Keyring.Remove(k.Key()); err != nil {
		return xerrors.Errorf("removing session for %q: %w", k.Key(), err)
	}
	return nil
}
