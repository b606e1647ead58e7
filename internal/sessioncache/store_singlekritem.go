package sessioncache

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/99designs/keyring"
	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

const KeyringItemKey = "session-cache"
const KeyringItemLabel = "wplogin session cache"

type singleKrItemDb struct {
	Sessions map[string]Session
}

// SingleKrItemStore stores all sessions in a single keyring item
//
// This is mostly for MacOS keychain, where an unsigned binary has to be
// reauthorized for every item on every upgrade. By collapsing all sessions
// into a single item, we only need to reauth once per upgrade/build
type SingleKrItemStore struct {
	Keyring keyring.Keyring
	// Now defaults to time.Now
	Now func() time.Time
}

func (s *SingleKrItemStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// getDb gets our item from the keyring and unmarshals it
//
// if the keyring item is not found, returns wrapped keyring.ErrKeyNotFound
func (s *SingleKrItemStore) getDb() (*singleKrItemDb, error) {
	item, err := s.Keyring.Get(KeyringItemKey)
	if err != nil {
		return nil, xerrors.Errorf("failed Keyring.Get(%q): %w", KeyringItemKey, err)
	}

	var unmarshalled singleKrItemDb
	if err := json.Unmarshal(item.Data, &unmarshalled); err != nil {
		return nil, xerrors.Errorf("failed unmarshal for %q: %w", KeyringItemKey, err)
	}
	if unmarshalled.Sessions == nil {
		unmarshalled.Sessions = map[string]Session{}
	}

	return &unmarshalled, nil
}

// loadOrCreateDb is getDb, except a missing item yields an empty db
func (s *SingleKrItemStore) loadOrCreateDb() (*singleKrItemDb, error) {
	currentDb, err := s.getDb()
	if xerrors.Is(err, keyring.ErrKeyNotFound) {
		log.Debugf("cache: new db")
		return &singleKrItemDb{Sessions: map[string]Session{}}, nil
	}
	return currentDb, err
}

func (s *SingleKrItemStore) writeDb(db *singleKrItemDb) error {
	bytes, err := json.Marshal(*db)
	if err != nil {
		return xerrors.Errorf("marshalling db: %w", err)
	}

	// TODO: check that the db hasn't changed behind our backs once keyring
	// grows a compare-and-set operation
	item := keyring.Item{
		Key:                         KeyringItemKey,
		Label:                       KeyringItemLabel,
		Data:                        bytes,
		KeychainNotTrustApplication: false,
	}
	if err := s.Keyring.Set(item); err != nil {
		return xerrors.Errorf("writing db: %w", err)
	}
	return nil
}

// Get loads the db from the keyring, and returns the session at k.Key()
//
// If the keyring item is not found (the db hasn't been written) or the key is
// not found, returns wrapped keyring.ErrKeyNotFound
//
// If the session is found, but is expired, returns wrapped ErrSessionExpired
func (s *SingleKrItemStore) Get(k Key) (*Session, error) {
	keyStr := k.Key()

	currentDb, err := s.getDb()
	if err != nil {
		log.Debugf("cache get `%s`: miss (read error): %s", keyStr, err)
		return nil, xerrors.Errorf("failed loading db for %q: %w", keyStr, err)
	}

	session, ok := currentDb.Sessions[keyStr]
	if !ok {
		log.Debugf("cache get `%s`: miss", keyStr)
		return nil, xerrors.Errorf("failed finding session for %q: %w", keyStr, keyring.ErrKeyNotFound)
	}

	if session.Expired(s.now()) {
		log.Debugf("cache get `%s`: expired", keyStr)
		return nil, xerrors.Errorf("session expired for %q: %w", keyStr, ErrSessionExpired)
	}

	log.Debugf("cache get `%s`: hit", keyStr)
	return &session, nil
}

func (s *SingleKrItemStore) Put(k Key, session *Session) error {
	keyStr := k.Key()

	currentDb, err := s.loadOrCreateDb()
	if err != nil {
		log.Debugf("cache put `%s`: error (reading): %s", keyStr, err)
		return xerrors.Errorf("loading db for %q: %w", keyStr, err)
	}

	currentDb.Sessions[keyStr] = *session

	if err := s.writeDb(currentDb); err != nil {
		log.Debugf("cache put `%s`: error: %s", keyStr, err)
		return xerrors.Errorf("storing session for %q: %w", keyStr, err)
	}
	log.Debugf("cache put `%s`: success", keyStr)

	return nil
}

// Delete removes the session at k.Key(). Deleting a session that is not
// cached returns wrapped keyring.ErrKeyNotFound
func (s *SingleKrItemStore) Delete(k Key) error {
	keyStr := k.Key()

	currentDb, err := s.getDb()
	if err != nil {
		return xerrors.Errorf("failed loading db for %q: %w", keyStr, err)
	}
	if _, ok := currentDb.Sessions[keyStr]; !ok {
		return xerrors.Errorf("failed finding session for %q: %w", keyStr, keyring.ErrKeyNotFound)
	}
	delete(currentDb.Sessions, keyStr)

	if err := s.writeDb(currentDb); err != nil {
		return xerrors.Errorf("deleting session for %q: %w", keyStr, err)
	}
	log.Debugf("cache delete `%s`: success", keyStr)
	return nil
}

// List returns every cached session that has not expired, ordered by name
func (s *SingleKrItemStore) List() ([]Session, error) {
	currentDb, err := s.loadOrCreateDb()
	if err != nil {
		return nil, xerrors.Errorf("failed loading db: %w", err)
	}
	now := s.now()
	var sessions []Session
	for _, session := range currentDb.Sessions {
		if session.Expired(now) {
			continue
		}
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Name < sessions[j].Name })
	return sessions, nil
}
