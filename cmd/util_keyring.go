package cmd

import (
	"encoding/json"
	"os"

	"github.com/99designs/keyring"
	"github.com/segmentio/wplogin/internal/sessioncache"
	accountcredskeyring "github.com/segmentio/wplogin/lib/keyrings/accountcreds"
	"github.com/segmentio/wplogin/lib/trust"
	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// changing this will break keyring compatibility
const trustKeyringItemKey = "trust-store"

func keyringPrompt(prompt string) (string, error) {
	return promptWithOutput(prompt, true, os.Stderr)
}

func openKeyring(b string) (keyring.Keyring, error) {
	return keyring.Open(accountcredskeyring.Config(b, keyringPrompt))
}

// sessionStore keeps one item per session on backends that do not prompt
// for each item, and a single item everywhere else.
func sessionStore(kr keyring.Keyring, backend string) sessioncache.Store {
	switch keyring.BackendType(backend) {
	case keyring.FileBackend, keyring.PassBackend, keyring.SecretServiceBackend:
		return &sessioncache.KrItemPerSessionStore{Keyring: kr}
	}
	return &sessioncache.SingleKrItemStore{Keyring: kr}
}

// loadTrust restores the certificate exceptions and HTTP credentials saved
// by earlier runs into store.
func loadTrust(kr keyring.Keyring, store *trust.Store) error {
	item, err := kr.Get(trustKeyringItemKey)
	if xerrors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	} else if err != nil {
		return xerrors.Errorf("reading trust store: %w", err)
	}
	var snap trust.Snapshot
	if err := json.Unmarshal(item.Data, &snap); err != nil {
		return xerrors.Errorf("decoding trust store: %w", err)
	}
	store.Restore(snap)
	log.Debugf("restored %d trusted certificates", len(snap.Fingerprints))
	return nil
}

func saveTrust(kr keyring.Keyring, store *trust.Store) error {
	data, err := json.Marshal(store.Snapshot())
	if err != nil {
		return xerrors.Errorf("encoding trust store: %w", err)
	}
	err = kr.Set(keyring.Item{
		Key:                         trustKeyringItemKey,
		Label:                       "wplogin trusted certificates",
		Data:                        data,
		KeychainNotTrustApplication: false,
	})
	if err != nil {
		return xerrors.Errorf("writing trust store: %w", err)
	}
	return nil
}
