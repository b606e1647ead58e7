// Package accountcredskeyring keeps the credentials saved by `wplogin add`.
package accountcredskeyring

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/99designs/keyring"
	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// changing any of these will break keyring compatibility
const (
	KeyringServiceName             = "wplogin"
	KeyringLibSecretCollectionName = "wplogin"

	KeyringFileDir = "~/.wplogin/keyring/"
)

// Creds are what a login needs besides a two-step code. An empty ServerURL
// means a WordPress.com account.
type Creds struct {
	Username  string
	Password  string
	ServerURL string `json:",omitempty"`
}

func (c Creds) Validate() error {
	if strings.TrimSpace(c.Username) == "" {
		return xerrors.New("username is required")
	}
	if c.Password == "" {
		return xerrors.New("password is required")
	}
	return nil
}

type Keyring struct {
	BackendType      string
	FilePasswordFunc func(prompt string) (string, error)

	keyring keyring.Keyring
}

// New wraps an already open keyring.
func New(kr keyring.Keyring) *Keyring {
	return &Keyring{keyring: kr}
}

// Config is the keyring configuration shared by every wplogin keyring user.
func Config(backendType string, filePasswordFunc func(prompt string) (string, error)) keyring.Config {
	var allowedBackends []keyring.BackendType
	if backendType != "" {
		allowedBackends = append(allowedBackends, keyring.BackendType(backendType))
	}
	return keyring.Config{
		AllowedBackends:          allowedBackends,
		KeychainTrustApplication: true,
		ServiceName:              KeyringServiceName,
		LibSecretCollectionName:  KeyringLibSecretCollectionName,
		FileDir:                  KeyringFileDir,
		FilePasswordFunc:         filePasswordFunc,
	}
}

// After Open, BackendType, FilePasswordFunc must not be changed.
func (k *Keyring) Open() error {
	kr, err := keyring.Open(Config(k.BackendType, k.FilePasswordFunc))
	if err != nil {
		return err
	}
	k.keyring = kr
	return nil
}

func (k *Keyring) open() error {
	if k.keyring != nil {
		return nil
	}
	if err := k.Open(); err != nil {
		return fmt.Errorf("opening keyring: %w", err)
	}
	return nil
}

func itemKey(accountAlias string) string {
	return "account " + accountAlias
}

// Put will Open if not open already
func (k *Keyring) Put(accountAlias string, creds Creds) error {
	log.Tracef("keyring %s putting creds for %s", accountAlias, creds.Username)
	if err := creds.Validate(); err != nil {
		return fmt.Errorf("invalid creds for %s: %w", accountAlias, err)
	}
	if err := k.open(); err != nil {
		return err
	}
	encoded, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshalling creds: %w", err)
	}

	item := keyring.Item{
		Key:                         itemKey(accountAlias),
		Data:                        encoded,
		Label:                       fmt.Sprintf("WordPress credentials (%s)", accountAlias),
		KeychainNotTrustApplication: false,
	}
	return k.keyring.Set(item)
}

// Get returns wrapped keyring.ErrKeyNotFound when nothing was saved for
// accountAlias.
func (k *Keyring) Get(accountAlias string) (Creds, error) {
	log.Tracef("keyring %s getting creds", accountAlias)
	if err := k.open(); err != nil {
		return Creds{}, err
	}

	item, err := k.keyring.Get(itemKey(accountAlias))
	if err != nil {
		return Creds{}, fmt.Errorf("getting %s from keyring: %w", accountAlias, err)
	}

	var creds Creds
	if err = json.Unmarshal(item.Data, &creds); err != nil {
		return creds, fmt.Errorf("unmarshalling creds: %w", err)
	}

	log.Tracef("keyring %s got creds for %s", accountAlias, creds.Username)
	return creds, nil
}

func (k *Keyring) Remove(accountAlias string) error {
	if err := k.open(); err != nil {
		return err
	}
	if err := k.keyring.Remove(itemKey(accountAlias)); err != nil {
		return fmt.Errorf("removing %s from keyring: %w", accountAlias, err)
	}
	return nil
}
