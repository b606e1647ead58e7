// sessioncache caches signed-in sessions (an access token or a self-hosted
// site list) in the keyring, so that `wplogin sites` and `wplogin env` work
// without signing in again.
//
// sessioncache splits Stores (the way cache items are stored) from Keys
// (the way cache items are looked up/replaced)
package sessioncache

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/wplogin/lib/types"
)

// Session is the result of a successful login for one profile
type Session struct {
	Name      string
	Username  string
	ServerURL string `json:",omitempty"`
	// Endpoint is the self-hosted XML-RPC endpoint; empty for hosted accounts
	Endpoint    string `json:",omitempty"`
	AccessToken string `json:",omitempty"`
	Sites       []types.Site
	CreatedAt   time.Time
	// ExpiresAt is zero for sessions that never expire
	ExpiresAt time.Time `json:",omitempty"`
}

// Hosted reports whether the session belongs to a WordPress.com account.
func (s *Session) Hosted() bool {
	return s.Endpoint == ""
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(now)
}

func (s *Session) Bytes() ([]byte, error) {
	return json.Marshal(s)
}

// Key is used to compute the cache key for a session
type Key interface {
	Key() string
}

var ErrSessionExpired = errors.New("session expired")

// Store is implemented by SingleKrItemStore and KrItemPerSessionStore.
type Store interface {
	Get(Key) (*Session, error)
	Put(Key, *Session) error
	Delete(Key) error
}
