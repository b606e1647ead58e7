package sessioncache

import (
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/segmentio/wplogin/lib/types"
	"github.com/stretchr/testify/assert"
	"golang.org/x/xerrors"
)

type store interface {
	Get(Key) (*Session, error)
	Put(Key, *Session) error
	Delete(Key) error
}

var theDistantFuture = time.Date(3000, 0, 0, 0, 0, 0, 0, time.UTC)
var theDistantPast = time.Date(1000, 0, 0, 0, 0, 0, 0, time.UTC)

type fixedKey struct {
	v string
}

func (k *fixedKey) Key() string {
	return k.v
}

func testStore(t *testing.T, storeFactory func() store) {
	tName := "put-get"
	t.Run(tName, func(t *testing.T) {
		st := storeFactory()
		sess := Session{
			Name:        tName,
			Username:    "bob",
			AccessToken: "tok",
			Sites:       []types.Site{{ID: "1", Name: "blog", IsHosted: true}},
			CreatedAt:   time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			ExpiresAt:   theDistantFuture,
		}
		key := fixedKey{tName}

		err := st.Put(&key, &sess)
		if err != nil {
			t.Fatalf("error on put: %s", err)
		}

		got, err := st.Get(&key)
		if err != nil {
			t.Fatalf("error on get: %s", err)
		}
		assert.Equal(t, sess, *got)
	})

	tName = "sessions without expiry never expire"
	t.Run(tName, func(t *testing.T) {
		st := storeFactory()
		sess := Session{
			Name:      tName,
			Endpoint:  "https://self.example/xmlrpc.php",
			CreatedAt: theDistantPast,
		}
		key := fixedKey{tName}

		if err := st.Put(&key, &sess); err != nil {
			t.Fatalf("error on put: %s", err)
		}
		got, err := st.Get(&key)
		if err != nil {
			t.Fatalf("error on get: %s", err)
		}
		assert.False(t, got.Hosted())
	})

	tName = "get expired should return ErrSessionExpired"
	t.Run(tName, func(t *testing.T) {
		st := storeFactory()
		sess := Session{
			Name:      tName,
			ExpiresAt: theDistantPast,
		}
		key := fixedKey{tName}

		err := st.Put(&key, &sess)
		if err != nil {
			t.Fatalf("error on put: %s", err)
		}

		_, err = st.Get(&key)
		if !xerrors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected get err to be ErrSessionExpired; is %s", err)
		}
	})

	tName = "get missing should return ErrKeyNotFound"
	t.Run(tName, func(t *testing.T) {
		st := storeFactory()
		_, err := st.Get(&fixedKey{tName})
		if !xerrors.Is(err, keyring.ErrKeyNotFound) {
			t.Fatalf("expected get err to be ErrKeyNotFound; is %s", err)
		}
	})

	tName = "delete"
	t.Run(tName, func(t *testing.T) {
		st := storeFactory()
		keep := fixedKey{"keep"}
		drop := fixedKey{tName}
		assert.NoError(t, st.Put(&keep, &Session{Name: "keep"}))
		assert.NoError(t, st.Put(&drop, &Session{Name: tName}))

		assert.NoError(t, st.Delete(&drop))

		_, err := st.Get(&drop)
		assert.True(t, xerrors.Is(err, keyring.ErrKeyNotFound), "got %v", err)
		_, err = st.Get(&keep)
		assert.NoError(t, err)
	})
}
