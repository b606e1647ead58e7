package analytics

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	analytics "github.com/segmentio/analytics-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroClientIsNoop(t *testing.T) {
	var c Client
	assert.False(t, c.Enabled())
	c.Identify()
	c.TrackRanCommand("login", [2]string{PropertyProfileName, "blog"})
	c.Close()
}

func TestTrackRanCommand(t *testing.T) {
	batches := make(chan map[string]interface{}, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := ioutil.ReadAll(r.Body)
		var batch map[string]interface{}
		if json.Unmarshal(body, &batch) == nil {
			batches <- batch
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewWithConfig("key", analytics.Config{Endpoint: srv.URL, BatchSize: 1})
	require.True(t, c.Enabled())
	c.UserId = "bob"
	c.Version = "v1.2.3"
	c.KeyringBackend = "file"

	c.TrackRanCommand("login",
		[2]string{PropertyLoginKind, "hosted"},
		[2]string{"not-a-property", "x"},
	)
	defer c.Close()

	var batch map[string]interface{}
	select {
	case batch = <-batches:
	case <-time.After(5 * time.Second):
		t.Fatal("no batch delivered")
	}
	msgs, ok := batch["batch"].([]interface{})
	require.True(t, ok)
	require.Len(t, msgs, 1)
	msg := msgs[0].(map[string]interface{})
	assert.Equal(t, EventRanCommand, msg["event"])
	assert.Equal(t, "bob", msg["userId"])
	props := msg["properties"].(map[string]interface{})
	assert.Equal(t, "login", props[PropertyCommandName])
	assert.Equal(t, "hosted", props[PropertyLoginKind])
	assert.Equal(t, "file", props[PropertyKeyringBackend])
	assert.NotContains(t, props, "not-a-property")
}
