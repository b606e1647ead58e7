package sessioncache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ProfileKey keys a session by the profile it was created for. Changing the
// profile's server or username yields a different key, so a stale session is
// never returned for a reconfigured profile.
type ProfileKey struct {
	ProfileName string
	ProfileConf map[string]string
}

func (k ProfileKey) Key() string {
	source := k.ProfileConf["source_profile"]
	if source == "" {
		source = k.ProfileName
	}
	hasher := sha256.New()
	for _, field := range []string{"server_url", "username", "api_base"} {
		fmt.Fprintf(hasher, "%s=%s\n", field, strings.ToLower(strings.TrimSpace(k.ProfileConf[field])))
	}
	return fmt.Sprintf("%s session (%s)", source, hex.EncodeToString(hasher.Sum(nil))[0:10])
}
