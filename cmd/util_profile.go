package cmd

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/segmentio/wplogin/cmd/configload"
	"github.com/segmentio/wplogin/internal/sessioncache"
	"github.com/segmentio/wplogin/profiles"
)

const (
	// DefaultProfile needs no config section
	DefaultProfile = "default"

	EnvClientID     = "WPCOM_CLIENT_ID"
	EnvClientSecret = "WPCOM_CLIENT_SECRET"
)

func listProfiles() (profiles.Profiles, error) {
	var (
		config interface {
			Parse() (profiles.Profiles, error)
		}
		err error
	)
	if FlagConfigFile != "" {
		config, err = configload.NewConfigFromFile(FlagConfigFile)
	} else {
		config, err = configload.NewConfigFromEnv()
	}
	if err != nil {
		return nil, err
	}
	return config.Parse()
}

func listProfileNames(ps profiles.Profiles) []string {
	var profileNames []string
	for profile := range ps {
		if profile == profiles.DefaultSection {
			continue
		}
		profileNames = append(profileNames, profile)
	}
	sort.Strings(profileNames)
	return profileNames
}

// target is everything a command needs to know about one profile
type target struct {
	Profile      string
	Settings     map[string]string
	Username     string
	ServerURL    string
	ClientID     string
	ClientSecret string
	APIBase      string
}

func resolveTarget(ps profiles.Profiles, name string) (target, error) {
	if _, ok := ps[name]; !ok && name != DefaultProfile {
		return target{}, fmt.Errorf("Profile '%s' not found in your config. Use list command to see configured profiles", name)
	}
	t := target{
		Profile:      name,
		Settings:     ps.Settings(name),
		Username:     ps.Lookup(name, "username"),
		ServerURL:    ps.Lookup(name, "server_url"),
		ClientID:     ps.Lookup(name, "client_id"),
		ClientSecret: ps.Lookup(name, "client_secret"),
		APIBase:      ps.Lookup(name, "api_base"),
	}
	if t.ClientID == "" {
		t.ClientID = os.Getenv(EnvClientID)
	}
	if t.ClientSecret == "" {
		t.ClientSecret = os.Getenv(EnvClientSecret)
	}
	return t, nil
}

func (t target) sessionKey() sessioncache.ProfileKey {
	return sessioncache.ProfileKey{ProfileName: t.Profile, ProfileConf: t.Settings}
}

func loadTarget(args []string) (target, error) {
	name, err := profileArg(args)
	if err != nil {
		return target{}, err
	}
	ps, err := listProfiles()
	if err != nil {
		return target{}, err
	}
	return resolveTarget(ps, name)
}

func formatExpiry(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.RFC1123)
}
