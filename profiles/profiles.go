// Package profiles resolves settings for a named login profile.
package profiles

import "fmt"

// DefaultSection supplies values that no profile sets itself.
const DefaultSection = "wplogin"

func SourceProfile(p string, from Profiles) string {
	return sourceProfile(p, from)
}

// sourceProfile returns either the defined source_profile or p if none exists
func sourceProfile(p string, from Profiles) string {
	if conf, ok := from[p]; ok {
		if source := conf["source_profile"]; source != "" {
			return source
		}
	}
	return p
}

type Profiles map[string]map[string]string

// GetValue looks config_key up in profile, then in its source_profile (one
// level only), then in the default section. It returns the value and the
// profile that supplied it.
func (p Profiles) GetValue(profile string, config_key string) (string, string, error) {
	config_value, ok := p[profile][config_key]
	if ok {
		return config_value, profile, nil
	}

	// Lookup from the `source_profile`, if it exists
	profile, ok = p[profile]["source_profile"]
	if ok {
		config_value, ok := p[profile][config_key]
		if ok {
			return config_value, profile, nil
		}

	}

	// Fallback to the default section if no profile supplies the value
	profile = DefaultSection
	config_value, ok = p[profile][config_key]
	if ok {
		return config_value, profile, nil
	}

	return "", "", fmt.Errorf("Could not find %s in %s, source profile, or %s", config_key, profile, DefaultSection)
}

// Lookup is GetValue for optional keys: a missing key yields "".
func (p Profiles) Lookup(profile string, config_key string) string {
	v, _, err := p.GetValue(profile, config_key)
	if err != nil {
		return ""
	}
	return v
}

// Settings flattens everything that applies to profile, with the profile's
// own keys winning over its source profile and the default section.
func (p Profiles) Settings(profile string) map[string]string {
	out := map[string]string{}
	for k, v := range p[DefaultSection] {
		out[k] = v
	}
	if source := p[profile]["source_profile"]; source != "" {
		for k, v := range p[source] {
			out[k] = v
		}
	}
	for k, v := range p[profile] {
		out[k] = v
	}
	return out
}
