package configload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/segmentio/wplogin/profiles"
	log "github.com/sirupsen/logrus"

	"github.com/mitchellh/go-homedir"
	"github.com/vaughan0/go-ini"
)

// EnvConfigFile overrides the default config path
const EnvConfigFile = "WPLOGIN_CONFIG_FILE"

type config interface {
	Parse() (profiles.Profiles, error)
	Path() string
}

type fileConfig struct {
	file string
}

// DefaultPath is ~/.wplogin/config
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".wplogin", "config"), nil
}

func NewConfigFromEnv() (config, error) {
	file := os.Getenv(EnvConfigFile)
	if file == "" {
		var err error
		if file, err = DefaultPath(); err != nil {
			return nil, err
		}
		if _, err := os.Stat(file); os.IsNotExist(err) {
			file = ""
		}
	}
	return NewConfigFromFile(file)
}

// NewConfigFromFile reads file, which may start with ~. An empty file name
// parses to an empty profile set.
func NewConfigFromFile(file string) (config, error) {
	if file != "" {
		expanded, err := homedir.Expand(file)
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", file, err)
		}
		file = expanded
	}
	return &fileConfig{file: file}, nil
}

func (c *fileConfig) Path() string {
	return c.file
}

func (c *fileConfig) Parse() (profiles.Profiles, error) {
	ps := profiles.Profiles{profiles.DefaultSection: map[string]string{}}
	if c.file == "" {
		return ps, nil
	}

	log.Debugf("Parsing config file %s", c.file)
	f, err := ini.LoadFile(c.file)
	if err != nil {
		return nil, fmt.Errorf("Error parsing config file %q: %v", c.file, err)
	}

	for sectionName, section := range f {
		if sectionName == "" && len(section) == 0 {
			continue
		}
		ps[strings.TrimSpace(strings.TrimPrefix(sectionName, "profile "))] = section
	}

	return ps, nil
}
