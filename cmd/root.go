package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/99designs/keyring"
	"github.com/segmentio/wplogin/cmd/internal/analytics"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const EnvKeyringBackend = "WPLOGIN_BACKEND"

var (
	FlagKeyringBackend string
	FlagDebug          bool
	FlagConfigFile     string
)

var (
	Analytics analytics.Client
	Version   string
)

var RootCmd = &cobra.Command{
	Use:               "wplogin",
	Short:             "wplogin signs you in to WordPress.com and self-hosted WordPress sites",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRun:  prerun,
	PersistentPostRun: postrun,
}

type ErrBadArgCount struct {
	Actual   int
	Expected int
}

func (e *ErrBadArgCount) Error() string {
	return fmt.Sprintf("wrong number of arguments; expected at most %d, got %d", e.Expected, e.Actual)
}

// Execute adds all child commands to the root command sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(version string, writeKey string) {
	Version = version
	if writeKey != "" {
		Analytics = analytics.New(writeKey)
		Analytics.UserId = os.Getenv("USER")
		Analytics.Version = Version
	}
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		var argErr *ErrBadArgCount
		if errors.As(err, &argErr) {
			RootCmd.Usage()
		}
		os.Exit(1)
	}
}

func prerun(cmd *cobra.Command, args []string) {
	// Load backend from env var if not set as a flag
	if !cmd.Flags().Lookup("backend").Changed {
		backendFromEnv, ok := os.LookupEnv(EnvKeyringBackend)
		if ok {
			FlagKeyringBackend = backendFromEnv
		}
	}

	Analytics.KeyringBackend = FlagKeyringBackend

	if FlagDebug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	Analytics.Identify()
}

func postrun(cmd *cobra.Command, args []string) {
	Analytics.Close()
}

// profileArg returns the optional profile argument, or the default profile.
func profileArg(args []string) (string, error) {
	if len(args) > 1 {
		return "", &ErrBadArgCount{Actual: len(args), Expected: 1}
	}
	if len(args) == 1 {
		return args[0], nil
	}
	return DefaultProfile, nil
}

func init() {
	backendsAvailable := []string{}
	for _, backendType := range keyring.AvailableBackends() {
		backendsAvailable = append(backendsAvailable, string(backendType))
	}

	RootCmd.PersistentFlags().StringVarP(&FlagKeyringBackend, "backend", "b", "", fmt.Sprintf("Secret backend to use %s", backendsAvailable))
	RootCmd.PersistentFlags().BoolVarP(&FlagDebug, "debug", "d", false, "Enable debug logging")
	RootCmd.PersistentFlags().StringVarP(&FlagConfigFile, "config", "c", "", "Config file (default $WPLOGIN_CONFIG_FILE or ~/.wplogin/config)")
}
