package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/segmentio/wplogin/cmd/internal/analytics"
	accountcredskeyring "github.com/segmentio/wplogin/lib/keyrings/accountcreds"
	"github.com/segmentio/wplogin/lib/login"
	"github.com/segmentio/wplogin/lib/trust"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	FlagAddUsername     string
	FlagAddServerURL    string
	FlagCredsNoValidate bool
)

func init() {
	var addCmd = &cobra.Command{
		Use:   "add [profile]",
		Short: "add saves your WordPress credentials to the keyring",
		RunE:  add,
	}
	RootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&FlagAddUsername, "username", "u", "", "Username (prompted when empty)")
	addCmd.Flags().StringVarP(&FlagAddServerURL, "server-url", "s", "", "Self-hosted site address; empty means WordPress.com")
	addCmd.Flags().BoolVarP(&FlagCredsNoValidate, "no-validate", "", false, "Save without signing in first")
}

const AnalyticsCommandNameAdd = "add"

func add(cmd *cobra.Command, args []string) error {
	t, err := loadTarget(args)
	if err != nil {
		return err
	}
	Analytics.TrackRanCommand(AnalyticsCommandNameAdd, [2]string{analytics.PropertyProfileName, t.Profile})

	creds := accountcredskeyring.Creds{
		Username:  firstNonEmpty(FlagAddUsername, t.Username),
		ServerURL: firstNonEmpty(FlagAddServerURL, t.ServerURL),
	}
	if creds.Username == "" {
		if creds.Username, err = prompt("Username", false); err != nil {
			return fmt.Errorf("Failed to prompt for username: %w", err)
		}
	}
	if creds.Password, err = prompt("Password", true); err != nil {
		return fmt.Errorf("Failed to prompt for password: %w", err)
	}
	if err := creds.Validate(); err != nil {
		return err
	}

	kr, err := openKeyring(FlagKeyringBackend)
	if err != nil {
		return err
	}

	if !FlagCredsNoValidate {
		fmt.Fprintf(os.Stderr, "Validating credentials...\n")
		store := trust.Default()
		if err := loadTrust(kr, store); err != nil {
			log.Warnf("ignoring saved trust store: %s", err)
		}
		deps, err := newLoginDeps(t, store)
		if err != nil {
			return err
		}
		o, err := login.New(deps.config())
		if err != nil {
			return err
		}
		defer o.Close()
		if _, err := runLogin(context.Background(), o, terminalPrompter{}, os.Stderr, creds.Username, creds.Password, creds.ServerURL); err != nil {
			return fmt.Errorf("Failed to validate credentials: %w", err)
		}
		if err := saveTrust(kr, store); err != nil {
			log.Warnf("could not save trust store: %s", err)
		}
		fmt.Fprintf(os.Stderr, "Credentials validated!\n")
	}

	if err := accountcredskeyring.New(kr).Put(t.Profile, creds); err != nil {
		return fmt.Errorf("Failed to save credentials: %w", err)
	}
	where := "WordPress.com"
	if creds.ServerURL != "" {
		where = creds.ServerURL
	}
	fmt.Fprintf(os.Stderr, "Saved credentials to keyring for %s on %s (%s)\n", creds.Username, where, t.Profile)
	return nil
}
