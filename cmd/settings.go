package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/segmentio/wplogin/cmd/internal/analytics"
	"github.com/segmentio/wplogin/lib/trust"
	"github.com/segmentio/wplogin/lib/wpcom"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var FlagSettingsDisplayName string

var settingsCmd = &cobra.Command{
	Use:   "settings [profile]",
	Short: "settings shows or updates the settings of a WordPress.com account",
	RunE:  settingsRun,
}

func init() {
	RootCmd.AddCommand(settingsCmd)
	settingsCmd.Flags().StringVarP(&FlagSettingsDisplayName, "display-name", "", "", "Change the account's display name")
}

const AnalyticsCommandNameSettings = "settings"

// settingsUpdate returns the settings to post, or nil when only showing.
func settingsUpdate(cmd *cobra.Command) map[string]string {
	if !cmd.Flags().Changed("display-name") {
		return nil
	}
	name, _ := cmd.Flags().GetString("display-name")
	return map[string]string{wpcom.SettingDisplayName: name}
}

func printSettings(w io.Writer, s *wpcom.AccountSettings) {
	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', 0)
	fmt.Fprintf(tw, "Display name\t%s\n", s.DisplayName)
	if s.FirstName != "" || s.LastName != "" {
		fmt.Fprintf(tw, "Name\t%s %s\n", s.FirstName, s.LastName)
	}
	if s.UserEmail != "" {
		fmt.Fprintf(tw, "Email\t%s\n", s.UserEmail)
	}
	if s.UserURL != "" {
		fmt.Fprintf(tw, "Web address\t%s\n", s.UserURL)
	}
	if s.Language != "" {
		fmt.Fprintf(tw, "Language\t%s\n", s.Language)
	}
	tw.Flush()
}

func settingsRun(cmd *cobra.Command, args []string) error {
	t, err := loadTarget(args)
	if err != nil {
		return err
	}
	kr, err := openKeyring(FlagKeyringBackend)
	if err != nil {
		return err
	}
	session, err := cachedSession(kr, t)
	if err != nil {
		return err
	}
	if !session.Hosted() {
		return fmt.Errorf("%s is a self-hosted site; account settings are only available for WordPress.com accounts", t.Profile)
	}

	store := trust.Default()
	if err := loadTrust(kr, store); err != nil {
		log.Warnf("ignoring saved trust store: %s", err)
	}
	deps, err := newLoginDeps(t, store)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var settings *wpcom.AccountSettings
	if update := settingsUpdate(cmd); update != nil {
		if _, err := deps.wpcom.UpdateSettings(ctx, session.AccessToken, update); err != nil {
			return fmt.Errorf("Failed to update settings: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Updated settings for %s\n", session.Username)
	}
	settings, err = deps.wpcom.Settings(ctx, session.AccessToken)
	if err != nil {
		return fmt.Errorf("Failed to fetch settings: %w", err)
	}
	printSettings(os.Stdout, settings)

	Analytics.TrackRanCommand(AnalyticsCommandNameSettings, [2]string{analytics.PropertyProfileName, t.Profile})
	return nil
}
