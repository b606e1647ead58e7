package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/segmentio/wplogin/cmd/internal/analytics"
	"github.com/segmentio/wplogin/internal/sessioncache"
	"github.com/spf13/cobra"
)

var envCmd = &cobra.Command{
	Use:     "env [profile]",
	Short:   "env prints out export commands for the signed-in session of a profile",
	RunE:    envRun,
	Example: "eval \"$(wplogin env blog)\"",
}

func init() {
	RootCmd.AddCommand(envCmd)
}

const AnalyticsCommandNameEnv = "env"

func printExport(w io.Writer, shell, varName, varValue string) {
	exportString := "export %s=%s\n"
	if strings.Contains(shell, "fish") {
		exportString = "set -x %s %s\n"
	}
	fmt.Fprintf(w, exportString, varName, shellescape.Quote(varValue))
}

func printSessionExports(w io.Writer, shell string, session *sessioncache.Session) {
	printExport(w, shell, "WPLOGIN_PROFILE", session.Name)
	printExport(w, shell, "WPLOGIN_USERNAME", session.Username)
	if session.Hosted() {
		printExport(w, shell, "WPCOM_ACCESS_TOKEN", session.AccessToken)
	} else {
		printExport(w, shell, "WPLOGIN_SERVER_URL", session.ServerURL)
		printExport(w, shell, "WPLOGIN_XMLRPC_URL", session.Endpoint)
	}
	if len(session.Sites) > 0 {
		printExport(w, shell, "WPLOGIN_SITE_ID", session.Sites[0].ID)
		printExport(w, shell, "WPLOGIN_SITE_URL", session.Sites[0].URL)
	}
	if !session.ExpiresAt.IsZero() {
		printExport(w, shell, "WPLOGIN_SESSION_EXPIRATION", fmt.Sprintf("%d", session.ExpiresAt.Unix()))
	}
}

func envRun(cmd *cobra.Command, args []string) error {
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

	Analytics.TrackRanCommand(AnalyticsCommandNameEnv, [2]string{analytics.PropertyProfileName, t.Profile})

	printSessionExports(os.Stdout, os.Getenv("SHELL"), session)
	return nil
}
