package cmd

import (
	"fmt"
	"os"

	"github.com/99designs/keyring"
	"github.com/segmentio/wplogin/cmd/internal/analytics"
	accountcredskeyring "github.com/segmentio/wplogin/lib/keyrings/accountcreds"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

var FlagSignoutForget bool

var signoutCmd = &cobra.Command{
	Use:   "signout [profile]",
	Short: "signout removes the cached session for a profile",
	RunE:  signoutRun,
}

func init() {
	RootCmd.AddCommand(signoutCmd)
	signoutCmd.Flags().BoolVarP(&FlagSignoutForget, "forget", "", false, "Also remove credentials saved with add")
}

const AnalyticsCommandNameSignout = "signout"

func signoutRun(cmd *cobra.Command, args []string) error {
	t, err := loadTarget(args)
	if err != nil {
		return err
	}
	Analytics.TrackRanCommand(AnalyticsCommandNameSignout, [2]string{analytics.PropertyProfileName, t.Profile})

	kr, err := openKeyring(FlagKeyringBackend)
	if err != nil {
		return err
	}

	err = sessionStore(kr, FlagKeyringBackend).Delete(t.sessionKey())
	switch {
	case xerrors.Is(err, keyring.ErrKeyNotFound):
		fmt.Fprintf(os.Stderr, "Not signed in to %s\n", t.Profile)
	case err != nil:
		return fmt.Errorf("Failed to remove session: %w", err)
	default:
		fmt.Fprintf(os.Stderr, "Signed out of %s\n", t.Profile)
	}

	if FlagSignoutForget {
		if err := accountcredskeyring.New(kr).Remove(t.Profile); err != nil && !xerrors.Is(err, keyring.ErrKeyNotFound) {
			return fmt.Errorf("Failed to remove saved credentials: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Removed saved credentials for %s\n", t.Profile)
	}
	return nil
}
