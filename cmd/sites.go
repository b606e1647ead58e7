package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/99designs/keyring"
	"github.com/segmentio/wplogin/cmd/internal/analytics"
	"github.com/segmentio/wplogin/internal/sessioncache"
	"github.com/segmentio/wplogin/lib/trust"
	"github.com/segmentio/wplogin/lib/types"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

var FlagSitesRefresh bool

var sitesCmd = &cobra.Command{
	Use:   "sites [profile]",
	Short: "sites lists the sites of the signed-in account",
	RunE:  sitesRun,
}

func init() {
	RootCmd.AddCommand(sitesCmd)
	sitesCmd.Flags().BoolVarP(&FlagSitesRefresh, "refresh", "r", false, "Fetch the site list again instead of using the cached one")
}

const AnalyticsCommandNameSites = "sites"

// cachedSession returns the session login stored for t
func cachedSession(kr keyring.Keyring, t target) (*sessioncache.Session, error) {
	session, err := sessionStore(kr, FlagKeyringBackend).Get(t.sessionKey())
	if xerrors.Is(err, keyring.ErrKeyNotFound) || xerrors.Is(err, sessioncache.ErrSessionExpired) {
		return nil, fmt.Errorf("Not signed in to %s; run `wplogin login %s` first", t.Profile, t.Profile)
	}
	return session, err
}

func refreshSites(ctx context.Context, kr keyring.Keyring, t target, session *sessioncache.Session) ([]types.Site, error) {
	store := trust.Default()
	if err := loadTrust(kr, store); err != nil {
		log.Warnf("ignoring saved trust store: %s", err)
	}
	deps, err := newLoginDeps(t, store)
	if err != nil {
		return nil, err
	}
	if session.Hosted() {
		return deps.wpcom.FetchSites(ctx, session.AccessToken)
	}

	creds := savedCredentials(kr, t.Profile)
	if creds.Username != session.Username || creds.Password == "" {
		return nil, fmt.Errorf("No saved password for %s; run `wplogin login %s` to refresh", session.Username, t.Profile)
	}
	req := types.LoginAttempt{Username: creds.Username, Password: creds.Password}
	if auth, ok := store.Credentials(trust.HostOf(session.Endpoint)); ok {
		req.HTTPAuth = &auth
	}
	ch := deps.fetcher.FetchSites(ctx, session.Endpoint, req)
	if ch.Kind != types.ChallengeSuccess {
		if ch.Err != nil {
			return nil, ch.Err
		}
		return nil, fmt.Errorf("%s needs you to sign in again (%s); run `wplogin login %s`", session.Endpoint, ch.Kind, t.Profile)
	}
	return ch.Sites, nil
}

func sitesRun(cmd *cobra.Command, args []string) error {
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

	if FlagSitesRefresh {
		sites, err := refreshSites(context.Background(), kr, t, session)
		if err != nil {
			return err
		}
		session.Sites = sites
		if err := sessionStore(kr, FlagKeyringBackend).Put(t.sessionKey(), session); err != nil {
			return fmt.Errorf("Failed to cache session: %w", err)
		}
	}

	printSites(os.Stdout, session.Sites)
	Analytics.TrackRanCommand(AnalyticsCommandNameSites,
		[2]string{analytics.PropertyProfileName, t.Profile},
		[2]string{analytics.PropertyCount, fmt.Sprintf("%d", len(session.Sites))},
	)
	return nil
}
