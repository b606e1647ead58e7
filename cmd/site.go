package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/99designs/keyring"
	"github.com/segmentio/wplogin/cmd/internal/analytics"
	"github.com/segmentio/wplogin/internal/sessioncache"
	"github.com/segmentio/wplogin/lib/trust"
	"github.com/segmentio/wplogin/lib/types"
	"github.com/segmentio/wplogin/lib/wpcom"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var FlagSiteSite string

var siteCmd = &cobra.Command{
	Use:   "site [profile]",
	Short: "site fetches one site again and lists its post formats",
	RunE:  siteRun,
}

func init() {
	RootCmd.AddCommand(siteCmd)
	siteCmd.Flags().StringVarP(&FlagSiteSite, "site", "", "", "Site ID, name or URL (default the first site)")
}

const AnalyticsCommandNameSite = "site"

// replaceSite swaps the cached copy of site, matched by ID, for the fresh one.
func replaceSite(sites []types.Site, site types.Site) []types.Site {
	for i := range sites {
		if sites[i].ID == site.ID {
			sites[i] = site
			return sites
		}
	}
	return append(sites, site)
}

func printPostFormats(w io.Writer, site types.Site, formats []wpcom.PostFormat) {
	fmt.Fprintf(w, "%s (%s)\n", site.Name, site.URL)
	tw := new(tabwriter.Writer)
	tw.Init(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "FORMAT\tNAME\t")
	for _, f := range formats {
		fmt.Fprintf(tw, "%s\t%s\t\n", f.Slug, f.Name)
	}
	tw.Flush()
}

func fetchSite(ctx context.Context, kr keyring.Keyring, t target, session *sessioncache.Session, site types.Site) (types.Site, []wpcom.PostFormat, error) {
	store := trust.Default()
	if err := loadTrust(kr, store); err != nil {
		log.Warnf("ignoring saved trust store: %s", err)
	}
	deps, err := newLoginDeps(t, store)
	if err != nil {
		return site, nil, err
	}

	if session.Hosted() {
		fresh, err := deps.wpcom.FetchSite(ctx, session.AccessToken, site.ID)
		if err != nil {
			return site, nil, err
		}
		formats, err := deps.wpcom.PostFormats(ctx, session.AccessToken, site.ID)
		return fresh, formats, err
	}

	// self-hosted sites come back from the same call that signs in
	sites, err := refreshSites(ctx, kr, t, session)
	if err != nil {
		return site, nil, err
	}
	fresh, err := pickSite(sites, site.ID)
	if err != nil {
		return site, nil, err
	}
	creds := savedCredentials(kr, t.Profile)
	req := types.LoginAttempt{Username: creds.Username, Password: creds.Password}
	if auth, ok := store.Credentials(trust.HostOf(session.Endpoint)); ok {
		req.HTTPAuth = &auth
	}
	m, err := deps.fetcher.Client.PostFormats(ctx, session.Endpoint, fresh.ID, req)
	if err != nil {
		return fresh, nil, err
	}
	return fresh, wpcom.SortedPostFormats(m), nil
}

func siteRun(cmd *cobra.Command, args []string) error {
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
	site, err := pickSite(session.Sites, FlagSiteSite)
	if err != nil {
		return err
	}

	fresh, formats, err := fetchSite(context.Background(), kr, t, session, site)
	if err != nil {
		return fmt.Errorf("Failed to fetch %s: %w", site.URL, err)
	}
	session.Sites = replaceSite(session.Sites, fresh)
	if err := sessionStore(kr, FlagKeyringBackend).Put(t.sessionKey(), session); err != nil {
		return fmt.Errorf("Failed to cache session: %w", err)
	}

	printPostFormats(os.Stdout, fresh, formats)
	Analytics.TrackRanCommand(AnalyticsCommandNameSite,
		[2]string{analytics.PropertyProfileName, t.Profile},
		[2]string{analytics.PropertyCount, fmt.Sprintf("%d", len(formats))},
	)
	return nil
}
