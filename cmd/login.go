package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/99designs/keyring"
	"github.com/segmentio/wplogin/cmd/internal/analytics"
	"github.com/segmentio/wplogin/internal/sessioncache"
	"github.com/segmentio/wplogin/lib/discovery"
	accountcredskeyring "github.com/segmentio/wplogin/lib/keyrings/accountcreds"
	"github.com/segmentio/wplogin/lib/login"
	"github.com/segmentio/wplogin/lib/trust"
	"github.com/segmentio/wplogin/lib/types"
	"github.com/segmentio/wplogin/lib/wpcom"
	"github.com/segmentio/wplogin/lib/xmlrpc"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

var (
	FlagLoginUsername  string
	FlagLoginServerURL string
	FlagSessionTTL     time.Duration
)

var loginCmd = &cobra.Command{
	Use:   "login [profile]",
	Short: "login signs you in and caches the session in your keyring",
	Example: "  wplogin login\n" +
		"  wplogin login blog --server-url https://blog.example.com",
	RunE: loginRun,
}

func init() {
	RootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVarP(&FlagLoginUsername, "username", "u", "", "Username (default from profile or saved credentials)")
	loginCmd.Flags().StringVarP(&FlagLoginServerURL, "server-url", "s", "", "Self-hosted site address; empty signs in to WordPress.com")
	loginCmd.Flags().DurationVarP(&FlagSessionTTL, "session-ttl", "t", 0, "Expire the cached session after this long (0 keeps it until signout)")
}

const AnalyticsCommandNameLogin = "login"

// loginDeps are the production collaborators of the orchestrator
type loginDeps struct {
	wpcom   *wpcom.Client
	finder  *discovery.Finder
	fetcher *xmlrpc.SiteFetcher
	store   *trust.Store
}

func newLoginDeps(t target, store *trust.Store) (*loginDeps, error) {
	httpClient, err := trust.NewHTTPClient(store, nil)
	if err != nil {
		return nil, err
	}
	xc := &xmlrpc.Client{
		HTTPClient: httpClient,
		UserAgent:  "wplogin/" + Version,
	}
	return &loginDeps{
		wpcom: &wpcom.Client{
			BaseURL:      t.APIBase,
			ClientID:     t.ClientID,
			ClientSecret: t.ClientSecret,
			HTTPClient:   httpClient,
		},
		finder: &discovery.Finder{
			XMLRPC:     xc,
			HTTPClient: httpClient,
		},
		fetcher: &xmlrpc.SiteFetcher{Client: xc},
		store:   store,
	}, nil
}

func (d *loginDeps) config() login.Config {
	return login.Config{
		Authenticator: d.wpcom,
		Discoverer:    d.finder,
		SiteFetcher:   d.fetcher,
		TrustStore:    d.store,
	}
}

// runLogin submits one attempt and answers its challenges through p until it
// succeeds or fails. A failed attempt is returned as an error.
func runLogin(ctx context.Context, o *login.Orchestrator, p prompter, stderr io.Writer, username, password, serverURL string) (login.Outcome, error) {
	id, err := o.Submit(username, password, serverURL)
	if err != nil {
		return login.Outcome{}, err
	}

	for {
		var out login.Outcome
		select {
		case <-ctx.Done():
			return login.Outcome{}, ctx.Err()
		case next, ok := <-o.Outcomes():
			if !ok {
				return login.Outcome{}, xerrors.New("login aborted")
			}
			out = next
		}
		if out.AttemptID != id {
			continue
		}
		log.Debugf("login outcome: %s", out)

		switch out.Kind {
		case login.LoggedIn:
			return out, nil

		case login.LoginFailed:
			return out, xerrors.Errorf("login failed: %s: %w", out.Cause, out.Err)

		case login.AwaitingTwoFactorCode:
			var code string
			for code == "" {
				if code, err = p.Prompt("Two-step verification code", false); err != nil {
					return out, xerrors.Errorf("reading verification code: %w", err)
				}
			}
			err = o.SupplyTwoFactorCode(id, code)

		case login.AwaitingHTTPAuthCredentials:
			fmt.Fprintf(stderr, "%s requires HTTP authentication.\n", out.Host)
			var user, pass string
			if user, err = p.Prompt("HTTP username", false); err != nil {
				return out, xerrors.Errorf("reading http username: %w", err)
			}
			if pass, err = p.Prompt("HTTP password", true); err != nil {
				return out, xerrors.Errorf("reading http password: %w", err)
			}
			err = o.SupplyHTTPAuthCredentials(id, user, pass)

		case login.AwaitingCertificateTrust:
			fmt.Fprintf(stderr, "The site's certificate is not trusted.\nSHA-256 fingerprint: %s\n", out.Fingerprint)
			var ok bool
			if ok, err = confirm(p, "Trust this certificate"); err != nil {
				return out, xerrors.Errorf("reading answer: %w", err)
			}
			if !ok {
				return out, xerrors.Errorf("certificate %s: %w", out.Fingerprint, types.ErrCertificateRejected)
			}
			err = o.AcceptCertificate(id, out.Fingerprint)
		}
		if err != nil {
			return out, err
		}
	}
}

func newSession(t target, username, serverURL string, out login.Outcome, now time.Time, ttl time.Duration) *sessioncache.Session {
	s := &sessioncache.Session{
		Name:        t.Profile,
		Username:    username,
		ServerURL:   serverURL,
		Endpoint:    out.Endpoint,
		AccessToken: out.AccessToken,
		Sites:       out.Sites,
		CreatedAt:   now,
	}
	if s.Hosted() {
		// the orchestrator may have fallen back from a hosted site address
		s.ServerURL = ""
	}
	if ttl > 0 {
		s.ExpiresAt = now.Add(ttl)
	}
	return s
}

// credentialsFor merges flags, the profile and credentials saved with `add`.
// Flags win over the profile, which wins over saved credentials. A saved
// password is only used for the username it was saved with.
func credentialsFor(t target, saved accountcredskeyring.Creds, flagUsername, flagServerURL string) accountcredskeyring.Creds {
	creds := saved
	username := firstNonEmpty(flagUsername, t.Username, saved.Username)
	if username != saved.Username {
		creds.Password = ""
	}
	creds.Username = username
	creds.ServerURL = firstNonEmpty(flagServerURL, t.ServerURL, saved.ServerURL)
	return creds
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}

func savedCredentials(kr keyring.Keyring, profile string) accountcredskeyring.Creds {
	creds, err := accountcredskeyring.New(kr).Get(profile)
	if err != nil {
		log.Debugf("no saved credentials for %s: %s", profile, err)
		return accountcredskeyring.Creds{}
	}
	return creds
}

func loginRun(cmd *cobra.Command, args []string) error {
	t, err := loadTarget(args)
	if err != nil {
		return err
	}

	kr, err := openKeyring(FlagKeyringBackend)
	if err != nil {
		return err
	}

	creds := credentialsFor(t, savedCredentials(kr, t.Profile), FlagLoginUsername, FlagLoginServerURL)
	if creds.Username == "" {
		if creds.Username, err = prompt("Username", false); err != nil {
			return fmt.Errorf("Failed to prompt for username: %w", err)
		}
	}
	if creds.Password == "" {
		if creds.Password, err = prompt("Password", true); err != nil {
			return fmt.Errorf("Failed to prompt for password: %w", err)
		}
	}

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

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	out, err := runLogin(ctx, o, terminalPrompter{}, os.Stderr, creds.Username, creds.Password, creds.ServerURL)
	if saveErr := saveTrust(kr, store); saveErr != nil {
		log.Warnf("could not save trust store: %s", saveErr)
	}
	kind := "hosted"
	if creds.ServerURL != "" {
		kind = "self-hosted"
	}
	if err != nil {
		Analytics.TrackRanCommand(AnalyticsCommandNameLogin,
			[2]string{analytics.PropertyProfileName, t.Profile},
			[2]string{analytics.PropertyLoginKind, kind},
			[2]string{analytics.PropertyOutcome, "failed"},
		)
		return err
	}

	session := newSession(t, creds.Username, creds.ServerURL, out, time.Now(), FlagSessionTTL)
	if session.Hosted() {
		kind = "hosted"
		if acct, err := deps.wpcom.Me(ctx, session.AccessToken); err != nil {
			log.Warnf("could not load account: %s", err)
		} else {
			fmt.Fprintf(os.Stderr, "You're signed in as %s (%s).\n", acct.DisplayName, acct.Username)
		}
		if len(session.Sites) == 0 {
			if sites, err := deps.wpcom.FetchSites(ctx, session.AccessToken); err != nil {
				log.Warnf("could not load sites: %s", err)
			} else {
				session.Sites = sites
			}
		}
	} else {
		fmt.Fprintf(os.Stderr, "You're signed in to %s as %s.\n", session.Endpoint, session.Username)
	}

	if err := sessionStore(kr, FlagKeyringBackend).Put(t.sessionKey(), session); err != nil {
		return fmt.Errorf("Failed to cache session: %w", err)
	}

	printSites(os.Stdout, session.Sites)

	Analytics.TrackRanCommand(AnalyticsCommandNameLogin,
		[2]string{analytics.PropertyProfileName, t.Profile},
		[2]string{analytics.PropertyLoginKind, kind},
		[2]string{analytics.PropertyOutcome, "logged-in"},
	)
	return nil
}

func printSites(w io.Writer, sites []types.Site) {
	tw := new(tabwriter.Writer)
	tw.Init(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tURL\tADMIN\t")
	for _, s := range sites {
		admin := ""
		if s.IsAdmin {
			admin = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", s.ID, s.Name, s.URL, admin)
	}
	tw.Flush()
}
