package cmd

import (
	"fmt"
	"strings"

	"github.com/segmentio/wplogin/cmd/internal/analytics"
	"github.com/segmentio/wplogin/lib/types"
	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cobra"
)

var FlagOpenSite string

var openCmd = &cobra.Command{
	Use:   "open [profile]",
	Short: "open opens a site's dashboard in your browser",
	RunE:  runOpenCmd,
}

func init() {
	RootCmd.AddCommand(openCmd)
	openCmd.Flags().StringVarP(&FlagOpenSite, "site", "", "", "Site ID, name or URL (default the first site)")
}

const AnalyticsCommandNameOpen = "open"

func pickSite(sites []types.Site, want string) (types.Site, error) {
	if len(sites) == 0 {
		return types.Site{}, fmt.Errorf("no sites in this session")
	}
	if want == "" {
		return sites[0], nil
	}
	for _, s := range sites {
		if s.ID == want || strings.EqualFold(s.Name, want) || strings.EqualFold(strings.TrimRight(s.URL, "/"), strings.TrimRight(want, "/")) {
			return s, nil
		}
	}
	return types.Site{}, fmt.Errorf("no site matching %q; see `wplogin sites`", want)
}

func adminURL(s types.Site) string {
	return strings.TrimRight(s.URL, "/") + "/wp-admin/"
}

func runOpenCmd(cmd *cobra.Command, args []string) error {
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
	site, err := pickSite(session.Sites, FlagOpenSite)
	if err != nil {
		return err
	}

	Analytics.TrackRanCommand(AnalyticsCommandNameOpen, [2]string{analytics.PropertyProfileName, t.Profile})

	return open.Run(adminURL(site))
}
