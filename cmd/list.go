package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/segmentio/wplogin/cmd/internal/analytics"
	"github.com/segmentio/wplogin/profiles"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list will show you the profiles currently configured",
	RunE:  listRun,
}

func init() {
	RootCmd.AddCommand(listCmd)
}

const AnalyticsCommandNameList = "list"

func printProfiles(w io.Writer, ps profiles.Profiles) {
	tw := new(tabwriter.Writer)
	tw.Init(w, 0, 8, 2, '\t', 0)
	fmt.Fprintln(tw, "PROFILE\tSERVER\tUSERNAME\tSOURCE_PROFILE\t")
	for _, profile := range listProfileNames(ps) {
		server := ps.Lookup(profile, "server_url")
		if server == "" {
			server = "WordPress.com"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", profile, server, ps.Lookup(profile, "username"), ps[profile]["source_profile"])
	}
	tw.Flush()
}

func listRun(cmd *cobra.Command, args []string) error {
	ps, err := listProfiles()
	if err != nil {
		return err
	}

	printProfiles(os.Stdout, ps)

	Analytics.TrackRanCommand(AnalyticsCommandNameList,
		[2]string{analytics.PropertyCount, fmt.Sprintf("%d", len(listProfileNames(ps)))},
	)
	return nil
}
