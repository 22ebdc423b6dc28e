package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/drfirst/go-mme/internal/domain/mme"
)

var opioidsJSON bool

var opioidsCmd = &cobra.Command{
	Use:   "opioids",
	Short: "List the opioids in the conversion table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		entries := table.Entries()
		if opioidsJSON {
			return outputJSON(cmd, entries)
		}
		return outputOpioids(cmd, entries)
	},
}

func init() {
	opioidsCmd.Flags().BoolVar(&opioidsJSON, "json", false, "output table as JSON")
	rootCmd.AddCommand(opioidsCmd)
}

func outputOpioids(cmd *cobra.Command, entries []mme.Entry) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tFACTOR\tUNIT\tROUTES")
	for _, e := range entries {
		routes := make([]string, len(e.Routes))
		for i, r := range e.Routes {
			routes[i] = string(r)
		}
		fmt.Fprintf(w, "%s\t%s\t%g\t%s\t%s\n", e.ID, e.Name, e.Factor, e.Unit, strings.Join(routes, ","))
	}
	return w.Flush()
}
