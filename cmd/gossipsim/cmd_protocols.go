package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/nvandessel/gossip/internal/gossip"
	"github.com/spf13/cobra"
)

func newProtocolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "protocols",
		Short: "List supported contact protocols",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			if jsonOut {
				type entry struct {
					Name        string `json:"name"`
					LongName    string `json:"long_name"`
					Description string `json:"description"`
				}
				var out []entry
				for _, p := range gossip.AllProtocols() {
					out = append(out, entry{Name: p.String(), LongName: p.LongName(), Description: p.Description()})
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, p := range gossip.AllProtocols() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p, p.LongName(), p.Description())
			}
			return w.Flush()
		},
	}
}
