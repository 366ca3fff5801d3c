package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/nvandessel/gossip/internal/constants"
	"github.com/nvandessel/gossip/internal/store"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show batches stored by --format sqlite",
		Long: `List stored batches, newest first, or print the records of one batch.

Examples:
  gossipsim history                    # list batches in ./.gossip/gossip.db
  gossipsim history --batch <id>       # records of a single batch
  gossipsim history --data-dir /tmp/g  # read another store`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			root, _ := cmd.Flags().GetString("root")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			batchID, _ := cmd.Flags().GetString("batch")

			if dataDir == "" {
				dataDir = filepath.Join(root, constants.DataDirName)
			}

			s, err := store.NewSQLiteResultStore(dataDir)
			if err != nil {
				return fmt.Errorf("failed to open result store: %w", err)
			}
			defer s.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if batchID != "" {
				records, err := s.Results(ctx, batchID)
				if err != nil {
					return fmt.Errorf("failed to read batch: %w", err)
				}
				if len(records) == 0 {
					return fmt.Errorf("batch not found: %s", batchID)
				}
				if jsonOut {
					return json.NewEncoder(out).Encode(records)
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TRIAL\tPROTOCOL\tROUNDS\tAVG CONTACTS\tKNOWN\tCONVERGED")
				for _, rec := range records {
					fmt.Fprintf(tw, "%d\t%s\t%d\t%.2f\t%d\t%t\n",
						rec.Trial, rec.Protocol, rec.RoundsTaken, rec.AverageContactsPerAgent,
						rec.TotalMessagesKnown, rec.Converged)
				}
				return tw.Flush()
			}

			batches, err := s.ListBatches(ctx)
			if err != nil {
				return fmt.Errorf("failed to list batches: %w", err)
			}
			if jsonOut {
				return json.NewEncoder(out).Encode(batches)
			}
			if len(batches) == 0 {
				fmt.Fprintln(out, "No batches stored.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "BATCH\tCREATED\tRECORDS")
			for _, b := range batches {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", b.ID, b.CreatedAt.Local().Format(time.DateTime), b.Records)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().String("data-dir", "", "Result store directory (default <root>/.gossip)")
	cmd.Flags().String("batch", "", "Show the records of this batch")

	return cmd
}
