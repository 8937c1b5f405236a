package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/neostalgic/obsidian-strapi-uploader/internal/config"
	"github.com/neostalgic/obsidian-strapi-uploader/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var (
		orphans bool
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent publishes",
		Long: `History lists recent publish runs from the local ledger
(OSU_HISTORY_DB, default <vault>/.osu/history.db).

With --orphans it lists media uploaded by failed publishes that no later
successful publish used. Those files are in the Strapi media library but no
entry references them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, orphans, limit)
		},
	}
	cmd.Flags().BoolVar(&orphans, "orphans", false, "List media uploaded by failed publishes")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of publishes to show")
	return cmd
}

func runHistory(cmd *cobra.Command, orphans bool, limit int) error {
	cfg, err := config.Load(flagEnvFile)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	store, err := history.Open(ctx, cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	if orphans {
		assets, err := store.Orphans(ctx)
		if err != nil {
			return err
		}
		if len(assets) == 0 {
			fmt.Fprintln(out, "no orphaned media")
			return nil
		}
		fmt.Fprintln(tw, "REMOTE ID\tNAME\tNOTE\tURL")
		for _, a := range assets {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", a.RemoteID, a.Name, a.Note, a.URL)
		}
		return tw.Flush()
	}

	publishes, err := store.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(publishes) == 0 {
		fmt.Fprintln(out, "no publishes recorded")
		return nil
	}
	fmt.Fprintln(tw, "WHEN\tNOTE\tCOLLECTION\tSTATUS\tENTRY\tASSETS")
	for _, p := range publishes {
		status := p.Status
		if p.Status == history.StatusFailed && p.Stage != "" {
			status = fmt.Sprintf("%s (%s)", p.Status, p.Stage)
		}
		entry := "-"
		if p.EntryID != 0 {
			entry = fmt.Sprint(p.EntryID)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			p.StartedAt.Local().Format(time.DateTime), p.Note, p.Collection, status, entry, p.Assets)
	}
	return tw.Flush()
}
