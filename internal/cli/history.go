package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/vaultdesk/internal/journal"
	"github.com/dharsanguruparan/vaultdesk/internal/views"
)

func newHistoryCmd(app *App) *cobra.Command {
	var (
		limit  int
		action string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent downloads, uploads, deletes and exports",
		Long: `history reads the local journal. Without VAULTDESK_DATABASE_URL the journal
only lives for one invocation, so set it to keep history across runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.principal()
			if err != nil {
				return err
			}
			entries, err := app.journal.List(cmd.Context(), journal.Filter{UserID: p.ID, Action: journal.Action(action), Limit: limit})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				app.printf("No history yet.\n")
				return nil
			}
			tw := newTable(app.out)
			fmt.Fprintln(tw, "WHEN\tACTION\tNAME\tSIZE\tDETAIL")
			for _, e := range entries {
				detail := e.Location
				if e.Detail != "" {
					detail = e.Detail
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.At.Local().Format("2006-01-02 15:04"), e.Action, e.Name, views.FormatSize(e.Bytes), detail)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "How many entries to show")
	cmd.Flags().StringVar(&action, "action", "", "Only show one action: download, upload, delete, export, export_skip")
	return cmd
}
