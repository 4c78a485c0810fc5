package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/vaultdesk/internal/model"
	"github.com/dharsanguruparan/vaultdesk/internal/views"
)

func newDashboardCmd(app *App) *cobra.Command {
	var (
		downloadID string
		pin        string
		toBucket   bool
	)
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Summarize recent documents by access level and category",
		Long: `dashboard summarizes the first page of documents. With --download it then
downloads one of the listed documents, prompting for a PIN when needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.principal()
			if err != nil {
				return err
			}
			page, err := app.client.ListDocuments(cmd.Context(), model.ListFilter{Page: 1, Limit: app.cfg.DashboardLimit})
			if err != nil {
				return err
			}
			d := views.BuildDashboard(page, p)

			app.printf("Welcome back, %s\n\n", p.Username)
			tw := newTable(app.out)
			if d.Shown < d.Total {
				fmt.Fprintf(tw, "Documents\t%d (showing %d)\n", d.Total, d.Shown)
			} else {
				fmt.Fprintf(tw, "Documents\t%d\n", d.Total)
			}
			fmt.Fprintf(tw, "Total size\t%s\n", views.FormatSize(d.TotalSize))
			fmt.Fprintf(tw, "Public\t%d\n", d.ByAccess[model.AccessPublic])
			fmt.Fprintf(tw, "Private\t%d\n", d.ByAccess[model.AccessPrivate])
			fmt.Fprintf(tw, "Protected\t%d\n", d.ByAccess[model.AccessProtected])
			for _, c := range model.Categories {
				fmt.Fprintf(tw, "Category %s\t%d\n", c, d.ByCategory[c])
			}
			tw.Flush()

			section(app, "Recent", d.Recent)
			section(app, "Public", d.Public)
			section(app, "Private", d.Private)
			section(app, "Protected", d.Protected)

			if downloadID == "" {
				return nil
			}
			for _, doc := range page.Documents {
				if doc.ID == downloadID {
					app.printf("\n")
					return app.download(cmd.Context(), doc, pin, toBucket)
				}
			}
			return fmt.Errorf("document %s is not on the dashboard, use 'vaultdesk docs download %s'", downloadID, downloadID)
		},
	}
	cmd.Flags().StringVar(&downloadID, "download", "", "Download this listed document after the summary")
	cmd.Flags().StringVar(&pin, "pin", "", "PIN for a protected document (prompted when omitted)")
	cmd.Flags().BoolVar(&toBucket, "bucket", false, "Store the file in the configured S3 bucket instead of the download dir")
	return cmd
}

func section(app *App, title string, rows []views.Row) {
	app.printf("\n%s (%d)\n", title, len(rows))
	if len(rows) == 0 {
		return
	}
	renderRows(app.out, rows)
}
