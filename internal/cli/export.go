package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/vaultdesk/internal/export"
	"github.com/dharsanguruparan/vaultdesk/internal/model"
	"github.com/dharsanguruparan/vaultdesk/internal/queue"
	"github.com/dharsanguruparan/vaultdesk/internal/signing"
	"github.com/dharsanguruparan/vaultdesk/internal/views"
)

// maxExportPages stops a runaway pagination loop against a misbehaving server.
const maxExportPages = 1000

func newExportCmd(app *App) *cobra.Command {
	var (
		category string
		search   string
		toBucket bool
		useQueue bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Save every document you can download without a PIN",
		Long: `export downloads every document you may open outright. Protected documents
and documents you are not allowed to open are skipped and listed. With --queue
the downloads are handed to the worker through Redis instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := app.principal()
			if err != nil {
				return err
			}
			docs, err := app.listAll(ctx, model.ListFilter{Category: model.Category(category), Search: search})
			if err != nil {
				return err
			}

			var report export.Report
			if useQueue {
				if report, err = app.enqueueExport(ctx, p, docs); err != nil {
					return err
				}
			} else {
				sink, err := app.sink(ctx, toBucket)
				if err != nil {
					return err
				}
				exporter := export.NewExporter(app.ctrl, sink, app.journal, app.logger.Named("export"))
				report = export.NewRunner(exporter, app.cfg.ExportWorkers, app.logger.Named("export")).Run(ctx, p, docs)
			}
			renderReport(app, report)
			if report.Failed > 0 {
				return fmt.Errorf("%d of %d documents failed", report.Failed, len(report.Results))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "Only export one category")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Only export matching documents")
	cmd.Flags().BoolVar(&toBucket, "bucket", false, "Store files in the configured S3 bucket")
	cmd.Flags().BoolVar(&useQueue, "queue", false, "Enqueue downloads for vaultdesk-worker instead of running them here")
	return cmd
}

func (a *App) enqueueExport(ctx context.Context, p model.Principal, docs []model.Document) (export.Report, error) {
	if a.cfg.Redis.Addr == "" {
		return export.Report{}, errors.New("--queue needs VAULTDESK_REDIS_ADDR")
	}
	if !a.cfg.SharedSecret {
		return export.Report{}, errors.New("--queue needs VAULTDESK_SIGNING_SECRET shared with the worker")
	}
	client := asynq.NewClient(queue.RedisOpt(a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB))
	defer client.Close()
	return export.Enqueue(ctx, client, signing.NewSigner(a.cfg.SigningSecret), p, docs, a.logger.Named("export")), nil
}

// listAll walks every page of the listing.
func (a *App) listAll(ctx context.Context, f model.ListFilter) ([]model.Document, error) {
	f.Limit = a.cfg.AdminLimit
	var docs []model.Document
	for page := 1; page <= maxExportPages; page++ {
		f.Page = page
		res, err := a.client.ListDocuments(ctx, f)
		if err != nil {
			return nil, err
		}
		docs = append(docs, res.Documents...)
		if len(res.Documents) == 0 || page >= res.TotalPages {
			break
		}
	}
	return docs, nil
}

func renderReport(app *App, r export.Report) {
	tw := newTable(app.out)
	fmt.Fprintln(tw, "NAME\tACCESS\tRESULT\tDETAIL")
	for _, res := range r.Results {
		detail := res.Location
		switch {
		case res.Err != nil:
			detail = res.Err.Error()
		case res.Reason != "":
			detail = res.Reason
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", res.Document.OriginalName, res.Document.AccessLevel, res.Outcome, detail)
	}
	tw.Flush()
	app.printf("\nsaved %d (%s), queued %d, skipped %d, failed %d\n",
		r.Saved, views.FormatSize(r.Bytes), r.Queued, r.Skipped, r.Failed)
}
