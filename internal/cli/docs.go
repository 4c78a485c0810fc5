package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/vaultdesk/internal/apierr"
	"github.com/dharsanguruparan/vaultdesk/internal/journal"
	"github.com/dharsanguruparan/vaultdesk/internal/model"
	"github.com/dharsanguruparan/vaultdesk/internal/preview"
	"github.com/dharsanguruparan/vaultdesk/internal/upload"
	"github.com/dharsanguruparan/vaultdesk/internal/views"
)

func newDocsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "docs",
		Aliases: []string{"documents"},
		Short:   "Browse and manage documents",
	}
	cmd.AddCommand(
		newDocsListCmd(app),
		newDocsShowCmd(app),
		newDocsDownloadCmd(app),
		newDocsPreviewCmd(app),
		newDocsVersionsCmd(app),
		newDocsDeleteCmd(app),
		newDocsUploadCmd(app),
	)
	return cmd
}

func newDocsListCmd(app *App) *cobra.Command {
	var (
		category    string
		search      string
		page        int
		limit       int
		allVersions bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents a page at a time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.principal()
			if err != nil {
				return err
			}
			if category != "" && !validCategory(model.Category(category)) {
				return fmt.Errorf("unknown category %q", category)
			}
			if limit <= 0 {
				limit = app.cfg.PageSize
			}
			res, err := app.client.ListDocuments(cmd.Context(), model.ListFilter{
				Category:        model.Category(category),
				Search:          search,
				Page:            page,
				Limit:           limit,
				ShowAllVersions: allVersions,
			})
			if err != nil {
				return err
			}
			listing := views.NewListing(res, p)
			if len(listing.Rows) == 0 {
				app.printf("No documents found.\n")
				return nil
			}
			renderRows(app.out, listing.Rows)
			app.printf("\n%s", listing.Summary())
			if listing.HasNext() {
				app.printf(", next: --page %d", listing.Page+1)
			}
			app.printf("\n")
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "Filter by category: image, pdf, document, other")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Search names, descriptions and tags")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 0, "Documents per page (default from VAULTDESK_PAGE_SIZE)")
	cmd.Flags().BoolVar(&allVersions, "all-versions", false, "Include older versions")
	return cmd
}

func newDocsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a document's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.principal()
			if err != nil {
				return err
			}
			doc, err := app.client.Document(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			row := views.NewRow(doc, p)
			tw := newTable(app.out)
			fmt.Fprintf(tw, "ID\t%s\n", doc.ID)
			fmt.Fprintf(tw, "Name\t%s\n", doc.OriginalName)
			fmt.Fprintf(tw, "Type\t%s (%s)\n", doc.MimeType, doc.Category)
			fmt.Fprintf(tw, "Size\t%s\n", row.Size)
			fmt.Fprintf(tw, "Access\t%s\n", doc.AccessLevel)
			fmt.Fprintf(tw, "Owner\t%s\n", doc.UploadedBy.Username)
			fmt.Fprintf(tw, "Version\t%d\n", doc.Version)
			fmt.Fprintf(tw, "Downloads\t%d\n", doc.DownloadCount)
			fmt.Fprintf(tw, "Uploaded\t%s\n", formatDate(doc.CreatedAt))
			fmt.Fprintf(tw, "Tags\t%s\n", formatTags(doc.Tags))
			if doc.Description != "" {
				fmt.Fprintf(tw, "Description\t%s\n", doc.Description)
			}
			fmt.Fprintf(tw, "Action\t%s\n", row.Action)
			return tw.Flush()
		},
	}
}

func newDocsDownloadCmd(app *App) *cobra.Command {
	var (
		pin      string
		toBucket bool
	)
	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Download a document, prompting for a PIN when needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := app.principal(); err != nil {
				return err
			}
			doc, err := app.client.Document(ctx, args[0])
			if err != nil {
				return err
			}
			return app.download(ctx, doc, pin, toBucket)
		},
	}
	cmd.Flags().StringVar(&pin, "pin", "", "PIN for protected documents (prompted when omitted)")
	cmd.Flags().BoolVar(&toBucket, "bucket", false, "Store the file in the configured S3 bucket instead of the download dir")
	return cmd
}

func newDocsPreviewCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <id>",
		Short: "Preview a text, PDF or image document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := app.principal(); err != nil {
				return err
			}
			doc, err := app.client.Document(ctx, args[0])
			if err != nil {
				return err
			}
			res, err := app.previews.Render(ctx, doc)
			switch {
			case errors.Is(err, preview.ErrUnsupported):
				return fmt.Errorf("%w, use 'vaultdesk docs download %s'", err, doc.ID)
			case errors.Is(err, apierr.ErrPinRequired):
				return fmt.Errorf("%q is PIN protected, use 'vaultdesk docs download %s'", doc.OriginalName, doc.ID)
			case err != nil:
				return err
			}
			printPreview(app, doc, res)
			return nil
		},
	}
}

func printPreview(app *App, doc model.Document, res preview.Result) {
	switch res.Kind {
	case preview.KindImage:
		format := strings.ToUpper(res.Format)
		if format == "" {
			format = doc.MimeType
		}
		if res.Width > 0 {
			app.printf("%s: %s image, %dx%d, %s\n", doc.OriginalName, format, res.Width, res.Height, views.FormatSize(res.Bytes))
		} else {
			app.printf("%s: %s image, %s\n", doc.OriginalName, format, views.FormatSize(res.Bytes))
		}
	case preview.KindPDF:
		app.printf("%s: PDF, %d pages\n\n", doc.OriginalName, res.Pages)
		app.printf("%s\n", strings.TrimSpace(res.Text))
	default:
		app.printf("%s\n", res.Text)
		if res.Truncated {
			app.printf("\n[preview truncated after %s]\n", views.FormatSize(res.Bytes))
		}
	}
}

func newDocsVersionsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "versions <id>",
		Short: "List every version of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			versions, err := app.client.Versions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(versions) == 0 {
				app.printf("No versions found.\n")
				return nil
			}
			renderVersions(app.out, versions)
			return nil
		},
	}
}

func newDocsDeleteCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document you own (admins may delete any)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			doc, err := app.client.Document(ctx, args[0])
			if err != nil {
				return err
			}
			if !yes && !Confirm(app.in, fmt.Sprintf("Delete %q", doc.OriginalName), app.out) {
				return errCancelled
			}
			if err := app.client.Delete(ctx, doc.ID); err != nil {
				return err
			}
			app.ctrl.Cancel(doc.ID)
			app.record(ctx, journal.Entry{Action: journal.ActionDelete, DocumentID: doc.ID, Name: doc.OriginalName, Bytes: doc.Size})
			app.printf("Deleted %s\n", doc.OriginalName)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newDocsUploadCmd(app *App) *cobra.Command {
	var (
		description string
		tags        string
		level       string
		pin         string
	)
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file; uploading the same name again adds a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := app.principal(); err != nil {
				return err
			}
			form := upload.Form{
				Path:        args[0],
				Description: description,
				Tags:        upload.ParseTags(tags),
				AccessLevel: model.AccessLevel(strings.ToLower(level)),
				PIN:         pin,
			}
			if form.AccessLevel == model.AccessProtected && form.PIN == "" {
				var err error
				if form.PIN, err = GetSecret("PIN for this document (4-20 characters)", app.out); err != nil {
					return err
				}
			}
			doc, err := app.uploads.Upload(ctx, form)
			if err != nil {
				return err
			}
			app.record(ctx, journal.Entry{Action: journal.ActionUpload, DocumentID: doc.ID, Name: doc.OriginalName, Bytes: doc.Size})
			app.printf("Uploaded %s as %s (version %d, id %s)\n", doc.OriginalName, doc.AccessLevel, doc.Version, doc.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description")
	cmd.Flags().StringVarP(&tags, "tags", "t", "", "Comma separated tags")
	cmd.Flags().StringVarP(&level, "access", "a", string(model.AccessPublic), "Access level: public, private or protected")
	cmd.Flags().StringVar(&pin, "pin", "", "PIN for protected uploads (prompted when omitted)")
	return cmd
}

func validCategory(c model.Category) bool {
	for _, known := range model.Categories {
		if c == known {
			return true
		}
	}
	return false
}

// download saves doc to the chosen sink, prompting for a PIN when the server
// asks for one, and journals the result.
func (a *App) download(ctx context.Context, doc model.Document, pin string, toBucket bool) error {
	sink, err := a.sink(ctx, toBucket)
	if err != nil {
		return err
	}
	blob, err := a.fetch(ctx, doc, pin)
	if err != nil {
		return err
	}
	saved, err := sink.Save(ctx, doc, blob)
	if err != nil {
		return err
	}
	a.record(ctx, journal.Entry{
		Action:     journal.ActionDownload,
		DocumentID: doc.ID,
		Name:       doc.OriginalName,
		Bytes:      saved.Bytes,
		Location:   saved.Location,
	})
	a.printf("Saved %s to %s (%s)\n", doc.OriginalName, saved.Location, views.FormatSize(saved.Bytes))
	return nil
}
