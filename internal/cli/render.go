package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dharsanguruparan/vaultdesk/internal/model"
	"github.com/dharsanguruparan/vaultdesk/internal/views"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func renderRows(w io.Writer, rows []views.Row) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tACCESS\tSIZE\tVER\tOWNER\tUPLOADED\tACTION")
	for _, r := range rows {
		d := r.Document
		action := r.Action.String()
		if r.CanDelete {
			action += ", delete"
		}
		if r.CanViewVersions {
			action += ", versions"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			d.ID, d.OriginalName, d.Category, d.AccessLevel, r.Size, d.Version,
			d.UploadedBy.Username, formatDate(d.CreatedAt), action)
	}
	tw.Flush()
}

func renderVersions(w io.Writer, docs []model.Document) {
	tw := newTable(w)
	fmt.Fprintln(tw, "VER\tID\tNAME\tSIZE\tUPLOADED\tLATEST")
	for _, d := range docs {
		latest := ""
		if d.IsLatestVersion {
			latest = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", d.Version, d.ID, d.OriginalName, views.FormatSize(d.Size), formatDate(d.CreatedAt), latest)
	}
	tw.Flush()
}

func renderUsers(w io.Writer, users []model.User) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tROLE\tSTATUS\tJOINED")
	for _, u := range users {
		status := "inactive"
		if u.IsActive {
			status = "active"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.Role, status, formatDate(u.CreatedAt))
	}
	tw.Flush()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02")
}

func formatTags(tags []string) string {
	if len(tags) == 0 {
		return "-"
	}
	return strings.Join(tags, ", ")
}
