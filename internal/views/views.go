// Package views turns document listings into rows the CLI can render. The
// per-row action comes from access.Decide; the server still has the last word
// when the action is taken.
package views

import (
	"sort"
	"strconv"
	"strings"

	"github.com/dharsanguruparan/vaultdesk/internal/access"
	"github.com/dharsanguruparan/vaultdesk/internal/model"
)

// Action is what a row offers.
type Action int

const (
	ActionPrivate Action = iota
	ActionDownload
	ActionEnterPin
)

// String returns the label shown in the action column.
func (a Action) String() string {
	switch a {
	case ActionDownload:
		return "download"
	case ActionEnterPin:
		return "enter pin"
	default:
		return "private"
	}
}

// Row is one document as a listing shows it.
type Row struct {
	Document        model.Document
	Decision        access.Decision
	Action          Action
	CanDelete       bool
	CanViewVersions bool
	Size            string
}

// NewRow derives a row for principal p.
func NewRow(doc model.Document, p model.Principal) Row {
	d := access.Decide(doc, p)
	manage := p.IsAdmin() || (p.ID != "" && doc.OwnerID() == p.ID)
	return Row{
		Document:        doc,
		Decision:        d,
		Action:          actionFor(d),
		CanDelete:       manage,
		CanViewVersions: manage && doc.Version > 1,
		Size:            FormatSize(doc.Size),
	}
}

func actionFor(d access.Decision) Action {
	switch d {
	case access.Allow:
		return ActionDownload
	case access.Challenge:
		return ActionEnterPin
	default:
		return ActionPrivate
	}
}

// Rows maps NewRow over docs.
func Rows(docs []model.Document, p model.Principal) []Row {
	rows := make([]Row, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, NewRow(doc, p))
	}
	return rows
}

// Listing is one page of the document browser.
type Listing struct {
	Rows       []Row
	Page       int
	TotalPages int
	Total      int
}

// NewListing builds the browser page.
func NewListing(page model.DocumentPage, p model.Principal) Listing {
	l := Listing{
		Rows:       Rows(page.Documents, p),
		Page:       page.CurrentPage,
		TotalPages: page.TotalPages,
		Total:      page.Total,
	}
	if l.Page < 1 {
		l.Page = 1
	}
	if l.TotalPages < 1 && l.Total > 0 {
		l.TotalPages = 1
	}
	return l
}

// HasPrev reports whether an earlier page exists.
func (l Listing) HasPrev() bool { return l.Page > 1 }

// HasNext reports whether a later page exists.
func (l Listing) HasNext() bool { return l.Page < l.TotalPages }

// Summary renders "page 2 of 5 (48 documents)".
func (l Listing) Summary() string {
	pages := l.TotalPages
	if pages < 1 {
		pages = 1
	}
	noun := "documents"
	if l.Total == 1 {
		noun = "document"
	}
	return "page " + strconv.Itoa(l.Page) + " of " + strconv.Itoa(pages) + " (" + strconv.Itoa(l.Total) + " " + noun + ")"
}

// Dashboard aggregates the documents fetched for the dashboard. Total is the
// server's count; Shown is how many of them the other fields cover.
type Dashboard struct {
	Total      int
	Shown      int
	TotalSize  int64
	Public     []Row
	Private    []Row
	Protected  []Row
	Recent     []Row
	ByCategory map[model.Category]int
	ByAccess   map[model.AccessLevel]int
}

const recentCount = 5

// BuildDashboard groups the documents of page by access level. Private
// documents are listed only when p may open them.
func BuildDashboard(page model.DocumentPage, p model.Principal) Dashboard {
	docs := page.Documents
	d := Dashboard{
		Total:      max(page.Total, len(docs)),
		Shown:      len(docs),
		ByCategory: make(map[model.Category]int),
		ByAccess:   make(map[model.AccessLevel]int),
	}
	for _, doc := range docs {
		d.TotalSize += doc.Size
		d.ByCategory[doc.Category]++
		d.ByAccess[doc.AccessLevel]++

		row := NewRow(doc, p)
		switch doc.AccessLevel {
		case model.AccessPublic:
			d.Public = append(d.Public, row)
		case model.AccessPrivate:
			if row.Decision == access.Allow {
				d.Private = append(d.Private, row)
			}
		case model.AccessProtected:
			d.Protected = append(d.Protected, row)
		}
	}

	recent := Rows(docs, p)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Document.CreatedAt.After(recent[j].Document.CreatedAt)
	})
	if len(recent) > recentCount {
		recent = recent[:recentCount]
	}
	d.Recent = recent
	return d
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatSize renders a byte count with up to two decimals, e.g. "1.5 KB".
func FormatSize(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	v, i := float64(n), 0
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	return s + " " + sizeUnits[i]
}
