package views

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/vaultdesk/internal/access"
	"github.com/dharsanguruparan/vaultdesk/internal/model"
)

var (
	ann   = model.Principal{ID: "u1", Role: model.RoleUser}
	bob   = model.Principal{ID: "u2", Role: model.RoleUser}
	admin = model.Principal{ID: "a1", Role: model.RoleAdmin}
)

func doc(id string, level model.AccessLevel, cat model.Category, version int, created time.Time) model.Document {
	return model.Document{
		ID:          id,
		AccessLevel: level,
		Category:    cat,
		Version:     version,
		Size:        1024,
		UploadedBy:  model.Owner{ID: "u1"},
		CreatedAt:   created,
	}
}

func TestNewRowActions(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name        string
		doc         model.Document
		p           model.Principal
		action      Action
		canDelete   bool
		canVersions bool
	}{
		{"public stranger", doc("1", model.AccessPublic, model.CategoryPDF, 1, now), bob, ActionDownload, false, false},
		{"private stranger", doc("2", model.AccessPrivate, model.CategoryPDF, 1, now), bob, ActionPrivate, false, false},
		{"private owner", doc("3", model.AccessPrivate, model.CategoryPDF, 2, now), ann, ActionDownload, true, true},
		{"protected admin", doc("4", model.AccessProtected, model.CategoryPDF, 1, now), admin, ActionEnterPin, true, false},
		{"protected owner v3", doc("5", model.AccessProtected, model.CategoryPDF, 3, now), ann, ActionEnterPin, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := NewRow(tt.doc, tt.p)
			assert.Equal(t, tt.action, row.Action)
			assert.Equal(t, tt.canDelete, row.CanDelete)
			assert.Equal(t, tt.canVersions, row.CanViewVersions)
			assert.Equal(t, "1 KB", row.Size)
		})
	}
}

func TestListingPagination(t *testing.T) {
	l := NewListing(model.DocumentPage{Total: 30, TotalPages: 3, CurrentPage: 2}, ann)
	assert.True(t, l.HasPrev())
	assert.True(t, l.HasNext())
	assert.Equal(t, "page 2 of 3 (30 documents)", l.Summary())

	empty := NewListing(model.DocumentPage{}, ann)
	assert.False(t, empty.HasPrev())
	assert.False(t, empty.HasNext())
	assert.Equal(t, "page 1 of 1 (0 documents)", empty.Summary())

	one := NewListing(model.DocumentPage{Total: 1, CurrentPage: 1}, ann)
	assert.Equal(t, 1, one.TotalPages)
	assert.Equal(t, "page 1 of 1 (1 document)", one.Summary())
}

func TestBuildDashboard(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := []model.Document{
		doc("pub1", model.AccessPublic, model.CategoryPDF, 1, base),
		doc("pub2", model.AccessPublic, model.CategoryImage, 1, base.Add(time.Hour)),
		doc("priv-ann", model.AccessPrivate, model.CategoryDocument, 1, base.Add(2*time.Hour)),
		func() model.Document {
			d := doc("priv-bob", model.AccessPrivate, model.CategoryOther, 1, base.Add(3*time.Hour))
			d.UploadedBy.ID = "u2"
			return d
		}(),
		doc("prot", model.AccessProtected, model.CategoryPDF, 1, base.Add(4*time.Hour)),
		doc("pub3", model.AccessPublic, model.CategoryPDF, 1, base.Add(5*time.Hour)),
	}

	d := BuildDashboard(model.DocumentPage{Documents: docs, Total: 6}, ann)
	assert.Equal(t, 6, d.Total)
	assert.Equal(t, 6, d.Shown)
	assert.EqualValues(t, 6*1024, d.TotalSize)
	assert.Len(t, d.Public, 3)
	require.Len(t, d.Private, 1)
	assert.Equal(t, "priv-ann", d.Private[0].Document.ID)
	assert.Len(t, d.Protected, 1)
	assert.Equal(t, access.Challenge, d.Protected[0].Decision)
	assert.Equal(t, 3, d.ByCategory[model.CategoryPDF])
	assert.Equal(t, 2, d.ByAccess[model.AccessPrivate])

	require.Len(t, d.Recent, 5)
	assert.Equal(t, "pub3", d.Recent[0].Document.ID)
	assert.Equal(t, "pub2", d.Recent[4].Document.ID)

	adminView := BuildDashboard(model.DocumentPage{Documents: docs, Total: 6}, admin)
	assert.Len(t, adminView.Private, 2)
}

func TestBuildDashboardTotalComesFromServer(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := []model.Document{
		doc("a", model.AccessPublic, model.CategoryPDF, 1, base),
		doc("b", model.AccessPublic, model.CategoryPDF, 1, base),
	}

	d := BuildDashboard(model.DocumentPage{Documents: docs, Total: 40, TotalPages: 20, CurrentPage: 1}, ann)
	assert.Equal(t, 40, d.Total)
	assert.Equal(t, 2, d.Shown)
	assert.Equal(t, 2, d.ByAccess[model.AccessPublic])

	// a server that omits the count never reports fewer than were listed
	d = BuildDashboard(model.DocumentPage{Documents: docs}, ann)
	assert.Equal(t, 2, d.Total)
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 Bytes"},
		{-5, "0 Bytes"},
		{512, "512 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{1048576, "1 MB"},
		{5 * 1024 * 1024 * 1024, "5 GB"},
		{3 * 1024 * 1024 * 1024 * 1024, "3072 GB"},
		{1234567, "1.18 MB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSize(tt.in), "size %d", tt.in)
	}
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "download", ActionDownload.String())
	assert.Equal(t, "enter pin", ActionEnterPin.String())
	assert.Equal(t, "private", ActionPrivate.String())
}
