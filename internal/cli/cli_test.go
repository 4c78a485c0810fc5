package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/vaultdesk/internal/api/apitest"
	"github.com/dharsanguruparan/vaultdesk/internal/apierr"
	"github.com/dharsanguruparan/vaultdesk/internal/config"
	"github.com/dharsanguruparan/vaultdesk/internal/credentials"
	"github.com/dharsanguruparan/vaultdesk/internal/journal"
	"github.com/dharsanguruparan/vaultdesk/internal/model"
)

type harness struct {
	srv     *apitest.Server
	cfg     *config.Config
	app     *App
	store   *credentials.MemoryStore
	journal *journal.MemoryJournal
	out     *bytes.Buffer
}

// newHarness starts a fake API and an App reading stdin from input. opts
// adjust the config before the App is built.
func newHarness(t *testing.T, input string, opts ...func(*config.Config)) *harness {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)

	h := &harness{
		srv: srv,
		cfg: &config.Config{
			APIURL:          srv.URL,
			RequestTimeout:  5 * time.Second,
			DownloadTimeout: 10 * time.Second,
			UploadTimeout:   5 * time.Second,
			PreviewTimeout:  5 * time.Second,
			PageSize:        12,
			DashboardLimit:  50,
			AdminLimit:      100,
			PinCache:        config.PinCacheNone,
			DownloadDir:     t.TempDir(),
			MaxUploadBytes:  1 << 20,
			ExportWorkers:   2,
			SigningSecret:   []byte("test-secret"),
		},
		store:   credentials.NewMemoryStore(),
		journal: journal.NewMemoryJournal(),
		out:     &bytes.Buffer{},
	}
	for _, opt := range opts {
		opt(h.cfg)
	}
	app, err := NewApp(context.Background(), h.cfg, zap.NewNop(), strings.NewReader(input), h.out,
		WithStore(h.store), WithJournal(h.journal))
	require.NoError(t, err)
	t.Cleanup(app.Close)
	h.app = app
	return h
}

// signIn creates an account on the fake server and stores its token.
func (h *harness) signIn(t *testing.T, u model.User) model.User {
	t.Helper()
	token := h.srv.AddUser(u, "password1")
	stored, ok := h.srv.User(u.ID)
	require.True(t, ok)
	require.NoError(t, h.store.Save(credentials.Credentials{Token: token, User: stored, SavedAt: time.Now()}))
	return stored
}

func (h *harness) run(args ...string) (string, error) {
	h.out.Reset()
	cmd := NewRootCommand(h.app)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return h.out.String(), err
}

// stubSecrets feeds hidden prompts from values, then fails with io.EOF.
func stubSecrets(t *testing.T, values ...string) {
	t.Helper()
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(int) ([]byte, error) {
		if len(values) == 0 {
			return nil, io.EOF
		}
		v := values[0]
		values = values[1:]
		return []byte(v), nil
	}
}

var (
	alice = model.User{ID: "u-alice", Username: "alice", Email: "alice@example.com"}
	bob   = model.User{ID: "u-bob", Username: "bob", Email: "bob@example.com"}
	root  = model.User{ID: "u-root", Username: "root", Email: "root@example.com", Role: model.RoleAdmin}
)

func owner(u model.User) model.Owner {
	return model.Owner{ID: u.ID, Username: u.Username}
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	reader := bufio.NewReader(strings.NewReader("  alice@example.com \nlast"))

	got, err := GetSimpleText(reader, "Email", &out)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got)
	assert.Equal(t, "Email: ", out.String())

	got, err = GetSimpleText(reader, "Again", &out)
	require.NoError(t, err)
	assert.Equal(t, "last", got)

	_, err = GetSimpleText(reader, "Gone", &out)
	assert.ErrorIs(t, err, io.EOF)
}

func TestConfirm(t *testing.T) {
	cases := map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "\n": false, "": false, "maybe\n": false}
	for input, want := range cases {
		var out bytes.Buffer
		got := Confirm(bufio.NewReader(strings.NewReader(input)), "Delete", &out)
		assert.Equal(t, want, got, "input %q", input)
		assert.Contains(t, out.String(), "Delete [y/N]: ")
	}
}

func TestGetSecretTrimsAndReportsErrors(t *testing.T) {
	stubSecrets(t, " 1234 ")
	var out bytes.Buffer

	got, err := GetSecret("PIN", &out)
	require.NoError(t, err)
	assert.Equal(t, "1234", got)

	_, err = GetSecret("PIN", &out)
	assert.ErrorIs(t, err, io.EOF)
}

func TestLoginSavesCredentials(t *testing.T) {
	h := newHarness(t, "")
	h.srv.AddUser(alice, "password1")
	stubSecrets(t, "password1")

	out, err := h.run("login", "--email", "alice@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as alice (user)")
	assert.NotEmpty(t, h.store.Token())

	out, err = h.run("whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "alice <alice@example.com> role=user id=u-alice")
	assert.NotContains(t, out, "offline")

	_, err = h.run("logout")
	require.NoError(t, err)
	assert.Empty(t, h.store.Token())
}

func TestLoginPromptsForEmail(t *testing.T) {
	h := newHarness(t, "alice@example.com\n")
	h.srv.AddUser(alice, "password1")
	stubSecrets(t, "wrong-password")

	out, err := h.run("login")
	require.Error(t, err)
	assert.Contains(t, out, "Email: ")
	assert.Contains(t, err.Error(), "Invalid credentials")
	assert.Empty(t, h.store.Token())
}

func TestRegisterRejectsMismatchedConfirmation(t *testing.T) {
	h := newHarness(t, "")
	stubSecrets(t, "password1", "password2")

	_, err := h.run("register", "--username", "carol", "--email", "carol@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confirmation must match password")
	assert.Zero(t, h.srv.Hits("/api/auth/register"))
}

func TestCommandsNeedLogin(t *testing.T) {
	h := newHarness(t, "")
	for _, args := range [][]string{{"docs", "list"}, {"dashboard"}, {"export"}, {"history"}, {"admin", "users"}} {
		_, err := h.run(args...)
		require.Error(t, err, "%v", args)
		assert.Contains(t, err.Error(), "vaultdesk login", "%v", args)
	}
}

func TestDocsList(t *testing.T) {
	h := newHarness(t, "")
	h.srv.AddUser(bob, "password1")
	h.signIn(t, alice)
	h.srv.AddDocument(model.Document{OriginalName: "notes.txt", MimeType: "text/plain", Category: model.CategoryDocument, AccessLevel: model.AccessPublic, UploadedBy: owner(alice)}, []byte("hi"), "")
	h.srv.AddDocument(model.Document{OriginalName: "keys.txt", MimeType: "text/plain", Category: model.CategoryDocument, AccessLevel: model.AccessProtected, UploadedBy: owner(bob)}, []byte("k"), "1234")

	out, err := h.run("docs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "notes.txt")
	assert.Contains(t, out, "keys.txt")
	assert.Contains(t, out, "page 1 of 1 (2 documents)")
	assert.NotContains(t, out, "next:")

	out, err = h.run("docs", "list", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "next: --page 2")

	_, err = h.run("docs", "list", "--category", "spreadsheet")
	assert.ErrorContains(t, err, `unknown category "spreadsheet"`)
}

func TestDownloadPublicDocument(t *testing.T) {
	h := newHarness(t, "")
	h.signIn(t, alice)
	doc := h.srv.AddDocument(model.Document{OriginalName: "notes.txt", MimeType: "text/plain", AccessLevel: model.AccessPublic, UploadedBy: owner(bob)}, []byte("hello there"), "")

	out, err := h.run("docs", "download", doc.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved notes.txt to ")

	content, err := os.ReadFile(filepath.Join(h.cfg.DownloadDir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello there", string(content))
	assert.Equal(t, 1, h.srv.DownloadCount(doc.ID))

	entries, err := h.journal.List(context.Background(), journal.Filter{UserID: alice.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, journal.ActionDownload, entries[0].Action)
	assert.Equal(t, int64(len("hello there")), entries[0].Bytes)
}

func TestDownloadProtectedPromptsUntilPinAccepted(t *testing.T) {
	h := newHarness(t, "")
	h.signIn(t, alice)
	doc := h.srv.AddDocument(model.Document{OriginalName: "keys.txt", MimeType: "text/plain", AccessLevel: model.AccessProtected, UploadedBy: owner(bob)}, []byte("secret"), "1234")
	stubSecrets(t, "0000", "1234")

	out, err := h.run("docs", "download", doc.ID)
	require.NoError(t, err)
	assert.Contains(t, out, `"keys.txt" is protected by a PIN.`)
	assert.Contains(t, out, "Incorrect PIN (attempt 1), try again.")
	assert.NotContains(t, out, "1234")

	content, err := os.ReadFile(filepath.Join(h.cfg.DownloadDir, "keys.txt"))
	require.NoError(t, err)
	assert.Equal(t, "secret", string(content))
	assert.Equal(t, 2, h.srv.Hits("/api/documents/verify-pin/"+doc.ID))
	assert.Equal(t, 1, h.srv.DownloadCount(doc.ID))
	assert.Empty(t, h.app.ctrl.Sessions())
}

func TestDownloadProtectedWithPinFlag(t *testing.T) {
	h := newHarness(t, "")
	h.signIn(t, alice)
	doc := h.srv.AddDocument(model.Document{OriginalName: "keys.txt", MimeType: "text/plain", AccessLevel: model.AccessProtected, UploadedBy: owner(bob)}, []byte("secret"), "1234")
	stubSecrets(t)

	_, err := h.run("docs", "download", doc.ID, "--pin", "1234")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(h.cfg.DownloadDir, "keys.txt"))
	assert.Zero(t, h.srv.Hits("/api/documents/verify-pin/"+doc.ID))
}

func TestDownloadProtectedCancelledByEmptyPin(t *testing.T) {
	h := newHarness(t, "")
	h.signIn(t, alice)
	doc := h.srv.AddDocument(model.Document{OriginalName: "keys.txt", MimeType: "text/plain", AccessLevel: model.AccessProtected, UploadedBy: owner(bob)}, []byte("secret"), "1234")
	stubSecrets(t, "")

	_, err := h.run("docs", "download", doc.ID)
	require.ErrorIs(t, err, errCancelled)

	files, err := os.ReadDir(h.cfg.DownloadDir)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Zero(t, h.srv.DownloadCount(doc.ID))
	assert.Empty(t, h.app.ctrl.Sessions())
}

func TestDownloadWrongPinFlagPromptsAgain(t *testing.T) {
	h := newHarness(t, "")
	h.signIn(t, alice)
	doc := h.srv.AddDocument(model.Document{OriginalName: "keys.txt", MimeType: "text/plain", AccessLevel: model.AccessProtected, UploadedBy: owner(bob)}, []byte("secret"), "1234")
	stubSecrets(t, "9999", "1234")

	out, err := h.run("docs", "download", doc.ID, "--pin", "0000")
	require.NoError(t, err)
	assert.Contains(t, out, "Incorrect PIN.")
	assert.Contains(t, out, "Incorrect PIN (attempt 1), try again.")
	assert.Contains(t, out, "Saved keys.txt to ")

	// the retries go straight to the download
	assert.Zero(t, h.srv.Hits("/api/documents/verify-pin/"+doc.ID))
	assert.Equal(t, 1, h.srv.DownloadCount(doc.ID))
	assert.Empty(t, h.app.ctrl.Sessions())
}

func TestDownloadWrongPinFlagCancelled(t *testing.T) {
	h := newHarness(t, "")
	h.signIn(t, alice)
	doc := h.srv.AddDocument(model.Document{OriginalName: "keys.txt", MimeType: "text/plain", AccessLevel: model.AccessProtected, UploadedBy: owner(bob)}, []byte("secret"), "1234")
	stubSecrets(t, "")

	_, err := h.run("docs", "download", doc.ID, "--pin", "0000")
	require.ErrorIs(t, err, errCancelled)
	assert.Zero(t, h.srv.DownloadCount(doc.ID))
	assert.Empty(t, h.app.ctrl.Sessions())
}

func TestLogoutForgetsRememberedPins(t *testing.T) {
	h := newHarness(t, "", func(c *config.Config) { c.PinCache = config.PinCacheSession })
	h.signIn(t, alice)
	doc := h.srv.AddDocument(model.Document{OriginalName: "keys.txt", MimeType: "text/plain", AccessLevel: model.AccessProtected, UploadedBy: owner(bob)}, []byte("secret"), "1234")
	stubSecrets(t)

	_, err := h.run("docs", "download", doc.ID, "--pin", "1234")
	require.NoError(t, err)
	out, err := h.run("docs", "download", doc.ID)
	require.NoError(t, err, "the remembered PIN is reused without a prompt")
	assert.NotContains(t, out, "is protected by a PIN")
	assert.Equal(t, 2, h.srv.DownloadCount(doc.ID))

	_, err = h.run("logout")
	require.NoError(t, err)
	h.signIn(t, alice)

	out, err = h.run("docs", "download", doc.ID)
	require.ErrorIs(t, err, io.EOF)
	assert.Contains(t, out, `"keys.txt" is protected by a PIN.`)
	assert.Equal(t, 2, h.srv.DownloadCount(doc.ID))
	assert.Empty(t, h.app.ctrl.Sessions())
}

func TestDownloadPrivateOfSomeoneElseIsDenied(t *testing.T) {
	h := newHarness(t, "")
	h.signIn(t, alice)
	doc := h.srv.AddDocument(model.Document{OriginalName: "salary.pdf", MimeType: "application/pdf", AccessLevel: model.AccessPrivate, UploadedBy: owner(bob)}, []byte("%PDF"), "")
	stubSecrets(t)

	_, err := h.run("docs", "download", doc.ID)
	require.ErrorIs(t, err, apierr.ErrForbidden)
	assert.Empty(t, h.app.ctrl.Sessions())
	assert.NoFileExists(t, filepath.Join(h.cfg.DownloadDir, "salary.pdf"))
	assert.NotEmpty(t, h.store.Token(), "a 403 must not log out")
}

func TestPreviewText(t *testing.T) {
	h := newHarness(t, "")
	h.signIn(t, alice)
	doc := h.srv.AddDocument(model.Document{OriginalName: "readme.md", MimeType: "text/markdown", AccessLevel: model.AccessPublic, UploadedBy: owner(alice)}, []byte("# Title\nbody"), "")
	locked := h.srv.AddDocument(model.Document{OriginalName: "keys.txt", MimeType: "text/plain", AccessLevel: model.AccessProtected, UploadedBy: owner(alice)}, []byte("k"), "1234")

	out, err := h.run("docs", "preview", doc.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "# Title\nbody")

	_, err = h.run("docs", "preview", locked.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docs download "+locked.ID)
}

func TestUploadRecordsJournal(t *testing.T) {
	h := newHarness(t, "")
	h.signIn(t, alice)
	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(path, []byte("quarterly numbers"), 0o600))

	out, err := h.run("docs", "upload", path, "--tags", "q1, finance", "--description", " numbers ")
	require.NoError(t, err)
	assert.Contains(t, out, "Uploaded report.txt as public (version 1")

	out, err = h.run("docs", "upload", path)
	require.NoError(t, err)
	assert.Contains(t, out, "(version 2")

	entries, err := h.journal.List(context.Background(), journal.Filter{Action: journal.ActionUpload})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestUploadProtectedPromptsForPin(t *testing.T) {
	h := newHarness(t, "")
	h.signIn(t, alice)
	path := filepath.Join(t.TempDir(), "keys.txt")
	require.NoError(t, os.WriteFile(path, []byte("k"), 0o600))
	stubSecrets(t, "12")

	_, err := h.run("docs", "upload", path, "--access", "protected")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 4 characters")
	assert.Zero(t, h.srv.Hits("/api/documents/upload"))
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	h := newHarness(t, "n\ny\n")
	h.signIn(t, alice)
	doc := h.srv.AddDocument(model.Document{OriginalName: "old.txt", MimeType: "text/plain", AccessLevel: model.AccessPublic, UploadedBy: owner(alice)}, []byte("x"), "")

	_, err := h.run("docs", "delete", doc.ID)
	require.ErrorIs(t, err, errCancelled)

	out, err := h.run("docs", "delete", doc.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted old.txt")

	_, err = h.run("docs", "show", doc.ID)
	require.Error(t, err)
}

func TestDashboard(t *testing.T) {
	h := newHarness(t, "")
	h.signIn(t, alice)
	h.srv.AddDocument(model.Document{OriginalName: "a.png", MimeType: "image/png", Category: model.CategoryImage, AccessLevel: model.AccessPublic, UploadedBy: owner(alice)}, []byte("png"), "")
	h.srv.AddDocument(model.Document{OriginalName: "b.txt", MimeType: "text/plain", Category: model.CategoryDocument, AccessLevel: model.AccessProtected, UploadedBy: owner(bob)}, []byte("b"), "1234")
	h.srv.AddDocument(model.Document{OriginalName: "c.pdf", MimeType: "application/pdf", Category: model.CategoryPDF, AccessLevel: model.AccessPrivate, UploadedBy: owner(bob)}, []byte("c"), "")

	out, err := h.run("dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome back, alice")
	assert.Contains(t, out, "Public (1)")
	assert.Contains(t, out, "Private (0)")
	assert.Contains(t, out, "Protected (1)")
	assert.Contains(t, out, "Recent (3)")
}

func TestDashboardReportsServerTotal(t *testing.T) {
	h := newHarness(t, "", func(c *config.Config) { c.DashboardLimit = 2 })
	h.signIn(t, alice)
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		h.srv.AddDocument(model.Document{OriginalName: name, MimeType: "text/plain", Category: model.CategoryDocument, AccessLevel: model.AccessPublic, UploadedBy: owner(alice)}, []byte(name), "")
	}

	out, err := h.run("dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "3 (showing 2)")
	assert.Contains(t, out, "Public (2)")
}

func TestDashboardDownloadPromptsForPin(t *testing.T) {
	h := newHarness(t, "")
	h.signIn(t, alice)
	h.srv.AddDocument(model.Document{OriginalName: "a.png", MimeType: "image/png", Category: model.CategoryImage, AccessLevel: model.AccessPublic, UploadedBy: owner(alice)}, []byte("png"), "")
	locked := h.srv.AddDocument(model.Document{OriginalName: "keys.txt", MimeType: "text/plain", Category: model.CategoryDocument, AccessLevel: model.AccessProtected, UploadedBy: owner(bob)}, []byte("secret"), "1234")
	stubSecrets(t, "1234")

	out, err := h.run("dashboard", "--download", locked.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Protected (1)")
	assert.Contains(t, out, `"keys.txt" is protected by a PIN.`)
	assert.Contains(t, out, "Saved keys.txt to ")
	assert.Zero(t, h.srv.Hits("/api/documents/"+locked.ID), "the listed descriptor is used as is")

	content, err := os.ReadFile(filepath.Join(h.cfg.DownloadDir, "keys.txt"))
	require.NoError(t, err)
	assert.Equal(t, "secret", string(content))
	assert.Equal(t, 1, h.srv.Hits("/api/documents/verify-pin/"+locked.ID))

	entries, err := h.journal.List(context.Background(), journal.Filter{UserID: alice.ID, Action: journal.ActionDownload})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, locked.ID, entries[0].DocumentID)

	_, err = h.run("dashboard", "--download", "missing")
	assert.ErrorContains(t, err, "not on the dashboard")
}

func TestAdminCommands(t *testing.T) {
	h := newHarness(t, "")
	h.signIn(t, bob)

	_, err := h.run("admin", "users")
	require.ErrorIs(t, err, errNotAdmin)

	h.signIn(t, root)
	out, err := h.run("admin", "users")
	require.NoError(t, err)
	assert.Contains(t, out, "bob@example.com")
	assert.Contains(t, out, "root@example.com")

	_, err = h.run("admin", "role", bob.ID, "superuser")
	assert.ErrorContains(t, err, `unknown role "superuser"`)

	_, err = h.run("admin", "role", bob.ID, "admin")
	require.NoError(t, err)
	u, _ := h.srv.User(bob.ID)
	assert.Equal(t, model.RoleAdmin, u.Role)

	_, err = h.run("admin", "toggle", bob.ID)
	require.NoError(t, err)
	u, _ = h.srv.User(bob.ID)
	assert.False(t, u.IsActive)
}

func TestExportSkipsWhatNeedsAPin(t *testing.T) {
	h := newHarness(t, "")
	h.signIn(t, alice)
	h.srv.AddDocument(model.Document{OriginalName: "public.txt", MimeType: "text/plain", AccessLevel: model.AccessPublic, UploadedBy: owner(bob)}, []byte("pub"), "")
	h.srv.AddDocument(model.Document{OriginalName: "mine.txt", MimeType: "text/plain", AccessLevel: model.AccessPrivate, UploadedBy: owner(alice)}, []byte("mine"), "")
	h.srv.AddDocument(model.Document{OriginalName: "keys.txt", MimeType: "text/plain", AccessLevel: model.AccessProtected, UploadedBy: owner(bob)}, []byte("k"), "1234")
	h.srv.AddDocument(model.Document{OriginalName: "theirs.txt", MimeType: "text/plain", AccessLevel: model.AccessPrivate, UploadedBy: owner(bob)}, []byte("no"), "")
	stubSecrets(t)

	out, err := h.run("export")
	require.NoError(t, err)
	assert.Contains(t, out, "saved 2")
	assert.Contains(t, out, "skipped 2")
	assert.FileExists(t, filepath.Join(h.cfg.DownloadDir, "public.txt"))
	assert.FileExists(t, filepath.Join(h.cfg.DownloadDir, "mine.txt"))
	assert.NoFileExists(t, filepath.Join(h.cfg.DownloadDir, "keys.txt"))
	assert.NoFileExists(t, filepath.Join(h.cfg.DownloadDir, "theirs.txt"))

	out, err = h.run("history", "--action", "export")
	require.NoError(t, err)
	assert.Contains(t, out, "public.txt")
	assert.Contains(t, out, "mine.txt")
}

func TestExportQueueNeedsRedis(t *testing.T) {
	h := newHarness(t, "")
	h.signIn(t, alice)

	_, err := h.run("export", "--queue")
	assert.ErrorContains(t, err, "VAULTDESK_REDIS_ADDR")

	h.cfg.Redis.Addr = "localhost:6379"
	_, err = h.run("export", "--queue")
	assert.ErrorContains(t, err, "VAULTDESK_SIGNING_SECRET")
}

func TestHistoryEmpty(t *testing.T) {
	h := newHarness(t, "")
	h.signIn(t, alice)

	out, err := h.run("history")
	require.NoError(t, err)
	assert.Contains(t, out, "No history yet.")
}
