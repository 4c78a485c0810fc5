package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dharsanguruparan/vaultdesk/internal/apierr"
	"github.com/dharsanguruparan/vaultdesk/internal/model"
)

// ListDocuments returns one page of the documents visible to the caller.
func (c *Client) ListDocuments(ctx context.Context, f model.ListFilter) (model.DocumentPage, error) {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", string(f.Category))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q.Set("search", s)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.ShowAllVersions {
		q.Set("showAllVersions", "true")
	}
	var page model.DocumentPage
	if err := c.call(ctx, http.MethodGet, "/api/documents", q, nil, &page, pinNone); err != nil {
		return model.DocumentPage{}, err
	}
	if page.CurrentPage == 0 {
		page.CurrentPage = 1
	}
	return page, nil
}

// Document fetches a single descriptor.
func (c *Client) Document(ctx context.Context, id string) (model.Document, error) {
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodGet, "/api/documents/"+escape(id), nil, nil, &raw, pinNone); err != nil {
		return model.Document{}, err
	}
	return decodeDocument(raw)
}

// Versions lists every stored version of a document.
func (c *Client) Versions(ctx context.Context, id string) ([]model.Document, error) {
	var out struct {
		Versions []model.Document `json:"versions"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/documents/"+escape(id)+"/versions", nil, nil, &out, pinNone); err != nil {
		return nil, err
	}
	return out.Versions, nil
}

// Delete removes a document.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/documents/"+escape(id), nil, nil, nil, pinNone)
}

// VerifyPIN checks a PIN without downloading. A wrong PIN is PinRejected.
func (c *Client) VerifyPIN(ctx context.Context, id, pin string) error {
	in := map[string]string{"pin": pin}
	return c.call(ctx, http.MethodPost, "/api/documents/verify-pin/"+escape(id), nil, in, nil, pinVerify)
}

// Download streams a document. The returned blob holds the download timeout
// until its body is closed. A protected document without a PIN fails with
// PinRequired; with a wrong PIN, PinRejected.
func (c *Client) Download(ctx context.Context, id, pin string) (*model.Blob, error) {
	q := url.Values{}
	pc := pinAbsent
	if pin != "" {
		q.Set("pin", pin)
		pc = pinSupplied
	}
	return c.fetchBlob(ctx, "/api/documents/download/"+escape(id), q, c.downloadTimeout, pc, "download")
}

// Preview fetches the inline rendition of a document.
func (c *Client) Preview(ctx context.Context, id string) (*model.Blob, error) {
	return c.fetchBlob(ctx, "/api/documents/preview/"+escape(id), nil, c.previewTimeout, pinAbsent, "preview")
}

func (c *Client) fetchBlob(ctx context.Context, path string, q url.Values, timeout time.Duration, pc pinContext, op string) (*model.Blob, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, q), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, classifyTransport(err, op)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer cancel()
		defer resp.Body.Close()
		return nil, decodeError(resp, pc)
	}

	blob := &model.Blob{
		Filename: filenameFrom(resp.Header.Get("Content-Disposition")),
		MimeType: mediaType(resp.Header.Get("Content-Type")),
		Size:     resp.ContentLength,
		Body: &cancelOnClose{
			ReadCloser: resp.Body,
			ctx:        ctx,
			cancel:     cancel,
			op:         op,
		},
	}
	return blob, nil
}

// cancelOnClose releases the request context together with the body and
// reports a read that outlived its deadline as a timeout.
type cancelOnClose struct {
	io.ReadCloser
	ctx    context.Context
	cancel context.CancelFunc
	op     string
}

func (b *cancelOnClose) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err != nil && err != io.EOF {
		return n, classifyRead(b.ctx, err, b.op)
	}
	return n, err
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func filenameFrom(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}

func mediaType(contentType string) string {
	if contentType == "" {
		return "application/octet-stream"
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType
	}
	return mt
}

func decodeDocument(raw json.RawMessage) (model.Document, error) {
	var wrapped struct {
		Document *model.Document `json:"document"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Document != nil {
		return *wrapped.Document, nil
	}
	var doc model.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return model.Document{}, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// UploadRequest carries one file and its metadata.
type UploadRequest struct {
	Filename    string
	ContentType string
	Content     io.Reader
	Description string
	Tags        []string
	AccessLevel model.AccessLevel
	PIN         string
}

// Upload sends a multipart upload. The body is streamed, never buffered.
func (c *Client) Upload(ctx context.Context, up UploadRequest) (model.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(mw, up))
	}()
	defer pr.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/documents/upload", nil), pr)
	if err != nil {
		return model.Document{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return model.Document{}, classifyTransport(err, "upload")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.Document{}, decodeError(resp, pinNone)
	}

	var raw json.RawMessage
	if err := decodeJSON(resp, &raw); err != nil {
		return model.Document{}, classifyRead(ctx, err, "upload")
	}
	if len(raw) == 0 {
		return model.Document{}, apierr.New(apierr.KindServer, resp.StatusCode, "empty upload response")
	}
	return decodeDocument(raw)
}

func writeUploadForm(mw *multipart.Writer, up UploadRequest) error {
	fields := []struct{ name, value string }{
		{"description", up.Description},
		{"tags", strings.Join(up.Tags, ",")},
		{"accessLevel", string(up.AccessLevel)},
	}
	if up.AccessLevel == model.AccessProtected {
		fields = append(fields, struct{ name, value string }{"accessPin", up.PIN})
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="document"; filename=%q`, up.Filename))
	ct := up.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, up.Content); err != nil {
		return err
	}
	return mw.Close()
}
