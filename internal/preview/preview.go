// Package preview renders documents for the terminal: text inline, PDF as
// extracted text, images as a dimensions summary.
package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dharsanguruparan/vaultdesk/internal/model"
)

// Kind is how a document can be previewed.
type Kind int

const (
	KindUnsupported Kind = iota
	KindImage
	KindPDF
	KindText
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindPDF:
		return "pdf"
	case KindText:
		return "text"
	default:
		return "unsupported"
	}
}

// ErrUnsupported is returned for documents that have no preview.
var ErrUnsupported = errors.New("preview not available for this file type")

var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".json": true, ".xml": true, ".csv": true, ".log": true,
}

// Classify picks a preview kind from the mimetype, falling back to the file
// extension for text.
func Classify(mimeType, filename string) Kind {
	mt := strings.ToLower(mimeType)
	switch {
	case strings.HasPrefix(mt, "image/"):
		return KindImage
	case mt == "application/pdf":
		return KindPDF
	case strings.HasPrefix(mt, "text/"):
		return KindText
	}
	if textExtensions[strings.ToLower(filepath.Ext(filename))] {
		return KindText
	}
	return KindUnsupported
}

// Fetcher retrieves the preview payload.
type Fetcher interface {
	Preview(ctx context.Context, id string) (*model.Blob, error)
}

// Result is a rendered preview.
type Result struct {
	Kind      Kind
	Text      string
	Truncated bool
	Pages     int
	Width     int
	Height    int
	Format    string
	Bytes     int64
}

const (
	DefaultMaxText = 64 << 10
	DefaultMaxPDF  = 20 << 20
	DefaultMaxImg  = 20 << 20
)

// Renderer fetches and renders previews.
type Renderer struct {
	fetcher Fetcher
	// MaxText caps how much text is shown.
	MaxText int64
	// MaxPDF caps how much of a PDF is read for extraction.
	MaxPDF int64
}

// NewRenderer returns a renderer with default caps.
func NewRenderer(f Fetcher) *Renderer {
	return &Renderer{fetcher: f, MaxText: DefaultMaxText, MaxPDF: DefaultMaxPDF}
}

// Render previews doc. Unsupported types fail before any request is made.
func (r *Renderer) Render(ctx context.Context, doc model.Document) (Result, error) {
	kind := Classify(doc.MimeType, doc.OriginalName)
	if kind == KindUnsupported {
		return Result{Kind: kind}, ErrUnsupported
	}

	blob, err := r.fetcher.Preview(ctx, doc.ID)
	if err != nil {
		return Result{Kind: kind}, err
	}
	defer blob.Close()

	switch kind {
	case KindText:
		return renderText(blob.Body, r.MaxText)
	case KindPDF:
		return renderPDF(blob.Body, r.MaxPDF)
	default:
		return renderImage(blob.Body)
	}
}

func renderText(body io.Reader, max int64) (Result, error) {
	if max <= 0 {
		max = DefaultMaxText
	}
	data, err := io.ReadAll(io.LimitReader(body, max+1))
	if err != nil {
		return Result{Kind: KindText}, fmt.Errorf("read text preview: %w", err)
	}
	res := Result{Kind: KindText}
	if int64(len(data)) > max {
		data = data[:max]
		res.Truncated = true
		// don't end on half a rune
		for i := 0; i < utf8.UTFMax-1 && len(data) > 0; i++ {
			if r, size := utf8.DecodeLastRune(data); r != utf8.RuneError || size > 1 {
				break
			}
			data = data[:len(data)-1]
		}
	}
	res.Bytes = int64(len(data))
	res.Text = strings.ToValidUTF8(string(data), "�")
	return res, nil
}

func renderPDF(body io.Reader, max int64) (Result, error) {
	if max <= 0 {
		max = DefaultMaxPDF
	}
	data, err := io.ReadAll(io.LimitReader(body, max+1))
	if err != nil {
		return Result{Kind: KindPDF}, fmt.Errorf("read pdf preview: %w", err)
	}
	if int64(len(data)) > max {
		return Result{Kind: KindPDF, Bytes: int64(len(data))}, fmt.Errorf("pdf larger than %d bytes", max)
	}
	text, pages, err := ExtractText(data)
	if err != nil {
		return Result{Kind: KindPDF, Bytes: int64(len(data))}, err
	}
	return Result{Kind: KindPDF, Text: text, Pages: pages, Bytes: int64(len(data))}, nil
}

func renderImage(body io.Reader) (Result, error) {
	data, err := io.ReadAll(io.LimitReader(body, DefaultMaxImg))
	if err != nil {
		return Result{Kind: KindImage}, fmt.Errorf("read image preview: %w", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		// formats without a registered decoder still get a size summary
		return Result{Kind: KindImage, Bytes: int64(len(data))}, nil
	}
	return Result{Kind: KindImage, Width: cfg.Width, Height: cfg.Height, Format: format, Bytes: int64(len(data))}, nil
}
