package save

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dharsanguruparan/vaultdesk/internal/model"
)

const maxNameAttempts = 1000

// LocalSink writes blobs into a directory and never overwrites an existing
// file: "report.pdf" becomes "report (1).pdf" and so on.
type LocalSink struct {
	dir string
}

// NewLocalSink returns a sink rooted at dir. The directory is created on
// first use.
func NewLocalSink(dir string) *LocalSink {
	return &LocalSink{dir: dir}
}

// Dir returns the target directory.
func (s *LocalSink) Dir() string {
	return s.dir
}

// Save copies the blob into a fresh file.
func (s *LocalSink) Save(ctx context.Context, doc model.Document, blob *model.Blob) (Saved, error) {
	if blob == nil || blob.Body == nil {
		return Saved{}, ErrNoBlob
	}
	defer blob.Close()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Saved{}, fmt.Errorf("create download dir: %w", err)
	}
	f, path, err := createUnique(s.dir, Filename(doc, blob))
	if err != nil {
		return Saved{}, err
	}

	n, err := io.Copy(f, &ctxReader{ctx: ctx, r: blob.Body})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return Saved{}, fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return Saved{Location: path, Bytes: n}, nil
}

func createUnique(dir, name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		stem, ext = name, ""
	}
	for i := 0; i < maxNameAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("create %s: %w", candidate, err)
		}
	}
	return nil, "", fmt.Errorf("no free file name for %s in %s", name, dir)
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
