// Package save writes downloaded blobs somewhere durable. Every sink takes
// ownership of the blob it is handed and closes it on every path.
package save

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/dharsanguruparan/vaultdesk/internal/model"
)

// ErrNoBlob is returned when a sink is handed nothing to write.
var ErrNoBlob = errors.New("nothing to save")

// Saved describes where a blob ended up.
type Saved struct {
	Location string
	Bytes    int64
}

// Sink stores a downloaded blob.
type Sink interface {
	Save(ctx context.Context, doc model.Document, blob *model.Blob) (Saved, error)
}

// Filename picks the name to store a blob under: the server's
// Content-Disposition name, then the document name, then its ID.
func Filename(doc model.Document, blob *model.Blob) string {
	var name string
	if blob != nil {
		name = blob.Filename
	}
	if name == "" {
		name = doc.OriginalName
	}
	name = sanitize(name)
	if name == "" {
		name = sanitize(doc.ID)
	}
	if name == "" {
		name = "download"
	}
	return name
}

// sanitize strips directory components so a hostile filename cannot escape
// the target directory.
func sanitize(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(filepath.Clean("/" + name))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if name == "/" || name == "." || name == ".." {
		return ""
	}
	return strings.TrimSpace(name)
}
