// Package journal records what the client did: downloads, uploads, deletes
// and exports. The history command reads it back.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an entry does not exist.
var ErrNotFound = errors.New("journal entry not found")

// Action is what happened to a document.
type Action string

const (
	ActionDownload   Action = "download"
	ActionUpload     Action = "upload"
	ActionDelete     Action = "delete"
	ActionExport     Action = "export"
	ActionExportSkip Action = "export_skip"
)

// Entry is one recorded action.
type Entry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Action     Action    `json:"action"`
	DocumentID string    `json:"documentId"`
	Name       string    `json:"name"`
	Bytes      int64     `json:"bytes"`
	Location   string    `json:"location,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	At         time.Time `json:"at"`
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	UserID string
	Action Action
	Limit  int
}

const defaultLimit = 20

// Journal stores entries.
type Journal interface {
	Record(ctx context.Context, e Entry) (Entry, error)
	List(ctx context.Context, f Filter) ([]Entry, error)
	Get(ctx context.Context, id string) (Entry, error)
}

// stamp fills the ID and timestamp of a new entry.
func stamp(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	e.At = e.At.UTC()
	return e
}

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return defaultLimit
	}
	return f.Limit
}

func (f Filter) match(e Entry) bool {
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	return true
}

var (
	_ Journal = (*MemoryJournal)(nil)
	_ Journal = (*PostgresJournal)(nil)
)
