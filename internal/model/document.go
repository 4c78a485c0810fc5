// Package model contains the document, user and payload types shared across
// packages. The JSON tags follow the remote API's wire names.
package model

import (
	"io"
	"time"
)

// AccessLevel is who may download a document.
type AccessLevel string

const (
	AccessPublic    AccessLevel = "public"
	AccessPrivate   AccessLevel = "private"
	AccessProtected AccessLevel = "protected"
)

// Valid reports whether the level is one the client understands.
func (a AccessLevel) Valid() bool {
	switch a {
	case AccessPublic, AccessPrivate, AccessProtected:
		return true
	}
	return false
}

// Category groups documents by broad file type.
type Category string

const (
	CategoryImage    Category = "image"
	CategoryPDF      Category = "pdf"
	CategoryDocument Category = "document"
	CategoryOther    Category = "other"
)

// Categories lists the filterable categories in display order.
var Categories = []Category{CategoryImage, CategoryPDF, CategoryDocument, CategoryOther}

// Owner identifies the uploading user of a document.
type Owner struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Document is the descriptor returned by the listing and detail endpoints.
type Document struct {
	ID              string      `json:"_id"`
	OriginalName    string      `json:"originalName"`
	MimeType        string      `json:"mimetype"`
	Size            int64       `json:"size"`
	Category        Category    `json:"category"`
	AccessLevel     AccessLevel `json:"accessLevel"`
	UploadedBy      Owner       `json:"uploadedBy"`
	Description     string      `json:"description,omitempty"`
	Tags            []string    `json:"tags"`
	Version         int         `json:"version"`
	IsLatestVersion bool        `json:"isLatestVersion"`
	DownloadCount   int         `json:"downloadCount"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// OwnerID returns the identifier of the uploading user.
func (d Document) OwnerID() string {
	return d.UploadedBy.ID
}

// HasPin is derived: only protected documents carry a PIN.
func (d Document) HasPin() bool {
	return d.AccessLevel == AccessProtected
}

// ListFilter captures the document browser filters.
type ListFilter struct {
	Category        Category
	Search          string
	Page            int
	Limit           int
	ShowAllVersions bool
}

// DocumentPage is one page of the document listing.
type DocumentPage struct {
	Documents   []Document `json:"documents"`
	Total       int        `json:"total"`
	TotalPages  int        `json:"totalPages"`
	CurrentPage int        `json:"currentPage"`
}

// Blob is a downloaded payload. Body streams the content and must be closed
// by whoever ends up holding the blob, on every exit path.
type Blob struct {
	Filename string
	MimeType string
	Size     int64
	Body     io.ReadCloser
}

// Close releases the underlying body. It is safe to call on a nil blob.
func (b *Blob) Close() error {
	if b == nil || b.Body == nil {
		return nil
	}
	return b.Body.Close()
}
