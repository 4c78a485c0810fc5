// Package upload validates the upload form and streams the file to the API.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/vaultdesk/internal/api"
	"github.com/dharsanguruparan/vaultdesk/internal/apierr"
	"github.com/dharsanguruparan/vaultdesk/internal/model"
	"github.com/dharsanguruparan/vaultdesk/internal/validation"
)

var (
	ErrFileTooLarge = errors.New("file exceeds upload limit")
	ErrEmptyFile    = errors.New("empty file")
	ErrPinRequired  = errors.New("protected documents need a pin of at least 4 characters")
)

const sniffLen = 512

// Form is what the user fills in.
type Form struct {
	Path        string            `validate:"required"`
	Description string            `validate:"max=500"`
	Tags        []string          `validate:"max=20,dive,required,max=40"`
	AccessLevel model.AccessLevel `validate:"required,oneof=public private protected" name:"access level"`
	PIN         string            `validate:"omitempty,min=4,max=20" name:"pin"`
}

// ParseTags splits a comma separated tag list, dropping blanks.
func ParseTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Uploader is the API side of an upload.
type Uploader interface {
	Upload(ctx context.Context, req api.UploadRequest) (model.Document, error)
}

// Service validates and sends uploads.
type Service struct {
	uploader Uploader
	validate *validator.Validate
	maxBytes int64
	logger   *zap.Logger
}

// NewService builds a service. validate may be nil.
func NewService(uploader Uploader, validate *validator.Validate, maxBytes int64, logger *zap.Logger) *Service {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{uploader: uploader, validate: validate, maxBytes: maxBytes, logger: logger}
}

// Validate checks the form without touching the file.
func (s *Service) Validate(f Form) error {
	if f.AccessLevel == "" {
		f.AccessLevel = model.AccessPublic
	}
	if err := validation.Struct(s.validate, f); err != nil {
		return err
	}
	if f.AccessLevel == model.AccessProtected && f.PIN == "" {
		return apierr.Wrap(ErrPinRequired, apierr.KindValidation, "invalid upload form")
	}
	return nil
}

// Upload validates f, opens the file and streams it.
func (s *Service) Upload(ctx context.Context, f Form) (model.Document, error) {
	if f.AccessLevel == "" {
		f.AccessLevel = model.AccessPublic
	}
	if err := s.Validate(f); err != nil {
		return model.Document{}, err
	}
	req, closer, err := s.Open(f)
	if err != nil {
		return model.Document{}, err
	}
	defer closer.Close()

	doc, err := s.uploader.Upload(ctx, req)
	if err != nil {
		return model.Document{}, err
	}
	s.logger.Info("uploaded", zap.String("document_id", doc.ID), zap.String("name", doc.OriginalName), zap.Int("version", doc.Version))
	return doc, nil
}

// Open prepares the request body for f. The caller closes the returned
// closer once the upload finishes.
func (s *Service) Open(f Form) (api.UploadRequest, io.Closer, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return api.UploadRequest{}, nil, fmt.Errorf("open upload: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return api.UploadRequest{}, nil, fmt.Errorf("stat upload: %w", err)
	}
	if info.IsDir() {
		file.Close()
		return api.UploadRequest{}, nil, fmt.Errorf("%s is a directory", f.Path)
	}
	if info.Size() == 0 {
		file.Close()
		return api.UploadRequest{}, nil, apierr.Wrap(ErrEmptyFile, apierr.KindValidation, "invalid upload")
	}
	if s.maxBytes > 0 && info.Size() > s.maxBytes {
		file.Close()
		return api.UploadRequest{}, nil, apierr.Wrap(fmt.Errorf("%w (%d bytes)", ErrFileTooLarge, s.maxBytes), apierr.KindValidation, "invalid upload")
	}

	sniff := make([]byte, sniffLen)
	n, err := io.ReadFull(file, sniff)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		file.Close()
		return api.UploadRequest{}, nil, fmt.Errorf("read upload: %w", err)
	}
	sniff = sniff[:n]

	pin := ""
	if f.AccessLevel == model.AccessProtected {
		pin = f.PIN
	}
	req := api.UploadRequest{
		Filename:    filepath.Base(f.Path),
		ContentType: ContentType(f.Path, sniff),
		Content:     io.MultiReader(bytes.NewReader(sniff), file),
		Description: strings.TrimSpace(f.Description),
		Tags:        f.Tags,
		AccessLevel: f.AccessLevel,
		PIN:         pin,
	}
	return req, file, nil
}

// ContentType prefers the registered type for the extension and falls back
// to sniffing the first bytes.
func ContentType(path string, head []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			return mt
		}
		return ct
	}
	ct := http.DetectContentType(head)
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return ct
}

// CategoryFor mirrors how the server files uploads.
func CategoryFor(mimeType string) model.Category {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return model.CategoryImage
	case mimeType == "application/pdf":
		return model.CategoryPDF
	case strings.HasPrefix(mimeType, "text/"),
		strings.Contains(mimeType, "word"),
		strings.Contains(mimeType, "officedocument"),
		strings.Contains(mimeType, "opendocument"):
		return model.CategoryDocument
	default:
		return model.CategoryOther
	}
}
