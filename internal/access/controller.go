package access

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/vaultdesk/internal/apierr"
	"github.com/dharsanguruparan/vaultdesk/internal/model"
)

var (
	// ErrNeedsPin matches a *ChallengeError.
	ErrNeedsPin = errors.New("document requires a pin")
	// ErrSessionAbandoned is returned when a result arrives for a challenge
	// that was cancelled or replaced while the call was in flight.
	ErrSessionAbandoned = errors.New("pin challenge was abandoned")
	// ErrNoChallenge is returned when a PIN is submitted for a document with
	// no open challenge.
	ErrNoChallenge = errors.New("no pin challenge open for document")
	// ErrNotVerified is returned by DownloadVerified before a successful
	// VerifyPIN.
	ErrNotVerified = errors.New("pin has not been verified")
	// ErrEmptyPin rejects blank PIN submissions locally.
	ErrEmptyPin = errors.New("pin must not be empty")
	// ErrAccessDenied is the server refusing the principal outright.
	ErrAccessDenied = apierr.ErrForbidden
)

// DocumentStore is the remote side of a download.
type DocumentStore interface {
	Download(ctx context.Context, id, pin string) (*model.Blob, error)
	VerifyPIN(ctx context.Context, id, pin string) error
}

// PinPolicy controls whether accepted PINs are remembered.
type PinPolicy int

const (
	// PinCacheNone prompts for every protected download.
	PinCacheNone PinPolicy = iota
	// PinCacheSession remembers the last accepted PIN per document for the
	// controller's lifetime and forgets it on the first rejection.
	PinCacheSession
)

// ParsePinPolicy maps a configuration value to a policy.
func ParsePinPolicy(s string) (PinPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return PinCacheNone, nil
	case "session":
		return PinCacheSession, nil
	default:
		return PinCacheNone, fmt.Errorf("unknown pin cache policy %q", s)
	}
}

// Session is a snapshot of an open PIN challenge.
type Session struct {
	DocumentID   string
	DocumentName string
	Document     model.Document
	OpenedAt     time.Time
	Attempts     int
	Verified     bool
}

type session struct {
	doc         model.Document
	openedAt    time.Time
	attempts    int
	verifiedPin string
}

func (s *session) snapshot() Session {
	return Session{
		DocumentID:   s.doc.ID,
		DocumentName: s.doc.OriginalName,
		Document:     s.doc,
		OpenedAt:     s.openedAt,
		Attempts:     s.attempts,
		Verified:     s.verifiedPin != "",
	}
}

// ChallengeError reports that a download needs a PIN. Fresh is false when
// the challenge was already open, so a caller racing another attempt on the
// same document knows someone is already prompting.
type ChallengeError struct {
	Session Session
	Fresh   bool
}

func (e *ChallengeError) Error() string {
	return fmt.Sprintf("%q requires a pin", e.Session.DocumentName)
}

// Is makes errors.Is(err, ErrNeedsPin) work.
func (e *ChallengeError) Is(target error) bool {
	return target == ErrNeedsPin
}

// Option configures a Controller.
type Option func(*Controller)

// WithPinPolicy sets the PIN cache policy.
func WithPinPolicy(p PinPolicy) Option {
	return func(c *Controller) { c.policy = p }
}

// WithLogger sets the logger. PINs are never logged.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller sequences downloads and PIN challenges. Challenge sessions are
// keyed by document id; sessions for different documents never interact.
type Controller struct {
	store  DocumentStore
	policy PinPolicy
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	pins     map[string]string
}

// NewController builds a controller over store.
func NewController(store DocumentStore, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		logger:   zap.NewNop(),
		now:      time.Now,
		sessions: make(map[string]*session),
		pins:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AttemptDownload asks the server for the document. pin may be empty. On
// success any open challenge for the document is closed. A PIN requirement
// opens (or joins) a challenge and returns a *ChallengeError. Nothing is
// retried.
func (c *Controller) AttemptDownload(ctx context.Context, doc model.Document, pin string) (*model.Blob, error) {
	c.mu.Lock()
	started := c.sessions[doc.ID]
	cached := false
	if pin == "" && c.policy == PinCacheSession {
		if p, ok := c.pins[doc.ID]; ok {
			pin, cached = p, true
		}
	}
	c.mu.Unlock()

	blob, err := c.store.Download(ctx, doc.ID, pin)

	c.mu.Lock()
	defer c.mu.Unlock()
	current := c.sessions[doc.ID]
	if started != nil && current != started {
		_ = blob.Close()
		return nil, ErrSessionAbandoned
	}

	if err == nil {
		c.closeLocked(doc.ID, current)
		c.rememberLocked(doc.ID, pin)
		fillBlob(blob, doc)
		c.logger.Debug("download_ok", zap.String("document_id", doc.ID), zap.Bool("cached_pin", cached))
		return blob, nil
	}
	_ = blob.Close()

	switch apierr.KindOf(err) {
	case apierr.KindPinRequired:
		return nil, c.challengeLocked(doc, current)
	case apierr.KindPinRejected:
		delete(c.pins, doc.ID)
		if cached {
			// a remembered PIN went stale; prompt as if none was known
			return nil, c.challengeLocked(doc, current)
		}
		if current == nil {
			c.openLocked(doc)
		} else {
			current.attempts++
			current.verifiedPin = ""
		}
		return nil, err
	default:
		// Forbidden, NotFound, Timeout and transport failures never open a
		// challenge and are not retried.
		return nil, err
	}
}

// SubmitPIN retries a challenged download with pin, using the descriptor
// remembered when the challenge opened. A wrong PIN keeps the challenge open.
func (c *Controller) SubmitPIN(ctx context.Context, docID, pin string) (*model.Blob, error) {
	if pin == "" {
		return nil, ErrEmptyPin
	}
	c.mu.Lock()
	s, ok := c.sessions[docID]
	if !ok {
		c.mu.Unlock()
		return nil, ErrNoChallenge
	}
	s.attempts++
	doc := s.doc
	c.mu.Unlock()

	return c.download(ctx, s, doc, pin)
}

// VerifyPIN checks pin before downloading. On success the challenge is
// marked verified so DownloadVerified can repeat the download alone if it
// fails; on rejection the challenge stays open.
func (c *Controller) VerifyPIN(ctx context.Context, docID, pin string) error {
	if pin == "" {
		return ErrEmptyPin
	}
	c.mu.Lock()
	s, ok := c.sessions[docID]
	if !ok {
		c.mu.Unlock()
		return ErrNoChallenge
	}
	s.attempts++
	c.mu.Unlock()

	err := c.store.VerifyPIN(ctx, docID, pin)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessions[docID] != s {
		return ErrSessionAbandoned
	}
	if err != nil {
		if apierr.KindOf(err) == apierr.KindPinRejected {
			s.verifiedPin = ""
			delete(c.pins, docID)
		}
		return err
	}
	s.verifiedPin = pin
	return nil
}

// DownloadVerified repeats the download for a challenge whose PIN already
// passed VerifyPIN, without asking for the PIN again.
func (c *Controller) DownloadVerified(ctx context.Context, docID string) (*model.Blob, error) {
	c.mu.Lock()
	s, ok := c.sessions[docID]
	if !ok {
		c.mu.Unlock()
		return nil, ErrNoChallenge
	}
	pin, doc := s.verifiedPin, s.doc
	c.mu.Unlock()
	if pin == "" {
		return nil, ErrNotVerified
	}
	return c.download(ctx, s, doc, pin)
}

func (c *Controller) download(ctx context.Context, s *session, doc model.Document, pin string) (*model.Blob, error) {
	blob, err := c.store.Download(ctx, doc.ID, pin)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessions[doc.ID] != s {
		_ = blob.Close()
		return nil, ErrSessionAbandoned
	}
	if err == nil {
		c.closeLocked(doc.ID, s)
		c.rememberLocked(doc.ID, pin)
		fillBlob(blob, doc)
		c.logger.Debug("download_ok", zap.String("document_id", doc.ID), zap.Int("attempts", s.attempts))
		return blob, nil
	}
	_ = blob.Close()

	switch apierr.KindOf(err) {
	case apierr.KindPinRejected:
		s.verifiedPin = ""
		delete(c.pins, doc.ID)
	case apierr.KindPinRequired:
		return nil, &ChallengeError{Session: s.snapshot()}
	case apierr.KindForbidden, apierr.KindNotFound:
		c.closeLocked(doc.ID, s)
	}
	return nil, err
}

// Cancel closes the challenge for docID. In-flight calls against it will
// return ErrSessionAbandoned. It reports whether a challenge was open.
func (c *Controller) Cancel(docID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[docID]
	if ok {
		c.closeLocked(docID, s)
		c.logger.Debug("challenge_cancelled", zap.String("document_id", docID))
	}
	return ok
}

// CancelAll closes every open challenge.
func (c *Controller) CancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, s := range c.sessions {
		c.closeLocked(id, s)
	}
}

// Session returns a snapshot of the challenge for docID.
func (c *Controller) Session(docID string) (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[docID]
	if !ok {
		return Session{}, false
	}
	return s.snapshot(), true
}

// Sessions lists open challenges, oldest first.
func (c *Controller) Sessions() []Session {
	c.mu.Lock()
	out := make([]Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		out = append(out, s.snapshot())
	}
	c.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

// ForgetPins drops every remembered PIN.
func (c *Controller) ForgetPins() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pins = make(map[string]string)
}

func (c *Controller) challengeLocked(doc model.Document, current *session) error {
	if current != nil {
		return &ChallengeError{Session: current.snapshot(), Fresh: false}
	}
	s := c.openLocked(doc)
	return &ChallengeError{Session: s.snapshot(), Fresh: true}
}

func (c *Controller) openLocked(doc model.Document) *session {
	s := &session{doc: doc, openedAt: c.now()}
	c.sessions[doc.ID] = s
	c.logger.Debug("challenge_opened", zap.String("document_id", doc.ID))
	return s
}

// closeLocked removes s only if it is still the session on record.
func (c *Controller) closeLocked(docID string, s *session) {
	if s != nil && c.sessions[docID] == s {
		delete(c.sessions, docID)
	}
}

func (c *Controller) rememberLocked(docID, pin string) {
	if c.policy == PinCacheSession && pin != "" {
		c.pins[docID] = pin
	}
}

func fillBlob(blob *model.Blob, doc model.Document) {
	if blob == nil {
		return
	}
	if blob.Filename == "" {
		blob.Filename = doc.OriginalName
	}
	if blob.MimeType == "" || blob.MimeType == "application/octet-stream" {
		if doc.MimeType != "" {
			blob.MimeType = doc.MimeType
		}
	}
	if blob.Size < 0 {
		blob.Size = doc.Size
	}
}
