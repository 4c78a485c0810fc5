package access

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/vaultdesk/internal/apierr"
	"github.com/dharsanguruparan/vaultdesk/internal/model"
)

func ctxT(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

type trackedBody struct {
	io.Reader
	closed atomic.Bool
}

func (b *trackedBody) Close() error {
	b.closed.Store(true)
	return nil
}

type fakeDoc struct {
	doc model.Document
	pin string
}

// fakeStore models the server: protected documents demand their PIN,
// private ones refuse everybody, unknown ids are not found.
type fakeStore struct {
	mu        sync.Mutex
	docs      map[string]fakeDoc
	downloads map[string]int
	pinsSeen  map[string][]string
	verifies  int
	failNext  map[string]error
	gate      chan struct{}
	entered   chan string
	bodies    []*trackedBody
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:      make(map[string]fakeDoc),
		downloads: make(map[string]int),
		pinsSeen:  make(map[string][]string),
		failNext:  make(map[string]error),
	}
}

func (s *fakeStore) add(doc model.Document, pin string) model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = fakeDoc{doc: doc, pin: pin}
	return doc
}

func (s *fakeStore) addPublic(id string) model.Document {
	return s.add(model.Document{ID: id, OriginalName: id + ".txt", MimeType: "text/plain", AccessLevel: model.AccessPublic, UploadedBy: model.Owner{ID: "u1"}}, "")
}

func (s *fakeStore) addProtected(id, pin string) model.Document {
	return s.add(model.Document{ID: id, OriginalName: id + ".txt", MimeType: "text/plain", AccessLevel: model.AccessProtected, UploadedBy: model.Owner{ID: "u1"}}, pin)
}

func (s *fakeStore) setPin(id, pin string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.docs[id]
	d.pin = pin
	s.docs[id] = d
}

func (s *fakeStore) fail(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[id] = err
}

func (s *fakeStore) calls(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloads[id]
}

func (s *fakeStore) lastPin(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := s.pinsSeen[id]
	if len(seen) == 0 {
		return ""
	}
	return seen[len(seen)-1]
}

func (s *fakeStore) allClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bodies {
		if !b.closed.Load() {
			return false
		}
	}
	return true
}

func (s *fakeStore) Download(ctx context.Context, id, pin string) (*model.Blob, error) {
	s.mu.Lock()
	s.downloads[id]++
	s.pinsSeen[id] = append(s.pinsSeen[id], pin)
	gate, entered := s.gate, s.entered
	s.mu.Unlock()

	if entered != nil {
		entered <- id
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, apierr.Wrap(ctx.Err(), apierr.KindTimeout, "download timed out")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failNext[id]; ok {
		delete(s.failNext, id)
		return nil, err
	}
	d, ok := s.docs[id]
	if !ok {
		return nil, apierr.New(apierr.KindNotFound, 404, "Document not found")
	}
	switch d.doc.AccessLevel {
	case model.AccessPrivate:
		return nil, apierr.New(apierr.KindForbidden, 403, "Access denied")
	case model.AccessProtected:
		if pin == "" {
			return nil, apierr.New(apierr.KindPinRequired, 401, "PIN required")
		}
		if pin != d.pin {
			return nil, apierr.New(apierr.KindPinRejected, 401, "Invalid PIN")
		}
	}
	body := &trackedBody{Reader: strings.NewReader("content of " + id)}
	s.bodies = append(s.bodies, body)
	return &model.Blob{MimeType: "application/octet-stream", Size: -1, Body: body}, nil
}

func (s *fakeStore) VerifyPIN(_ context.Context, id, pin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifies++
	d, ok := s.docs[id]
	if !ok {
		return apierr.New(apierr.KindNotFound, 404, "Document not found")
	}
	if pin != d.pin {
		return apierr.New(apierr.KindPinRejected, 401, "Invalid PIN")
	}
	return nil
}

func requireChallenge(t *testing.T, err error) *ChallengeError {
	t.Helper()
	require.ErrorIs(t, err, ErrNeedsPin)
	var ch *ChallengeError
	require.True(t, errors.As(err, &ch))
	return ch
}

func TestAttemptDownloadPublic(t *testing.T) {
	store := newFakeStore()
	doc := store.addPublic("d1")
	c := NewController(store)

	blob, err := c.AttemptDownload(ctxT(t), doc, "")
	require.NoError(t, err)
	defer blob.Close()

	assert.Equal(t, "d1.txt", blob.Filename)
	assert.Equal(t, "text/plain", blob.MimeType)
	data, err := io.ReadAll(blob.Body)
	require.NoError(t, err)
	assert.Equal(t, "content of d1", string(data))
	assert.Empty(t, c.Sessions())
}

func TestNeedsPinThenCorrectPinClosesChallenge(t *testing.T) {
	store := newFakeStore()
	doc := store.addProtected("p1", "1234")
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	c := NewController(store, WithClock(func() time.Time { return now }))
	ctx := ctxT(t)

	_, err := c.AttemptDownload(ctx, doc, "")
	ch := requireChallenge(t, err)
	assert.True(t, ch.Fresh)
	assert.Equal(t, "p1", ch.Session.DocumentID)
	assert.Equal(t, "p1.txt", ch.Session.DocumentName)
	assert.Equal(t, now, ch.Session.OpenedAt)

	blob, err := c.SubmitPIN(ctx, "p1", "1234")
	require.NoError(t, err)
	require.NoError(t, blob.Close())
	_, open := c.Session("p1")
	assert.False(t, open)

	_, err = c.AttemptDownload(ctx, doc, "")
	ch = requireChallenge(t, err)
	assert.True(t, ch.Fresh, "a closed challenge is never reused")
	assert.Equal(t, 3, store.calls("p1"))
}

func TestWrongPinKeepsChallengeOpen(t *testing.T) {
	store := newFakeStore()
	doc := store.addProtected("p1", "1234")
	c := NewController(store)
	ctx := ctxT(t)

	_, err := c.AttemptDownload(ctx, doc, "")
	requireChallenge(t, err)

	for i := 1; i <= 3; i++ {
		blob, err := c.SubmitPIN(ctx, "p1", "0000")
		require.ErrorIs(t, err, apierr.ErrPinRejected)
		assert.NotErrorIs(t, err, ErrAccessDenied)
		assert.Nil(t, blob)
		s, open := c.Session("p1")
		require.True(t, open)
		assert.Equal(t, i, s.Attempts)
	}

	blob, err := c.SubmitPIN(ctx, "p1", "1234")
	require.NoError(t, err)
	blob.Close()
	assert.Empty(t, c.Sessions())
}

func TestAttemptWithWrongPinOpensChallenge(t *testing.T) {
	store := newFakeStore()
	doc := store.addProtected("p1", "1234")
	c := NewController(store)

	_, err := c.AttemptDownload(ctxT(t), doc, "9999")
	require.ErrorIs(t, err, apierr.ErrPinRejected)
	_, open := c.Session("p1")
	assert.True(t, open)
}

func TestForbiddenNeverOpensChallenge(t *testing.T) {
	store := newFakeStore()
	doc := store.add(model.Document{ID: "x1", AccessLevel: model.AccessPrivate, UploadedBy: model.Owner{ID: "u1"}}, "")
	c := NewController(store)

	_, err := c.AttemptDownload(ctxT(t), doc, "")
	require.ErrorIs(t, err, ErrAccessDenied)
	assert.NotErrorIs(t, err, ErrNeedsPin)
	assert.Empty(t, c.Sessions())
}

func TestFailuresAreNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"not found", apierr.New(apierr.KindNotFound, 404, "gone")},
		{"timeout", apierr.Wrap(context.DeadlineExceeded, apierr.KindTimeout, "download timed out")},
		{"transport", apierr.Wrap(errors.New("connection reset"), apierr.KindTransport, "download failed")},
		{"server", apierr.New(apierr.KindServer, 500, "boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			doc := store.addPublic("d1")
			store.fail("d1", tt.err)
			c := NewController(store)

			_, err := c.AttemptDownload(ctxT(t), doc, "")
			require.ErrorIs(t, err, tt.err)
			assert.Equal(t, 1, store.calls("d1"))
			assert.Empty(t, c.Sessions())
		})
	}
}

func TestTimeoutDuringChallengeKeepsSession(t *testing.T) {
	store := newFakeStore()
	doc := store.addProtected("p1", "1234")
	c := NewController(store)
	ctx := ctxT(t)

	_, err := c.AttemptDownload(ctx, doc, "")
	requireChallenge(t, err)

	store.fail("p1", apierr.Wrap(context.DeadlineExceeded, apierr.KindTimeout, "download timed out"))
	_, err = c.SubmitPIN(ctx, "p1", "1234")
	require.ErrorIs(t, err, apierr.ErrTimeout)
	_, open := c.Session("p1")
	assert.True(t, open)
	assert.Equal(t, 2, store.calls("p1"))
}

func TestNotFoundDuringChallengeClosesSession(t *testing.T) {
	store := newFakeStore()
	doc := store.addProtected("p1", "1234")
	c := NewController(store)
	ctx := ctxT(t)

	_, err := c.AttemptDownload(ctx, doc, "")
	requireChallenge(t, err)
	store.fail("p1", apierr.New(apierr.KindNotFound, 404, "deleted"))

	_, err = c.SubmitPIN(ctx, "p1", "1234")
	require.ErrorIs(t, err, apierr.ErrNotFound)
	assert.Empty(t, c.Sessions())
}

func TestChallengesOnDifferentDocumentsAreIndependent(t *testing.T) {
	store := newFakeStore()
	a := store.addProtected("a", "1111")
	b := store.addProtected("b", "2222")
	c := NewController(store)
	ctx := ctxT(t)

	var wg sync.WaitGroup
	for _, doc := range []model.Document{a, b} {
		wg.Add(1)
		go func(doc model.Document) {
			defer wg.Done()
			_, err := c.AttemptDownload(ctx, doc, "")
			assert.ErrorIs(t, err, ErrNeedsPin)
		}(doc)
	}
	wg.Wait()
	require.Len(t, c.Sessions(), 2)

	// b's PIN is wrong for a, and a's challenge stays open
	_, err := c.SubmitPIN(ctx, "a", "2222")
	require.ErrorIs(t, err, apierr.ErrPinRejected)

	blob, err := c.SubmitPIN(ctx, "b", "2222")
	require.NoError(t, err)
	blob.Close()

	sa, open := c.Session("a")
	require.True(t, open)
	assert.Equal(t, 1, sa.Attempts)
	_, open = c.Session("b")
	assert.False(t, open)

	assert.True(t, c.Cancel("a"))
	assert.False(t, c.Cancel("a"))
	assert.Empty(t, c.Sessions())
}

func TestConcurrentAttemptsOnSameDocumentShareChallenge(t *testing.T) {
	store := newFakeStore()
	doc := store.addProtected("p1", "1234")
	c := NewController(store)
	ctx := ctxT(t)

	const callers = 8
	var fresh atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.AttemptDownload(ctx, doc, "")
			var ch *ChallengeError
			if assert.True(t, errors.As(err, &ch)) && ch.Fresh {
				fresh.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, fresh.Load(), "exactly one caller should prompt")
	assert.Len(t, c.Sessions(), 1)
}

func TestCancelDiscardsInFlightResult(t *testing.T) {
	store := newFakeStore()
	doc := store.addProtected("p1", "1234")
	c := NewController(store)
	ctx := ctxT(t)

	_, err := c.AttemptDownload(ctx, doc, "")
	requireChallenge(t, err)

	store.mu.Lock()
	store.gate = make(chan struct{})
	store.entered = make(chan string, 1)
	gate, entered := store.gate, store.entered
	store.mu.Unlock()

	type result struct {
		blob *model.Blob
		err  error
	}
	done := make(chan result, 1)
	go func() {
		blob, err := c.SubmitPIN(ctx, "p1", "1234")
		done <- result{blob, err}
	}()

	<-entered
	require.True(t, c.Cancel("p1"))
	close(gate)

	res := <-done
	require.ErrorIs(t, res.err, ErrSessionAbandoned)
	assert.Nil(t, res.blob)
	assert.True(t, store.allClosed(), "abandoned blob must be released")
	_, open := c.Session("p1")
	assert.False(t, open, "an abandoned challenge is never reopened")
}

func TestCancelThenReattemptOpensNewChallenge(t *testing.T) {
	store := newFakeStore()
	doc := store.addProtected("p1", "1234")
	c := NewController(store)
	ctx := ctxT(t)

	_, err := c.AttemptDownload(ctx, doc, "")
	requireChallenge(t, err)
	c.Cancel("p1")

	_, err = c.SubmitPIN(ctx, "p1", "1234")
	require.ErrorIs(t, err, ErrNoChallenge)

	_, err = c.AttemptDownload(ctx, doc, "")
	assert.True(t, requireChallenge(t, err).Fresh)
}

func TestSubmitPINValidation(t *testing.T) {
	c := NewController(newFakeStore())
	_, err := c.SubmitPIN(ctxT(t), "p1", "1234")
	assert.ErrorIs(t, err, ErrNoChallenge)
	_, err = c.SubmitPIN(ctxT(t), "p1", "")
	assert.ErrorIs(t, err, ErrEmptyPin)
	assert.ErrorIs(t, c.VerifyPIN(ctxT(t), "p1", ""), ErrEmptyPin)
	assert.ErrorIs(t, c.VerifyPIN(ctxT(t), "p1", "1234"), ErrNoChallenge)
}

func TestVerifyThenDownloadRetriesDownloadOnly(t *testing.T) {
	store := newFakeStore()
	doc := store.addProtected("p1", "1234")
	c := NewController(store)
	ctx := ctxT(t)

	_, err := c.AttemptDownload(ctx, doc, "")
	requireChallenge(t, err)

	_, err = c.DownloadVerified(ctx, "p1")
	require.ErrorIs(t, err, ErrNotVerified)

	require.ErrorIs(t, c.VerifyPIN(ctx, "p1", "0000"), apierr.ErrPinRejected)
	s, open := c.Session("p1")
	require.True(t, open)
	assert.False(t, s.Verified)

	require.NoError(t, c.VerifyPIN(ctx, "p1", "1234"))
	s, _ = c.Session("p1")
	assert.True(t, s.Verified)

	store.fail("p1", apierr.Wrap(context.DeadlineExceeded, apierr.KindTimeout, "download timed out"))
	_, err = c.DownloadVerified(ctx, "p1")
	require.ErrorIs(t, err, apierr.ErrTimeout)
	s, open = c.Session("p1")
	require.True(t, open)
	assert.True(t, s.Verified, "a failed download keeps the verified pin")

	blob, err := c.DownloadVerified(ctx, "p1")
	require.NoError(t, err)
	blob.Close()

	assert.Equal(t, 2, store.verifies, "retry must not verify again")
	assert.Equal(t, "1234", store.lastPin("p1"))
	assert.Empty(t, c.Sessions())
}

func TestSessionPinCache(t *testing.T) {
	store := newFakeStore()
	doc := store.addProtected("p1", "1234")
	c := NewController(store, WithPinPolicy(PinCacheSession))
	ctx := ctxT(t)

	_, err := c.AttemptDownload(ctx, doc, "")
	requireChallenge(t, err)
	blob, err := c.SubmitPIN(ctx, "p1", "1234")
	require.NoError(t, err)
	blob.Close()

	blob, err = c.AttemptDownload(ctx, doc, "")
	require.NoError(t, err, "remembered pin is reused")
	blob.Close()
	assert.Equal(t, "1234", store.lastPin("p1"))

	store.setPin("p1", "5678")
	_, err = c.AttemptDownload(ctx, doc, "")
	ch := requireChallenge(t, err)
	assert.True(t, ch.Fresh)

	_, err = c.AttemptDownload(ctx, doc, "")
	requireChallenge(t, err)
	assert.Empty(t, store.lastPin("p1"), "rejected pin is forgotten")
}

func TestNoPinCacheByDefault(t *testing.T) {
	store := newFakeStore()
	doc := store.addProtected("p1", "1234")
	c := NewController(store)
	ctx := ctxT(t)

	blob, err := c.AttemptDownload(ctx, doc, "1234")
	require.NoError(t, err)
	blob.Close()

	_, err = c.AttemptDownload(ctx, doc, "")
	requireChallenge(t, err)
	assert.Empty(t, store.lastPin("p1"))
}

func TestCancelAllAndForgetPins(t *testing.T) {
	store := newFakeStore()
	a := store.addProtected("a", "1111")
	b := store.addProtected("b", "2222")
	c := NewController(store, WithPinPolicy(PinCacheSession))
	ctx := ctxT(t)

	blob, err := c.AttemptDownload(ctx, a, "1111")
	require.NoError(t, err)
	blob.Close()
	_, err = c.AttemptDownload(ctx, b, "")
	requireChallenge(t, err)

	c.CancelAll()
	c.ForgetPins()
	assert.Empty(t, c.Sessions())
	_, err = c.AttemptDownload(ctx, a, "")
	requireChallenge(t, err)
}

func TestParsePinPolicy(t *testing.T) {
	p, err := ParsePinPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PinCacheNone, p)

	p, err = ParsePinPolicy(" Session ")
	require.NoError(t, err)
	assert.Equal(t, PinCacheSession, p)

	_, err = ParsePinPolicy("always")
	assert.Error(t, err)
}
