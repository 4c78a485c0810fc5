package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/vaultdesk/internal/apierr"
)

// TokenSource supplies the bearer credential and forgets it when the server
// says it is no longer valid.
type TokenSource interface {
	Token() string
	Clear() error
}

// maxErrorBody bounds how much of a 401 body the session stage inspects.
const maxErrorBody = 64 << 10

type skipAuthKey struct{}

// withoutAuth marks a request as anonymous: no bearer header and no session
// stage. Used by login and register, where 401 means bad credentials.
func withoutAuth(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipAuthKey{}, true)
}

func isAnonymous(ctx context.Context) bool {
	v, _ := ctx.Value(skipAuthKey{}).(bool)
	return v
}

// Transport decorates outgoing requests with the bearer token, a request id
// and a user agent, and turns non-PIN 401 responses into session expiry.
type Transport struct {
	Base             http.RoundTripper
	Tokens           TokenSource
	UserAgent        string
	OnSessionExpired func()
	Logger           *zap.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	logger := t.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	anonymous := isAnonymous(req.Context())
	out := req.Clone(req.Context())
	reqID := uuid.NewString()
	out.Header.Set("X-Request-ID", reqID)
	if t.UserAgent != "" {
		out.Header.Set("User-Agent", t.UserAgent)
	}
	if !anonymous && t.Tokens != nil {
		if token := t.Tokens.Token(); token != "" {
			out.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := base.RoundTrip(out)
	fields := []zap.Field{
		zap.String("method", out.Method),
		zap.String("path", out.URL.Path),
		zap.Duration("latency", time.Since(start)),
		zap.String("request_id", reqID),
	}
	if err != nil {
		logger.Debug("api_request_failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	logger.Debug("api_request", append(fields, zap.Int("status", resp.StatusCode))...)

	if resp.StatusCode != http.StatusUnauthorized || anonymous {
		return resp, nil
	}
	return t.sessionStage(resp, out.URL.Path, logger)
}

// sessionStage runs before any PIN interpretation. PIN-related 401s are handed
// back with their body intact; anything else clears the credential.
func (t *Transport) sessionStage(resp *http.Response, path string, logger *zap.Logger) (*http.Response, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
	if err != nil {
		return nil, apierr.Wrap(err, apierr.KindTransport, "read response")
	}
	if isPinChallenge(body) {
		resp.Body = io.NopCloser(bytes.NewReader(body))
		return resp, nil
	}

	logger.Info("session_expired", zap.String("path", path))
	if t.Tokens != nil {
		if err := t.Tokens.Clear(); err != nil {
			logger.Warn("clear credentials", zap.Error(err))
		}
	}
	if t.OnSessionExpired != nil {
		t.OnSessionExpired()
	}
	return nil, apierr.ErrSessionExpired
}

// errorBody is the JSON shape the API uses for failures.
type errorBody struct {
	Message     string `json:"message"`
	Error       string `json:"error"`
	RequiresPin bool   `json:"requiresPin"`
	InvalidPin  bool   `json:"invalidPin"`
}

func (b errorBody) text() string {
	if b.Message != "" {
		return b.Message
	}
	return b.Error
}

func parseErrorBody(body []byte) errorBody {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	return eb
}

func isPinChallenge(body []byte) bool {
	eb := parseErrorBody(body)
	return eb.RequiresPin || eb.InvalidPin
}
