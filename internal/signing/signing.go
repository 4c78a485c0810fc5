// Package signing seals queue payloads with an HMAC so the worker only runs
// tasks produced by a client holding the same secret.
package signing

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	ErrBadSignature = errors.New("payload signature mismatch")
	ErrExpired      = errors.New("payload expired")
)

// Signer generates and validates HMAC based signatures.
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer.
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

// Sign returns the hex signature for payload issued at issuedUnix.
func (s *Signer) Sign(payload []byte, issuedUnix int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(strconv.FormatInt(issuedUnix, 10)))
	mac.Write([]byte{':'})
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Validate compares signature with the expected one in constant time.
func (s *Signer) Validate(payload []byte, issued, signature string) bool {
	ts, err := strconv.ParseInt(issued, 10, 64)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(s.Sign(payload, ts)), []byte(signature))
}

// Envelope is a signed payload on the wire.
type Envelope struct {
	Payload   json.RawMessage `json:"payload"`
	IssuedAt  int64           `json:"issuedAt"`
	Signature string          `json:"signature"`
}

// Seal wraps a JSON payload in a signed envelope.
func (s *Signer) Seal(payload []byte, now time.Time) ([]byte, error) {
	// the envelope is compacted on marshal, so sign the compact form
	var buf bytes.Buffer
	if err := json.Compact(&buf, payload); err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}
	compact := buf.Bytes()
	issued := now.Unix()
	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Envelope{Payload: compact, IssuedAt: issued, Signature: s.Sign(compact, issued)}); err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}
	return bytes.TrimRight(out.Bytes(), "\n"), nil
}

// Open checks the envelope and returns the payload. maxAge of zero disables
// the age check.
func (s *Signer) Open(data []byte, now time.Time, maxAge time.Duration) ([]byte, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if !s.Validate(env.Payload, strconv.FormatInt(env.IssuedAt, 10), env.Signature) {
		return nil, ErrBadSignature
	}
	if maxAge > 0 && now.Sub(time.Unix(env.IssuedAt, 0)) > maxAge {
		return nil, ErrExpired
	}
	return env.Payload, nil
}
