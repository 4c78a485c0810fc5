package credentials

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dharsanguruparan/vaultdesk/internal/model"
)

// Claims covers the fields the document API puts in its tokens. Older
// deployments use "id", newer ones "userId".
type Claims struct {
	UserID   string     `json:"userId,omitempty"`
	ID       string     `json:"id,omitempty"`
	Role     model.Role `json:"role,omitempty"`
	Username string     `json:"username,omitempty"`
	Email    string     `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenInfo is what can be learned from a token without the server's key.
type TokenInfo struct {
	Principal model.Principal
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry that has passed.
func (i TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// PrincipalFromToken decodes the claims of a bearer token. The signature is
// not checked: the server remains the authority, this only feeds local
// display and advisory access decisions.
func PrincipalFromToken(token string) (TokenInfo, error) {
	if token == "" {
		return TokenInfo{}, ErrNoCredentials
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}, fmt.Errorf("parse token: %w", err)
	}

	id := claims.UserID
	if id == "" {
		id = claims.ID
	}
	if id == "" {
		id = claims.Subject
	}
	if id == "" {
		return TokenInfo{}, errors.New("token carries no user id")
	}

	info := TokenInfo{
		Principal: model.Principal{
			ID:       id,
			Role:     claims.Role,
			Username: claims.Username,
			Email:    claims.Email,
		},
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}

// Principal resolves the current principal from stored credentials. The user
// record saved at login wins; the token fills in what it lacks.
func Principal(store Store) (model.Principal, error) {
	creds, err := store.Load()
	if err != nil {
		return model.Principal{}, err
	}
	p := creds.User.Principal()
	info, err := PrincipalFromToken(creds.Token)
	if err != nil {
		if p.ID == "" {
			return model.Principal{}, err
		}
		return p, nil
	}
	if p.ID == "" {
		p.ID = info.Principal.ID
	}
	if p.Role == "" {
		p.Role = info.Principal.Role
	}
	if p.Username == "" {
		p.Username = info.Principal.Username
	}
	if p.Email == "" {
		p.Email = info.Principal.Email
	}
	return p, nil
}
