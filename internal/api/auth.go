package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dharsanguruparan/vaultdesk/internal/model"
)

// RegisterRequest is the body of the register endpoint.
type RegisterRequest struct {
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Password    string     `json:"password"`
	Role        model.Role `json:"role,omitempty"`
	AdminSecret string     `json:"adminSecret,omitempty"`
}

// Login exchanges email and password for a token.
func (c *Client) Login(ctx context.Context, email, password string) (model.AuthResult, error) {
	in := map[string]string{"email": email, "password": password}
	var out model.AuthResult
	err := c.call(withoutAuth(ctx), http.MethodPost, "/api/auth/login", nil, in, &out, pinNone)
	return out, err
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (model.AuthResult, error) {
	var out model.AuthResult
	err := c.call(withoutAuth(ctx), http.MethodPost, "/api/auth/register", nil, req, &out, pinNone)
	return out, err
}

// Me returns the account behind the current token.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodGet, "/api/auth/me", nil, nil, &raw, pinNone); err != nil {
		return model.User{}, err
	}
	return decodeUser(raw)
}

// decodeUser accepts both a bare user object and {"user": {...}}.
func decodeUser(raw json.RawMessage) (model.User, error) {
	var wrapped struct {
		User *model.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.User != nil {
		return *wrapped.User, nil
	}
	var u model.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return model.User{}, err
	}
	return u, nil
}
