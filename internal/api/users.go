package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dharsanguruparan/vaultdesk/internal/model"
)

// ListUsers returns every account. Admin only.
func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodGet, "/api/users", nil, nil, &raw, pinNone); err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var users []model.User
		if err := json.Unmarshal(raw, &users); err != nil {
			return nil, fmt.Errorf("decode users: %w", err)
		}
		return users, nil
	}
	var wrapped struct {
		Users []model.User `json:"users"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return wrapped.Users, nil
}

// ToggleUserStatus activates or deactivates an account.
func (c *Client) ToggleUserStatus(ctx context.Context, userID string) error {
	return c.call(ctx, http.MethodPatch, "/api/users/"+escape(userID)+"/toggle-status", nil, nil, nil, pinNone)
}

// UpdateUserRole changes an account's role.
func (c *Client) UpdateUserRole(ctx context.Context, userID string, role model.Role) error {
	in := map[string]model.Role{"role": role}
	return c.call(ctx, http.MethodPatch, "/api/users/"+escape(userID)+"/role", nil, in, nil, pinNone)
}
