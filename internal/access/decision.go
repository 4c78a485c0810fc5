// Package access decides what a download attempt should do and drives the
// PIN challenge that protected documents require.
package access

import "github.com/dharsanguruparan/vaultdesk/internal/model"

// Decision is the advisory outcome for a download attempt. The server stays
// authoritative; this only chooses which action a view offers.
type Decision int

const (
	// Deny is the zero value so an unset decision fails closed.
	Deny Decision = iota
	Allow
	Challenge
)

// String returns the string representation of the decision.
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Challenge:
		return "challenge"
	default:
		return "deny"
	}
}

// Decide applies the access rules in order, first match wins:
// protected documents always challenge, public ones are allowed, private
// ones are allowed for admins and the owner. Anything else is denied.
func Decide(doc model.Document, p model.Principal) Decision {
	switch doc.AccessLevel {
	case model.AccessProtected:
		return Challenge
	case model.AccessPublic:
		return Allow
	case model.AccessPrivate:
		if p.IsAdmin() || (p.ID != "" && doc.OwnerID() == p.ID) {
			return Allow
		}
		return Deny
	default:
		return Deny
	}
}
