// Package authz holds the role model mirrored from the backend.
//
// The checks here are a UX mirror only: they short-circuit requests that the
// server would reject anyway, so the UI can fail fast without a round-trip.
// They are never a security boundary; the API enforces authorization
// independently on every call.
package authz

// Role is a user's role within the platform.
type Role string

const (
	// RoleUser is the default role for registered accounts.
	RoleUser Role = "user"

	// RoleAuthor can manage companies it owns.
	RoleAuthor Role = "author"

	// RoleAdmin can manage every resource, including moderation flags.
	RoleAdmin Role = "admin"
)

// Parse maps a wire string onto a Role, defaulting to RoleUser.
func Parse(s string) Role {
	switch Role(s) {
	case RoleAuthor:
		return RoleAuthor
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUser
	}
}

// CanAdministrate reports whether the role may perform admin-gated
// mutations (block toggles, premium flags, verification status, stats
// recalculation, role changes).
func (r Role) CanAdministrate() bool {
	return r == RoleAdmin
}
