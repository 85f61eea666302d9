// Package policy resolves the effective read/write permission for an
// operation given the target collection's settings and the caller's role
// and identity.
package policy

import "github.com/appforge/data-platform/internal/core/domain"

// Caller identifies the requesting principal. IdentityID is empty for
// unauthenticated (guest) callers.
type Caller struct {
	IdentityID string
	Role       domain.Role
}

// Anonymous is the caller used when no bearer token was presented.
var Anonymous = Caller{Role: domain.RoleGuest}

// privileged roles bypass owner scoping on reads and writes.
func privileged(role domain.Role) bool {
	return role.AtLeast(domain.RoleEditor)
}

// ReadScope returns the owner id reads must be restricted to, or "" when
// the caller may read everything. An anonymous caller against an
// owner-read-only collection gets ownerOnly=true with an empty owner id:
// the result set is effectively empty, which is not an error.
func ReadScope(settings domain.CollectionSettings, caller Caller) (ownerID string, ownerOnly bool) {
	if !settings.OwnerReadOnly || privileged(caller.Role) {
		return "", false
	}
	return caller.IdentityID, true
}

// CanWrite decides whether the caller may perform a create-class write.
func CanWrite(settings domain.CollectionSettings, caller Caller) error {
	if settings.AdminWriteOnly && caller.Role != domain.RoleAdmin {
		return domain.NewForbidden("collection is admin write only")
	}
	return nil
}

// WriteScope returns the owner id update/delete targets must be restricted
// to, or "" when the caller may target any row. A scoped miss surfaces as
// NOT_FOUND upstream, never FORBIDDEN: an ownership-filtered miss and a
// genuinely absent row are indistinguishable to the caller.
func WriteScope(settings domain.CollectionSettings, caller Caller) (ownerID string, ownerOnly bool) {
	if !settings.OwnerWriteOnly || privileged(caller.Role) {
		return "", false
	}
	return caller.IdentityID, true
}

// RequireRole enforces a minimum role.
func RequireRole(caller Caller, min domain.Role) error {
	if !caller.Role.AtLeast(min) {
		return domain.NewForbidden("insufficient role")
	}
	return nil
}
