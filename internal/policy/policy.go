// Package policy decides what a caller may read. Mutations are always
// scoped to the caller's own identity by the engines; reads can cross user
// boundaries only when this package allows it.
package policy

import (
	id "staffops/pkg/domain"
	pkgerrors "staffops/pkg/domain-errors"
)

// Kind names a resource family for view-all checks.
type Kind string

const (
	KindAttendance Kind = "attendance"
	KindCustody    Kind = "custody"
)

// ErrForbidden is surfaced before any engine state is touched.
var ErrForbidden = pkgerrors.New(pkgerrors.CodeForbidden, "caller may not access this resource")

// CanViewAll reports whether a role may read records beyond its own.
// Custody records are company property, so the operations team sees all of
// them; attendance stays per-user below admin.
func CanViewAll(role id.Role, kind Kind) bool {
	switch role {
	case id.RoleAdmin:
		return true
	case id.RoleOperations:
		return kind == KindCustody
	default:
		return false
	}
}

// Scope restricts which entities a query may return.
type Scope struct {
	// All is set when the caller may see every user's records.
	All bool
	// UserID is the only visible owner when All is false.
	UserID id.UserID
}

// ScopeFor resolves the widest scope a caller is entitled to for a kind.
// Requesting another user's records without view-all rights fails closed.
func ScopeFor(caller id.UserID, role id.Role, kind Kind, requested id.UserID) (Scope, error) {
	if CanViewAll(role, kind) {
		if requested.IsNil() {
			return Scope{All: true}, nil
		}
		return Scope{UserID: requested}, nil
	}
	if !requested.IsNil() && requested != caller {
		return Scope{}, ErrForbidden
	}
	return Scope{UserID: caller}, nil
}
