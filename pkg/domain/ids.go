// Package domain holds shared domain primitives: typed identifiers and the
// caller role. Keeping them in one leaf package lets every subsystem agree on
// the same types without import cycles.
package domain

import (
	"fmt"
	"strings"
)

// UserID identifies a staff member. IDs come from the external identity
// provider and are treated as opaque strings.
type UserID string

func (u UserID) String() string { return string(u) }
func (u UserID) IsNil() bool    { return u == "" }

// ParseUserID validates an incoming user identifier.
func ParseUserID(s string) (UserID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("user id is required")
	}
	if strings.ContainsAny(s, "/|") {
		return "", fmt.Errorf("user id contains reserved characters")
	}
	return UserID(s), nil
}

// AssetID identifies a custody record (a certificate or similar credential
// held by the company on a client's behalf).
type AssetID string

func (a AssetID) String() string { return string(a) }
func (a AssetID) IsNil() bool    { return a == "" }

// ParseAssetID validates an incoming asset identifier.
func ParseAssetID(s string) (AssetID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("asset id is required")
	}
	if strings.ContainsAny(s, "/|") {
		return "", fmt.Errorf("asset id contains reserved characters")
	}
	return AssetID(s), nil
}

// MovementID identifies one entry inside a custody movement log. Unique
// within the log, generated at append time.
type MovementID string

func (m MovementID) String() string { return string(m) }
func (m MovementID) IsNil() bool    { return m == "" }

// Role is the caller's role as asserted by the identity provider.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleOperations Role = "operations"
	RoleStaff      Role = "staff"
)

// ParseRole validates a role string, defaulting unknown values to staff so a
// misconfigured directory entry degrades to least privilege.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleOperations:
		return RoleOperations
	default:
		return RoleStaff
	}
}

func (r Role) String() string { return string(r) }
