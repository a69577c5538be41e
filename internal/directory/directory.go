// Package directory resolves user IDs to display profiles. The identity
// system owning these profiles is external; this package is the lookup
// boundary the staff report joins against.
package directory

import (
	"context"
	"sync"

	id "staffops/pkg/domain"
	pkgerrors "staffops/pkg/domain-errors"
)

// ErrNotFound is returned for users the directory does not know. Callers
// that render reports substitute a placeholder instead of failing.
var ErrNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "user not found in directory")

// Profile is the subset of a user's directory entry reports need.
type Profile struct {
	UserID id.UserID `json:"user_id"`
	Name   string    `json:"name"`
	Role   id.Role   `json:"role"`
}

// Directory looks up user profiles.
type Directory interface {
	Lookup(ctx context.Context, userID id.UserID) (Profile, error)
}

// InMemoryDirectory serves profiles from a seeded map. Used in tests and as
// the fallback when no external directory is configured.
type InMemoryDirectory struct {
	mu       sync.RWMutex
	profiles map[id.UserID]Profile
}

func NewInMemory(profiles ...Profile) *InMemoryDirectory {
	d := &InMemoryDirectory{profiles: make(map[id.UserID]Profile, len(profiles))}
	for _, p := range profiles {
		d.profiles[p.UserID] = p
	}
	return d
}

func (d *InMemoryDirectory) Lookup(_ context.Context, userID id.UserID) (Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if p, ok := d.profiles[userID]; ok {
		return p, nil
	}
	return Profile{}, ErrNotFound
}

// Put adds or replaces a profile. Test helper and seed hook.
func (d *InMemoryDirectory) Put(p Profile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles[p.UserID] = p
}
