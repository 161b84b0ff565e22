// Package identity resolves who is playing. The terminal build has a
// single local user kept in the database; the abstraction exists so a
// remote account backend can slot in behind the same interface.
package identity

import (
	"context"
	"fmt"

	"keyduel/internal/model"
	"keyduel/internal/store"
)

// User is the identity attached to results and duels.
type User struct {
	ID            string
	DisplayName   string
	Anonymous     bool
	EmailVerified bool
}

// Provider resolves the current user.
type Provider interface {
	Current(ctx context.Context) (User, error)
	SetDisplayName(ctx context.Context, name string) error
}

// LocalProvider backs identity with the local profile row.
type LocalProvider struct {
	store *store.Store
}

// NewLocalProvider wraps a store.
func NewLocalProvider(s *store.Store) *LocalProvider {
	return &LocalProvider{store: s}
}

// Current loads the local profile, creating it on first use.
func (p *LocalProvider) Current(ctx context.Context) (User, error) {
	profile, err := p.store.Profile(ctx)
	if err != nil {
		return User{}, fmt.Errorf("load profile: %w", err)
	}
	return fromProfile(profile), nil
}

// SetDisplayName updates the local profile name. An empty name makes
// the user anonymous again.
func (p *LocalProvider) SetDisplayName(ctx context.Context, name string) error {
	profile, err := p.store.Profile(ctx)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	profile.Name = name
	if err := p.store.UpdateProfile(ctx, profile); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func fromProfile(p model.Profile) User {
	return User{
		ID:            p.ID,
		DisplayName:   p.Name,
		Anonymous:     p.Anonymous(),
		EmailVerified: p.EmailVerified,
	}
}
