package store

import (
	"context"
	"errors"
	"time"

	"github.com/listenupapp/libris/internal/domain"
)

// CreateProfile stores a member profile under the caller-supplied id.
func (s *Store) CreateProfile(ctx context.Context, p *domain.MemberProfile) error {
	if p.ID == "" {
		return ErrInvalidInput.WithCause(errors.New("profile id is required"))
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.Preferences.FavoriteCategories == nil {
		p.Preferences.FavoriteCategories = []string{}
	}
	return s.Profiles.Create(ctx, p.ID, p)
}

// GetProfile returns a member profile by id.
func (s *Store) GetProfile(ctx context.Context, profileID string) (*domain.MemberProfile, error) {
	return s.Profiles.Get(ctx, profileID)
}

// DeleteProfile removes a member profile. Missing profiles are ignored.
func (s *Store) DeleteProfile(ctx context.Context, profileID string) error {
	return s.Profiles.Delete(ctx, profileID)
}

// PageProfiles returns profiles in id order after the cursor.
func (s *Store) PageProfiles(ctx context.Context, after string, limit int) ([]*domain.MemberProfile, string, error) {
	return s.Profiles.Page(ctx, after, limit)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
