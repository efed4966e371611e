package adapters

import (
	"context"
	"errors"
	"strings"

	identityrepo "finders_crm_backend/internal/identity/repository"
	"finders_crm_backend/internal/referrals/ports"
	"finders_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

// UserStore is the slice of the identity repository the referral context needs.
type UserStore interface {
	GetUser(ctx context.Context, userID uuid.UUID) (identityrepo.User, error)
}

// IdentityUserDirectory adapts the identity repository to the referral
// context's UserDirectory port so referrals never see identity internals.
type IdentityUserDirectory struct {
	users UserStore
}

func NewIdentityUserDirectory(users UserStore) *IdentityUserDirectory {
	return &IdentityUserDirectory{users: users}
}

// GetUserByID returns the display profile for the given user ID.
func (d *IdentityUserDirectory) GetUserByID(ctx context.Context, id uuid.UUID) (ports.User, error) {
	u, err := d.users.GetUser(ctx, id)
	if errors.Is(err, identityrepo.ErrNotFound) {
		return ports.User{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return ports.User{}, apperr.Wrap(apperr.KindInternal, "load user failed", err).WithOp("adapters.user_directory.get")
	}

	return ports.User{
		ID:    u.ID,
		Name:  buildDisplayName(u.Name, u.Email),
		Email: u.Email,
		Role:  u.Role,
	}, nil
}

// buildDisplayName falls back to the email when a user has no name.
func buildDisplayName(name, email string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return email
}

var _ ports.UserDirectory = (*IdentityUserDirectory)(nil)
