package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fabriclibrary/backend/internal/models"
	"github.com/fabriclibrary/backend/internal/oidc"
)

// Service encapsulates user-related business logic
type Service struct {
	repo UserRepository
	now  func() time.Time
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r, now: time.Now}
}

// SignIn finds or creates the user for a verified identity and returns the
// user plus whether it was just created.
//
// First sign-in inserts a fresh user; later sign-ins only touch LastSeenAt —
// email and display name keep the values captured at creation. Two concurrent
// first sign-ins for the same sub race to insert; the loser gets ErrConflict
// from the unique index and retries the lookup once, because the winner's
// document exists by then.
func (s *Service) SignIn(ctx context.Context, ident *oidc.Identity) (*models.User, bool, error) {
	if ident == nil || ident.Subject == "" {
		return nil, false, errors.New("identity has no subject")
	}

	u, err := s.repo.GetBySub(ctx, ident.Subject)
	switch {
	case err == nil:
		return u, false, s.touch(ctx, u)
	case errors.Is(err, ErrNotFound):
		// fall through to insert
	default:
		return nil, false, err
	}

	fresh := &models.User{
		ID:          uuid.NewString(),
		Sub:         ident.Subject,
		Email:       ident.Email,
		DisplayName: ident.Name,
		CreatedAt:   s.now().UTC(),
	}
	err = s.repo.Insert(ctx, fresh)
	if err == nil {
		return fresh, true, nil
	}
	if !errors.Is(err, ErrConflict) {
		return nil, false, err
	}

	// Lost the insert race: the document now exists, proceed as repeat sign-in.
	u, err = s.repo.GetBySub(ctx, ident.Subject)
	if err != nil {
		return nil, false, err
	}
	return u, false, s.touch(ctx, u)
}

func (s *Service) touch(ctx context.Context, u *models.User) error {
	at := s.now().UTC()
	if err := s.repo.TouchLastSeen(ctx, u.ID, at); err != nil {
		return err
	}
	u.LastSeenAt = &at
	return nil
}

// GetByID loads a user by internal id.
func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}
