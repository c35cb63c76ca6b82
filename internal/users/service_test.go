package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fabriclibrary/backend/internal/models"
	"github.com/fabriclibrary/backend/internal/oidc"
)

// fakeRepo is an in-memory UserRepository. With conflictOnce set it rejects
// the first insert with ErrConflict to simulate losing the unique-index race.
type fakeRepo struct {
	bySub        map[string]*models.User
	inserts      int
	touches      int
	conflictOnce bool
	raceWinner   *models.User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{bySub: map[string]*models.User{}}
}

func (f *fakeRepo) Insert(ctx context.Context, u *models.User) error {
	f.inserts++
	if f.conflictOnce {
		f.conflictOnce = false
		// the racing sign-in committed first
		f.bySub[f.raceWinner.Sub] = f.raceWinner
		return ErrConflict
	}
	if _, ok := f.bySub[u.Sub]; ok {
		return ErrConflict
	}
	cp := *u
	f.bySub[u.Sub] = &cp
	return nil
}

func (f *fakeRepo) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	u, ok := f.bySub[sub]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range f.bySub {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeRepo) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	f.touches++
	for _, u := range f.bySub {
		if u.ID == id {
			u.LastSeenAt = &at
			return nil
		}
	}
	return ErrNotFound
}

func TestSignIn_NewSubject(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	ident := &oidc.Identity{Subject: "sub-123", Email: "x@example.com", Name: "X User"}
	u, created, err := svc.SignIn(ctx, ident)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatal("expected user to be created")
	}
	if u.ID == "" {
		t.Fatal("expected a generated user id")
	}
	if u.Sub != "sub-123" || u.Email != "x@example.com" || u.DisplayName != "X User" {
		t.Fatalf("unexpected user fields: %+v", u)
	}
	if u.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}
	if u.LastSeenAt != nil {
		t.Fatalf("LastSeenAt must stay unset on first sign-in, got %v", u.LastSeenAt)
	}
	if repo.inserts != 1 {
		t.Fatalf("expected exactly one insert, got %d", repo.inserts)
	}
}

func TestSignIn_RepeatSubject(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	ident := &oidc.Identity{Subject: "sub-1", Email: "old@example.com", Name: "Old Name"}
	first, _, err := svc.SignIn(ctx, ident)
	if err != nil {
		t.Fatalf("first sign-in: %v", err)
	}

	// Provider now reports different email and name; stored values must not move.
	again := &oidc.Identity{Subject: "sub-1", Email: "new@example.com", Name: "New Name"}
	u, created, err := svc.SignIn(ctx, again)
	if err != nil {
		t.Fatalf("second sign-in: %v", err)
	}
	if created {
		t.Fatal("expected no new user on repeat sign-in")
	}
	if u.ID != first.ID {
		t.Fatalf("expected same user id, got %s and %s", first.ID, u.ID)
	}
	if u.Email != "old@example.com" || u.DisplayName != "Old Name" {
		t.Fatalf("email/displayName must not refresh on repeat sign-in: %+v", u)
	}
	if u.LastSeenAt == nil {
		t.Fatal("expected LastSeenAt to be set on repeat sign-in")
	}
	if repo.inserts != 1 {
		t.Fatalf("expected a single insert across both sign-ins, got %d", repo.inserts)
	}
}

func TestSignIn_LastSeenMonotonic(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	svc.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}
	ctx := context.Background()
	ident := &oidc.Identity{Subject: "s", Email: "e@x", Name: "n"}

	if _, _, err := svc.SignIn(ctx, ident); err != nil {
		t.Fatalf("sign-in 1: %v", err)
	}
	u2, _, err := svc.SignIn(ctx, ident)
	if err != nil {
		t.Fatalf("sign-in 2: %v", err)
	}
	u3, _, err := svc.SignIn(ctx, ident)
	if err != nil {
		t.Fatalf("sign-in 3: %v", err)
	}
	if u3.LastSeenAt.Before(*u2.LastSeenAt) {
		t.Fatalf("LastSeenAt went backwards: %v then %v", u2.LastSeenAt, u3.LastSeenAt)
	}
}

func TestSignIn_InsertConflictRetriesLookup(t *testing.T) {
	repo := newFakeRepo()
	winner := &models.User{
		ID:        "winner-id",
		Sub:       "sub-race",
		Email:     "winner@example.com",
		CreatedAt: time.Now().UTC(),
	}
	repo.conflictOnce = true
	repo.raceWinner = winner

	svc := NewService(repo)
	u, created, err := svc.SignIn(context.Background(), &oidc.Identity{Subject: "sub-race", Email: "loser@example.com"})
	if err != nil {
		t.Fatalf("conflict must not surface to the caller: %v", err)
	}
	if created {
		t.Fatal("loser of the insert race must not report created")
	}
	if u.ID != "winner-id" {
		t.Fatalf("expected the winner's row, got %+v", u)
	}
	if repo.touches != 1 {
		t.Fatalf("expected loser to touch LastSeenAt once, got %d", repo.touches)
	}
}

func TestSignIn_MissingSubject(t *testing.T) {
	svc := NewService(newFakeRepo())
	if _, _, err := svc.SignIn(context.Background(), &oidc.Identity{Email: "y@e.com"}); err == nil {
		t.Fatal("expected error when identity has no subject")
	}
	if _, _, err := svc.SignIn(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil identity")
	}
}

func TestSignIn_RepoErrorPropagates(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	// unknown storage failures must propagate, not be swallowed as conflicts
	boom := errors.New("boom")
	svc.repo = errRepo{err: boom}
	if _, _, err := svc.SignIn(context.Background(), &oidc.Identity{Subject: "s"}); !errors.Is(err, boom) {
		t.Fatalf("expected storage error to propagate, got %v", err)
	}
}

type errRepo struct{ err error }

func (e errRepo) Insert(ctx context.Context, u *models.User) error { return e.err }
func (e errRepo) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	return nil, e.err
}
func (e errRepo) GetByID(ctx context.Context, id string) (*models.User, error) { return nil, e.err }
func (e errRepo) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	return e.err
}
