package profiles

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/access"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/pipeline"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
	pkgerrors "github.com/dmeiser/popcorn-sales-manager-sub005/pkg/errors"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/ids"
)

type stubProfileRepo struct {
	profiles map[uuid.UUID]*models.Profile

	created *models.Profile
	updated *models.Profile
	deleted []uuid.UUID
}

func newStubProfileRepo() *stubProfileRepo {
	return &stubProfileRepo{profiles: map[uuid.UUID]*models.Profile{}}
}

func (s *stubProfileRepo) Create(_ context.Context, profile *models.Profile) error {
	profile.ID = uuid.New()
	s.profiles[profile.ID] = profile
	s.created = profile
	return nil
}

func (s *stubProfileRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *stubProfileRepo) FindByOwner(_ context.Context, owner uuid.UUID) ([]models.Profile, error) {
	var out []models.Profile
	for _, p := range s.profiles {
		if p.OwnerAccountID == owner {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *stubProfileRepo) FindSharedWith(_ context.Context, _ uuid.UUID) ([]models.Profile, error) {
	return nil, nil
}

func (s *stubProfileRepo) Update(_ context.Context, profile *models.Profile) error {
	s.profiles[profile.ID] = profile
	s.updated = profile
	return nil
}

func (s *stubProfileRepo) DeleteWithTx(_ *gorm.DB, id uuid.UUID) error {
	delete(s.profiles, id)
	s.deleted = append(s.deleted, id)
	return nil
}

type stubTx struct{}

func (stubTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubResolver struct {
	decision access.Decision
	err      error
	calls    int
}

func (s *stubResolver) Resolve(_ context.Context, _ ids.CanonicalID, _ ids.CanonicalID, _ uuid.UUID, _ access.Level) (access.Decision, error) {
	s.calls++
	return s.decision, s.err
}

func newProfileService(t *testing.T, repo *stubProfileRepo, res *stubResolver) Service {
	t.Helper()
	svc, err := NewService(repo, res, stubTx{}, pipeline.NewRunner(nil))
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return svc
}

func ownerDecision() access.Decision {
	return access.Decision{State: access.StateOwner, Grant: access.LevelFull}
}

func TestServiceCreateProfile(t *testing.T) {
	repo := newStubProfileRepo()
	svc := newProfileService(t, repo, &stubResolver{})
	caller := ids.FromUUID(ids.KindAccount, uuid.New())

	dto, err := svc.Create(context.Background(), caller, CreateProfileInput{SellerName: "  Sam Scout  "})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if repo.created == nil {
		t.Fatal("expected a profile to be persisted")
	}
	if dto.SellerName != "Sam Scout" {
		t.Fatalf("expected trimmed seller name, got %q", dto.SellerName)
	}
	if !dto.ID.Is(ids.KindProfile) {
		t.Fatalf("expected canonical profile id, got %q", dto.ID)
	}
}

func TestServiceCreateProfileRejectsEmptyName(t *testing.T) {
	svc := newProfileService(t, newStubProfileRepo(), &stubResolver{})
	caller := ids.FromUUID(ids.KindAccount, uuid.New())

	_, err := svc.Create(context.Background(), caller, CreateProfileInput{SellerName: "   "})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceCreateProfileRejectsMalformedCaller(t *testing.T) {
	svc := newProfileService(t, newStubProfileRepo(), &stubResolver{})

	_, err := svc.Create(context.Background(), ids.CanonicalID(""), CreateProfileInput{SellerName: "Sam"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestServiceGetProfileAsOwner(t *testing.T) {
	repo := newStubProfileRepo()
	owner := uuid.New()
	profile := &models.Profile{ID: uuid.New(), OwnerAccountID: owner, SellerName: "Sam"}
	repo.profiles[profile.ID] = profile

	svc := newProfileService(t, repo, &stubResolver{decision: ownerDecision()})

	dto, err := svc.Get(context.Background(), ids.FromUUID(ids.KindAccount, owner), profile.ID.String())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if dto == nil || dto.SellerName != "Sam" {
		t.Fatalf("expected profile, got %+v", dto)
	}
}

func TestServiceGetProfileDeniedReadsAsNotFound(t *testing.T) {
	repo := newStubProfileRepo()
	profile := &models.Profile{ID: uuid.New(), OwnerAccountID: uuid.New(), SellerName: "Sam"}
	repo.profiles[profile.ID] = profile

	svc := newProfileService(t, repo, &stubResolver{decision: access.Decision{State: access.StateDenied}})

	dto, err := svc.Get(context.Background(), ids.FromUUID(ids.KindAccount, uuid.New()), profile.ID.String())
	if dto != nil {
		t.Fatalf("expected no profile, got %+v", dto)
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found for denied read, got %v", err)
	}
}

func TestServiceGetProfileMissingReadsAsNotFound(t *testing.T) {
	svc := newProfileService(t, newStubProfileRepo(), &stubResolver{})

	dto, err := svc.Get(context.Background(), ids.FromUUID(ids.KindAccount, uuid.New()), uuid.NewString())
	if dto != nil {
		t.Fatalf("expected no profile, got %+v", dto)
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found for missing profile, got %v", err)
	}
}

func TestServiceListProfiles(t *testing.T) {
	repo := newStubProfileRepo()
	owner := uuid.New()
	repo.profiles[uuid.New()] = &models.Profile{ID: uuid.New(), OwnerAccountID: owner, SellerName: "Mine"}

	svc := newProfileService(t, repo, &stubResolver{})

	list, err := svc.List(context.Background(), ids.FromUUID(ids.KindAccount, owner))
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(list.Owned) != 1 || len(list.Shared) != 0 {
		t.Fatalf("expected 1 owned and 0 shared, got %d/%d", len(list.Owned), len(list.Shared))
	}
}

func TestServiceUpdateProfileWithWriteGrant(t *testing.T) {
	repo := newStubProfileRepo()
	profile := &models.Profile{ID: uuid.New(), OwnerAccountID: uuid.New(), SellerName: "Before"}
	repo.profiles[profile.ID] = profile

	res := &stubResolver{decision: access.Decision{State: access.StateShared, Grant: access.LevelFull}}
	svc := newProfileService(t, repo, res)

	name := "After"
	dto, err := svc.Update(context.Background(), ids.FromUUID(ids.KindAccount, uuid.New()), profile.ID.String(), UpdateProfileInput{SellerName: &name})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if dto.SellerName != "After" {
		t.Fatalf("expected updated name, got %q", dto.SellerName)
	}
	if repo.updated == nil {
		t.Fatal("expected update to be persisted")
	}
}

func TestServiceUpdateProfileDeniedWithoutWrite(t *testing.T) {
	repo := newStubProfileRepo()
	profile := &models.Profile{ID: uuid.New(), OwnerAccountID: uuid.New(), SellerName: "Before"}
	repo.profiles[profile.ID] = profile

	res := &stubResolver{decision: access.Decision{State: access.StateDenied}}
	svc := newProfileService(t, repo, res)

	name := "After"
	_, err := svc.Update(context.Background(), ids.FromUUID(ids.KindAccount, uuid.New()), profile.ID.String(), UpdateProfileInput{SellerName: &name})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}
	if repo.updated != nil {
		t.Fatal("expected no persisted update on denial")
	}
}

func TestServiceDeleteProfileAsOwner(t *testing.T) {
	repo := newStubProfileRepo()
	owner := uuid.New()
	profile := &models.Profile{ID: uuid.New(), OwnerAccountID: owner, SellerName: "Sam"}
	repo.profiles[profile.ID] = profile

	svc := newProfileService(t, repo, &stubResolver{})

	if err := svc.Delete(context.Background(), ids.FromUUID(ids.KindAccount, owner), profile.ID.String()); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if len(repo.deleted) != 1 {
		t.Fatalf("expected one delete call, got %d", len(repo.deleted))
	}
}

func TestServiceDeleteProfileIdempotentWhenMissing(t *testing.T) {
	repo := newStubProfileRepo()
	svc := newProfileService(t, repo, &stubResolver{})

	err := svc.Delete(context.Background(), ids.FromUUID(ids.KindAccount, uuid.New()), uuid.NewString())
	if err != nil {
		t.Fatalf("expected idempotent success, got %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Fatal("expected no delete call for a missing profile")
	}
}

func TestServiceDeleteProfileForbiddenForNonOwner(t *testing.T) {
	repo := newStubProfileRepo()
	profile := &models.Profile{ID: uuid.New(), OwnerAccountID: uuid.New(), SellerName: "Sam"}
	repo.profiles[profile.ID] = profile

	svc := newProfileService(t, repo, &stubResolver{})

	err := svc.Delete(context.Background(), ids.FromUUID(ids.KindAccount, uuid.New()), profile.ID.String())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Fatal("expected no delete call for a non-owner")
	}
}
