package templates

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/pipeline"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
	pkgerrors "github.com/dmeiser/popcorn-sales-manager-sub005/pkg/errors"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/ids"
)

type stubTemplateRepo struct {
	byCode map[string]*models.SharedCampaignTemplate

	deactivated []string
}

func newStubTemplateRepo() *stubTemplateRepo {
	return &stubTemplateRepo{byCode: map[string]*models.SharedCampaignTemplate{}}
}

func (s *stubTemplateRepo) Create(_ context.Context, template *models.SharedCampaignTemplate) error {
	if _, exists := s.byCode[template.Code]; exists {
		return errors.New(`ERROR: duplicate key value violates unique constraint "idx_templates_code" (SQLSTATE 23505)`)
	}
	template.ID = uuid.New()
	s.byCode[template.Code] = template
	return nil
}

func (s *stubTemplateRepo) FindByCode(_ context.Context, code string) (*models.SharedCampaignTemplate, error) {
	t, ok := s.byCode[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *stubTemplateRepo) FindByTuple(_ context.Context, unitType string, unitNumber int, city, state, campaignName string, campaignYear int) ([]models.SharedCampaignTemplate, error) {
	var out []models.SharedCampaignTemplate
	for _, t := range s.byCode {
		if t.Active && t.UnitType == unitType && t.UnitNumber == unitNumber &&
			t.City == city && t.State == state &&
			t.CampaignName == campaignName && t.CampaignYear == campaignYear {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *stubTemplateRepo) Deactivate(_ context.Context, code string) error {
	if t, ok := s.byCode[code]; ok {
		t.Active = false
	}
	s.deactivated = append(s.deactivated, code)
	return nil
}

type stubAccountLoader struct {
	accounts map[uuid.UUID]*models.Account
}

func (s *stubAccountLoader) FindByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}

type templateFixture struct {
	svc    Service
	repo   *stubTemplateRepo
	caller ids.CanonicalID
	other  ids.CanonicalID
}

func newTemplateFixture(t *testing.T) *templateFixture {
	t.Helper()
	caller := &models.Account{ID: uuid.New(), Subject: "leader"}
	other := &models.Account{ID: uuid.New(), Subject: "other"}
	repo := newStubTemplateRepo()
	loader := &stubAccountLoader{accounts: map[uuid.UUID]*models.Account{
		caller.ID: caller,
		other.ID:  other,
	}}
	svc, err := NewService(repo, loader, pipeline.NewRunner(nil))
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return &templateFixture{
		svc:    svc,
		repo:   repo,
		caller: ids.FromUUID(ids.KindAccount, caller.ID),
		other:  ids.FromUUID(ids.KindAccount, other.ID),
	}
}

func fallInput() PublishInput {
	return PublishInput{
		CatalogID:    uuid.NewString(),
		UnitType:     "Pack",
		UnitNumber:   123,
		City:         "Cedar Rapids",
		State:        "ia",
		CampaignName: "Fall Popcorn",
		CampaignYear: 2026,
	}
}

func TestDeriveCodeIsDeterministic(t *testing.T) {
	in := fallInput()
	first := DeriveCode(in)
	second := DeriveCode(in)
	if first != second {
		t.Fatalf("expected stable code, got %q then %q", first, second)
	}
	if first != "PACK-123-CEDAR-RAPIDS-IA-FALL-POPCORN-2026" {
		t.Fatalf("unexpected code %q", first)
	}
}

func TestServicePublishTemplate(t *testing.T) {
	f := newTemplateFixture(t)

	dto, err := f.svc.Publish(context.Background(), f.caller, fallInput())
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if !dto.Active {
		t.Fatal("expected published template to be active")
	}
	if dto.State != "IA" {
		t.Fatalf("expected normalized state, got %q", dto.State)
	}
}

func TestServicePublishDuplicateCodeConflicts(t *testing.T) {
	f := newTemplateFixture(t)

	if _, err := f.svc.Publish(context.Background(), f.caller, fallInput()); err != nil {
		t.Fatalf("first publish returned error: %v", err)
	}
	_, err := f.svc.Publish(context.Background(), f.other, fallInput())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if len(f.repo.byCode) != 1 {
		t.Fatalf("expected a single template record, got %d", len(f.repo.byCode))
	}
}

func TestServicePublishRejectsBadState(t *testing.T) {
	f := newTemplateFixture(t)
	in := fallInput()
	in.State = "Iowa"

	_, err := f.svc.Publish(context.Background(), f.caller, in)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceDiscoverMatchingTuple(t *testing.T) {
	f := newTemplateFixture(t)
	if _, err := f.svc.Publish(context.Background(), f.caller, fallInput()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	rows, err := f.svc.Discover(context.Background(), f.other, DiscoverQuery{
		UnitType: "Pack", UnitNumber: 123, City: "Cedar Rapids", State: "IA",
		CampaignName: "Fall Popcorn", CampaignYear: 2026,
	})
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one template, got %d", len(rows))
	}
}

func TestServiceDiscoverEmptyTupleIsNotAnError(t *testing.T) {
	f := newTemplateFixture(t)

	rows, err := f.svc.Discover(context.Background(), f.caller, DiscoverQuery{
		UnitType: "Troop", UnitNumber: 999, City: "Nowhere", State: "KS",
		CampaignName: "Spring Plants", CampaignYear: 2026,
	})
	if err != nil {
		t.Fatalf("expected empty result, got error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected zero templates, got %d", len(rows))
	}
}

func TestServiceDeactivateTemplateIdempotent(t *testing.T) {
	f := newTemplateFixture(t)
	dto, err := f.svc.Publish(context.Background(), f.caller, fallInput())
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if err := f.svc.Deactivate(context.Background(), f.caller, dto.Code); err != nil {
		t.Fatalf("Deactivate returned error: %v", err)
	}
	if err := f.svc.Deactivate(context.Background(), f.caller, dto.Code); err != nil {
		t.Fatalf("second Deactivate should succeed, got %v", err)
	}
	if err := f.svc.Deactivate(context.Background(), f.caller, "NO-SUCH-CODE"); err != nil {
		t.Fatalf("deactivating an unknown code should succeed, got %v", err)
	}
}

func TestServiceDeactivateForbiddenForStranger(t *testing.T) {
	f := newTemplateFixture(t)
	dto, err := f.svc.Publish(context.Background(), f.caller, fallInput())
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	err = f.svc.Deactivate(context.Background(), f.other, dto.Code)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestServiceDeactivatedTemplateLeavesDiscovery(t *testing.T) {
	f := newTemplateFixture(t)
	dto, err := f.svc.Publish(context.Background(), f.caller, fallInput())
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := f.svc.Deactivate(context.Background(), f.caller, dto.Code); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	rows, err := f.svc.Discover(context.Background(), f.caller, DiscoverQuery{
		UnitType: "Pack", UnitNumber: 123, City: "Cedar Rapids", State: "IA",
		CampaignName: "Fall Popcorn", CampaignYear: 2026,
	})
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected deactivated template to be hidden, got %d", len(rows))
	}
}
