package catalogs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/pipeline"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
	pkgerrors "github.com/dmeiser/popcorn-sales-manager-sub005/pkg/errors"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/ids"
)

type stubCatalogRepo struct {
	catalogs map[uuid.UUID]*models.Catalog

	updated []*models.Catalog
	deleted []uuid.UUID
}

func newStubCatalogRepo() *stubCatalogRepo {
	return &stubCatalogRepo{catalogs: map[uuid.UUID]*models.Catalog{}}
}

func (s *stubCatalogRepo) Create(_ context.Context, catalog *models.Catalog) error {
	catalog.ID = uuid.New()
	s.catalogs[catalog.ID] = catalog
	return nil
}

func (s *stubCatalogRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Catalog, error) {
	c, ok := s.catalogs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *stubCatalogRepo) ListVisible(_ context.Context, accountID uuid.UUID) ([]models.Catalog, error) {
	var out []models.Catalog
	for _, c := range s.catalogs {
		if c.IsPublic || (c.OwnerAccountID != nil && *c.OwnerAccountID == accountID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *stubCatalogRepo) UpdateWithTx(_ *gorm.DB, catalog *models.Catalog, products []models.Product) error {
	catalog.Products = products
	s.catalogs[catalog.ID] = catalog
	s.updated = append(s.updated, catalog)
	return nil
}

func (s *stubCatalogRepo) DeleteWithTx(_ *gorm.DB, id uuid.UUID) error {
	delete(s.catalogs, id)
	s.deleted = append(s.deleted, id)
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

type stubTx struct{}

func (stubTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type catalogFixture struct {
	svc     Service
	repo    *stubCatalogRepo
	member  ids.CanonicalID
	admin   ids.CanonicalID
	memberA *models.Account
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	member := &models.Account{ID: uuid.New(), Subject: "member"}
	admin := &models.Account{ID: uuid.New(), Subject: "admin", IsAdmin: true}
	repo := newStubCatalogRepo()
	loader := &stubAccountLoader{accounts: map[uuid.UUID]*models.Account{
		member.ID: member,
		admin.ID:  admin,
	}}

	svc, err := NewService(repo, loader, stubTx{}, pipeline.NewRunner(nil))
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return &catalogFixture{
		svc:     svc,
		repo:    repo,
		member:  ids.FromUUID(ids.KindAccount, member.ID),
		admin:   ids.FromUUID(ids.KindAccount, admin.ID),
		memberA: member,
	}
}

func (f *catalogFixture) seedPublic() *models.Catalog {
	catalog := &models.Catalog{ID: uuid.New(), Name: "National Popcorn", IsPublic: true}
	f.repo.catalogs[catalog.ID] = catalog
	return catalog
}

func (f *catalogFixture) seedPrivate(owner uuid.UUID) *models.Catalog {
	catalog := &models.Catalog{ID: uuid.New(), Name: "Troop Catalog", OwnerAccountID: &owner}
	f.repo.catalogs[catalog.ID] = catalog
	return catalog
}

func TestServiceCreatePrivateCatalog(t *testing.T) {
	f := newCatalogFixture(t)

	dto, err := f.svc.Create(context.Background(), f.member, CreateCatalogInput{
		Name: "Troop Catalog",
		Products: []ProductInput{
			{ProductName: "Classic Popcorn", Price: "10.00"},
		},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if dto.IsPublic {
		t.Fatal("expected private catalog")
	}
	if len(dto.Products) != 1 || !dto.Products[0].Price.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("unexpected products %+v", dto.Products)
	}
}

func TestServiceCreatePublicCatalogRequiresAdmin(t *testing.T) {
	f := newCatalogFixture(t)

	_, err := f.svc.Create(context.Background(), f.member, CreateCatalogInput{Name: "National", IsPublic: true})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}

	if _, err := f.svc.Create(context.Background(), f.admin, CreateCatalogInput{Name: "National", IsPublic: true}); err != nil {
		t.Fatalf("admin create returned error: %v", err)
	}
}

func TestServiceCreateCatalogRejectsBadPrice(t *testing.T) {
	f := newCatalogFixture(t)

	_, err := f.svc.Create(context.Background(), f.member, CreateCatalogInput{
		Name:     "Troop Catalog",
		Products: []ProductInput{{ProductName: "Popcorn", Price: "ten dollars"}},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceGetPublicCatalogAsAnyAccount(t *testing.T) {
	f := newCatalogFixture(t)
	catalog := f.seedPublic()

	dto, err := f.svc.Get(context.Background(), f.member, catalog.ID.String())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if dto.Name != "National Popcorn" {
		t.Fatalf("unexpected catalog %+v", dto)
	}
}

func TestServiceGetForeignPrivateCatalogPresentsAsMissing(t *testing.T) {
	f := newCatalogFixture(t)
	catalog := f.seedPrivate(uuid.New())

	_, err := f.svc.Get(context.Background(), f.member, catalog.ID.String())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestServiceListVisibleCatalogs(t *testing.T) {
	f := newCatalogFixture(t)
	f.seedPublic()
	f.seedPrivate(f.memberA.ID)
	f.seedPrivate(uuid.New())

	rows, err := f.svc.List(context.Background(), f.member)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected public plus own catalog, got %d", len(rows))
	}
}

func TestServiceUpdatePublicCatalogRequiresAdmin(t *testing.T) {
	f := newCatalogFixture(t)
	catalog := f.seedPublic()

	name := "Renamed"
	_, err := f.svc.Update(context.Background(), f.member, catalog.ID.String(), UpdateCatalogInput{Name: &name})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}

	dto, err := f.svc.Update(context.Background(), f.admin, catalog.ID.String(), UpdateCatalogInput{Name: &name})
	if err != nil {
		t.Fatalf("admin update returned error: %v", err)
	}
	if dto.Name != "Renamed" {
		t.Fatalf("expected renamed catalog, got %q", dto.Name)
	}
}

func TestServiceUpdateMissingCatalogIsNotFound(t *testing.T) {
	f := newCatalogFixture(t)

	name := "Renamed"
	_, err := f.svc.Update(context.Background(), f.member, uuid.NewString(), UpdateCatalogInput{Name: &name})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
	if len(f.repo.updated) != 0 {
		t.Fatal("expected no implicit create on update")
	}
}

func TestServiceUpdateReplacesProducts(t *testing.T) {
	f := newCatalogFixture(t)
	catalog := f.seedPrivate(f.memberA.ID)
	catalog.Products = []models.Product{{ID: uuid.New(), CatalogID: catalog.ID, ProductName: "Old", Price: decimal.RequireFromString("5.00")}}

	products := []ProductInput{
		{ProductName: "Classic Popcorn", Price: "10.00"},
		{ProductName: "Caramel Corn", Price: "15.50", SortOrder: 1},
	}
	dto, err := f.svc.Update(context.Background(), f.member, catalog.ID.String(), UpdateCatalogInput{Products: &products})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if len(dto.Products) != 2 {
		t.Fatalf("expected replaced product set, got %+v", dto.Products)
	}
}

func TestServiceDeleteCatalogIdempotent(t *testing.T) {
	f := newCatalogFixture(t)
	catalog := f.seedPrivate(f.memberA.ID)

	if err := f.svc.Delete(context.Background(), f.member, catalog.ID.String()); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := f.svc.Delete(context.Background(), f.member, catalog.ID.String()); err != nil {
		t.Fatalf("second Delete should succeed, got %v", err)
	}
	if len(f.repo.deleted) != 1 {
		t.Fatalf("expected one delete call, got %d", len(f.repo.deleted))
	}
}

func TestServiceDeletePublicCatalogRequiresAdmin(t *testing.T) {
	f := newCatalogFixture(t)
	catalog := f.seedPublic()

	err := f.svc.Delete(context.Background(), f.member, catalog.ID.String())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}

	if err := f.svc.Delete(context.Background(), f.admin, catalog.ID.String()); err != nil {
		t.Fatalf("admin delete returned error: %v", err)
	}
}
