package catalogs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/pipeline"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
	pkgerrors "github.com/dmeiser/popcorn-sales-manager-sub005/pkg/errors"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/ids"
)

type catalogRepository interface {
	Create(ctx context.Context, catalog *models.Catalog) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Catalog, error)
	ListVisible(ctx context.Context, accountID uuid.UUID) ([]models.Catalog, error)
	UpdateWithTx(tx *gorm.DB, catalog *models.Catalog, products []models.Product) error
	DeleteWithTx(tx *gorm.DB, id uuid.UUID) error
}

type accountLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes catalog operations. Public catalogs are readable by every
// account but mutable only by admins; private catalogs belong to the account
// that created them.
type Service interface {
	Create(ctx context.Context, caller ids.CanonicalID, input CreateCatalogInput) (*CatalogDTO, error)
	Get(ctx context.Context, caller ids.CanonicalID, catalogID string) (*CatalogDTO, error)
	List(ctx context.Context, caller ids.CanonicalID) ([]CatalogDTO, error)
	Update(ctx context.Context, caller ids.CanonicalID, catalogID string, input UpdateCatalogInput) (*CatalogDTO, error)
	Delete(ctx context.Context, caller ids.CanonicalID, catalogID string) error
}

// ProductInput is one submitted catalog item. Price arrives as a decimal
// string so no float ever touches a money value.
type ProductInput struct {
	ProductName string `json:"product_name" validate:"required,max=120"`
	Price       string `json:"price" validate:"required"`
	SortOrder   int    `json:"sort_order"`
}

// CreateCatalogInput captures the fields accepted at creation. IsPublic is
// honored only for admin callers.
type CreateCatalogInput struct {
	Name     string         `json:"name" validate:"required,max=120"`
	IsPublic bool           `json:"is_public"`
	Products []ProductInput `json:"products" validate:"omitempty,dive"`
}

// UpdateCatalogInput captures the mutable fields; nil means unchanged. A
// non-nil Products replaces the full product set.
type UpdateCatalogInput struct {
	Name     *string         `json:"name,omitempty" validate:"omitempty,max=120"`
	Products *[]ProductInput `json:"products,omitempty" validate:"omitempty,dive"`
}

type service struct {
	repo     catalogRepository
	accounts accountLoader
	tx       txRunner
	runner   *pipeline.Runner
}

// NewService builds the catalog service.
func NewService(repo catalogRepository, accounts accountLoader, tx txRunner, runner *pipeline.Runner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if accounts == nil {
		return nil, fmt.Errorf("account loader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if runner == nil {
		return nil, fmt.Errorf("pipeline runner required")
	}
	return &service{repo: repo, accounts: accounts, tx: tx, runner: runner}, nil
}

func parseProducts(catalogID uuid.UUID, inputs []ProductInput) ([]models.Product, error) {
	products := make([]models.Product, 0, len(inputs))
	for _, in := range inputs {
		name := strings.TrimSpace(in.ProductName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
		}
		price, err := decimal.NewFromString(strings.TrimSpace(in.Price))
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("price %q for product %q is not a valid decimal", in.Price, name))
		}
		if price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("price for product %q cannot be negative", name))
		}
		products = append(products, models.Product{
			CatalogID:   catalogID,
			ProductName: name,
			Price:       price.Round(2),
			SortOrder:   in.SortOrder,
		})
	}
	return products, nil
}

func (s *service) callerAccount(ctx context.Context, caller ids.CanonicalID) (*models.Account, error) {
	callerUUID, err := caller.UUID()
	if err != nil || !caller.Is(ids.KindAccount) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity missing")
	}
	account, err := s.accounts.FindByID(ctx, callerUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load caller account")
	}
	return account, nil
}

// canMutate reports whether the account may change the catalog: admins for
// public catalogs, owners for their own.
func canMutate(account *models.Account, catalog *models.Catalog) bool {
	if catalog.IsPublic {
		return account.IsAdmin
	}
	return catalog.OwnerAccountID != nil && *catalog.OwnerAccountID == account.ID
}

func canRead(account *models.Account, catalog *models.Catalog) bool {
	return catalog.IsPublic || canMutate(account, catalog)
}

func (s *service) Create(ctx context.Context, caller ids.CanonicalID, input CreateCatalogInput) (*CatalogDTO, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog name is required")
	}
	account, err := s.callerAccount(ctx, caller)
	if err != nil {
		return nil, err
	}
	if input.IsPublic && !account.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins may publish public catalogs")
	}

	result, err := s.runner.Run(ctx, caller, input,
		pipeline.Step{
			Name: "create-catalog",
			Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
				catalog := &models.Catalog{
					Name:     strings.TrimSpace(input.Name),
					IsPublic: input.IsPublic,
				}
				if !input.IsPublic {
					owner := account.ID
					catalog.OwnerAccountID = &owner
				}
				products, err := parseProducts(uuid.Nil, input.Products)
				if err != nil {
					return pipeline.Abort(err)
				}
				catalog.Products = products
				if err := s.repo.Create(ctx, catalog); err != nil {
					return pipeline.Abort(err)
				}
				pc.Stash.Catalog = catalog
				return pipeline.Continue(ToDTO(catalog))
			},
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(*CatalogDTO), nil
}

func (s *service) loadCatalog(ctx context.Context, catalogID string) (*models.Catalog, error) {
	canonical := ids.Canonicalize(ids.KindCatalog, catalogID)
	catalogUUID, err := canonical.UUID()
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "catalog not found")
	}
	catalog, err := s.repo.FindByID(ctx, catalogUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "catalog not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog")
	}
	return catalog, nil
}

func (s *service) Get(ctx context.Context, caller ids.CanonicalID, catalogID string) (*CatalogDTO, error) {
	account, err := s.callerAccount(ctx, caller)
	if err != nil {
		return nil, err
	}
	catalog, err := s.loadCatalog(ctx, catalogID)
	if err != nil {
		return nil, err
	}
	if !canRead(account, catalog) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "catalog not found")
	}
	return ToDTO(catalog), nil
}

func (s *service) List(ctx context.Context, caller ids.CanonicalID) ([]CatalogDTO, error) {
	account, err := s.callerAccount(ctx, caller)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListVisible(ctx, account.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list catalogs")
	}
	return ToDTOs(rows), nil
}

// Update edits a catalog in place. A missing catalog is NotFound, never an
// implicit create.
func (s *service) Update(ctx context.Context, caller ids.CanonicalID, catalogID string, input UpdateCatalogInput) (*CatalogDTO, error) {
	account, err := s.callerAccount(ctx, caller)
	if err != nil {
		return nil, err
	}

	result, err := s.runner.Run(ctx, caller, input,
		pipeline.Step{
			Name: "load-catalog",
			Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
				catalog, err := s.loadCatalog(ctx, catalogID)
				if err != nil {
					return pipeline.Abort(err)
				}
				if !canMutate(account, catalog) {
					if !canRead(account, catalog) {
						return pipeline.Abort(pkgerrors.New(pkgerrors.CodeNotFound, "catalog not found"))
					}
					return pipeline.Abort(pkgerrors.New(pkgerrors.CodeForbidden, "catalog is not editable by this account"))
				}
				pc.Stash.Catalog = catalog
				return pipeline.Continue(catalog)
			},
		},
		pipeline.Step{
			Name: "apply-update",
			Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
				catalog := pc.Stash.Catalog
				if input.Name != nil {
					name := strings.TrimSpace(*input.Name)
					if name == "" {
						return pipeline.Abort(pkgerrors.New(pkgerrors.CodeValidation, "catalog name cannot be empty"))
					}
					catalog.Name = name
				}
				products := catalog.Products
				if input.Products != nil {
					parsed, err := parseProducts(catalog.ID, *input.Products)
					if err != nil {
						return pipeline.Abort(err)
					}
					products = parsed
				}
				err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
					return s.repo.UpdateWithTx(tx, catalog, products)
				})
				if err != nil {
					return pipeline.Abort(err)
				}
				return pipeline.Continue(ToDTO(catalog))
			},
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(*CatalogDTO), nil
}

// Delete removes a catalog. Idempotent: deleting a catalog that is already
// gone reports success.
func (s *service) Delete(ctx context.Context, caller ids.CanonicalID, catalogID string) error {
	account, err := s.callerAccount(ctx, caller)
	if err != nil {
		return err
	}
	catalog, err := s.loadCatalog(ctx, catalogID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return nil
		}
		return err
	}
	if !canMutate(account, catalog) {
		if !canRead(account, catalog) {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeForbidden, "catalog is not deletable by this account")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.DeleteWithTx(tx, catalog.ID)
	})
}
