package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/access"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/pipeline"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/pricing"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
	pkgerrors "github.com/dmeiser/popcorn-sales-manager-sub005/pkg/errors"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/ids"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/pagination"
)

type orderRepository interface {
	CreateWithTx(tx *gorm.DB, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByCampaign(ctx context.Context, campaignID uuid.UUID, params pagination.Params) ([]models.Order, error)
	UpdateWithTx(tx *gorm.DB, order *models.Order, lineItems []models.OrderLineItem) error
	DeleteWithTx(tx *gorm.DB, id uuid.UUID) error
}

type campaignStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	RecomputeAggregatesWithTx(tx *gorm.DB, campaignID uuid.UUID) error
}

type profileLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type productLoader interface {
	ListProducts(ctx context.Context, catalogID uuid.UUID) ([]models.Product, error)
}

type resolver interface {
	Resolve(ctx context.Context, caller ids.CanonicalID, profileID ids.CanonicalID, ownerAccountID uuid.UUID, required access.Level) (access.Decision, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes order operations. All money values are computed server-side
// from the campaign's catalog; authorization is re-derived from the parent
// profile on every call.
type Service interface {
	Create(ctx context.Context, caller ids.CanonicalID, campaignID string, input CreateOrderInput) (*OrderDTO, error)
	Get(ctx context.Context, caller ids.CanonicalID, orderID string) (*OrderDTO, error)
	List(ctx context.Context, caller ids.CanonicalID, campaignID string, params pagination.Params) (*OrderListDTO, error)
	Update(ctx context.Context, caller ids.CanonicalID, orderID string, input UpdateOrderInput) (*OrderDTO, error)
	Delete(ctx context.Context, caller ids.CanonicalID, orderID string) error
}

// CreateOrderInput captures the fields accepted at creation. Items carry
// product references and quantities only.
type CreateOrderInput struct {
	CustomerName  string         `json:"customer_name" validate:"required,max=120"`
	CustomerPhone *string        `json:"customer_phone,omitempty" validate:"omitempty,max=30"`
	CustomerEmail *string        `json:"customer_email,omitempty" validate:"omitempty,email"`
	Notes         *string        `json:"notes,omitempty" validate:"omitempty,max=500"`
	Items         []pricing.Item `json:"items" validate:"required,min=1,dive"`
}

// UpdateOrderInput captures the mutable fields; nil means unchanged. A
// non-nil Items replaces and reprices the full line set.
type UpdateOrderInput struct {
	CustomerName  *string         `json:"customer_name,omitempty" validate:"omitempty,max=120"`
	CustomerPhone *string         `json:"customer_phone,omitempty" validate:"omitempty,max=30"`
	CustomerEmail *string         `json:"customer_email,omitempty" validate:"omitempty,email"`
	Notes         *string         `json:"notes,omitempty" validate:"omitempty,max=500"`
	Items         *[]pricing.Item `json:"items,omitempty"`
}

type service struct {
	repo      orderRepository
	campaigns campaignStore
	profiles  profileLoader
	products  productLoader
	engine    resolver
	tx        txRunner
	runner    *pipeline.Runner
}

// NewService builds the order service.
func NewService(repo orderRepository, campaigns campaignStore, profiles profileLoader, products productLoader, engine resolver, tx txRunner, runner *pipeline.Runner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if campaigns == nil {
		return nil, fmt.Errorf("campaign store required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile loader required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if engine == nil {
		return nil, fmt.Errorf("access engine required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if runner == nil {
		return nil, fmt.Errorf("pipeline runner required")
	}
	return &service{repo: repo, campaigns: campaigns, profiles: profiles, products: products, engine: engine, tx: tx, runner: runner}, nil
}

// loadCampaignContext resolves a campaign, its parent profile, and the
// caller's grant against that profile.
func (s *service) loadCampaignContext(ctx context.Context, caller ids.CanonicalID, campaignID string, required access.Level) (*models.Campaign, error) {
	campaignUUID, err := uuid.Parse(strings.TrimSpace(campaignID))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found")
	}
	campaign, err := s.campaigns.FindByID(ctx, campaignUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load campaign")
	}
	if err := s.authorize(ctx, caller, campaign.ProfileID, required, "campaign not found"); err != nil {
		return nil, err
	}
	return campaign, nil
}

func (s *service) authorize(ctx context.Context, caller ids.CanonicalID, profileID uuid.UUID, required access.Level, notFoundMsg string) error {
	profile, err := s.profiles.FindByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	decision, err := s.engine.Resolve(ctx, caller,
		ids.FromUUID(ids.KindProfile, profile.ID), profile.OwnerAccountID, required)
	if err != nil {
		return err
	}
	if !decision.Allowed() {
		if required == access.LevelRead {
			return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
		}
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient access to the parent profile")
	}
	return nil
}

func (s *service) Create(ctx context.Context, caller ids.CanonicalID, campaignID string, input CreateOrderInput) (*OrderDTO, error) {
	if strings.TrimSpace(input.CustomerName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "an order needs at least one item")
	}

	campaign, err := s.loadCampaignContext(ctx, caller, campaignID, access.LevelWrite)
	if err != nil {
		return nil, err
	}

	result, err := s.runner.Run(ctx, caller, input,
		pipeline.Step{
			Name: "price-order",
			Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
				products, err := s.products.ListProducts(ctx, campaign.CatalogID)
				if err != nil {
					return pipeline.Abort(err)
				}
				lines, total, err := pricing.Price(products, input.Items)
				if err != nil {
					return pipeline.Abort(err)
				}
				order := &models.Order{
					CampaignID:    campaign.ID,
					CustomerName:  strings.TrimSpace(input.CustomerName),
					CustomerPhone: input.CustomerPhone,
					CustomerEmail: input.CustomerEmail,
					Notes:         input.Notes,
					TotalAmount:   total,
				}
				order.LineItems = pricing.ToLineItems(order.ID, lines)
				pc.Stash.Order = order
				return pipeline.Continue(order)
			},
		},
		pipeline.Step{
			Name: "persist-order",
			Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
				order := pc.Stash.Order
				err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
					if err := s.repo.CreateWithTx(tx, order); err != nil {
						return err
					}
					return s.campaigns.RecomputeAggregatesWithTx(tx, campaign.ID)
				})
				if err != nil {
					return pipeline.Abort(err)
				}
				return pipeline.Continue(ToDTO(order))
			},
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(*OrderDTO), nil
}

func (s *service) Get(ctx context.Context, caller ids.CanonicalID, orderID string) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadCampaignContext(ctx, caller, order.CampaignID.String(), access.LevelRead); err != nil {
		// a denied or dangling parent presents the order as missing
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return ToDTO(order), nil
}

func (s *service) loadOrder(ctx context.Context, orderID string) (*models.Order, error) {
	orderUUID, err := uuid.Parse(strings.TrimSpace(orderID))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	order, err := s.repo.FindByID(ctx, orderUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, caller ids.CanonicalID, campaignID string, params pagination.Params) (*OrderListDTO, error) {
	campaign, err := s.loadCampaignContext(ctx, caller, campaignID, access.LevelRead)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListByCampaign(ctx, campaign.ID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	out := &OrderListDTO{}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		out.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	out.Items = ToDTOs(rows)
	return out, nil
}

func (s *service) Update(ctx context.Context, caller ids.CanonicalID, orderID string, input UpdateOrderInput) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	campaign, err := s.loadCampaignContext(ctx, caller, order.CampaignID.String(), access.LevelWrite)
	if err != nil {
		return nil, err
	}

	result, err := s.runner.Run(ctx, caller, input,
		pipeline.Step{
			Name: "apply-update",
			Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
				if input.CustomerName != nil {
					name := strings.TrimSpace(*input.CustomerName)
					if name == "" {
						return pipeline.Abort(pkgerrors.New(pkgerrors.CodeValidation, "customer name cannot be empty"))
					}
					order.CustomerName = name
				}
				if input.CustomerPhone != nil {
					order.CustomerPhone = input.CustomerPhone
				}
				if input.CustomerEmail != nil {
					order.CustomerEmail = input.CustomerEmail
				}
				if input.Notes != nil {
					order.Notes = input.Notes
				}
				pc.Stash.Order = order
				return pipeline.Continue(order)
			},
		},
		pipeline.Step{
			Name: "reprice-order",
			Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
				lineItems := pc.Stash.Order.LineItems
				if input.Items != nil {
					if len(*input.Items) == 0 {
						return pipeline.Abort(pkgerrors.New(pkgerrors.CodeValidation, "an order needs at least one item"))
					}
					products, err := s.products.ListProducts(ctx, campaign.CatalogID)
					if err != nil {
						return pipeline.Abort(err)
					}
					lines, total, err := pricing.Price(products, *input.Items)
					if err != nil {
						return pipeline.Abort(err)
					}
					pc.Stash.Order.TotalAmount = total
					lineItems = pricing.ToLineItems(pc.Stash.Order.ID, lines)
				}
				err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
					if err := s.repo.UpdateWithTx(tx, pc.Stash.Order, lineItems); err != nil {
						return err
					}
					return s.campaigns.RecomputeAggregatesWithTx(tx, campaign.ID)
				})
				if err != nil {
					return pipeline.Abort(err)
				}
				return pipeline.Continue(ToDTO(pc.Stash.Order))
			},
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(*OrderDTO), nil
}

// Delete removes an order and refreshes the campaign aggregates. Idempotent:
// deleting an order that is already gone reports success.
func (s *service) Delete(ctx context.Context, caller ids.CanonicalID, orderID string) error {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return nil
		}
		return err
	}
	campaign, err := s.loadCampaignContext(ctx, caller, order.CampaignID.String(), access.LevelWrite)
	if err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.DeleteWithTx(tx, order.ID); err != nil {
			return err
		}
		return s.campaigns.RecomputeAggregatesWithTx(tx, campaign.ID)
	})
}
