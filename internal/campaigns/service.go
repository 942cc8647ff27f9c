package campaigns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/access"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/pipeline"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
	pkgerrors "github.com/dmeiser/popcorn-sales-manager-sub005/pkg/errors"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/ids"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/pagination"
)

type campaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	ListByProfile(ctx context.Context, profileID uuid.UUID, params pagination.Params) ([]models.Campaign, error)
	Update(ctx context.Context, campaign *models.Campaign) error
	DeleteWithTx(tx *gorm.DB, id uuid.UUID) error
}

type profileLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type catalogLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Catalog, error)
}

type resolver interface {
	Resolve(ctx context.Context, caller ids.CanonicalID, profileID ids.CanonicalID, ownerAccountID uuid.UUID, required access.Level) (access.Decision, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes campaign operations. Every operation re-derives the
// caller's authorization from the campaign's parent profile; grants are never
// cached across requests.
type Service interface {
	Create(ctx context.Context, caller ids.CanonicalID, profileID string, input CreateCampaignInput) (*CampaignDTO, error)
	Get(ctx context.Context, caller ids.CanonicalID, campaignID string) (*CampaignDTO, error)
	List(ctx context.Context, caller ids.CanonicalID, profileID string, params pagination.Params) (*CampaignListDTO, error)
	Update(ctx context.Context, caller ids.CanonicalID, campaignID string, input UpdateCampaignInput) (*CampaignDTO, error)
	Delete(ctx context.Context, caller ids.CanonicalID, campaignID string) error
}

// CreateCampaignInput captures the fields accepted at creation.
type CreateCampaignInput struct {
	Name      string     `json:"name" validate:"required,max=120"`
	CatalogID string     `json:"catalog_id" validate:"required"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// UpdateCampaignInput captures the mutable fields; nil means unchanged.
type UpdateCampaignInput struct {
	Name      *string    `json:"name,omitempty" validate:"omitempty,max=120"`
	CatalogID *string    `json:"catalog_id,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

type service struct {
	repo     campaignRepository
	profiles profileLoader
	catalogs catalogLoader
	engine   resolver
	tx       txRunner
	runner   *pipeline.Runner
}

// NewService builds the campaign service.
func NewService(repo campaignRepository, profiles profileLoader, catalogs catalogLoader, engine resolver, tx txRunner, runner *pipeline.Runner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("campaign repository required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile loader required")
	}
	if catalogs == nil {
		return nil, fmt.Errorf("catalog loader required")
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
	return &service{repo: repo, profiles: profiles, catalogs: catalogs, engine: engine, tx: tx, runner: runner}, nil
}

func validateDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end date must not precede start date")
	}
	return nil
}

// checkCatalogUsable enforces that the referenced catalog exists and is
// either public or owned by the caller.
func (s *service) checkCatalogUsable(ctx context.Context, caller ids.CanonicalID, rawCatalogID string) (uuid.UUID, error) {
	canonical := ids.Canonicalize(ids.KindCatalog, rawCatalogID)
	catalogUUID, err := canonical.UUID()
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog id is malformed")
	}
	catalog, err := s.catalogs.FindByID(ctx, catalogUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog does not exist")
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog")
	}
	if catalog.IsPublic {
		return catalogUUID, nil
	}
	callerUUID, err := caller.UUID()
	if err != nil || catalog.OwnerAccountID == nil || *catalog.OwnerAccountID != callerUUID {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "catalog is not accessible")
	}
	return catalogUUID, nil
}

// loadCampaignStep fetches the campaign and its parent profile. The parent is
// what authorization derives from, so both land in the stash together.
func (s *service) loadCampaignStep(campaignID string) pipeline.Step {
	return pipeline.Step{
		Name: "load-campaign",
		Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
			campaignUUID, err := uuid.Parse(strings.TrimSpace(campaignID))
			if err != nil {
				return pipeline.Abort(pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found"))
			}
			campaign, err := s.repo.FindByID(ctx, campaignUUID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pipeline.Abort(pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found"))
				}
				return pipeline.Abort(err)
			}
			profile, err := s.profiles.FindByID(ctx, campaign.ProfileID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pipeline.Abort(pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found"))
				}
				return pipeline.Abort(err)
			}
			pc.Stash.Campaign = campaign
			pc.Stash.Profile = profile
			return pipeline.Continue(campaign)
		},
	}
}

// authorizeStep resolves the caller against the stashed parent profile. A
// denial on a read presents as NotFound so campaign ids cannot be probed.
func (s *service) authorizeStep(required access.Level) pipeline.Step {
	return pipeline.Step{
		Name: "authorize",
		Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
			profile := pc.Stash.Profile
			decision, err := s.engine.Resolve(ctx, pc.Caller,
				ids.FromUUID(ids.KindProfile, profile.ID), profile.OwnerAccountID, required)
			if err != nil {
				return pipeline.Abort(err)
			}
			if !decision.Allowed() {
				if required == access.LevelRead {
					return pipeline.Abort(pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found"))
				}
				return pipeline.Abort(pkgerrors.New(pkgerrors.CodeForbidden, "insufficient access to the parent profile"))
			}
			pc.Stash.Decision = decision
			return pipeline.Skip()
		},
	}
}

// resolveProfile canonicalizes a raw profile id, loads it, and resolves the
// caller's grant in one shot for the operations addressed by profile.
func (s *service) resolveProfile(ctx context.Context, caller ids.CanonicalID, profileID string, required access.Level) (*models.Profile, error) {
	canonical := ids.Canonicalize(ids.KindProfile, profileID)
	profileUUID, err := canonical.UUID()
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	profile, err := s.profiles.FindByID(ctx, profileUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	decision, err := s.engine.Resolve(ctx, caller, canonical, profile.OwnerAccountID, required)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient access to the profile")
	}
	return profile, nil
}

func (s *service) Create(ctx context.Context, caller ids.CanonicalID, profileID string, input CreateCampaignInput) (*CampaignDTO, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign name is required")
	}
	if err := validateDates(input.StartDate, input.EndDate); err != nil {
		return nil, err
	}

	profile, err := s.resolveProfile(ctx, caller, profileID, access.LevelWrite)
	if err != nil {
		return nil, err
	}
	catalogUUID, err := s.checkCatalogUsable(ctx, caller, input.CatalogID)
	if err != nil {
		return nil, err
	}

	result, err := s.runner.Run(ctx, caller, input,
		pipeline.Step{
			Name: "create-campaign",
			Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
				campaign := &models.Campaign{
					ProfileID: profile.ID,
					CatalogID: catalogUUID,
					Name:      strings.TrimSpace(input.Name),
					StartDate: input.StartDate,
					EndDate:   input.EndDate,
				}
				if err := s.repo.Create(ctx, campaign); err != nil {
					return pipeline.Abort(err)
				}
				return pipeline.Continue(ToDTO(campaign))
			},
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(*CampaignDTO), nil
}

func (s *service) Get(ctx context.Context, caller ids.CanonicalID, campaignID string) (*CampaignDTO, error) {
	result, err := s.runner.Run(ctx, caller, nil,
		s.loadCampaignStep(campaignID),
		s.authorizeStep(access.LevelRead),
		pipeline.Step{
			Name: "respond",
			Run: func(_ context.Context, pc *pipeline.Context) pipeline.Outcome {
				return pipeline.Continue(ToDTO(pc.Stash.Campaign))
			},
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(*CampaignDTO), nil
}

func (s *service) List(ctx context.Context, caller ids.CanonicalID, profileID string, params pagination.Params) (*CampaignListDTO, error) {
	profile, err := s.resolveProfile(ctx, caller, profileID, access.LevelRead)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListByProfile(ctx, profile.ID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list campaigns")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	out := &CampaignListDTO{}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		out.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	out.Items = ToDTOs(rows)
	return out, nil
}

func (s *service) Update(ctx context.Context, caller ids.CanonicalID, campaignID string, input UpdateCampaignInput) (*CampaignDTO, error) {
	result, err := s.runner.Run(ctx, caller, input,
		s.loadCampaignStep(campaignID),
		s.authorizeStep(access.LevelWrite),
		pipeline.Step{
			Name: "apply-update",
			Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
				campaign := pc.Stash.Campaign
				if input.Name != nil {
					name := strings.TrimSpace(*input.Name)
					if name == "" {
						return pipeline.Abort(pkgerrors.New(pkgerrors.CodeValidation, "campaign name cannot be empty"))
					}
					campaign.Name = name
				}
				if input.CatalogID != nil {
					catalogUUID, err := s.checkCatalogUsable(ctx, pc.Caller, *input.CatalogID)
					if err != nil {
						return pipeline.Abort(err)
					}
					campaign.CatalogID = catalogUUID
				}
				if input.StartDate != nil {
					campaign.StartDate = input.StartDate
				}
				if input.EndDate != nil {
					campaign.EndDate = input.EndDate
				}
				if err := validateDates(campaign.StartDate, campaign.EndDate); err != nil {
					return pipeline.Abort(err)
				}
				if err := s.repo.Update(ctx, campaign); err != nil {
					return pipeline.Abort(err)
				}
				return pipeline.Continue(ToDTO(campaign))
			},
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(*CampaignDTO), nil
}

// Delete removes a campaign and its orders. Idempotent: deleting a campaign
// that is already gone reports success.
func (s *service) Delete(ctx context.Context, caller ids.CanonicalID, campaignID string) error {
	_, err := s.runner.Run(ctx, caller, nil,
		s.loadCampaignStep(campaignID),
		s.authorizeStep(access.LevelWrite),
		pipeline.Step{
			Name: "delete-campaign",
			Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
				err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
					return s.repo.DeleteWithTx(tx, pc.Stash.Campaign.ID)
				})
				if err != nil {
					return pipeline.Abort(err)
				}
				return pipeline.Continue(nil)
			},
			Recover: func(_ context.Context, pc *pipeline.Context, cause error) pipeline.Outcome {
				// target already gone, and the caller could not have seen it
				if typed := pkgerrors.As(cause); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
					pc.Stash.DeleteMissed = true
					return pipeline.Continue(nil)
				}
				return pipeline.Abort(cause)
			},
		},
	)
	return err
}
