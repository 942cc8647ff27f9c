package templates

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/pipeline"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
	pkgerrors "github.com/dmeiser/popcorn-sales-manager-sub005/pkg/errors"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/ids"
)

type templateRepository interface {
	Create(ctx context.Context, template *models.SharedCampaignTemplate) error
	FindByCode(ctx context.Context, code string) (*models.SharedCampaignTemplate, error)
	FindByTuple(ctx context.Context, unitType string, unitNumber int, city, state, campaignName string, campaignYear int) ([]models.SharedCampaignTemplate, error)
	Deactivate(ctx context.Context, code string) error
}

type accountLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// Service exposes shared campaign template operations: publish under a
// globally-unique code, discover by unit tuple, deactivate.
type Service interface {
	Publish(ctx context.Context, caller ids.CanonicalID, input PublishInput) (*TemplateDTO, error)
	Get(ctx context.Context, caller ids.CanonicalID, code string) (*TemplateDTO, error)
	Discover(ctx context.Context, caller ids.CanonicalID, query DiscoverQuery) ([]TemplateDTO, error)
	Deactivate(ctx context.Context, caller ids.CanonicalID, code string) error
}

// PublishInput captures the template fields. The code is derived from the
// unit tuple, never supplied by the client.
type PublishInput struct {
	CatalogID    string `json:"catalog_id" validate:"required"`
	UnitType     string `json:"unit_type" validate:"required,max=40"`
	UnitNumber   int    `json:"unit_number" validate:"required,min=1"`
	City         string `json:"city" validate:"required,max=80"`
	State        string `json:"state" validate:"required,len=2"`
	CampaignName string `json:"campaign_name" validate:"required,max=120"`
	CampaignYear int    `json:"campaign_year" validate:"required,min=2000"`
}

// DiscoverQuery is the equality tuple for template discovery.
type DiscoverQuery struct {
	UnitType     string `json:"unit_type" validate:"required"`
	UnitNumber   int    `json:"unit_number" validate:"required"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	CampaignName string `json:"campaign_name" validate:"required"`
	CampaignYear int    `json:"campaign_year" validate:"required"`
}

type service struct {
	repo     templateRepository
	accounts accountLoader
	runner   *pipeline.Runner
}

// NewService builds the template service.
func NewService(repo templateRepository, accounts accountLoader, runner *pipeline.Runner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("template repository required")
	}
	if accounts == nil {
		return nil, fmt.Errorf("account loader required")
	}
	if runner == nil {
		return nil, fmt.Errorf("pipeline runner required")
	}
	return &service{repo: repo, accounts: accounts, runner: runner}, nil
}

var codeSanitizer = regexp.MustCompile(`[^A-Z0-9]+`)

func slugPart(s string) string {
	return strings.Trim(codeSanitizer.ReplaceAllString(strings.ToUpper(strings.TrimSpace(s)), "-"), "-")
}

// DeriveCode builds the template's globally-unique code from the unit tuple.
// Deterministic on purpose: two units publishing the same campaign collide on
// the unique constraint instead of silently duplicating.
func DeriveCode(in PublishInput) string {
	return fmt.Sprintf("%s-%d-%s-%s-%s-%d",
		slugPart(in.UnitType), in.UnitNumber, slugPart(in.City), slugPart(in.State),
		slugPart(in.CampaignName), in.CampaignYear)
}

func (s *service) requireCaller(ctx context.Context, caller ids.CanonicalID) (*models.Account, error) {
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

func validatePublishInput(in PublishInput) error {
	switch {
	case strings.TrimSpace(in.UnitType) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "unit type is required")
	case in.UnitNumber < 1:
		return pkgerrors.New(pkgerrors.CodeValidation, "unit number must be positive")
	case strings.TrimSpace(in.City) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "city is required")
	case len(strings.TrimSpace(in.State)) != 2:
		return pkgerrors.New(pkgerrors.CodeValidation, "state must be a two-letter code")
	case strings.TrimSpace(in.CampaignName) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "campaign name is required")
	case in.CampaignYear < 2000:
		return pkgerrors.New(pkgerrors.CodeValidation, "campaign year is out of range")
	}
	return nil
}

// Publish creates a template under its derived code. The insert carries a
// must-not-exist precondition via the unique index; a duplicate code maps to
// Conflict at the pipeline boundary.
func (s *service) Publish(ctx context.Context, caller ids.CanonicalID, input PublishInput) (*TemplateDTO, error) {
	if err := validatePublishInput(input); err != nil {
		return nil, err
	}
	catalogUUID, err := ids.Canonicalize(ids.KindCatalog, input.CatalogID).UUID()
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog id is malformed")
	}
	account, err := s.requireCaller(ctx, caller)
	if err != nil {
		return nil, err
	}

	result, err := s.runner.Run(ctx, caller, input,
		pipeline.Step{
			Name: "publish-template",
			Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
				template := &models.SharedCampaignTemplate{
					Code:           DeriveCode(input),
					OwnerAccountID: account.ID,
					CatalogID:      catalogUUID,
					UnitType:       strings.TrimSpace(input.UnitType),
					UnitNumber:     input.UnitNumber,
					City:           strings.TrimSpace(input.City),
					State:          strings.ToUpper(strings.TrimSpace(input.State)),
					CampaignName:   strings.TrimSpace(input.CampaignName),
					CampaignYear:   input.CampaignYear,
					Active:         true,
				}
				if err := s.repo.Create(ctx, template); err != nil {
					return pipeline.Abort(err)
				}
				return pipeline.Continue(ToDTO(template))
			},
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(*TemplateDTO), nil
}

func (s *service) Get(ctx context.Context, caller ids.CanonicalID, code string) (*TemplateDTO, error) {
	if _, err := s.requireCaller(ctx, caller); err != nil {
		return nil, err
	}
	template, err := s.repo.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "template not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load template")
	}
	return ToDTO(template), nil
}

// Discover returns active templates matching the tuple exactly. Zero matches
// is an ordinary empty result.
func (s *service) Discover(ctx context.Context, caller ids.CanonicalID, query DiscoverQuery) ([]TemplateDTO, error) {
	if _, err := s.requireCaller(ctx, caller); err != nil {
		return nil, err
	}
	rows, err := s.repo.FindByTuple(ctx,
		strings.TrimSpace(query.UnitType), query.UnitNumber,
		strings.TrimSpace(query.City), strings.ToUpper(strings.TrimSpace(query.State)),
		strings.TrimSpace(query.CampaignName), query.CampaignYear)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "discover templates")
	}
	return ToDTOs(rows), nil
}

// Deactivate retires a template. Idempotent: unknown or already-inactive
// codes report success. Only the publisher or an admin may deactivate.
func (s *service) Deactivate(ctx context.Context, caller ids.CanonicalID, code string) error {
	account, err := s.requireCaller(ctx, caller)
	if err != nil {
		return err
	}
	template, err := s.repo.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load template")
	}
	if template.OwnerAccountID != account.ID && !account.IsAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the publisher may deactivate a template")
	}
	if err := s.repo.Deactivate(ctx, template.Code); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate template")
	}
	return nil
}
