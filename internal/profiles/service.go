package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/access"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/pipeline"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
	pkgerrors "github.com/dmeiser/popcorn-sales-manager-sub005/pkg/errors"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/ids"
)

type profileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	FindByOwner(ctx context.Context, ownerAccountID uuid.UUID) ([]models.Profile, error)
	FindSharedWith(ctx context.Context, accountID uuid.UUID) ([]models.Profile, error)
	Update(ctx context.Context, profile *models.Profile) error
	DeleteWithTx(tx *gorm.DB, id uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type resolver interface {
	Resolve(ctx context.Context, caller ids.CanonicalID, profileID ids.CanonicalID, ownerAccountID uuid.UUID, required access.Level) (access.Decision, error)
}

// Service exposes seller profile operations.
type Service interface {
	Create(ctx context.Context, caller ids.CanonicalID, input CreateProfileInput) (*ProfileDTO, error)
	Get(ctx context.Context, caller ids.CanonicalID, profileID string) (*ProfileDTO, error)
	List(ctx context.Context, caller ids.CanonicalID) (*ProfileListDTO, error)
	Update(ctx context.Context, caller ids.CanonicalID, profileID string, input UpdateProfileInput) (*ProfileDTO, error)
	Delete(ctx context.Context, caller ids.CanonicalID, profileID string) error
}

// CreateProfileInput captures the fields accepted at creation.
type CreateProfileInput struct {
	SellerName string  `json:"seller_name" validate:"required,max=100"`
	UnitType   *string `json:"unit_type,omitempty" validate:"omitempty,max=40"`
	UnitNumber *int    `json:"unit_number,omitempty"`
	City       *string `json:"city,omitempty" validate:"omitempty,max=80"`
	State      *string `json:"state,omitempty" validate:"omitempty,max=2"`
}

// UpdateProfileInput captures the mutable fields; nil means unchanged.
type UpdateProfileInput struct {
	SellerName *string `json:"seller_name,omitempty" validate:"omitempty,max=100"`
	UnitType   *string `json:"unit_type,omitempty" validate:"omitempty,max=40"`
	UnitNumber *int    `json:"unit_number,omitempty"`
	City       *string `json:"city,omitempty" validate:"omitempty,max=80"`
	State      *string `json:"state,omitempty" validate:"omitempty,max=2"`
}

// ProfileListDTO groups the caller's own profiles and the ones shared with
// them.
type ProfileListDTO struct {
	Owned  []ProfileDTO `json:"owned"`
	Shared []ProfileDTO `json:"shared"`
}

type service struct {
	repo   profileRepository
	engine resolver
	tx     txRunner
	runner *pipeline.Runner
}

// NewService builds a profile service with the provided collaborators.
func NewService(repo profileRepository, engine resolver, tx txRunner, runner *pipeline.Runner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("profile repository required")
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
	return &service{repo: repo, engine: engine, tx: tx, runner: runner}, nil
}

func callerUUID(caller ids.CanonicalID) (uuid.UUID, error) {
	if !caller.Is(ids.KindAccount) {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity missing")
	}
	id, err := caller.UUID()
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity malformed")
	}
	return id, nil
}

// loadStep fetches the profile addressed by a raw id into the stash.
func (s *service) loadStep(profileID string) pipeline.Step {
	return pipeline.Step{
		Name: "load-profile",
		Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
			canonical := ids.Canonicalize(ids.KindProfile, profileID)
			if canonical.IsZero() {
				return pipeline.Abort(pkgerrors.New(pkgerrors.CodeValidation, "profile id is required"))
			}
			id, err := canonical.UUID()
			if err != nil {
				return pipeline.Abort(pkgerrors.New(pkgerrors.CodeNotFound, "profile not found"))
			}
			profile, err := s.repo.FindByID(ctx, id)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pipeline.Abort(pkgerrors.New(pkgerrors.CodeNotFound, "profile not found"))
				}
				return pipeline.Abort(err)
			}
			pc.Stash.Profile = profile
			return pipeline.Continue(profile)
		},
	}
}

// authorizeStep resolves the caller against the stashed profile.
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
			pc.Stash.Decision = decision
			return pipeline.Skip()
		},
	}
}

func (s *service) Create(ctx context.Context, caller ids.CanonicalID, input CreateProfileInput) (*ProfileDTO, error) {
	owner, err := callerUUID(caller)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.SellerName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller name is required")
	}

	result, err := s.runner.Run(ctx, caller, input,
		pipeline.Step{
			Name: "create-profile",
			Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
				profile := &models.Profile{
					OwnerAccountID: owner,
					SellerName:     strings.TrimSpace(input.SellerName),
					UnitType:       input.UnitType,
					UnitNumber:     input.UnitNumber,
					City:           input.City,
					State:          input.State,
				}
				if err := s.repo.Create(ctx, profile); err != nil {
					return pipeline.Abort(err)
				}
				return pipeline.Continue(FromModel(profile))
			},
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(*ProfileDTO), nil
}

// Get is query-shaped: a denial surfaces as the same not-found error as a
// missing profile, so callers cannot probe for profile existence.
func (s *service) Get(ctx context.Context, caller ids.CanonicalID, profileID string) (*ProfileDTO, error) {
	result, err := s.runner.Run(ctx, caller, nil,
		s.loadStep(profileID),
		s.authorizeStep(access.LevelRead),
		pipeline.Step{
			Name: "respond",
			Run: func(_ context.Context, pc *pipeline.Context) pipeline.Outcome {
				if !pc.Stash.Decision.Allowed() {
					return pipeline.Abort(pkgerrors.New(pkgerrors.CodeNotFound, "profile not found"))
				}
				return pipeline.Continue(FromModel(pc.Stash.Profile))
			},
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(*ProfileDTO), nil
}

func (s *service) List(ctx context.Context, caller ids.CanonicalID) (*ProfileListDTO, error) {
	accountID, err := callerUUID(caller)
	if err != nil {
		return nil, err
	}

	owned, err := s.repo.FindByOwner(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list owned profiles")
	}
	shared, err := s.repo.FindSharedWith(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shared profiles")
	}
	return &ProfileListDTO{Owned: FromModels(owned), Shared: FromModels(shared)}, nil
}

func (s *service) Update(ctx context.Context, caller ids.CanonicalID, profileID string, input UpdateProfileInput) (*ProfileDTO, error) {
	result, err := s.runner.Run(ctx, caller, input,
		s.loadStep(profileID),
		s.authorizeStep(access.LevelWrite),
		pipeline.Step{
			Name: "apply-update",
			Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
				if err := pc.Stash.Decision.ForMutation(); err != nil {
					return pipeline.Abort(err)
				}
				profile := pc.Stash.Profile
				if input.SellerName != nil {
					name := strings.TrimSpace(*input.SellerName)
					if name == "" {
						return pipeline.Abort(pkgerrors.New(pkgerrors.CodeValidation, "seller name cannot be empty"))
					}
					profile.SellerName = name
				}
				if input.UnitType != nil {
					profile.UnitType = input.UnitType
				}
				if input.UnitNumber != nil {
					profile.UnitNumber = input.UnitNumber
				}
				if input.City != nil {
					profile.City = input.City
				}
				if input.State != nil {
					profile.State = input.State
				}
				if err := s.repo.Update(ctx, profile); err != nil {
					return pipeline.Abort(err)
				}
				return pipeline.Continue(FromModel(profile))
			},
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(*ProfileDTO), nil
}

// Delete removes a profile and its grants. Owner only, and idempotent: a
// second delete of the same profile still reports success.
func (s *service) Delete(ctx context.Context, caller ids.CanonicalID, profileID string) error {
	accountID, err := callerUUID(caller)
	if err != nil {
		return err
	}

	_, err = s.runner.Run(ctx, caller, nil,
		pipeline.Step{
			Name: "load-profile",
			Run: s.loadStep(profileID).Run,
		},
		pipeline.Step{
			Name: "require-owner",
			Run: func(_ context.Context, pc *pipeline.Context) pipeline.Outcome {
				if pc.Stash.Profile.OwnerAccountID != accountID {
					return pipeline.Abort(pkgerrors.New(pkgerrors.CodeForbidden, "only the profile owner may delete it"))
				}
				return pipeline.Skip()
			},
			Recover: func(_ context.Context, pc *pipeline.Context, cause error) pipeline.Outcome {
				// target already gone: record the miss and keep going
				if typed := pkgerrors.As(cause); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
					pc.Stash.DeleteMissed = true
					return pipeline.Skip()
				}
				return pipeline.Abort(cause)
			},
		},
		pipeline.Step{
			Name: "delete-profile",
			Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
				if pc.Stash.DeleteMissed {
					return pipeline.Skip()
				}
				err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
					return s.repo.DeleteWithTx(tx, pc.Stash.Profile.ID)
				})
				if err != nil {
					return pipeline.Abort(err)
				}
				return pipeline.Skip()
			},
		},
		pipeline.Step{
			Name: "respond",
			Run: func(_ context.Context, _ *pipeline.Context) pipeline.Outcome {
				return pipeline.Continue(nil)
			},
		},
	)
	return err
}
