package shares

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/access"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/pipeline"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/enums"
	pkgerrors "github.com/dmeiser/popcorn-sales-manager-sub005/pkg/errors"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/ids"
)

type shareRepository interface {
	GetShare(ctx context.Context, profileID, accountID uuid.UUID) (*models.Share, error)
	Upsert(ctx context.Context, share *models.Share) error
	Delete(ctx context.Context, profileID, accountID uuid.UUID) error
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.Share, error)
}

type profileLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// Service exposes grant management. Only a profile's owner may grant, revoke,
// or list shares.
type Service interface {
	Grant(ctx context.Context, caller ids.CanonicalID, profileID string, input GrantInput) (*ShareDTO, error)
	Revoke(ctx context.Context, caller ids.CanonicalID, profileID, targetAccountID string) error
	List(ctx context.Context, caller ids.CanonicalID, profileID string) ([]ShareDTO, error)
}

// GrantInput captures a direct grant request.
type GrantInput struct {
	TargetAccountID string   `json:"target_account_id" validate:"required"`
	Permissions     []string `json:"permissions" validate:"required,min=1"`
}

type service struct {
	repo     shareRepository
	profiles profileLoader
	runner   *pipeline.Runner
}

// NewService builds the share service.
func NewService(repo shareRepository, profiles profileLoader, runner *pipeline.Runner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("share repository required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile loader required")
	}
	if runner == nil {
		return nil, fmt.Errorf("pipeline runner required")
	}
	return &service{repo: repo, profiles: profiles, runner: runner}, nil
}

func normalizePermissions(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one permission is required")
	}
	seen := map[enums.Permission]bool{}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		perm := enums.Permission(r)
		if !perm.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown permission %q", r))
		}
		if !seen[perm] {
			seen[perm] = true
			out = append(out, string(perm))
		}
	}
	return out, nil
}

// loadProfileStep resolves the canonical profile id and stashes the record.
// A malformed id aborts with the same error shape as a missing record.
func loadProfileStep(profiles profileLoader, profileID string) pipeline.Step {
	return pipeline.Step{
		Name: "load-profile",
		Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
			canonical := ids.Canonicalize(ids.KindProfile, profileID)
			if canonical.IsZero() {
				return pipeline.Abort(pkgerrors.New(pkgerrors.CodeValidation, "profile id is required"))
			}
			profileUUID, err := canonical.UUID()
			if err != nil {
				return pipeline.Abort(pkgerrors.New(pkgerrors.CodeNotFound, "profile not found"))
			}
			profile, err := profiles.FindByID(ctx, profileUUID)
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

// requireOwnerStep denies everyone but the profile's owner, shares included.
func requireOwnerStep() pipeline.Step {
	return pipeline.Step{
		Name: "require-owner",
		Run: func(_ context.Context, pc *pipeline.Context) pipeline.Outcome {
			profile := pc.Stash.Profile
			callerUUID, err := pc.Caller.UUID()
			if err != nil || !pc.Caller.Is(ids.KindAccount) {
				return pipeline.Abort(pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity missing"))
			}
			if profile == nil || profile.OwnerAccountID != callerUUID {
				return pipeline.Abort(pkgerrors.New(pkgerrors.CodeForbidden, "only the profile owner may manage shares"))
			}
			pc.Stash.Decision = access.Decision{State: access.StateOwner, Grant: access.LevelFull}
			return pipeline.Skip()
		},
	}
}

func (s *service) Grant(ctx context.Context, caller ids.CanonicalID, profileID string, input GrantInput) (*ShareDTO, error) {
	perms, err := normalizePermissions(input.Permissions)
	if err != nil {
		return nil, err
	}
	target := ids.Canonicalize(ids.KindTargetAccount, input.TargetAccountID)
	targetUUID, err := target.UUID()
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target account id is malformed")
	}

	result, err := s.runner.Run(ctx, caller, input,
		loadProfileStep(s.profiles, profileID),
		requireOwnerStep(),
		pipeline.Step{
			Name: "reject-self-grant",
			Run: func(_ context.Context, pc *pipeline.Context) pipeline.Outcome {
				if pc.Stash.Profile.OwnerAccountID == targetUUID {
					return pipeline.Abort(pkgerrors.New(pkgerrors.CodeValidation, "owner already has full access"))
				}
				return pipeline.Skip()
			},
		},
		pipeline.Step{
			Name: "upsert-share",
			Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
				share := &models.Share{
					ProfileID:       pc.Stash.Profile.ID,
					TargetAccountID: targetUUID,
					Permissions:     perms,
				}
				if err := s.repo.Upsert(ctx, share); err != nil {
					return pipeline.Abort(err)
				}
				pc.Stash.Share = share
				return pipeline.Continue(ToDTO(share))
			},
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(*ShareDTO), nil
}

func (s *service) Revoke(ctx context.Context, caller ids.CanonicalID, profileID, targetAccountID string) error {
	target := ids.Canonicalize(ids.KindTargetAccount, targetAccountID)
	targetUUID, err := target.UUID()
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "target account id is malformed")
	}

	_, err = s.runner.Run(ctx, caller, nil,
		loadProfileStep(s.profiles, profileID),
		requireOwnerStep(),
		pipeline.Step{
			Name: "check-share",
			Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
				_, err := s.repo.GetShare(ctx, pc.Stash.Profile.ID, targetUUID)
				if errors.Is(err, gorm.ErrRecordNotFound) {
					pc.Stash.DeleteMissed = true
					return pipeline.Skip()
				}
				if err != nil {
					return pipeline.Abort(err)
				}
				return pipeline.Skip()
			},
		},
		pipeline.Step{
			Name: "delete-share",
			Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
				if pc.Stash.DeleteMissed {
					return pipeline.Skip()
				}
				if err := s.repo.Delete(ctx, pc.Stash.Profile.ID, targetUUID); err != nil {
					return pipeline.Abort(err)
				}
				return pipeline.Skip()
			},
		},
		pipeline.Step{
			Name: "respond",
			Run: func(_ context.Context, _ *pipeline.Context) pipeline.Outcome {
				// revokes are idempotent: a miss still reports success
				return pipeline.Continue(nil)
			},
		},
	)
	return err
}

func (s *service) List(ctx context.Context, caller ids.CanonicalID, profileID string) ([]ShareDTO, error) {
	result, err := s.runner.Run(ctx, caller, nil,
		loadProfileStep(s.profiles, profileID),
		requireOwnerStep(),
		pipeline.Step{
			Name: "list-shares",
			Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
				rows, err := s.repo.ListByProfile(ctx, pc.Stash.Profile.ID)
				if err != nil {
					return pipeline.Abort(err)
				}
				return pipeline.Continue(ToDTOs(rows))
			},
		},
	)
	if err != nil {
		return nil, err
	}
	return result.([]ShareDTO), nil
}
