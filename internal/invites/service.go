package invites

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/pipeline"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/shares"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/enums"
	pkgerrors "github.com/dmeiser/popcorn-sales-manager-sub005/pkg/errors"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/ids"
)

type inviteRepository interface {
	Create(ctx context.Context, invite *models.Invite) error
	FindByCode(ctx context.Context, code string) (*models.Invite, error)
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.Invite, error)
	MarkRedeemedWithTx(tx *gorm.DB, inviteID uuid.UUID, accountID uuid.UUID, at time.Time) (bool, error)
	Delete(ctx context.Context, profileID uuid.UUID, code string) error
}

type profileLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type shareUpserter interface {
	UpsertWithTx(tx *gorm.DB, share *models.Share) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages invite codes: owner-issued, time-boxed, consumed exactly
// once into a Share.
type Service interface {
	Create(ctx context.Context, caller ids.CanonicalID, profileID string, input CreateInviteInput) (*InviteDTO, error)
	Redeem(ctx context.Context, caller ids.CanonicalID, code string) (*shares.ShareDTO, error)
	List(ctx context.Context, caller ids.CanonicalID, profileID string) ([]InviteDTO, error)
	Revoke(ctx context.Context, caller ids.CanonicalID, profileID, code string) error
}

// CreateInviteInput captures the permission set a redeemed invite grants.
type CreateInviteInput struct {
	Permissions []string `json:"permissions" validate:"required,min=1"`
}

type service struct {
	repo     inviteRepository
	profiles profileLoader
	shares   shareUpserter
	tx       txRunner
	runner   *pipeline.Runner
	ttl      time.Duration
	now      func() time.Time
}

// NewService builds the invite service. ttl bounds every issued code.
func NewService(repo inviteRepository, profiles profileLoader, sharesRepo shareUpserter, tx txRunner, runner *pipeline.Runner, ttl time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("invite repository required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile loader required")
	}
	if sharesRepo == nil {
		return nil, fmt.Errorf("share repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if runner == nil {
		return nil, fmt.Errorf("pipeline runner required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("invite ttl must be positive")
	}
	return &service{
		repo:     repo,
		profiles: profiles,
		shares:   sharesRepo,
		tx:       tx,
		runner:   runner,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// codeAlphabet omits 0/O and 1/I/L so codes survive being read aloud.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const codeLength = 10

func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
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

func (s *service) loadProfileStep(profileID string) pipeline.Step {
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
			profile, err := s.profiles.FindByID(ctx, profileUUID)
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

func requireOwnerStep() pipeline.Step {
	return pipeline.Step{
		Name: "require-owner",
		Run: func(_ context.Context, pc *pipeline.Context) pipeline.Outcome {
			callerUUID, err := pc.Caller.UUID()
			if err != nil || !pc.Caller.Is(ids.KindAccount) {
				return pipeline.Abort(pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity missing"))
			}
			if pc.Stash.Profile == nil || pc.Stash.Profile.OwnerAccountID != callerUUID {
				return pipeline.Abort(pkgerrors.New(pkgerrors.CodeForbidden, "only the profile owner may manage invites"))
			}
			return pipeline.Skip()
		},
	}
}

func (s *service) Create(ctx context.Context, caller ids.CanonicalID, profileID string, input CreateInviteInput) (*InviteDTO, error) {
	perms, err := normalizePermissions(input.Permissions)
	if err != nil {
		return nil, err
	}

	result, err := s.runner.Run(ctx, caller, input,
		s.loadProfileStep(profileID),
		requireOwnerStep(),
		pipeline.Step{
			Name: "issue-invite",
			Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
				code, err := generateCode()
				if err != nil {
					return pipeline.Abort(pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate invite code"))
				}
				invite := &models.Invite{
					Code:               code,
					ProfileID:          pc.Stash.Profile.ID,
					Permissions:        perms,
					CreatedByAccountID: pc.Stash.Profile.OwnerAccountID,
					ExpiresAt:          s.now().Add(s.ttl),
				}
				if err := s.repo.Create(ctx, invite); err != nil {
					return pipeline.Abort(err)
				}
				return pipeline.Continue(ToDTO(invite))
			},
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(*InviteDTO), nil
}

// Redeem consumes an invite code and installs the grant it carries. The
// consume is conditional on the code being unredeemed, so two racing redeems
// resolve to exactly one winner; re-redeeming by the same account succeeds
// without re-consuming.
func (s *service) Redeem(ctx context.Context, caller ids.CanonicalID, code string) (*shares.ShareDTO, error) {
	callerUUID, err := caller.UUID()
	if err != nil || !caller.Is(ids.KindAccount) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity missing")
	}
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invite code is required")
	}

	result, err := s.runner.Run(ctx, caller, code,
		pipeline.Step{
			Name: "load-invite",
			Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
				invite, err := s.repo.FindByCode(ctx, code)
				if err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return pipeline.Abort(pkgerrors.New(pkgerrors.CodeNotFound, "invite not found"))
					}
					return pipeline.Abort(err)
				}
				return pipeline.Continue(invite)
			},
		},
		pipeline.Step{
			Name: "validate-invite",
			Run: func(_ context.Context, pc *pipeline.Context) pipeline.Outcome {
				invite := pc.Prev.(*models.Invite)
				if invite.RedeemedAt != nil {
					if invite.RedeemedByAccountID != nil && *invite.RedeemedByAccountID == callerUUID {
						// same account retrying: report the grant it already holds
						share := &models.Share{
							ProfileID:       invite.ProfileID,
							TargetAccountID: callerUUID,
							Permissions:     invite.Permissions,
						}
						return pipeline.Continue(shares.ToDTO(share))
					}
					return pipeline.Abort(pkgerrors.New(pkgerrors.CodeConflict, "invite already redeemed"))
				}
				if s.now().After(invite.ExpiresAt) {
					return pipeline.Abort(pkgerrors.New(pkgerrors.CodeValidation, "invite has expired"))
				}
				if invite.CreatedByAccountID == callerUUID {
					return pipeline.Abort(pkgerrors.New(pkgerrors.CodeValidation, "owner already has full access"))
				}
				return pipeline.Continue(invite)
			},
		},
		pipeline.Step{
			Name: "consume-invite",
			Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
				invite, ok := pc.Prev.(*models.Invite)
				if !ok {
					// previous step already resolved the retry case
					return pipeline.Skip()
				}
				share := &models.Share{
					ProfileID:       invite.ProfileID,
					TargetAccountID: callerUUID,
					Permissions:     invite.Permissions,
				}
				err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
					consumed, err := s.repo.MarkRedeemedWithTx(tx, invite.ID, callerUUID, s.now())
					if err != nil {
						return err
					}
					if !consumed {
						return pkgerrors.New(pkgerrors.CodeConflict, "invite already redeemed")
					}
					return s.shares.UpsertWithTx(tx, share)
				})
				if err != nil {
					return pipeline.Abort(err)
				}
				return pipeline.Continue(shares.ToDTO(share))
			},
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(*shares.ShareDTO), nil
}

func (s *service) List(ctx context.Context, caller ids.CanonicalID, profileID string) ([]InviteDTO, error) {
	result, err := s.runner.Run(ctx, caller, nil,
		s.loadProfileStep(profileID),
		requireOwnerStep(),
		pipeline.Step{
			Name: "list-invites",
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
	return result.([]InviteDTO), nil
}

// Revoke withdraws an unredeemed code. Revoking an unknown code succeeds.
func (s *service) Revoke(ctx context.Context, caller ids.CanonicalID, profileID, code string) error {
	if code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "invite code is required")
	}
	_, err := s.runner.Run(ctx, caller, nil,
		s.loadProfileStep(profileID),
		requireOwnerStep(),
		pipeline.Step{
			Name: "delete-invite",
			Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
				if err := s.repo.Delete(ctx, pc.Stash.Profile.ID, code); err != nil {
					return pipeline.Abort(err)
				}
				return pipeline.Continue(nil)
			},
		},
	)
	return err
}
