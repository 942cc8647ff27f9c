package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
	pkgerrors "github.com/dmeiser/popcorn-sales-manager-sub005/pkg/errors"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/ids"
)

type accountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	FindBySubject(ctx context.Context, subject string) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) error
}

// Service exposes account identity operations.
type Service interface {
	EnsureAccount(ctx context.Context, subject, email, displayName string) (*AccountDTO, error)
	Get(ctx context.Context, caller ids.CanonicalID) (*AccountDTO, error)
	UpdateSettings(ctx context.Context, caller ids.CanonicalID, input UpdateSettingsInput) (*AccountDTO, error)
}

// UpdateSettingsInput captures the mutable account fields; nil means
// unchanged.
type UpdateSettingsInput struct {
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,max=120"`
}

type service struct {
	repo accountRepository
}

// NewService builds the account service.
func NewService(repo accountRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("account repository required")
	}
	return &service{repo: repo}, nil
}

// EnsureAccount resolves the account for an external subject, creating it on
// first sign-in. A racing create loses to the unique index on subject and
// falls back to the winner's row.
func (s *service) EnsureAccount(ctx context.Context, subject, email, displayName string) (*AccountDTO, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "subject is required")
	}

	account, err := s.repo.FindBySubject(ctx, subject)
	if err == nil {
		return ToDTO(account), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}

	account = &models.Account{
		Subject:     subject,
		Email:       strings.TrimSpace(email),
		DisplayName: strings.TrimSpace(displayName),
	}
	if err := s.repo.Create(ctx, account); err != nil {
		if db.IsUniqueViolation(err, "") {
			existing, ferr := s.repo.FindBySubject(ctx, subject)
			if ferr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ferr, "load account after create race")
			}
			return ToDTO(existing), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account")
	}
	return ToDTO(account), nil
}

func (s *service) load(ctx context.Context, caller ids.CanonicalID) (*models.Account, error) {
	callerUUID, err := caller.UUID()
	if err != nil || !caller.Is(ids.KindAccount) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity missing")
	}
	account, err := s.repo.FindByID(ctx, callerUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	return account, nil
}

func (s *service) Get(ctx context.Context, caller ids.CanonicalID) (*AccountDTO, error) {
	account, err := s.load(ctx, caller)
	if err != nil {
		return nil, err
	}
	return ToDTO(account), nil
}

func (s *service) UpdateSettings(ctx context.Context, caller ids.CanonicalID, input UpdateSettingsInput) (*AccountDTO, error) {
	account, err := s.load(ctx, caller)
	if err != nil {
		return nil, err
	}
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if email == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "email cannot be empty")
		}
		account.Email = email
	}
	if input.DisplayName != nil {
		name := strings.TrimSpace(*input.DisplayName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "display name cannot be empty")
		}
		account.DisplayName = name
	}
	if err := s.repo.Update(ctx, account); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update account")
	}
	return ToDTO(account), nil
}
