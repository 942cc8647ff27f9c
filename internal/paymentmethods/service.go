package paymentmethods

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/pipeline"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
	pkgerrors "github.com/dmeiser/popcorn-sales-manager-sub005/pkg/errors"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/ids"
)

type accountStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	UpdatePaymentMethods(ctx context.Context, id uuid.UUID, methods []string) error
}

// Builtins are always present for every account and never persisted.
var Builtins = []string{"Cash", "Check"}

// MaxNameLength caps custom payment method names.
const MaxNameLength = 50

// Service manages the caller's named payment methods.
type Service interface {
	List(ctx context.Context, caller ids.CanonicalID) ([]string, error)
	Create(ctx context.Context, caller ids.CanonicalID, name string) ([]string, error)
	Delete(ctx context.Context, caller ids.CanonicalID, name string) ([]string, error)
}

type service struct {
	accounts accountStore
	runner   *pipeline.Runner
}

// NewService builds the payment method service.
func NewService(accounts accountStore, runner *pipeline.Runner) (Service, error) {
	if accounts == nil {
		return nil, fmt.Errorf("account store required")
	}
	if runner == nil {
		return nil, fmt.Errorf("pipeline runner required")
	}
	return &service{accounts: accounts, runner: runner}, nil
}

func isBuiltin(name string) bool {
	for _, b := range Builtins {
		if strings.EqualFold(b, name) {
			return true
		}
	}
	return false
}

func withBuiltins(custom []string) []string {
	out := make([]string, 0, len(Builtins)+len(custom))
	out = append(out, Builtins...)
	return append(out, custom...)
}

// loadAccountStep resolves the caller's account; the persisted custom method
// list rides along in Prev for the steps after it.
func (s *service) loadAccountStep() pipeline.Step {
	return pipeline.Step{
		Name: "load-account",
		Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
			callerUUID, err := pc.Caller.UUID()
			if err != nil || !pc.Caller.Is(ids.KindAccount) {
				return pipeline.Abort(pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity missing"))
			}
			account, err := s.accounts.FindByID(ctx, callerUUID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pipeline.Abort(pkgerrors.New(pkgerrors.CodeUnauthorized, "caller account not found"))
				}
				return pipeline.Abort(err)
			}
			return pipeline.Continue(account)
		},
	}
}

func (s *service) List(ctx context.Context, caller ids.CanonicalID) ([]string, error) {
	result, err := s.runner.Run(ctx, caller, nil,
		s.loadAccountStep(),
		pipeline.Step{
			Name: "respond",
			Run: func(_ context.Context, pc *pipeline.Context) pipeline.Outcome {
				account := pc.Prev.(*models.Account)
				return pipeline.Continue(withBuiltins(account.PaymentMethods))
			},
		},
	)
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

// Create adds a custom payment method. Reserved built-in names are rejected
// in any casing, and a name that matches an existing custom method
// case-insensitively is a duplicate.
func (s *service) Create(ctx context.Context, caller ids.CanonicalID, name string) ([]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method name is required")
	}
	if len(name) > MaxNameLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("payment method name exceeds %d characters", MaxNameLength))
	}
	if isBuiltin(name) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("%q is a built-in payment method", name))
	}

	result, err := s.runner.Run(ctx, caller, name,
		s.loadAccountStep(),
		pipeline.Step{
			Name: "check-duplicate",
			Run: func(_ context.Context, pc *pipeline.Context) pipeline.Outcome {
				account := pc.Prev.(*models.Account)
				for _, existing := range account.PaymentMethods {
					if strings.EqualFold(existing, name) {
						return pipeline.Abort(pkgerrors.New(pkgerrors.CodeValidation,
							fmt.Sprintf("payment method %q already exists", existing)))
					}
				}
				return pipeline.Continue(account)
			},
		},
		pipeline.Step{
			Name: "persist-methods",
			Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
				account := pc.Prev.(*models.Account)
				updated := append(append([]string(nil), account.PaymentMethods...), name)
				if err := s.accounts.UpdatePaymentMethods(ctx, account.ID, updated); err != nil {
					return pipeline.Abort(err)
				}
				return pipeline.Continue(withBuiltins(updated))
			},
		},
	)
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

// Delete removes a custom payment method. Idempotent for unknown names;
// built-ins cannot be deleted.
func (s *service) Delete(ctx context.Context, caller ids.CanonicalID, name string) ([]string, error) {
	name = strings.TrimSpace(name)
	if isBuiltin(name) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("%q is built in and cannot be deleted", name))
	}

	result, err := s.runner.Run(ctx, caller, name,
		s.loadAccountStep(),
		pipeline.Step{
			Name: "remove-method",
			Run: func(ctx context.Context, pc *pipeline.Context) pipeline.Outcome {
				account := pc.Prev.(*models.Account)
				remaining := make([]string, 0, len(account.PaymentMethods))
				removed := false
				for _, existing := range account.PaymentMethods {
					if strings.EqualFold(existing, name) {
						removed = true
						continue
					}
					remaining = append(remaining, existing)
				}
				if !removed {
					// nothing to delete: still a success
					pc.Stash.DeleteMissed = true
					return pipeline.Continue(withBuiltins(account.PaymentMethods))
				}
				if err := s.accounts.UpdatePaymentMethods(ctx, account.ID, remaining); err != nil {
					return pipeline.Abort(err)
				}
				return pipeline.Continue(withBuiltins(remaining))
			},
		},
	)
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}
