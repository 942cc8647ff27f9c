package pipeline

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/access"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
	pkgerrors "github.com/dmeiser/popcorn-sales-manager-sub005/pkg/errors"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/ids"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/logger"
)

// Stash is the typed side-channel threaded between steps of one request.
// Each field is written by at most one step and read by later ones, so a
// pipeline never re-fetches what an earlier step already established.
type Stash struct {
	Profile  *models.Profile
	Campaign *models.Campaign
	Order    *models.Order
	Catalog  *models.Catalog
	Share    *models.Share
	Decision access.Decision

	// DeleteMissed marks an idempotent delete whose target was already gone;
	// the terminal step still reports success.
	DeleteMissed bool
}

// Context is the fixed-shape record every step receives.
type Context struct {
	Caller ids.CanonicalID
	Args   any
	// Prev holds the previous step's Continue value; a Skip leaves it as-is.
	Prev  any
	Stash Stash
}

type outcomeKind int

const (
	kindContinue outcomeKind = iota + 1
	kindSkip
	kindAbort
)

// Outcome is the tagged result of one step: Continue(value), Skip, or
// Abort(error).
type Outcome struct {
	kind  outcomeKind
	value any
	err   error
}

// Continue passes a value to the next step.
func Continue(value any) Outcome {
	return Outcome{kind: kindContinue, value: value}
}

// Skip executes the step as a no-op: the previous result stays in place and
// the pipeline shape is preserved without a guaranteed-miss store call.
func Skip() Outcome {
	return Outcome{kind: kindSkip}
}

// Abort stops the pipeline; remaining steps are bypassed unless one of them
// declares a Recover hook.
func Abort(err error) Outcome {
	return Outcome{kind: kindAbort, err: err}
}

// Step is one unit of a pipeline. Run executes on the success path. Recover,
// when set, receives an upstream abort and may convert it back into a value;
// it is the only place control reconverges after a failure.
type Step struct {
	Name    string
	Run     func(ctx context.Context, pc *Context) Outcome
	Recover func(ctx context.Context, pc *Context, cause error) Outcome
}

// Runner executes pipelines and maps store-level failures to domain errors at
// the boundary so raw store errors never reach a caller.
type Runner struct {
	log *logger.Logger
}

// NewRunner builds a pipeline runner. The logger is optional.
func NewRunner(log *logger.Logger) *Runner {
	return &Runner{log: log}
}

// Run executes the steps in order and returns the final Continue value.
// Steps run synchronously and sequentially; any abort carries through the
// remaining steps (offering each a Recover) and is mapped once at the end.
func (r *Runner) Run(ctx context.Context, caller ids.CanonicalID, args any, steps ...Step) (any, error) {
	pc := &Context{Caller: caller, Args: args}

	var pending error
	var pendingStep string

	for _, step := range steps {
		var out Outcome
		if pending != nil {
			if step.Recover == nil {
				continue
			}
			out = step.Recover(ctx, pc, pending)
		} else {
			out = step.Run(ctx, pc)
		}

		switch out.kind {
		case kindContinue:
			pc.Prev = out.value
			pending = nil
		case kindSkip:
			pending = nil
		case kindAbort:
			pending = out.err
			pendingStep = step.Name
			if r.log != nil {
				lctx := r.log.WithField(ctx, "step", step.Name)
				r.log.Warn(lctx, "pipeline.step.abort")
			}
		default:
			pending = pkgerrors.New(pkgerrors.CodeInternal, "step returned no outcome")
			pendingStep = step.Name
		}
	}

	if pending != nil {
		return nil, MapStoreError(pending, pendingStep)
	}
	return pc.Prev, nil
}

// MapStoreError translates a store-level failure into the closest domain
// error. Typed domain errors pass through verbatim.
func MapStoreError(err error, step string) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "resource not found").
			WithDetails(map[string]any{"step": step})
	}
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "already exists, retry").
			WithDetails(map[string]any{"step": step})
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store operation failed").
		WithDetails(map[string]any{"step": step})
}
