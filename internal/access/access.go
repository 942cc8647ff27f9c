package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/enums"
	pkgerrors "github.com/dmeiser/popcorn-sales-manager-sub005/pkg/errors"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/ids"
)

// Level is a bitmask of permission levels required or granted on a profile.
type Level uint8

const (
	LevelRead Level = 1 << iota
	LevelWrite
)

// LevelFull is what an owner holds unconditionally.
const LevelFull = LevelRead | LevelWrite

// Has reports whether the grant covers every bit of the required level.
func (l Level) Has(required Level) bool {
	return l&required == required
}

// LevelFromPermissions parses a persisted permission set. Unknown entries are
// ignored rather than rejected: a malformed share must degrade to no usable
// permissions, not to an error.
func LevelFromPermissions(perms []string) Level {
	var level Level
	for _, p := range perms {
		switch enums.Permission(p) {
		case enums.PermissionRead:
			level |= LevelRead
		case enums.PermissionWrite:
			level |= LevelWrite
		}
	}
	return level
}

// State is the terminal state of one resolution.
type State int

const (
	// StateOwner means the caller owns the profile; full access, independent
	// of any share row.
	StateOwner State = iota + 1
	// StateShared means a share row granted at least the required level.
	StateShared
	// StateDenied covers everything else, including malformed identifiers.
	StateDenied
)

// Decision is the outcome of resolving a (caller, resource) pair.
type Decision struct {
	State State
	Grant Level
}

// Allowed reports whether the decision authorizes the request.
func (d Decision) Allowed() bool {
	return d.State == StateOwner || d.State == StateShared
}

// ForMutation converts a denial into the error a mutation must raise. Queries
// never call this; they degrade to an empty result instead.
func (d Decision) ForMutation() error {
	if d.Allowed() {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient access to profile")
}

// ShareReader loads the single share row for a (profile, account) pair. The
// read must be strongly consistent: a just-created or just-revoked share has
// to be visible immediately, or a revoked collaborator could keep acting.
type ShareReader interface {
	GetShare(ctx context.Context, profileID, accountID uuid.UUID) (*models.Share, error)
}

// Engine decides owner/shared/denied for every authorization-relevant
// operation. Ownership always wins; a share row for the owner, even an empty
// or malformed one, is never consulted.
type Engine struct {
	shares ShareReader
}

// NewEngine builds the resolution engine around a strongly-consistent share
// reader.
func NewEngine(shares ShareReader) (*Engine, error) {
	if shares == nil {
		return nil, fmt.Errorf("share reader required")
	}
	return &Engine{shares: shares}, nil
}

// Resolve walks the resolution states for one request. A malformed caller or
// profile identifier resolves to Denied without touching the store, so the
// error shape never leaks whether the resource exists.
func (e *Engine) Resolve(ctx context.Context, caller ids.CanonicalID, profileID ids.CanonicalID, ownerAccountID uuid.UUID, required Level) (Decision, error) {
	if !caller.Is(ids.KindAccount) || !profileID.Is(ids.KindProfile) {
		return Decision{State: StateDenied}, nil
	}

	callerUUID, err := caller.UUID()
	if err != nil {
		return Decision{State: StateDenied}, nil
	}
	profileUUID, err := profileID.UUID()
	if err != nil {
		return Decision{State: StateDenied}, nil
	}

	if callerUUID == ownerAccountID {
		return Decision{State: StateOwner, Grant: LevelFull}, nil
	}

	share, err := e.shares.GetShare(ctx, profileUUID, callerUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Decision{State: StateDenied}, nil
		}
		return Decision{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load share")
	}

	grant := LevelFromPermissions(share.Permissions)
	if !grant.Has(required) {
		return Decision{State: StateDenied, Grant: grant}, nil
	}
	return Decision{State: StateShared, Grant: grant}, nil
}
