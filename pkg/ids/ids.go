package ids

import (
	"strings"

	"github.com/google/uuid"
)

// Kind tags the entity family an identifier belongs to. Canonical ids from
// different kinds never compare equal even when the raw strings collide.
type Kind string

const (
	KindAccount Kind = "ACCOUNT"
	KindProfile Kind = "PROFILE"
	KindCatalog Kind = "CATALOG"
	// KindTargetAccount tags the account on the receiving end of a share grant.
	KindTargetAccount Kind = "TARGET"
)

const separator = "#"

// CanonicalID is an entity identifier in its single normalized, prefix-tagged
// form. All prefixing and stripping happens in this package; callers never
// concatenate or trim tags themselves.
type CanonicalID string

// Canonicalize normalizes a raw identifier into its tagged form. It is
// idempotent: canonicalizing an already-canonical id returns it unchanged.
// It is total over well-formed strings and never fails; rejecting empty or
// missing input is the caller's job before calling.
func Canonicalize(kind Kind, raw string) CanonicalID {
	trimmed := strings.TrimSpace(raw)
	prefix := string(kind) + separator
	if strings.HasPrefix(trimmed, prefix) {
		return CanonicalID(trimmed)
	}
	return CanonicalID(prefix + trimmed)
}

// Decanonicalize strips the kind tag, returning the raw identifier. A value
// that was never tagged with the given kind comes back unchanged.
func Decanonicalize(kind Kind, id CanonicalID) string {
	return strings.TrimPrefix(string(id), string(kind)+separator)
}

// Kind reports the tag of a canonical id, or "" when the value carries no
// recognizable tag.
func (c CanonicalID) Kind() Kind {
	idx := strings.Index(string(c), separator)
	if idx <= 0 {
		return ""
	}
	switch k := Kind(c[:idx]); k {
	case KindAccount, KindProfile, KindCatalog, KindTargetAccount:
		return k
	}
	return ""
}

// IsZero reports whether the canonical id carries no raw identifier.
func (c CanonicalID) IsZero() bool {
	return strings.TrimSpace(string(c)) == "" || strings.HasSuffix(string(c), separator)
}

// Is reports whether the id is well formed and tagged with the given kind.
func (c CanonicalID) Is(kind Kind) bool {
	return !c.IsZero() && c.Kind() == kind
}

// String returns the tagged form.
func (c CanonicalID) String() string {
	return string(c)
}

// UUID parses the raw portion of the id as a UUID for repository lookups.
func (c CanonicalID) UUID() (uuid.UUID, error) {
	kind := c.Kind()
	if kind == "" {
		return uuid.Parse(string(c))
	}
	return uuid.Parse(Decanonicalize(kind, c))
}

// FromUUID tags a UUID primary key with the provided kind.
func FromUUID(kind Kind, id uuid.UUID) CanonicalID {
	return Canonicalize(kind, id.String())
}

// Equal compares two canonical ids after normalizing both under the same
// kind, so a raw id and its tagged form compare equal while ids from
// different kinds never do.
func Equal(kind Kind, a, b CanonicalID) bool {
	if a.Kind() != "" && a.Kind() != kind {
		return false
	}
	if b.Kind() != "" && b.Kind() != kind {
		return false
	}
	return Canonicalize(kind, string(a)) == Canonicalize(kind, string(b))
}
