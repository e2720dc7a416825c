// Package resolvable holds the vocabulary shared with the package resolution
// engine and the narrow capability interfaces the reconciler consumes.
package resolvable

import "context"

// Resolver is implemented by package resolution engines. Every call is a
// blocking request; implementations own their consistency model.
//
// The boolean results report whether the engine accepted the request. A
// non-nil error means the engine could not be reached at all.
type Resolver interface {
	// QueryResolvables returns the records of the given kind named name.
	// An empty name returns every record of that kind.
	QueryResolvables(ctx context.Context, name string, kind Kind) ([]Record, error)
	SelectResolvable(ctx context.Context, name string, kind Kind) (bool, error)
	RemoveResolvable(ctx context.Context, name string, kind Kind) (bool, error)
	// SetNeutral restores the resolvable to its pre-transaction state.
	SetNeutral(ctx context.Context, name string, kind Kind, keepPreviousSoft bool) (bool, error)
}

// Level is the severity attached to a user visible warning.
type Level int

const (
	LevelInfo Level = iota
	LevelAttention
)

func (l Level) String() string {
	if l == LevelAttention {
		return "attention"
	}
	return "info"
}

// Reporter surfaces messages to the user.
type Reporter interface {
	Error(msg string)
	Warning(msg string, level Level)
}

// Licenses is the license store of the resolution engine.
type Licenses interface {
	// LicenseText returns the license to confirm. found is false when the
	// product is unknown; an empty text with found true means no license.
	LicenseText(name, lang string) (text string, found bool)
	ConfirmationRequired(name string) bool
	Confirm(name string, confirmed bool)
	Confirmed(name string) bool
}
