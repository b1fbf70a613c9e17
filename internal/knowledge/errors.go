package knowledge

import (
	"errors"
	"fmt"
)

// Sentinel errors for knowledge store operations.
var (
	// ErrProjectNotFound is returned when the named project does not exist.
	// Every operation reports missing projects through this one error so
	// the CLI can map it to a single user-facing message.
	ErrProjectNotFound = errors.New("project does not exist")

	// ErrValidation indicates invalid caller input (empty content,
	// malformed tag).
	ErrValidation = errors.New("validation failed")
)

// AmbiguousIDError is returned when a partial entry ID matches more than one
// entry. The store never guesses; the caller must supply more characters.
type AmbiguousIDError struct {
	// Prefix is the partial ID that was supplied.
	Prefix string

	// Matches is the number of entries starting with the prefix.
	Matches int
}

func (e *AmbiguousIDError) Error() string {
	return fmt.Sprintf("multiple entries (%d) found starting with %q: please provide more characters", e.Matches, e.Prefix)
}
