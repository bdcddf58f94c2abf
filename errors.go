package partialindex

import (
	"errors"
	"fmt"

	"github.com/hupe1980/partialindex/shard"
)

var (
	// ErrNotFound is returned by HistoryStore implementations when a
	// node has no revision in the authoritative history.
	ErrNotFound = errors.New("node not found")

	// ErrCorruptIndex indicates a shard file whose byte layout is
	// violated. Alias of the shard package sentinel so callers can
	// match without importing it.
	ErrCorruptIndex = shard.ErrCorruptIndex

	// ErrUnsupportedVersion indicates a shard header version mismatch.
	ErrUnsupportedVersion = shard.ErrUnsupportedVersion
)

// AmbiguousPrefixError is returned when the index holds more than one
// candidate for a prefix, mirroring the ambiguity error the slow path
// raises for a genuinely ambiguous prefix.
type AmbiguousPrefixError struct {
	Prefix string
}

func (e *AmbiguousPrefixError) Error() string {
	return fmt.Sprintf("partialindex: ambiguous identifier %q", e.Prefix)
}

// InconsistentIndexError is returned in strict mode when the index
// reported no candidates but the slow path resolved the query.
type InconsistentIndexError struct {
	Query string
}

func (e *InconsistentIndexError) Error() string {
	return fmt.Sprintf("partialindex: inconsistent index while resolving %q", e.Query)
}
