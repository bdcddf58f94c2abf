package partialindex

import (
	"fmt"
	"strings"

	"github.com/hupe1980/partialindex/bisect"
	"github.com/hupe1980/partialindex/shard"
)

// LookupStatus distinguishes the three outcomes of consulting the
// index, so that "not applicable" and "could not read" are never
// conflated with a definitive zero-candidate answer.
type LookupStatus uint8

const (
	// LookupInapplicable means the query cannot use the index at all
	// (too short or not hex); the caller should use the slow path.
	LookupInapplicable LookupStatus = iota

	// LookupUnavailable means a read or decode failure prevented the
	// lookup; the caller should use the slow path.
	LookupUnavailable

	// LookupFound means the index answered. The candidate set may be
	// empty, and an empty set is definitive.
	LookupFound
)

// Lookup is the tagged result of a prefix query against the index.
type Lookup struct {
	Status     LookupStatus
	Candidates map[shard.Node]uint32
}

// Lookup resolves a hex prefix against the index. Queries shorter than
// four characters or containing non-hex characters are inapplicable. A
// missing shard file yields a definitive empty candidate set. Read and
// decode failures degrade to LookupUnavailable and are logged, never
// returned as hard errors.
func (ix *Index) Lookup(query string) Lookup {
	if !validQuery(query) {
		return Lookup{Status: LookupInapplicable}
	}

	key := query[:2]
	if !ix.store.Exists(key) {
		return Lookup{Status: LookupFound, Candidates: map[shard.Node]uint32{}}
	}

	f, err := ix.store.Open(key)
	if err != nil {
		return ix.degrade(key, err)
	}
	defer f.Close()

	hdr, err := shard.ReadHeader(f)
	if err != nil {
		return ix.degrade(key, err)
	}
	sortedCount := int(hdr.SortedCount)

	candidates := make(map[shard.Node]uint32)

	// With bisection the linear scan below only covers the unsorted
	// tail; without it, the whole file.
	scanFrom := 0

	if ix.opts.useBisect {
		cmp := func(i int) (int, error) {
			e, ok, err := shard.ReadEntryAt(f, i)
			if err != nil {
				return 0, err
			}
			if !ok {
				return 0, fmt.Errorf("%w: sorted region ends at entry %d", shard.ErrCorruptIndex, i)
			}
			hexnode := e.Node.Hex()
			if strings.HasPrefix(hexnode, query) {
				return 0, nil
			}
			if hexnode < query {
				return -1, nil
			}
			return 1, nil
		}

		hit, found, err := bisect.Search(0, sortedCount-1, cmp)
		if err != nil {
			return ix.degrade(key, err)
		}
		if found {
			// Expand forward from the hit while the prefix still
			// matches. Expansion is forward-only, matching the
			// historical behavior of this index.
			for i := hit; ; i++ {
				e, ok, err := shard.ReadEntryAt(f, i)
				if err != nil {
					return ix.degrade(key, err)
				}
				if !ok || !strings.HasPrefix(e.Node.Hex(), query) {
					break
				}
				candidates[e.Node] = e.Rev
			}
		}
		scanFrom = sortedCount
	}

	scanned := 0
	for i := scanFrom; ; i++ {
		e, ok, err := shard.ReadEntryAt(f, i)
		if err != nil {
			return ix.degrade(key, err)
		}
		if !ok {
			break
		}
		scanned++
		if strings.HasPrefix(e.Node.Hex(), query) {
			candidates[e.Node] = e.Rev
		}
	}

	if scanned >= ix.opts.unsortedThreshold {
		if err := ix.store.MarkNeedsRebuild(); err != nil {
			ix.logger.Warn("failed to mark index for rebuild", "error", err)
		}
	}

	return Lookup{Status: LookupFound, Candidates: candidates}
}

func (ix *Index) degrade(key string, err error) Lookup {
	ix.logger.LogLookupDegraded(ix.store.Path(key), err)
	return Lookup{Status: LookupUnavailable}
}

// validQuery reports whether a query can use the index: at least four
// characters, all lowercase hex (node renderings are lowercase).
func validQuery(query string) bool {
	if len(query) < 4 {
		return false
	}
	for i := 0; i < len(query); i++ {
		c := query[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
