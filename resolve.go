package partialindex

import "github.com/hupe1980/partialindex/shard"

// SlowPrefixResolver is the host's full-scan prefix resolution. It
// returns the resolved node, whether anything matched, and any hard
// error (its own ambiguity error included).
type SlowPrefixResolver func(prefix string) (shard.Node, bool, error)

// SlowRevisionResolver is the host's full resolution of a change
// identifier to a revision.
type SlowRevisionResolver func(changeid string) (uint32, bool, error)

// ResolvePrefix resolves an abbreviated node prefix, consulting the
// index first and falling back to the given slow path whenever the
// index cannot answer. With exactly one candidate the slow path is
// skipped entirely; with several, AmbiguousPrefixError is returned.
//
// When the index definitively reports no candidates but the slow path
// still finds a match, the slow result wins unless strict consistency
// is configured, in which case InconsistentIndexError is returned.
func (ix *Index) ResolvePrefix(prefix string, slow SlowPrefixResolver) (shard.Node, bool, error) {
	if !ix.store.Built() {
		return slow(prefix)
	}

	lk := ix.Lookup(prefix)
	if lk.Status != LookupFound {
		return slow(prefix)
	}

	if len(lk.Candidates) == 1 {
		for node, rev := range lk.Candidates {
			ix.logger.Debug("resolved via partial index", "prefix", prefix, "rev", rev)
			return node, true, nil
		}
	}
	if len(lk.Candidates) > 1 {
		return shard.Node{}, false, &AmbiguousPrefixError{Prefix: prefix}
	}

	node, ok, err := slow(prefix)
	if err != nil || !ok {
		return node, ok, err
	}
	if ix.opts.strictConsistency {
		return shard.Node{}, false, &InconsistentIndexError{Query: prefix}
	}
	return node, true, nil
}

// ResolveRevision resolves a change identifier to its revision via the
// index, with the same fallback, ambiguity, and consistency policy as
// ResolvePrefix.
func (ix *Index) ResolveRevision(changeid string, slow SlowRevisionResolver) (uint32, bool, error) {
	if !ix.store.Built() {
		return slow(changeid)
	}

	lk := ix.Lookup(changeid)
	if lk.Status != LookupFound {
		return slow(changeid)
	}

	if len(lk.Candidates) == 1 {
		for _, rev := range lk.Candidates {
			ix.logger.Debug("using partial index cache", "changeid", changeid, "rev", rev)
			return rev, true, nil
		}
	}
	if len(lk.Candidates) > 1 {
		return 0, false, &AmbiguousPrefixError{Prefix: changeid}
	}

	rev, ok, err := slow(changeid)
	if err != nil || !ok {
		return rev, ok, err
	}
	if ix.opts.strictConsistency {
		return 0, false, &InconsistentIndexError{Query: changeid}
	}
	return rev, true, nil
}
