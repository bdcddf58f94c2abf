package partialindex

import (
	"errors"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/partialindex/shard"
)

// DiscrepancyKind classifies a single index-vs-history inconsistency.
type DiscrepancyKind uint8

const (
	// DiscrepancyWrongRevision means the index stores a revision that
	// disagrees with the history store.
	DiscrepancyWrongRevision DiscrepancyKind = iota

	// DiscrepancyMissingNode means a node present in history has no
	// index entry.
	DiscrepancyMissingNode

	// DiscrepancyUnknownNode means the index references a node the
	// history store does not contain.
	DiscrepancyUnknownNode

	// DiscrepancyCorruptShard means a shard file could not be decoded.
	DiscrepancyCorruptShard
)

// Discrepancy is one diagnostic produced by Verify.
type Discrepancy struct {
	Kind  DiscrepancyKind
	Shard string
	Node  shard.Node
	Want  uint32 // revision per the history store
	Got   uint32 // revision stored in the index
	Err   error  // decode error for DiscrepancyCorruptShard
}

func (d Discrepancy) String() string {
	switch d.Kind {
	case DiscrepancyWrongRevision:
		return fmt.Sprintf("corrupted index: rev number for %s should be %d but found %d", d.Node.Hex(), d.Want, d.Got)
	case DiscrepancyMissingNode:
		return fmt.Sprintf("%s node not found in partialindex", d.Node.Hex())
	case DiscrepancyUnknownNode:
		return fmt.Sprintf("%s node in partialindex but not in history", d.Node.Hex())
	case DiscrepancyCorruptShard:
		return fmt.Sprintf("%s file is corrupted: %v", d.Shard, d.Err)
	default:
		return fmt.Sprintf("unknown discrepancy in shard %s", d.Shard)
	}
}

// Verify checks the index against the authoritative history store: it
// walks every shard entry comparing stored revisions against history,
// then sweeps history for nodes the index is missing. The revisions
// confirmed present are tracked in a roaring bitmap so the sweep is a
// containment check per revision.
//
// Verify returns one Discrepancy per inconsistency; decode failures
// are reported as discrepancies naming the shard file, not swallowed.
// A non-nil error means the history store itself failed.
func (ix *Index) Verify() ([]Discrepancy, error) {
	keys, err := ix.store.Keys()
	if err != nil {
		return nil, err
	}
	slices.Sort(keys)

	var found []Discrepancy
	indexed := roaring.New()

	for _, key := range keys {
		for e, err := range ix.store.Entries(key) {
			if err != nil {
				found = append(found, Discrepancy{Kind: DiscrepancyCorruptShard, Shard: key, Err: err})
				break
			}
			want, err := ix.history.RevisionOf(e.Node)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					found = append(found, Discrepancy{Kind: DiscrepancyUnknownNode, Shard: key, Node: e.Node, Got: e.Rev})
					continue
				}
				return nil, err
			}
			indexed.Add(want)
			if want != e.Rev {
				found = append(found, Discrepancy{Kind: DiscrepancyWrongRevision, Shard: key, Node: e.Node, Want: want, Got: e.Rev})
			}
		}
	}

	for rev, node := range ix.history.Revisions() {
		if !indexed.Contains(rev) {
			found = append(found, Discrepancy{Kind: DiscrepancyMissingNode, Node: node, Want: rev})
		}
	}

	return found, nil
}

// ShardStat summarizes one shard file for operator tooling.
type ShardStat struct {
	Key     string
	Entries int
	Sorted  int
}

// Stats returns per-shard entry and sorted counts, keyed in shard key
// order. An empty shard file reports zero for both.
func (ix *Index) Stats() ([]ShardStat, error) {
	keys, err := ix.store.Keys()
	if err != nil {
		return nil, err
	}
	slices.Sort(keys)

	stats := make([]ShardStat, 0, len(keys))
	for _, key := range keys {
		size, err := ix.store.SizeOf(key)
		if err != nil {
			return nil, err
		}
		if size == 0 {
			stats = append(stats, ShardStat{Key: key})
			continue
		}
		f, err := ix.store.Open(key)
		if err != nil {
			return nil, err
		}
		hdr, err := shard.ReadHeader(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("shard %s: %w", key, err)
		}
		stats = append(stats, ShardStat{
			Key:     key,
			Entries: int((size - shard.HeaderSize) / shard.EntrySize),
			Sorted:  int(hdr.SortedCount),
		})
	}
	return stats, nil
}
