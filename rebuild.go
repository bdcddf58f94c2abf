package partialindex

import (
	"context"
	"slices"

	"github.com/hupe1980/partialindex/shard"
)

// Rebuild regenerates the whole index from the authoritative history
// store and atomically swaps it in, replacing whatever was live. Nodes
// whose hex rendering appears in exclude are skipped; a bulk ingest
// passes its incoming nodes here so it can append them itself through
// the transactional path.
//
// Every rebuilt shard is fully sorted, so its header's sorted count
// equals its entry count. The atomic directory rename also clears any
// needs-rebuild marker.
func (ix *Index) Rebuild(ctx context.Context, exclude map[string]struct{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	buckets := make(map[string][]shard.Entry)
	total := 0
	for rev, node := range ix.history.Revisions() {
		if _, skip := exclude[node.Hex()]; skip {
			continue
		}
		key := node.ShardKey()
		buckets[key] = append(buckets[key], shard.Entry{Node: node, Rev: rev})
		total++
	}

	for _, entries := range buckets {
		slices.SortFunc(entries, func(a, b shard.Entry) int {
			return a.Node.Compare(b.Node)
		})
	}

	err := ix.store.Replace(ctx, buckets)
	ix.logger.LogRebuild(len(buckets), total, err)
	return err
}
