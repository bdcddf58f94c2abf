package partialindex

import (
	"context"

	"github.com/hupe1980/partialindex/shard"
)

// OnCommit records a single new commit. The entry is appended inside
// the active transaction: the shard's pre-append size is registered so
// a discarded transaction truncates the file back. A not-yet-built
// index is left alone; it will be created by the next bulk ingest or
// an explicit rebuild.
//
// The history store must already contain the node at the given
// revision.
func (ix *Index) OnCommit(tx Transaction, node shard.Node, rev uint32) error {
	if !ix.store.Built() {
		return nil
	}
	return ix.appendEntry(tx, node, rev)
}

// OnBulkIngest records a contiguous range of newly introduced nodes
// occupying revisions firstRev..firstRev+len(nodes)-1, e.g. from a
// pull. A missing or stale index is first rebuilt from history with
// the incoming nodes excluded; the incoming entries then always go
// through the transactional append path so a discard rolls them back.
func (ix *Index) OnBulkIngest(ctx context.Context, tx Transaction, nodes []shard.Node, firstRev uint32) error {
	if !ix.store.Built() || ix.store.NeedsRebuild() {
		exclude := make(map[string]struct{}, len(nodes))
		for _, n := range nodes {
			exclude[n.Hex()] = struct{}{}
		}
		if err := ix.Rebuild(ctx, exclude); err != nil {
			return err
		}
	}
	for i, n := range nodes {
		if err := ix.appendEntry(tx, n, firstRev+uint32(i)); err != nil {
			return err
		}
	}
	return nil
}

// OnHistoryRewrite handles a destructive history edit such as a strip.
// Revisions shift for surviving nodes and cannot be patched entry by
// entry, so the index is deleted and rebuilt from scratch.
func (ix *Index) OnHistoryRewrite(ctx context.Context) error {
	if err := ix.store.RemoveAll(); err != nil {
		return err
	}
	return ix.Rebuild(ctx, nil)
}

func (ix *Index) appendEntry(tx Transaction, node shard.Node, rev uint32) error {
	key := node.ShardKey()
	preSize, err := ix.store.SizeOf(key)
	if err != nil {
		return err
	}
	tx.RegisterPendingWrite(shard.RelPath(key), preSize)
	return ix.store.Append(key, shard.Entry{Node: node, Rev: rev})
}
