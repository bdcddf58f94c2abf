package partialindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/partialindex/shard"
)

func TestOnCommitWithoutIndexIsNoop(t *testing.T) {
	root := t.TempDir()
	history := &memHistory{}
	node := hexNode(t, "ab01")
	history.add(node)

	ix := New(root, history)
	tx := &fakeTx{}
	require.NoError(t, ix.OnCommit(tx, node, 0))

	require.False(t, ix.Built())
	require.Empty(t, tx.writes)
}

func TestOnCommitAppendsInsideTransaction(t *testing.T) {
	root := t.TempDir()
	history := &memHistory{}
	history.add(hexNode(t, "ab01"))
	ix := New(root, history)
	require.NoError(t, ix.Rebuild(context.Background(), nil))

	node := hexNode(t, "ab02")
	history.add(node)
	tx := &fakeTx{}
	require.NoError(t, ix.OnCommit(tx, node, 1))

	require.Len(t, tx.writes, 1)
	require.Equal(t, shard.RelPath("ab"), tx.writes[0].path)
	require.Equal(t, int64(shard.HeaderSize+shard.EntrySize), tx.writes[0].preSize)

	lk := ix.Lookup("ab02")
	require.Equal(t, map[string]uint32{node.Hex(): 1}, candidateHexes(lk))
}

func TestOnCommitNewShardRegistersZeroPreSize(t *testing.T) {
	root := t.TempDir()
	history := &memHistory{}
	history.add(hexNode(t, "ab01"))
	ix := New(root, history)
	require.NoError(t, ix.Rebuild(context.Background(), nil))

	node := hexNode(t, "cd01")
	history.add(node)
	tx := &fakeTx{}
	require.NoError(t, ix.OnCommit(tx, node, 1))

	require.Len(t, tx.writes, 1)
	require.Equal(t, shard.RelPath("cd"), tx.writes[0].path)
	require.Zero(t, tx.writes[0].preSize)
}

func TestOnCommitRollback(t *testing.T) {
	root := t.TempDir()
	history := &memHistory{}
	history.add(hexNode(t, "ab01"))
	ix := New(root, history)
	require.NoError(t, ix.Rebuild(context.Background(), nil))

	s := shard.NewStore(root)
	preSize, err := s.SizeOf("ab")
	require.NoError(t, err)

	var preEntries []shard.Entry
	for e, err := range s.Entries("ab") {
		require.NoError(t, err)
		preEntries = append(preEntries, e)
	}

	node := hexNode(t, "ab02")
	history.add(node)
	tx := &fakeTx{}
	require.NoError(t, ix.OnCommit(tx, node, 1))

	grown, err := s.SizeOf("ab")
	require.NoError(t, err)
	require.Equal(t, preSize+shard.EntrySize, grown)

	tx.discard(t, root)

	rolledBack, err := s.SizeOf("ab")
	require.NoError(t, err)
	require.Equal(t, preSize, rolledBack)

	var postEntries []shard.Entry
	for e, err := range s.Entries("ab") {
		require.NoError(t, err)
		postEntries = append(postEntries, e)
	}
	require.Equal(t, preEntries, postEntries)
}

func TestOnBulkIngestBuildsMissingIndex(t *testing.T) {
	root := t.TempDir()
	history := &memHistory{}
	old := hexNode(t, "ab01")
	history.add(old)

	incoming := []shard.Node{hexNode(t, "ab02"), hexNode(t, "cd03")}
	history.add(incoming...)

	ix := New(root, history)
	require.False(t, ix.Built())

	tx := &fakeTx{}
	require.NoError(t, ix.OnBulkIngest(context.Background(), tx, incoming, 1))

	require.True(t, ix.Built())
	// The rebuild excluded the incoming nodes; they arrived through
	// the transactional append path.
	require.Len(t, tx.writes, 2)

	stats, err := ix.Stats()
	require.NoError(t, err)
	byKey := make(map[string]ShardStat)
	for _, st := range stats {
		byKey[st.Key] = st
	}
	require.Equal(t, ShardStat{Key: "ab", Entries: 2, Sorted: 1}, byKey["ab"])
	require.Equal(t, ShardStat{Key: "cd", Entries: 1, Sorted: 0}, byKey["cd"])

	for i, n := range incoming {
		lk := ix.Lookup(n.Hex())
		require.Equal(t, map[string]uint32{n.Hex(): uint32(1 + i)}, candidateHexes(lk))
	}
}

func TestOnBulkIngestRebuildsWhenStale(t *testing.T) {
	root := t.TempDir()
	history := &memHistory{}
	history.add(hexNode(t, "ab01"))
	ix := New(root, history)
	require.NoError(t, ix.Rebuild(context.Background(), nil))

	s := shard.NewStore(root)
	require.NoError(t, s.MarkNeedsRebuild())

	incoming := []shard.Node{hexNode(t, "ab02")}
	history.add(incoming...)
	tx := &fakeTx{}
	require.NoError(t, ix.OnBulkIngest(context.Background(), tx, incoming, 1))

	// The atomic swap dropped the marker.
	require.False(t, ix.NeedsRebuild())
	require.Len(t, tx.writes, 1)
}

func TestOnBulkIngestAppendsDirectlyWhenFresh(t *testing.T) {
	root := t.TempDir()
	history := &memHistory{}
	history.add(hexNode(t, "ab01"))
	ix := New(root, history)
	require.NoError(t, ix.Rebuild(context.Background(), nil))

	incoming := []shard.Node{hexNode(t, "ab02"), hexNode(t, "ab03")}
	history.add(incoming...)
	tx := &fakeTx{}
	require.NoError(t, ix.OnBulkIngest(context.Background(), tx, incoming, 1))

	// No rebuild happened: the sorted region still only covers the
	// original entry.
	stats, err := ix.Stats()
	require.NoError(t, err)
	require.Equal(t, []ShardStat{{Key: "ab", Entries: 3, Sorted: 1}}, stats)
}

func TestOnHistoryRewriteRebuildsFromScratch(t *testing.T) {
	root := t.TempDir()
	history := &memHistory{}
	doomed := hexNode(t, "ff01")
	history.add(hexNode(t, "ab01"), hexNode(t, "cd02"), doomed)

	ix := New(root, history)
	require.NoError(t, ix.Rebuild(context.Background(), nil))

	// Strip the last node; surviving revisions keep their positions
	// here, but the index must not retain the stripped node.
	history.nodes = history.nodes[:2]
	require.NoError(t, ix.OnHistoryRewrite(context.Background()))

	require.True(t, ix.Built())
	lk := ix.Lookup(doomed.Hex())
	require.Equal(t, LookupFound, lk.Status)
	require.Empty(t, lk.Candidates)

	found, err := ix.Verify()
	require.NoError(t, err)
	require.Empty(t, found)

	stats, err := ix.Stats()
	require.NoError(t, err)
	for _, st := range stats {
		require.Equal(t, st.Entries, st.Sorted)
	}
}

func TestOnHistoryRewriteWithoutIndex(t *testing.T) {
	root := t.TempDir()
	history := &memHistory{}
	history.add(hexNode(t, "ab01"))

	ix := New(root, history)
	require.NoError(t, ix.OnHistoryRewrite(context.Background()))
	require.True(t, ix.Built())
}

func TestIncrementalMatchesFullRebuild(t *testing.T) {
	prefixes := []string{"ab01", "ab02", "ab03", "cd04", "cd05", "ef06", "0007", "ab08"}

	// Incremental: rebuild over the first half, then bulk ingest the
	// second half through the append path.
	rootA := t.TempDir()
	historyA := &memHistory{}
	for _, p := range prefixes[:4] {
		historyA.add(hexNode(t, p))
	}
	ixA := New(rootA, historyA)
	require.NoError(t, ixA.Rebuild(context.Background(), nil))

	var incoming []shard.Node
	for _, p := range prefixes[4:] {
		incoming = append(incoming, hexNode(t, p))
	}
	historyA.add(incoming...)
	require.NoError(t, ixA.OnBulkIngest(context.Background(), &fakeTx{}, incoming, 4))

	// Full: one rebuild over the complete history.
	rootB := t.TempDir()
	historyB := &memHistory{}
	for _, p := range prefixes {
		historyB.add(hexNode(t, p))
	}
	ixB := New(rootB, historyB)
	require.NoError(t, ixB.Rebuild(context.Background(), nil))

	for _, p := range append(prefixes, "ab99", "cd04", "eeee") {
		a := ixA.Lookup(p)
		b := ixB.Lookup(p)
		require.Equal(t, b.Status, a.Status, "query %q", p)
		require.Equal(t, candidateHexes(b), candidateHexes(a), "query %q", p)
	}
}
