package partialindex

import (
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/partialindex/shard"
)

// hexNode builds a node whose hex rendering starts with prefix, padded
// with zeros to the full 40 characters.
func hexNode(t *testing.T, prefix string) shard.Node {
	t.Helper()
	require.LessOrEqual(t, len(prefix), 2*shard.NodeSize)
	padded := prefix + strings.Repeat("0", 2*shard.NodeSize-len(prefix))
	n, err := shard.ParseNode(padded)
	require.NoError(t, err)
	return n
}

// memHistory is an in-memory HistoryStore; a node's revision is its
// position in the append order.
type memHistory struct {
	nodes []shard.Node
}

func (h *memHistory) add(prefixes ...shard.Node) {
	h.nodes = append(h.nodes, prefixes...)
}

func (h *memHistory) Revisions() iter.Seq2[uint32, shard.Node] {
	return func(yield func(uint32, shard.Node) bool) {
		for i, node := range h.nodes {
			if !yield(uint32(i), node) {
				return
			}
		}
	}
}

func (h *memHistory) RevisionOf(node shard.Node) (uint32, error) {
	for i, n := range h.nodes {
		if n == node {
			return uint32(i), nil
		}
	}
	return 0, ErrNotFound
}

// fakeTx records pending-write registrations and can replay a discard
// by truncating every registered file back to its pre-append size.
type fakeTx struct {
	writes []pendingWrite
}

type pendingWrite struct {
	path    string
	preSize int64
}

func (tx *fakeTx) RegisterPendingWrite(path string, preSize int64) {
	tx.writes = append(tx.writes, pendingWrite{path: path, preSize: preSize})
}

func (tx *fakeTx) RegisterGeneratedFile(string, func(io.Writer) error) {}

func (tx *fakeTx) discard(t *testing.T, root string) {
	t.Helper()
	for i := len(tx.writes) - 1; i >= 0; i-- {
		w := tx.writes[i]
		require.NoError(t, os.Truncate(filepath.Join(root, w.path), w.preSize))
	}
}

// candidateHexes renders a candidate map as sorted "hex:rev" strings
// for order-independent comparison.
func candidateHexes(lk Lookup) map[string]uint32 {
	out := make(map[string]uint32, len(lk.Candidates))
	for node, rev := range lk.Candidates {
		out[node.Hex()] = rev
	}
	return out
}
