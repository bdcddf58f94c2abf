package partialindex

import (
	"io"
	"iter"

	"github.com/hupe1980/partialindex/shard"
)

// HistoryStore is the authoritative total order of commit nodes the
// index accelerates lookups against. The index is never the source of
// truth; everything it stores is rebuildable from this interface.
type HistoryStore interface {
	// Revisions enumerates all (revision, node) pairs in revision
	// order.
	Revisions() iter.Seq2[uint32, shard.Node]

	// RevisionOf maps a node to its current revision, or ErrNotFound
	// when the node is not part of the history.
	RevisionOf(node shard.Node) (uint32, error)
}

// Transaction is the host transaction enclosing a commit or ingest
// event. The index registers every shard file it appends to so a
// discarded transaction can truncate the file back to its pre-append
// size.
type Transaction interface {
	// RegisterPendingWrite records that path (relative to the storage
	// root) must be truncated to preSize if the transaction is
	// discarded.
	RegisterPendingWrite(path string, preSize int64)

	// RegisterGeneratedFile registers a file whose final content is
	// deterministically derivable and is (re)written at commit time.
	RegisterGeneratedFile(name string, write func(io.Writer) error)
}
