package partialindex

import (
	"iter"

	"github.com/hupe1980/partialindex/shard"
)

// Index is a secondary, rebuildable index that resolves an abbreviated
// hex prefix of a commit node to the full nodes sharing that prefix,
// together with each node's revision in the authoritative history.
//
// The index performs no locking of its own: the caller serializes
// mutating events the same way it serializes the history store
// operations that trigger them. Concurrent lookups are safe because
// shard files are only appended to or atomically replaced.
type Index struct {
	store   *shard.Store
	history HistoryStore
	opts    options
	logger  *Logger
}

// New creates an Index rooted at the repository storage directory,
// backed by the given authoritative history store.
func New(root string, history HistoryStore, optFns ...Option) *Index {
	o := applyOptions(optFns)
	return &Index{
		store:   shard.NewStore(root),
		history: history,
		opts:    o,
		logger:  o.logger,
	}
}

// Built reports whether the index directory exists. An absent index is
// logically empty and all resolution defers to the slow path.
func (ix *Index) Built() bool {
	return ix.store.Built()
}

// NeedsRebuild reports whether the needs-rebuild marker is raised,
// i.e. the unsorted regions have grown past the configured threshold
// and the next bulk ingest will rebuild before appending.
func (ix *Index) NeedsRebuild() bool {
	return ix.store.NeedsRebuild()
}

// ShardKeys lists the shard keys that currently have a file.
func (ix *Index) ShardKeys() ([]string, error) {
	return ix.store.Keys()
}

// ShardEntries iterates the decoded records of one shard file in file
// order, for inspection tooling.
func (ix *Index) ShardEntries(key string) iter.Seq2[shard.Entry, error] {
	return ix.store.Entries(key)
}
