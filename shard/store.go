// Package shard implements the on-disk shard files of the partial
// index: the fixed binary record format and the file store that owns
// reads, appends, and the atomic full replacement used by rebuilds.
package shard

import (
	"bufio"
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

const (
	// Dir is the live index directory, relative to the storage root.
	Dir = "partialindex"

	// TempDir is the staging directory a rebuild writes into before
	// atomically renaming it over Dir.
	TempDir = ".tmppartialindex"

	// MarkerName is the needs-rebuild sentinel inside Dir. Only its
	// existence matters; the file is empty.
	MarkerName = "needrebuild"
)

// Store maps two-character hex shard keys to files under a repository
// storage root. It performs no locking; the caller serializes
// mutations.
type Store struct {
	root string
}

// NewStore creates a Store rooted at the given storage directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// IndexDir returns the absolute path of the live index directory.
func (s *Store) IndexDir() string {
	return filepath.Join(s.root, Dir)
}

// Path returns the absolute path of the shard file for key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.root, Dir, key)
}

// RelPath returns the shard file path relative to the storage root,
// the form the transaction machinery records for rollback truncation.
func RelPath(key string) string {
	return filepath.Join(Dir, key)
}

// ValidKey reports whether key names a shard file: exactly two
// lowercase hex characters.
func ValidKey(key string) bool {
	if len(key) != 2 {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Built reports whether the live index directory exists.
func (s *Store) Built() bool {
	info, err := os.Stat(s.IndexDir())
	return err == nil && info.IsDir()
}

// Exists reports whether the shard file for key exists.
func (s *Store) Exists(key string) bool {
	info, err := os.Stat(s.Path(key))
	return err == nil && info.Mode().IsRegular()
}

// Open opens the shard file for key for reading.
func (s *Store) Open(key string) (*os.File, error) {
	return os.Open(s.Path(key))
}

// SizeOf returns the current size of the shard file for key, or zero
// when the file does not exist yet.
func (s *Store) SizeOf(key string) (int64, error) {
	info, err := os.Stat(s.Path(key))
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Append appends one entry to the shard file for key, creating the
// file with an empty-sorted-region header when absent. Appended bytes
// are immediately visible to readers; durability and rollback belong
// to the enclosing transaction.
func (s *Store) Append(key string, e Entry) error {
	if !ValidKey(key) {
		return fmt.Errorf("invalid shard key %q", key)
	}
	f, err := os.OpenFile(s.Path(key), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		hdr := EncodeHeader(Header{Version: Version, SortedCount: 0})
		if _, err := f.Write(hdr[:]); err != nil {
			return err
		}
	}
	buf := EncodeEntry(e)
	if _, err := f.Write(buf[:]); err != nil {
		return err
	}
	return f.Close()
}

// Keys lists the shard keys that currently have a file.
func (s *Store) Keys() ([]string, error) {
	dirents, err := os.ReadDir(s.IndexDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var keys []string
	for _, d := range dirents {
		if ValidKey(d.Name()) && d.Type().IsRegular() {
			keys = append(keys, d.Name())
		}
	}
	return keys, nil
}

// Entries iterates the decoded records of the shard file for key in
// file order. An empty file yields nothing; a missing or malformed
// header yields one error.
func (s *Store) Entries(key string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		f, err := s.Open(key)
		if err != nil {
			yield(Entry{}, err)
			return
		}
		defer f.Close()

		if info, err := f.Stat(); err == nil && info.Size() == 0 {
			return
		}
		if _, err := ReadHeader(f); err != nil {
			yield(Entry{}, err)
			return
		}
		for e, err := range Entries(bufio.NewReader(f)) {
			if !yield(e, err) {
				return
			}
		}
	}
}

// Replace atomically swaps in a complete new shard set: every shard is
// written fully sorted into the staging directory, which is then
// renamed over the live directory. A crash before the rename leaves
// the live directory untouched; a leftover staging directory from a
// previous crash is removed first.
func (s *Store) Replace(ctx context.Context, shards map[string][]Entry) error {
	for key := range shards {
		if !ValidKey(key) {
			return fmt.Errorf("invalid shard key %q", key)
		}
	}

	tmp := filepath.Join(s.root, TempDir)
	if err := os.RemoveAll(tmp); err != nil {
		return err
	}
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return err
	}

	g, _ := errgroup.WithContext(ctx)
	for key, entries := range shards {
		g.Go(func() error {
			return writeShardFile(filepath.Join(tmp, key), entries)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := os.RemoveAll(s.IndexDir()); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.IndexDir()); err != nil {
		return err
	}

	// Best-effort: fsync the root so the rename is durable on POSIX.
	if d, err := os.Open(s.root); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

func writeShardFile(path string, entries []Entry) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	hdr := EncodeHeader(Header{Version: Version, SortedCount: uint32(len(entries))})
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	for _, e := range entries {
		buf := EncodeEntry(e)
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return f.Close()
}

// RemoveAll deletes the live index directory and everything in it.
func (s *Store) RemoveAll() error {
	return os.RemoveAll(s.IndexDir())
}

// NeedsRebuild reports whether the needs-rebuild marker exists.
func (s *Store) NeedsRebuild() bool {
	_, err := os.Stat(s.markerPath())
	return err == nil
}

// MarkNeedsRebuild raises the needs-rebuild marker. Idempotent.
func (s *Store) MarkNeedsRebuild() error {
	f, err := os.OpenFile(s.markerPath(), os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

func (s *Store) markerPath() string {
	return filepath.Join(s.root, Dir, MarkerName)
}
