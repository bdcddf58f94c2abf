// Package partialindex makes commit node prefix lookup fast.
//
// The index partitions nodes by the first two characters of their hex
// rendering into at most 256 shard files. Each shard file starts with
// a fixed 24-byte header (format version and the number of leading
// entries kept sorted) followed by fixed 24-byte entries, a 20-byte
// node hash plus its big-endian revision. A freshly rebuilt shard is
// fully sorted; entries appended afterwards accumulate in arrival
// order until a lookup scans enough of them to flag the index for
// rebuild.
//
// The index is never the source of truth. Every resolution entry point
// takes the host's slow path and falls back to it whenever the index
// is absent, inapplicable, or unreadable, so resolution is never less
// capable than a full history scan.
package partialindex
