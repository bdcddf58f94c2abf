package shard

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// Version is the current shard file format version.
	Version = 1

	// HeaderSize is the fixed size of the shard file header:
	// 1-byte version, 4-byte big-endian sorted count, 19 reserved bytes.
	HeaderSize = 24

	// NodeSize is the length of a node hash in bytes.
	NodeSize = 20

	// EntrySize is the fixed size of one index entry:
	// 20-byte node followed by a 4-byte big-endian revision.
	EntrySize = NodeSize + 4
)

var (
	ErrCorruptIndex       = errors.New("corrupt index")
	ErrUnsupportedVersion = errors.New("unsupported index version")
)

// Node is the fixed-length binary hash of a commit.
type Node [NodeSize]byte

// Hex returns the lowercase hex rendering of the node.
func (n Node) Hex() string {
	return hex.EncodeToString(n[:])
}

// ShardKey returns the two leading hex characters that select the
// node's shard file.
func (n Node) ShardKey() string {
	return n.Hex()[:2]
}

// Compare orders nodes by raw byte value.
func (n Node) Compare(other Node) int {
	return bytes.Compare(n[:], other[:])
}

// ParseNode decodes a full 40-character hex string into a Node.
func ParseNode(s string) (Node, error) {
	var n Node
	if len(s) != 2*NodeSize {
		return n, fmt.Errorf("invalid node %q: want %d hex characters, got %d", s, 2*NodeSize, len(s))
	}
	if _, err := hex.Decode(n[:], []byte(s)); err != nil {
		return n, fmt.Errorf("invalid node %q: %w", s, err)
	}
	return n, nil
}

// Header is the decoded shard file header.
type Header struct {
	Version     uint8
	SortedCount uint32
}

// Entry is one (node, revision) record of a shard file.
type Entry struct {
	Node Node
	Rev  uint32
}

// EncodeHeader encodes a header for the current format version.
func EncodeHeader(h Header) [HeaderSize]byte {
	var buf [HeaderSize]byte
	buf[0] = h.Version
	binary.BigEndian.PutUint32(buf[1:5], h.SortedCount)
	// buf[5:] reserved, zero-filled
	return buf
}

// DecodeHeader decodes and validates a shard file header.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header is %d bytes, want %d", ErrCorruptIndex, len(buf), HeaderSize)
	}
	h := Header{
		Version:     buf[0],
		SortedCount: binary.BigEndian.Uint32(buf[1:5]),
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: got version %d, want %d", ErrUnsupportedVersion, h.Version, Version)
	}
	return h, nil
}

// EncodeEntry encodes one entry record.
func EncodeEntry(e Entry) [EntrySize]byte {
	var buf [EntrySize]byte
	copy(buf[:NodeSize], e.Node[:])
	binary.BigEndian.PutUint32(buf[NodeSize:], e.Rev)
	return buf
}

// DecodeEntry decodes one entry record.
func DecodeEntry(buf []byte) (Entry, error) {
	if len(buf) < EntrySize {
		return Entry{}, fmt.Errorf("%w: entry is %d bytes, want %d", ErrCorruptIndex, len(buf), EntrySize)
	}
	var e Entry
	copy(e.Node[:], buf[:NodeSize])
	e.Rev = binary.BigEndian.Uint32(buf[NodeSize:EntrySize])
	return e, nil
}

// EntryOffset returns the byte offset of entry i within a shard file.
func EntryOffset(i int) int64 {
	return HeaderSize + EntrySize*int64(i)
}
