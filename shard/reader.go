package shard

import (
	"fmt"
	"io"
	"iter"
)

// ReadHeader reads and validates the header at the start of r.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Header{}, fmt.Errorf("%w: truncated header", ErrCorruptIndex)
		}
		return Header{}, err
	}
	return DecodeHeader(buf[:])
}

// ReadEntryAt reads entry i from ra. The boolean is false when the
// offset is at or past the end of the file (a clean end of data); a
// partial record is reported as ErrCorruptIndex.
func ReadEntryAt(ra io.ReaderAt, i int) (Entry, bool, error) {
	var buf [EntrySize]byte
	n, err := ra.ReadAt(buf[:], EntryOffset(i))
	if n == 0 && err == io.EOF {
		return Entry{}, false, nil
	}
	if n < EntrySize {
		if err == io.EOF {
			return Entry{}, false, fmt.Errorf("%w: truncated entry at index %d", ErrCorruptIndex, i)
		}
		return Entry{}, false, err
	}
	e, err := DecodeEntry(buf[:])
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

// Entries iterates the records of a shard file from the current
// position of r, which must already be past the header. Iteration
// stops at the first error.
func Entries(r io.Reader) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		var buf [EntrySize]byte
		for {
			n, err := io.ReadFull(r, buf[:])
			if err == io.EOF {
				return
			}
			if err == io.ErrUnexpectedEOF {
				yield(Entry{}, fmt.Errorf("%w: truncated entry (%d trailing bytes)", ErrCorruptIndex, n))
				return
			}
			if err != nil {
				yield(Entry{}, err)
				return
			}
			e, err := DecodeEntry(buf[:])
			if !yield(e, err) || err != nil {
				return
			}
		}
	}
}
