// Package prompttable parses the decompressed voice pack image: a
// count-prefixed table of (size, absolute offset) records followed by the
// concatenated prompt audio blobs.
package prompttable

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	headerLen = 8 // version u32 + entry count u32
	entryLen  = 8 // size u32 + absolute offset u32
)

// ErrCorruptTable reports an entry count that cannot fit the image.
var ErrCorruptTable = errors.New("prompttable: corrupt table")

// Prompt is one extracted asset. Index is the 0-based table position;
// consumers rely on the index-to-meaning mapping (index 0 is always the same
// prompt across languages), so table order is preserved. Data aliases the
// decompressed image and must be treated as read-only.
type Prompt struct {
	Index int
	Data  []byte
}

// SkippedEntry records a table entry whose byte range fell outside the image.
// A single corrupt entry must not discard the remaining prompts, so these are
// reported alongside the successes instead of failing the parse.
type SkippedEntry struct {
	Index  int
	Offset int64 // local offset after base correction, may be negative
	Size   uint32
}

// Extract parses the table and slices out every in-bounds prompt.
//
// Table offsets live in a coordinate space that begins before the image: the
// table's own length is subtracted from entry 0's absolute offset to recover
// the base, and the base is subtracted from every entry to get an image index.
func Extract(image []byte) ([]Prompt, []SkippedEntry, error) {
	if len(image) < headerLen {
		return nil, nil, fmt.Errorf("%w: image of %d bytes has no table header", ErrCorruptTable, len(image))
	}
	entryCount := binary.LittleEndian.Uint32(image[4:8])
	tableLen := int64(headerLen) + int64(entryCount)*entryLen
	if tableLen > int64(len(image)) {
		return nil, nil, fmt.Errorf("%w: %d entries need %d bytes, image has %d",
			ErrCorruptTable, entryCount, tableLen, len(image))
	}
	if entryCount == 0 {
		return nil, nil, nil
	}

	firstAbs := binary.LittleEndian.Uint32(image[headerLen+4 : headerLen+8])
	base := int64(firstAbs) - tableLen

	var prompts []Prompt
	var skipped []SkippedEntry
	for i := 0; i < int(entryCount); i++ {
		off := headerLen + i*entryLen
		size := binary.LittleEndian.Uint32(image[off:])
		abs := binary.LittleEndian.Uint32(image[off+4:])
		local := int64(abs) - base
		if local < 0 || local+int64(size) > int64(len(image)) {
			skipped = append(skipped, SkippedEntry{Index: i, Offset: local, Size: size})
			continue
		}
		prompts = append(prompts, Prompt{Index: i, Data: image[local : local+int64(size)]})
	}
	return prompts, skipped, nil
}
