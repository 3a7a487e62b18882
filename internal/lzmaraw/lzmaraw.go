// Package lzmaraw decompresses the raw LZMA1 stream found inside a decrypted
// voice pack body. The 13-byte stream header is parsed here because the
// containers abuse it: the uncompressed-size field carries garbage and must
// never be trusted. The decompression algorithm itself is delegated to
// github.com/ulikunitz/xz/lzma.
package lzmaraw

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// HeaderLen is the classic LZMA stream header: 1 properties byte, 4-byte
// dictionary size, 8-byte uncompressed size.
const HeaderLen = 13

const (
	// maxProps is the first invalid properties byte ((4*5+4)*9+8 = 224 is the
	// largest valid encoding).
	maxProps = 225

	// maxDictSize rejects decrypted garbage before it turns into a huge
	// dictionary allocation. Real voice packs use a 16 KiB dictionary.
	maxDictSize = 1 << 26

	// maxOutputSize caps decompression when the container gives no usable
	// size hint.
	maxOutputSize = 1 << 20
)

// ErrCorruptStream reports a structurally invalid LZMA stream.
var ErrCorruptStream = errors.New("lzmaraw: corrupt stream")

// Header holds the decoded stream parameters.
type Header struct {
	LC       int // literal context bits
	LP       int // literal position bits
	PB       int // position bits
	DictSize uint32
}

// ParseHeader decodes the stream parameters from the first HeaderLen bytes.
// The properties byte decomposes as lc = props%9, lp = (props/9)%5,
// pb = props/45.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, fmt.Errorf("%w: header needs %d bytes, have %d", ErrCorruptStream, HeaderLen, len(b))
	}
	props := b[0]
	if props >= maxProps {
		return Header{}, fmt.Errorf("%w: invalid properties byte 0x%02X", ErrCorruptStream, props)
	}
	return Header{
		LC:       int(props % 9),
		LP:       int(props / 9 % 5),
		PB:       int(props / 45),
		DictSize: binary.LittleEndian.Uint32(b[1:5]),
	}, nil
}

// Decompress reconstructs the uncompressed bytes from a decrypted body.
// sizeHint is the container header's declared output size; it bounds the
// output but is not a contract. A truncated stream yields the bytes decoded
// so far with no error. A hint of zero (or an absurd one) falls back to a
// 1 MiB cap.
func Decompress(data []byte, sizeHint int) ([]byte, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	if h.DictSize > maxDictSize {
		return nil, fmt.Errorf("%w: dictionary size %d", ErrCorruptStream, h.DictSize)
	}

	n := sizeHint
	if n <= 0 || n > maxOutputSize {
		n = maxOutputSize
	}

	// The stream's own size field is garbage in real containers. Re-synthesize
	// the header with the size we actually want so the library's classic-format
	// reader stops in the right place instead of trusting it.
	hdr := make([]byte, HeaderLen)
	hdr[0] = data[0]
	binary.LittleEndian.PutUint32(hdr[1:5], h.DictSize)
	binary.LittleEndian.PutUint64(hdr[5:13], uint64(n))

	r, err := lzma.NewReader(io.MultiReader(bytes.NewReader(hdr), bytes.NewReader(data[HeaderLen:])))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStream, err)
	}

	out := make([]byte, n)
	read, err := io.ReadFull(r, out)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStream, err)
	}
	return out[:read], nil
}
