package voicepack

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// HeaderSize is the fixed container prefix; the encrypted body starts
	// immediately after it.
	HeaderSize = 0x1000

	// NonceSize is the opaque random prefix. It is per-file noise, not
	// cipher material; the CBC IV is a firmware constant, never this.
	NonceSize = 32

	offCompressionType  = 0x100
	offBodySize         = 0x104
	offDecompressedSize = 0x108

	// CompressionLZMA is the only body compression scheme this decoder
	// implements.
	CompressionLZMA = 2
)

var (
	// ErrTruncatedHeader reports an input shorter than the fixed header.
	ErrTruncatedHeader = errors.New("voicepack: truncated header")

	// ErrUnsupportedCompression reports a header declaring a compression
	// scheme other than CompressionLZMA.
	ErrUnsupportedCompression = errors.New("voicepack: unsupported compression type")
)

// ContainerHeader is the typed view of the 4096-byte container prefix.
// Constructed once per file and immutable afterwards.
type ContainerHeader struct {
	Nonce            [NonceSize]byte
	CompressionType  uint8
	BodySize         uint32 // declared encrypted body length
	DecompressedSize uint32 // expected output size; a hint, not a contract
}

// ParseHeader interprets the container prefix. It performs no validation of
// CompressionType; future container versions may use other values, so the
// check belongs to the pipeline that actually needs LZMA.
func ParseHeader(data []byte) (ContainerHeader, error) {
	if len(data) < HeaderSize {
		return ContainerHeader{}, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedHeader, HeaderSize, len(data))
	}
	var h ContainerHeader
	copy(h.Nonce[:], data[:NonceSize])
	h.CompressionType = data[offCompressionType]
	h.BodySize = binary.LittleEndian.Uint32(data[offBodySize:])
	h.DecompressedSize = binary.LittleEndian.Uint32(data[offDecompressedSize:])
	return h, nil
}
