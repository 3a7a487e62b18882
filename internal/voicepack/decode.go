// Package voicepack decodes Sony headphone voice pack containers: a fixed
// 4096-byte header, an AES-128-CBC encrypted body, a raw LZMA1 stream inside,
// and a prompt table inside that. The pipeline is a pure function over the
// input buffer; all I/O belongs to the caller.
package voicepack

import (
	"fmt"

	"voicepack-extractor/internal/crypto"
	"voicepack-extractor/internal/lzmaraw"
	"voicepack-extractor/internal/prompttable"
)

// Result holds everything one container decodes to. Skipped lists table
// entries whose byte ranges were out of bounds; callers that need strict
// behavior treat a non-empty list as failure, the extractor just warns.
type Result struct {
	Header  ContainerHeader
	Prompts []prompttable.Prompt
	Skipped []prompttable.SkippedEntry
}

// Decode runs the full pipeline: header parse, body decrypt, stream
// decompress, table extract. Every stage error propagates immediately and
// wraps that stage's sentinel, so errors.Is works across the pipeline
// boundary. The input buffer is never written to, which makes concurrent
// decodes of independent files safe.
func Decode(data []byte, m crypto.Material) (*Result, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	if h.CompressionType != CompressionLZMA {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedCompression, h.CompressionType)
	}

	body := data[HeaderSize:]
	if h.BodySize > 0 && int64(h.BodySize) <= int64(len(body)) {
		body = body[:h.BodySize]
	}

	dec, err := crypto.DecryptCBC(body, m)
	if err != nil {
		return nil, fmt.Errorf("voicepack: decrypt body: %w", err)
	}

	image, err := lzmaraw.Decompress(dec, int(h.DecompressedSize))
	if err != nil {
		return nil, fmt.Errorf("voicepack: decompress body: %w", err)
	}

	prompts, skipped, err := prompttable.Extract(image)
	if err != nil {
		return nil, fmt.Errorf("voicepack: parse table: %w", err)
	}

	return &Result{Header: h, Prompts: prompts, Skipped: skipped}, nil
}

// LooksLikeMPEG reports whether data starts like MPEG audio (ID3 tag or frame
// sync). Prompts are MP3 in every known pack; a miss is worth a warning but
// not an error.
func LooksLikeMPEG(data []byte) bool {
	if len(data) >= 3 && data[0] == 'I' && data[1] == 'D' && data[2] == '3' {
		return true
	}
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}
