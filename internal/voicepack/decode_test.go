package voicepack

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"voicepack-extractor/internal/crypto"
	"voicepack-extractor/internal/lzmaraw"

	"github.com/ulikunitz/xz/lzma"
)

func testMaterial(t *testing.T) crypto.Material {
	t.Helper()
	m, err := crypto.MaterialFromStrings("Ahxiew8ahGei2ooF", "ohQuee9ooPh1aeb2")
	if err != nil {
		t.Fatalf("material: %v", err)
	}
	return m
}

// buildImage packs blobs behind a prompt table whose absolute offsets start
// 0x500 before the image.
func buildImage(blobs [][]byte) []byte {
	const base = 0x500
	tableLen := 8 + len(blobs)*8

	image := make([]byte, 0, tableLen)
	image = binary.LittleEndian.AppendUint32(image, 1)
	image = binary.LittleEndian.AppendUint32(image, uint32(len(blobs)))

	local := uint32(tableLen)
	for _, b := range blobs {
		image = binary.LittleEndian.AppendUint32(image, uint32(len(b)))
		image = binary.LittleEndian.AppendUint32(image, base+local)
		local += uint32(len(b))
	}
	for _, b := range blobs {
		image = append(image, b...)
	}
	return image
}

// buildContainer compresses and encrypts an image into a full container file.
func buildContainer(t *testing.T, image []byte, m crypto.Material) []byte {
	t.Helper()

	var buf bytes.Buffer
	w, err := lzma.WriterConfig{
		Properties:   &lzma.Properties{LC: 3, LP: 0, PB: 2},
		DictCap:      16384,
		SizeInHeader: true,
		Size:         int64(len(image)),
	}.NewWriter(&buf)
	if err != nil {
		t.Fatalf("lzma writer: %v", err)
	}
	if _, err := w.Write(image); err != nil {
		t.Fatalf("lzma write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("lzma close: %v", err)
	}

	body := buf.Bytes()
	for len(body)%crypto.BlockSize != 0 {
		body = append(body, 0)
	}
	enc, err := crypto.EncryptCBC(body, m)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	header := make([]byte, HeaderSize)
	for i := 0; i < NonceSize; i++ {
		header[i] = byte(0xA5 ^ i)
	}
	header[offCompressionType] = CompressionLZMA
	binary.LittleEndian.PutUint32(header[offBodySize:], uint32(len(enc)))
	binary.LittleEndian.PutUint32(header[offDecompressedSize:], uint32(len(image)))

	return append(header, enc...)
}

func testBlobs() [][]byte {
	return [][]byte{
		bytes.Repeat([]byte{0xAA}, 10),
		bytes.Repeat([]byte{0xBB}, 20),
		bytes.Repeat([]byte{0xCC}, 30),
	}
}

func TestParseHeaderFields(t *testing.T) {
	blobs := testBlobs()
	container := buildContainer(t, buildImage(blobs), testMaterial(t))

	h, err := ParseHeader(container)
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}
	if h.CompressionType != CompressionLZMA {
		t.Errorf("compression type: got %d, want %d", h.CompressionType, CompressionLZMA)
	}
	if int(h.BodySize) != len(container)-HeaderSize {
		t.Errorf("body size: got %d, want %d", h.BodySize, len(container)-HeaderSize)
	}
	if h.Nonce[0] != 0xA5 {
		t.Errorf("nonce not captured from the first 32 bytes")
	}
}

func TestParseHeaderTruncated(t *testing.T) {
	if _, err := ParseHeader(make([]byte, 100)); !errors.Is(err, ErrTruncatedHeader) {
		t.Fatalf("expected ErrTruncatedHeader, got %v", err)
	}
}

func TestDecodeEndToEnd(t *testing.T) {
	m := testMaterial(t)
	blobs := testBlobs()
	container := buildContainer(t, buildImage(blobs), m)

	res, err := Decode(container, m)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(res.Skipped) != 0 {
		t.Fatalf("expected no skipped entries, got %d", len(res.Skipped))
	}
	if len(res.Prompts) != 3 {
		t.Fatalf("expected 3 prompts, got %d", len(res.Prompts))
	}
	for i, p := range res.Prompts {
		if p.Index != i {
			t.Errorf("prompt %d: index %d", i, p.Index)
		}
		if !bytes.Equal(p.Data, blobs[i]) {
			t.Errorf("prompt %d: got %d bytes, want %d", i, len(p.Data), len(blobs[i]))
		}
	}
}

func TestDecodeIdempotent(t *testing.T) {
	m := testMaterial(t)
	container := buildContainer(t, buildImage(testBlobs()), m)

	first, err := Decode(container, m)
	if err != nil {
		t.Fatalf("first Decode failed: %v", err)
	}
	second, err := Decode(container, m)
	if err != nil {
		t.Fatalf("second Decode failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Decode is not idempotent over the same buffer")
	}
}

func TestDecodeDoesNotMutateInput(t *testing.T) {
	m := testMaterial(t)
	container := buildContainer(t, buildImage(testBlobs()), m)
	snapshot := bytes.Clone(container)

	if _, err := Decode(container, m); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(container, snapshot) {
		t.Fatalf("Decode mutated the input buffer")
	}
}

func TestDecodePartialFailure(t *testing.T) {
	m := testMaterial(t)
	image := buildImage(testBlobs())
	// Break entry 1's absolute offset before compressing.
	binary.LittleEndian.PutUint32(image[8+8+4:], 0xFFFF0000)
	container := buildContainer(t, image, m)

	res, err := Decode(container, m)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(res.Prompts) != 2 {
		t.Fatalf("expected 2 surviving prompts, got %d", len(res.Prompts))
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Index != 1 {
		t.Fatalf("expected entry 1 in skip diagnostics, got %+v", res.Skipped)
	}
}

func TestDecodeUnsupportedCompression(t *testing.T) {
	m := testMaterial(t)
	container := buildContainer(t, buildImage(testBlobs()), m)
	container[offCompressionType] = 1

	if _, err := Decode(container, m); !errors.Is(err, ErrUnsupportedCompression) {
		t.Fatalf("expected ErrUnsupportedCompression, got %v", err)
	}
}

func TestDecodeBadAlignment(t *testing.T) {
	m := testMaterial(t)
	container := make([]byte, HeaderSize+30)
	container[offCompressionType] = CompressionLZMA

	if _, err := Decode(container, m); !errors.Is(err, crypto.ErrBlockAlignment) {
		t.Fatalf("expected ErrBlockAlignment, got %v", err)
	}
}

func TestDecodeWrongKey(t *testing.T) {
	m := testMaterial(t)
	container := buildContainer(t, buildImage(testBlobs()), m)

	wrong, err := crypto.MaterialFromStrings("0000000000000000", "1111111111111111")
	if err != nil {
		t.Fatalf("material: %v", err)
	}
	if _, err := Decode(container, wrong); err == nil {
		t.Fatalf("expected decode with the wrong key to fail")
	}
}

func TestDecodeCorruptStreamSentinel(t *testing.T) {
	m := testMaterial(t)

	// A body whose stream header is valid but whose range coder init byte is
	// not zero: structurally invalid LZMA.
	body := make([]byte, 32)
	body[0] = 0x5D
	binary.LittleEndian.PutUint32(body[1:5], 16384)
	body[13], body[14], body[15] = 0xFF, 0xFF, 0xFF
	enc, err := crypto.EncryptCBC(body, m)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	container := make([]byte, HeaderSize, HeaderSize+len(enc))
	container[offCompressionType] = CompressionLZMA
	binary.LittleEndian.PutUint32(container[offBodySize:], uint32(len(enc)))
	binary.LittleEndian.PutUint32(container[offDecompressedSize:], 100)
	container = append(container, enc...)

	if _, err := Decode(container, m); !errors.Is(err, lzmaraw.ErrCorruptStream) {
		t.Fatalf("expected ErrCorruptStream, got %v", err)
	}
}

func TestLooksLikeMPEG(t *testing.T) {
	if !LooksLikeMPEG([]byte("ID3\x04\x00")) {
		t.Errorf("ID3 tag not recognized")
	}
	if !LooksLikeMPEG([]byte{0xFF, 0xFB, 0x90, 0x00}) {
		t.Errorf("MPEG frame sync not recognized")
	}
	if LooksLikeMPEG([]byte{0x00, 0x01, 0x02}) {
		t.Errorf("arbitrary bytes misidentified as MPEG")
	}
	if LooksLikeMPEG(nil) {
		t.Errorf("empty input misidentified as MPEG")
	}
}
