package keysearch

import (
	"encoding/binary"
	"errors"
	"fmt"

	"voicepack-extractor/internal/crypto"
)

// Oracle fingerprint: every known voice pack body decrypts to an LZMA stream
// with properties lc=3 lp=0 pb=2 (0x5D) and a 16 KiB dictionary. One block
// decryption plus these two field checks is enough to accept or reject a
// key/IV hypothesis.
const (
	oracleProps    byte   = 0x5D
	oracleDictSize uint32 = 16384
)

// DefaultWindow bounds how far apart in scan order a key/IV pair may sit.
// Key and IV are adjacent in the known firmware layout.
const DefaultWindow = 5

// ErrKeyNotFound reports that no candidate pair passed the oracle. An
// incomplete dump simply may not contain the key, so this must reach the
// caller rather than default to anything.
var ErrKeyNotFound = errors.New("keysearch: no key/iv pair found")

// Options tunes the search.
type Options struct {
	// Window is the candidate neighborhood tested around each candidate
	// (DefaultWindow when zero). The small default assumes key and IV are
	// stored near each other; a firmware that keeps them further apart needs
	// a wider window, at the cost of testing more pairs.
	Window int
}

// Match is a recovered key/IV pair and where each was found in the dump.
type Match struct {
	Material  crypto.Material
	KeyOffset int
	IVOffset  int
}

// Search scans the firmware dump and tests candidate pairs against the first
// block of sample, which must be the start of a known encrypted voice pack
// body. Both role assignments of each pair are tried, since memory order does
// not fix which string is the key. The first pair passing the oracle wins.
func Search(fw, sample []byte, opts Options) (Match, error) {
	if len(sample) < crypto.BlockSize {
		return Match{}, fmt.Errorf("keysearch: ciphertext sample needs at least %d bytes, have %d",
			crypto.BlockSize, len(sample))
	}
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}

	block := sample[:crypto.BlockSize]
	cands := Scan(fw)
	for i, a := range cands {
		hi := i + 1 + window
		if hi > len(cands) {
			hi = len(cands)
		}
		for _, b := range cands[i+1 : hi] {
			if m, ok := probe(b, a, block); ok {
				return Match{Material: m, KeyOffset: b.Offset, IVOffset: a.Offset}, nil
			}
			if m, ok := probe(a, b, block); ok {
				return Match{Material: m, KeyOffset: a.Offset, IVOffset: b.Offset}, nil
			}
		}
	}
	return Match{}, ErrKeyNotFound
}

// probe decrypts one ciphertext block with the hypothesized roles and checks
// the LZMA fingerprint.
func probe(key, iv Candidate, block []byte) (crypto.Material, bool) {
	m, err := crypto.MaterialFromBytes(key.Value, iv.Value)
	if err != nil {
		return m, false
	}
	dec, err := crypto.DecryptCBC(block, m)
	if err != nil {
		return m, false
	}
	if dec[0] != oracleProps {
		return m, false
	}
	return m, binary.LittleEndian.Uint32(dec[1:5]) == oracleDictSize
}
