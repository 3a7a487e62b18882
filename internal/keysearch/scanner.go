// Package keysearch recovers the voice pack AES key and IV from a firmware
// dump. Both are stored as NUL-terminated ASCII strings near each other in
// the CM4 firmware, so the search scans for 16-byte printable runs and tests
// nearby pairs against one reference ciphertext.
package keysearch

import "bytes"

// CandidateLen is the length of key and IV material, and therefore of every
// candidate string.
const CandidateLen = 16

// Candidate is a 16-byte printable ASCII run followed by a NUL byte. Value
// aliases the firmware buffer; it is not copied until a pair is selected.
type Candidate struct {
	Offset int
	Value  []byte
}

// Scan returns every candidate in the buffer, in offset order. The scan is a
// brute-force linear pass and must be complete: the real key and IV are
// statistically indistinguishable from other string constants without the
// oracle, so a missed run here is an unrecoverable false negative.
func Scan(fw []byte) []Candidate {
	var out []Candidate
	for i := 0; i+CandidateLen < len(fw); i++ {
		if fw[i+CandidateLen] != 0x00 {
			continue
		}
		printable := true
		for _, b := range fw[i : i+CandidateLen] {
			if b <= 32 || b >= 127 {
				printable = false
				break
			}
		}
		if printable {
			out = append(out, Candidate{Offset: i, Value: fw[i : i+CandidateLen]})
		}
	}
	return out
}

// sboxPrefix is the first 16 bytes of the AES forward S-box.
var sboxPrefix = []byte{
	0x63, 0x7C, 0x77, 0x7B, 0xF2, 0x6B, 0x6F, 0xC5,
	0x30, 0x01, 0x67, 0x2B, 0xFE, 0xD7, 0xAB, 0x76,
}

// LocateSBox returns the offset of the AES S-box table in the dump, or -1.
// Its absence usually means an incomplete dump that cannot contain the key
// either; the result is advisory and does not gate the search.
func LocateSBox(fw []byte) int {
	return bytes.Index(fw, sboxPrefix)
}
