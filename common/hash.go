package common

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// HashLength is the expected length of a digest in bytes.
const HashLength = 32

// Hash represents the 32 byte SHA3-256 digest of arbitrary data. Node
// identities, key paths and map commitments are all Hashes.
type Hash [HashLength]byte

// EmptyHash is the digest assigned to an empty (sub)tree.
var EmptyHash = HashData(nil)

// HashData returns the SHA3-256 digest of data.
func HashData(data []byte) Hash {
	return Hash(sha3.Sum256(data))
}

// HashInternal combines the digests of two children into the digest of
// their parent node.
func HashInternal(left, right Hash) Hash {
	buf := make([]byte, 0, 2*HashLength)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	return HashData(buf)
}

// HashLeaf combines a key digest and a value digest into the digest of a
// leaf node.
func HashLeaf(key, value Hash) Hash {
	buf := make([]byte, 0, 2*HashLength)
	buf = append(buf, key[:]...)
	buf = append(buf, value[:]...)
	return HashData(buf)
}

// BytesToHash sets b to hash. If b is larger than 32 bytes, b will be
// cropped from the left.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > len(h) {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// HexToHash sets byte representation of s to hash. If s is larger than
// 32 bytes, s will be cropped from the left.
func HexToHash(s string) Hash {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, _ := hex.DecodeString(s)
	return BytesToHash(b)
}

// Bytes gets the byte representation of the underlying hash.
func (h Hash) Bytes() []byte { return h[:] }

// Hex converts a hash to a hex string.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }
