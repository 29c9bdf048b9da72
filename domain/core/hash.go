package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// DatasetFingerprint identifies the exact numeric content of a series
type DatasetFingerprint Hash

func (h DatasetFingerprint) String() string { return Hash(h).String() }

// ComputeDatasetFingerprint hashes the raw bit patterns of the series values.
// Two series fingerprint equal iff every float64 is bit-identical, so NaN
// payloads and signed zeros are distinguished.
func ComputeDatasetFingerprint(x, y []float64) DatasetFingerprint {
	buf := make([]byte, 8)
	hasher := sha256.New()
	for _, v := range x {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		hasher.Write(buf)
	}
	for _, v := range y {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		hasher.Write(buf)
	}
	return DatasetFingerprint(hex.EncodeToString(hasher.Sum(nil)))
}
