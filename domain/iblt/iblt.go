// Package iblt implements the Invertible Bloom Lookup Table, a set
// sketch that supports insertion, erasure, point lookup and full
// enumeration of its contents by iterative peeling. Two variants with
// distinct wire encodings are provided: TableV1 keeps a 32-bit checksum in every cell,
// TableV2 replaces it with a packed, configurable-width checksum bitmap
// shared across the whole table.
package iblt

import "github.com/pkg/errors"

// Version identifies the on-wire cell layout of a Table.
type Version uint8

const (
	// V1 carries a 32-bit keyCheck field in every cell.
	V1 Version = 1
	// V2 replaces the per-cell keyCheck with a packed checksum bitmap.
	V2 Version = 2
)

// DefaultChecksumBits is the width of the v2 checksum bitmap entries used
// when the caller does not request a narrower one.
const DefaultChecksumBits = 32

// Status is the outcome of a point lookup.
type Status int

const (
	// Found means the key's value was recovered with certainty.
	Found Status = iota
	// NotFound means the key is certainly absent.
	NotFound
	// Unknown means the table could not determine membership; the
	// caller should treat this the same as a peel failure.
	Unknown
)

// Entry is a single (key, value) pair recovered by ListEntries.
type Entry struct {
	Key   uint64
	Value []byte
}

// ErrVersionMismatch is returned by Subtract when the two tables were not
// built with identical size, hash count and seeds.
var ErrVersionMismatch = errors.New("iblt: tables are not subtraction-compatible")

// ErrBadVersion is returned while decoding a table whose version field is
// not supported by the reading code.
var ErrBadVersion = errors.New("iblt: unsupported table version")

// ErrMalformedSize is returned while decoding a table whose cell count is
// not evenly divisible by its hash function count.
var ErrMalformedSize = errors.New("iblt: cell count not divisible by hash count")

// Table is the common surface of TableV1 and TableV2.
type Table interface {
	Version() Version
	Insert(key uint64, value []byte)
	Erase(key uint64, value []byte)
	Get(key uint64) ([]byte, Status)
	ListEntries() (positive, negative []Entry, ok bool)
	Size() int
	NumHashes() uint8
	IsModified() bool
}

// isEmptyCounters reports whether count and keySum together indicate an
// unoccupied cell, independent of the checksum representation.
func isEmptyCounters(count int32, keySum uint64) bool {
	return count == 0 && keySum == 0
}

func xorBytes(a, b []byte) []byte {
	if len(a) < len(b) {
		a, b = b, a
	}
	out := make([]byte, len(a))
	copy(out, a)
	for i, v := range b {
		out[i] ^= v
	}
	return out
}

func seedsFor(salt uint32, nHash uint8) []uint32 {
	seeds := make([]uint32, nHash)
	modulus := uint64(1)<<32 - uint64(nHash)
	for i := uint8(0); i < nHash; i++ {
		seeds[i] = uint32(uint64(salt)%modulus) + uint32(i)
	}
	return seeds
}

func cellCountFor(expectedEntries uint32, overhead float64, nHash uint8) int {
	n := int(float64(expectedEntries)*overhead + 0.999999)
	if n < int(nHash) {
		n = int(nHash)
	}
	if remainder := n % int(nHash); remainder != 0 {
		n += int(nHash) - remainder
	}
	return n
}
