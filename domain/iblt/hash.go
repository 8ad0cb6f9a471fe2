package iblt

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"
)

// nHashCheck is the murmur3 seed used to derive the secondary checksum of
// a key, distinct from any seed used to select a cell.
const nHashCheck = 11

// minOverhead bounds the total number of erasures listEntries will
// perform before giving up: the bound is the table size divided by
// minOverhead, i.e. ten times the cell count.
const minOverhead = 0.1

// keyToBytes serializes a key to little-endian bytes, matching the wire
// representation hashed on both sides of a session.
func keyToBytes(key uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, key)
	return buf
}

// saltedHashValue returns the bucket-selecting hash of key under seed.
func saltedHashValue(seed uint32, key uint64) uint32 {
	return murmur3.Sum32WithSeed(keyToBytes(key), seed)
}

// secondaryHash returns the full 32-bit checksum of key, used directly by
// v1 cells and truncated to fewer bits by v2's packed checksum bitmap.
func secondaryHash(key uint64) uint32 {
	return saltedHashValue(nHashCheck, key)
}
