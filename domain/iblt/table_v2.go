package iblt

// cellV2 is a single IBLT bucket whose checksum lives outside the cell,
// in the table's packed checksum bitmap.
type cellV2 struct {
	count    int32
	keySum   uint64
	valueSum []byte
}

// TableV2 replaces TableV1's per-cell 32-bit keyCheck with a single
// packed bitmap of checksumBits-wide checksums, one per cell. This
// trades a fixed 32 bits per cell for a configurable, usually smaller,
// per-cell checksum cost.
type TableV2 struct {
	salt         uint32
	nHash        uint8
	seeds        []uint32
	cells        []cellV2
	checksumBits uint8
	checksums    []byte // packed, checksumBits bits per cell, LSB-first within each byte
	isModified   bool
}

// NewTableV2 builds an empty table sized for expectedEntries insertions
// with the default checksum width.
func NewTableV2(expectedEntries uint32, salt uint32) *TableV2 {
	return NewTableV2WithParams(expectedEntries, salt, LookupParams(expectedEntries), DefaultChecksumBits)
}

// NewTableV2WithParams builds an empty table with caller-supplied sizing
// parameters and checksum width (1..32 bits).
func NewTableV2WithParams(expectedEntries uint32, salt uint32, params Params, checksumBits uint8) *TableV2 {
	n := cellCountFor(expectedEntries, params.Overhead, params.NumHashes)
	t := &TableV2{
		salt:         salt,
		nHash:        params.NumHashes,
		seeds:        seedsFor(salt, params.NumHashes),
		cells:        make([]cellV2, n),
		checksumBits: checksumBits,
	}
	t.checksums = make([]byte, bitsToBytes(n*int(checksumBits)))
	return t
}

func bitsToBytes(bits int) int {
	return (bits + 7) / 8
}

// Version implements Table.
func (t *TableV2) Version() Version { return V2 }

// Size implements Table.
func (t *TableV2) Size() int { return len(t.cells) }

// NumHashes implements Table.
func (t *TableV2) NumHashes() uint8 { return t.nHash }

// IsModified implements Table.
func (t *TableV2) IsModified() bool { return t.isModified }

func (t *TableV2) checksumMask() uint32 {
	if t.checksumBits >= 32 {
		return 0xffffffff
	}
	return (uint32(1) << t.checksumBits) - 1
}

func (t *TableV2) readChecksum(cellIndex int) uint32 {
	base := cellIndex * int(t.checksumBits)
	var value uint32
	for i := 0; i < int(t.checksumBits); i++ {
		bitIndex := base + i
		byteIndex := bitIndex / 8
		bitOffset := uint(bitIndex % 8)
		if t.checksums[byteIndex]&(1<<bitOffset) != 0 {
			value |= 1 << uint(i)
		}
	}
	return value
}

func (t *TableV2) writeChecksum(cellIndex int, value uint32) {
	base := cellIndex * int(t.checksumBits)
	for i := 0; i < int(t.checksumBits); i++ {
		bitIndex := base + i
		byteIndex := bitIndex / 8
		bitOffset := uint(bitIndex % 8)
		if value&(1<<uint(i)) != 0 {
			t.checksums[byteIndex] |= 1 << bitOffset
		} else {
			t.checksums[byteIndex] &^= 1 << bitOffset
		}
	}
}

func (t *TableV2) xorChecksum(cellIndex int, value uint32) {
	t.writeChecksum(cellIndex, t.readChecksum(cellIndex)^(value&t.checksumMask()))
}

func (t *TableV2) bucketsPerHash() int {
	return len(t.cells) / int(t.nHash)
}

func (t *TableV2) cellIndices(key uint64) []int {
	bph := t.bucketsPerHash()
	indices := make([]int, t.nHash)
	for i := 0; i < int(t.nHash); i++ {
		h := saltedHashValue(t.seeds[i], key)
		indices[i] = i*bph + int(h)%bph
	}
	return indices
}

func (t *TableV2) empty(cellIndex int) bool {
	c := &t.cells[cellIndex]
	return isEmptyCounters(c.count, c.keySum) && t.readChecksum(cellIndex) == 0
}

func (t *TableV2) pure(cellIndex int) bool {
	c := &t.cells[cellIndex]
	if c.count != 1 && c.count != -1 {
		return false
	}
	return t.readChecksum(cellIndex) == secondaryHash(c.keySum)&t.checksumMask()
}

func (t *TableV2) mutate(plusOrMinus int32, key uint64, value []byte) {
	t.isModified = true
	for _, idx := range t.cellIndices(key) {
		c := &t.cells[idx]
		c.count += plusOrMinus
		c.keySum ^= key
		t.xorChecksum(idx, secondaryHash(key))
		if t.empty(idx) {
			c.valueSum = nil
		} else {
			c.valueSum = xorBytes(c.valueSum, value)
		}
	}
}

// Insert implements Table.
func (t *TableV2) Insert(key uint64, value []byte) { t.mutate(1, key, value) }

// Erase implements Table.
func (t *TableV2) Erase(key uint64, value []byte) { t.mutate(-1, key, value) }

// Get implements Table.
func (t *TableV2) Get(key uint64) ([]byte, Status) {
	for _, idx := range t.cellIndices(key) {
		if t.empty(idx) {
			return nil, NotFound
		}
		if t.pure(idx) {
			if t.cells[idx].keySum == key {
				return t.cells[idx].valueSum, Found
			}
			return nil, NotFound
		}
	}

	peeled := t.clone()
	positive, _, ok := peeled.listEntriesInto()
	if !ok {
		return nil, Unknown
	}
	for _, entry := range positive {
		if entry.Key == key {
			return entry.Value, Found
		}
	}
	return nil, NotFound
}

func (t *TableV2) clone() *TableV2 {
	cells := make([]cellV2, len(t.cells))
	copy(cells, t.cells)
	checksums := make([]byte, len(t.checksums))
	copy(checksums, t.checksums)
	return &TableV2{
		salt:         t.salt,
		nHash:        t.nHash,
		seeds:        append([]uint32(nil), t.seeds...),
		cells:        cells,
		checksumBits: t.checksumBits,
		checksums:    checksums,
		isModified:   t.isModified,
	}
}

// ListEntries implements Table.
func (t *TableV2) ListEntries() (positive, negative []Entry, ok bool) {
	working := t.clone()
	return working.listEntriesInto()
}

func (t *TableV2) listEntriesInto() (positive, negative []Entry, ok bool) {
	bph := t.bucketsPerHash()
	nTotalErased := 0
	maxErasures := int(float64(len(t.cells)) / minOverhead)

	for {
		erasedThisPass := 0
		for i := range t.cells {
			if !t.pure(i) {
				continue
			}
			c := &t.cells[i]
			entry := Entry{Key: c.keySum, Value: append([]byte(nil), c.valueSum...)}
			if c.count == 1 {
				positive = append(positive, entry)
			} else {
				negative = append(negative, entry)
			}
			t.mutate(-c.count, c.keySum, c.valueSum)
			erasedThisPass++
			nTotalErased++
		}
		if erasedThisPass == 0 {
			break
		}
		if nTotalErased >= maxErasures {
			return positive, negative, false
		}
	}

	for i := 0; i < bph; i++ {
		if !t.empty(i) {
			return positive, negative, false
		}
	}
	return positive, negative, true
}

// Subtract returns a new table equal to the cellwise difference of the
// receiver and other. Both tables must share size, hash count, seeds and
// checksum width.
func (t *TableV2) Subtract(other *TableV2) (*TableV2, error) {
	if len(t.cells) != len(other.cells) || t.nHash != other.nHash || t.checksumBits != other.checksumBits {
		return nil, ErrVersionMismatch
	}
	for i := range t.seeds {
		if t.seeds[i] != other.seeds[i] {
			return nil, ErrVersionMismatch
		}
	}

	result := &TableV2{
		salt:         t.salt,
		nHash:        t.nHash,
		seeds:        append([]uint32(nil), t.seeds...),
		cells:        make([]cellV2, len(t.cells)),
		checksumBits: t.checksumBits,
		checksums:    make([]byte, len(t.checksums)),
		isModified:   true,
	}
	for i := range t.cells {
		a, b := &t.cells[i], &other.cells[i]
		result.cells[i] = cellV2{
			count:    a.count - b.count,
			keySum:   a.keySum ^ b.keySum,
			valueSum: xorBytes(a.valueSum, b.valueSum),
		}
		result.writeChecksum(i, t.readChecksum(i)^other.readChecksum(i))
	}
	return result, nil
}
