package iblt

// cellV1 is a single IBLT bucket carrying its own 32-bit checksum.
type cellV1 struct {
	count    int32
	keySum   uint64
	keyCheck uint32
	valueSum []byte
}

func (c *cellV1) empty() bool {
	return isEmptyCounters(c.count, c.keySum) && c.keyCheck == 0
}

func (c *cellV1) pure() bool {
	if c.count != 1 && c.count != -1 {
		return false
	}
	return c.keyCheck == secondaryHash(c.keySum)
}

func (c *cellV1) add(plusOrMinus int32, key uint64, value []byte) {
	c.count += plusOrMinus
	c.keySum ^= key
	c.keyCheck ^= secondaryHash(key)
	if c.empty() {
		c.valueSum = nil
	} else {
		c.valueSum = xorBytes(c.valueSum, value)
	}
}

// TableV1 is the original IBLT layout: every cell stores its own 32-bit
// keyCheck alongside the count and XOR accumulators.
type TableV1 struct {
	salt       uint32
	nHash      uint8
	seeds      []uint32
	cells      []cellV1
	isModified bool
}

// NewTableV1 builds an empty table sized for expectedEntries insertions,
// using the tabulated (overhead, n_hash) pair for that size.
func NewTableV1(expectedEntries uint32, salt uint32) *TableV1 {
	params := LookupParams(expectedEntries)
	return NewTableV1WithParams(expectedEntries, salt, params)
}

// NewTableV1WithParams builds an empty table using caller-supplied sizing
// parameters instead of the built-in lookup table.
func NewTableV1WithParams(expectedEntries uint32, salt uint32, params Params) *TableV1 {
	n := cellCountFor(expectedEntries, params.Overhead, params.NumHashes)
	return &TableV1{
		salt:  salt,
		nHash: params.NumHashes,
		seeds: seedsFor(salt, params.NumHashes),
		cells: make([]cellV1, n),
	}
}

// NewTableV1Sized builds an empty table with an explicit cell count and
// hash function count, bypassing the sizing table entirely. Used to build
// a table that must be subtraction-compatible with one received on the
// wire, whose exact shape is already known.
func NewTableV1Sized(salt uint32, nHash uint8, size int) *TableV1 {
	return &TableV1{
		salt:  salt,
		nHash: nHash,
		seeds: seedsFor(salt, nHash),
		cells: make([]cellV1, size),
	}
}

// Version implements Table.
func (t *TableV1) Version() Version { return V1 }

// Size implements Table.
func (t *TableV1) Size() int { return len(t.cells) }

// NumHashes implements Table.
func (t *TableV1) NumHashes() uint8 { return t.nHash }

// IsModified implements Table.
func (t *TableV1) IsModified() bool { return t.isModified }

// Salt returns the salt this table's hash seeds were derived from.
func (t *TableV1) Salt() uint32 { return t.salt }

func (t *TableV1) bucketsPerHash() int {
	return len(t.cells) / int(t.nHash)
}

func (t *TableV1) cellIndices(key uint64) []int {
	bph := t.bucketsPerHash()
	indices := make([]int, t.nHash)
	for i := 0; i < int(t.nHash); i++ {
		h := saltedHashValue(t.seeds[i], key)
		indices[i] = i*bph + int(h)%bph
	}
	return indices
}

func (t *TableV1) mutate(plusOrMinus int32, key uint64, value []byte) {
	t.isModified = true
	for _, idx := range t.cellIndices(key) {
		t.cells[idx].add(plusOrMinus, key, value)
	}
}

// Insert implements Table.
func (t *TableV1) Insert(key uint64, value []byte) { t.mutate(1, key, value) }

// Erase implements Table.
func (t *TableV1) Erase(key uint64, value []byte) { t.mutate(-1, key, value) }

// Get implements Table.
func (t *TableV1) Get(key uint64) ([]byte, Status) {
	for _, idx := range t.cellIndices(key) {
		cell := &t.cells[idx]
		if cell.empty() {
			return nil, NotFound
		}
		if cell.pure() {
			if cell.keySum == key {
				return cell.valueSum, Found
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

func (t *TableV1) clone() *TableV1 {
	cells := make([]cellV1, len(t.cells))
	copy(cells, t.cells)
	return &TableV1{
		salt:       t.salt,
		nHash:      t.nHash,
		seeds:      append([]uint32(nil), t.seeds...),
		cells:      cells,
		isModified: t.isModified,
	}
}

// ListEntries implements Table.
func (t *TableV1) ListEntries() (positive, negative []Entry, ok bool) {
	working := t.clone()
	return working.listEntriesInto()
}

// listEntriesInto peels the receiver in place, which callers use when they
// already own a disposable copy (Get's fallback path, Subtract's result).
func (t *TableV1) listEntriesInto() (positive, negative []Entry, ok bool) {
	bph := t.bucketsPerHash()
	nTotalErased := 0
	maxErasures := int(float64(len(t.cells)) / minOverhead)

	for {
		erasedThisPass := 0
		for i := range t.cells {
			cell := &t.cells[i]
			if !cell.pure() {
				continue
			}
			entry := Entry{Key: cell.keySum, Value: append([]byte(nil), cell.valueSum...)}
			if cell.count == 1 {
				positive = append(positive, entry)
			} else {
				negative = append(negative, entry)
			}
			t.mutate(-cell.count, cell.keySum, cell.valueSum)
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
		if !t.cells[i].empty() {
			return positive, negative, false
		}
	}
	return positive, negative, true
}

// Subtract returns a new table equal to the cellwise difference of the
// receiver and other. Both tables must share size, hash count and seeds.
func (t *TableV1) Subtract(other *TableV1) (*TableV1, error) {
	if len(t.cells) != len(other.cells) || t.nHash != other.nHash {
		return nil, ErrVersionMismatch
	}
	for i := range t.seeds {
		if t.seeds[i] != other.seeds[i] {
			return nil, ErrVersionMismatch
		}
	}

	result := &TableV1{
		salt:       t.salt,
		nHash:      t.nHash,
		seeds:      append([]uint32(nil), t.seeds...),
		cells:      make([]cellV1, len(t.cells)),
		isModified: true,
	}
	for i := range t.cells {
		a, b := &t.cells[i], &other.cells[i]
		result.cells[i] = cellV1{
			count:    a.count - b.count,
			keySum:   a.keySum ^ b.keySum,
			keyCheck: a.keyCheck ^ b.keyCheck,
			valueSum: xorBytes(a.valueSum, b.valueSum),
		}
	}
	return result, nil
}
