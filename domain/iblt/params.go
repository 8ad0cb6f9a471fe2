package iblt

// Params holds the per-cell overhead factor and number of hash functions
// recommended for a given expected entry count. The full table this is
// distilled from was generated offline by simulating decode failure rates
// across a grid of table sizes; here we retain a representative subset
// spanning the sizes a mempool-sync session is likely to need; a size in
// between uses the next larger tabulated row, and DefaultParams covers
// anything above the largest one.
type Params struct {
	Overhead  float64
	NumHashes uint8
}

// DefaultParams is used for any expected entry count larger than the
// largest size in the table below.
var DefaultParams = Params{Overhead: 1.5, NumHashes: 3}

// paramTable maps expected entry count to the (overhead, n_hash) pair that
// minimizes decode failure probability at that size. Entries below 1 fall
// back to size 1's row.
var paramTable = map[uint32]Params{
	1:    {6.0, 3},
	2:    {4.7, 3},
	3:    {4.0, 3},
	4:    {3.5, 3},
	5:    {3.2, 3},
	6:    {3.0, 3},
	8:    {2.71, 3},
	10:   {2.4, 3},
	15:   {2.1, 3},
	20:   {1.9, 3},
	30:   {1.75, 3},
	40:   {1.68, 3},
	50:   {1.63, 3},
	75:   {1.59, 3},
	100:  {1.57, 3},
	150:  {1.54, 3},
	200:  {1.52, 4},
	300:  {1.49, 4},
	400:  {1.47, 4},
	500:  {1.392, 4},
}

// sortedSizes is paramTable's keys in ascending order, computed once.
var sortedSizes = buildSortedSizes()

func buildSortedSizes() []uint32 {
	sizes := make([]uint32, 0, len(paramTable))
	for size := range paramTable {
		sizes = append(sizes, size)
	}
	for i := 1; i < len(sizes); i++ {
		for j := i; j > 0 && sizes[j-1] > sizes[j]; j-- {
			sizes[j-1], sizes[j] = sizes[j], sizes[j-1]
		}
	}
	return sizes
}

// LookupParams returns the recommended parameters for an IBLT expected to
// hold expectedEntries entries, rounding up to the nearest tabulated size
// and falling back to DefaultParams beyond the table's range.
func LookupParams(expectedEntries uint32) Params {
	if expectedEntries == 0 {
		expectedEntries = 1
	}
	for _, size := range sortedSizes {
		if expectedEntries <= size {
			return paramTable[size]
		}
	}
	return DefaultParams
}
