// Package graphene composes a Bloom filter and an IBLT into a two-layer
// set-reconciliation sketch. A sender who holds m transactions encodes a
// GrapheneSet against a receiver's estimated candidate count n; the
// receiver, holding a superset of candidates, decodes it locally without
// any further round trip unless peeling fails.
package graphene

import (
	"io"
	"math"

	"github.com/pkg/errors"
	"github.com/willf/bloom"

	"github.com/hexmire/subtail/domain/iblt"
	"github.com/hexmire/subtail/domain/shortid"
)

// bloomOverheadFactor is the per-item bit cost of a Bloom filter tuned to
// its optimal number of hash functions: c = 8*ln(2)^2.
const bloomOverheadFactor = 8 * math.Ln2 * math.Ln2

// ErrReconcileFailed is returned by Decode when peeling could not fully
// separate the two sides' short-id sets.
var ErrReconcileFailed = errors.New("graphene: iblt peel did not converge")

// Set is the wire-level Bloom+IBLT sketch a sender ships to a receiver.
type Set struct {
	NSenderTxs uint64
	Filter     *bloom.BloomFilter
	Sketch     *iblt.TableV1
}

// OptimalSymDiff returns the estimated symmetric-difference size a* that
// minimizes the combined Bloom+IBLT byte cost for a sender set of size m,
// derived by zeroing the derivative of
// c*m/ln(2)^2 * log2(m/a) + tau*a with c = 8*ln(2)^2, i.e. a* = 8*m/(tau*ln2).
// tau is the per-cell IBLT overhead constant (spec's IBLT_ENTROPY, host
// configurable).
func OptimalSymDiff(m uint64, tau float64) uint64 {
	if m == 0 {
		return 1
	}
	a := 8 * float64(m) / (tau * math.Ln2)
	if a < 1 {
		a = 1
	}
	if a > float64(m) {
		a = float64(m)
	}
	return uint64(math.Ceil(a))
}

// Encode builds a Set that lets a receiver holding roughly n candidate
// transactions reconcile against the sender's txIDs under session keys.
// ibltEntropy is the tau overhead constant fed into OptimalSymDiff's sizing
// decision.
func Encode(txIDs []shortid.ID, receiverCandidateCount uint64, ibltEntropy float64, salt uint32) *Set {
	m := uint64(len(txIDs))
	aStar := OptimalSymDiff(m, ibltEntropy)

	fpRate := float64(aStar) / float64(maxUint64(receiverCandidateCount, 1))
	fpRate = clampFPRate(fpRate)

	filter := bloom.NewWithEstimates(uint(maxUint64(m, 1)), fpRate)
	for _, id := range txIDs {
		filter.Add(idBytes(id))
	}

	sketch := iblt.NewTableV1(uint32(aStar), salt)
	for _, id := range txIDs {
		sketch.Insert(uint64(id), nil)
	}

	return &Set{
		NSenderTxs: m,
		Filter:     filter,
		Sketch:     sketch,
	}
}

// Decode reconciles the receiver's candidate short-ids against a received
// Set, returning the short-ids the sender has that the receiver lacks.
// Candidates the receiver has but the sender lacks are discarded, matching
// the spec's soundness property: the caller only ever learns about ids it
// is missing.
func Decode(set *Set, candidates []shortid.ID, salt uint32) ([]shortid.ID, error) {
	passing := make([]shortid.ID, 0, len(candidates))
	for _, id := range candidates {
		if set.Filter.Test(idBytes(id)) {
			passing = append(passing, id)
		}
	}

	local := iblt.NewTableV1Sized(salt, set.Sketch.NumHashes(), set.Sketch.Size())
	for _, id := range passing {
		local.Insert(uint64(id), nil)
	}

	diff, err := local.Subtract(set.Sketch)
	if err != nil {
		return nil, errors.Wrap(err, "graphene: candidate sketch is not subtraction-compatible")
	}

	// local - sketch: negative entries are sketch-only ids, i.e. present on
	// the sender's side and absent (or not yet known) on the receiver's.
	_, negative, ok := diff.ListEntries()
	if !ok {
		return nil, ErrReconcileFailed
	}

	missing := make([]shortid.ID, len(negative))
	for i, entry := range negative {
		missing[i] = shortid.ID(entry.Key)
	}
	return missing, nil
}

func clampFPRate(p float64) float64 {
	const maxFPR = 0.999
	if p <= 0 {
		return 1.0 / (1 << 20)
	}
	if p > maxFPR {
		return maxFPR
	}
	return p
}

func idBytes(id shortid.ID) []byte {
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[i] = byte(id >> (8 * i))
	}
	return buf
}

func maxUint64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// WriteTo serializes the Set: header (sender tx count) | Bloom | IBLT.
func (s *Set) WriteTo(w io.Writer) (int64, error) {
	var total int64
	n, err := writeUint64(w, s.NSenderTxs)
	total += n
	if err != nil {
		return total, err
	}
	bn, err := s.Filter.WriteTo(w)
	total += bn
	if err != nil {
		return total, err
	}
	if err := s.Sketch.Encode(w); err != nil {
		return total, err
	}
	return total, nil
}

// ReadSet deserializes a Set previously written by Set.WriteTo.
func ReadSet(r io.Reader) (*Set, error) {
	nSenderTxs, err := readUint64(r)
	if err != nil {
		return nil, err
	}

	filter := &bloom.BloomFilter{}
	if _, err := filter.ReadFrom(r); err != nil {
		return nil, err
	}

	byteR, ok := r.(interface {
		io.Reader
		io.ByteReader
	})
	if !ok {
		byteR = bufReader{r}
	}
	sketch, err := iblt.DecodeTableV1(byteR)
	if err != nil {
		return nil, err
	}

	return &Set{NSenderTxs: nSenderTxs, Filter: filter, Sketch: sketch}, nil
}

type bufReader struct {
	io.Reader
}

func (b bufReader) ReadByte() (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(b.Reader, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}
