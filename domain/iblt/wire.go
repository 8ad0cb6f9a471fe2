package iblt

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/hexmire/subtail/util/binaryserializer"
)

func writeCompactSize(w io.Writer, n uint64) error {
	buf := make([]byte, binary.MaxVarintLen64)
	written := binary.PutUvarint(buf, n)
	_, err := w.Write(buf[:written])
	return err
}

func readCompactSize(r io.ByteReader) (uint64, error) {
	return binary.ReadUvarint(r)
}

func writeUint32(w io.Writer, v uint32) error {
	return binaryserializer.PutUint32(w, v)
}

func readUint32(r io.Reader) (uint32, error) {
	return binaryserializer.Uint32(r)
}

func writeUint64(w io.Writer, v uint64) error {
	return binaryserializer.PutUint64(w, v)
}

func readUint64(r io.Reader) (uint64, error) {
	return binaryserializer.Uint64(r)
}

func writeInt32(w io.Writer, v int32) error {
	return writeUint32(w, uint32(v))
}

func readInt32(r io.Reader) (int32, error) {
	v, err := readUint32(r)
	return int32(v), err
}

func writeByteVector(w io.Writer, b []byte) error {
	if err := writeCompactSize(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readByteVector(r byteReader) ([]byte, error) {
	n, err := readCompactSize(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// byteReader is the minimal interface needed by compactsize decoding.
type byteReader interface {
	io.Reader
	io.ByteReader
}

// Encode writes t's wire representation:
//   compactsize version | map<u8,u32> seeds | u32 salt | u8 n_hash
//   | bool modified | vector<CellV1>
func (t *TableV1) Encode(w io.Writer) error {
	if err := writeCompactSize(w, uint64(V1)); err != nil {
		return err
	}
	if err := writeCompactSize(w, uint64(len(t.seeds))); err != nil {
		return err
	}
	for i, seed := range t.seeds {
		if _, err := w.Write([]byte{byte(i)}); err != nil {
			return err
		}
		if err := writeUint32(w, seed); err != nil {
			return err
		}
	}
	if err := writeUint32(w, t.salt); err != nil {
		return err
	}
	if _, err := w.Write([]byte{t.nHash}); err != nil {
		return err
	}
	modified := byte(0)
	if t.isModified {
		modified = 1
	}
	if _, err := w.Write([]byte{modified}); err != nil {
		return err
	}
	if err := writeCompactSize(w, uint64(len(t.cells))); err != nil {
		return err
	}
	for i := range t.cells {
		c := &t.cells[i]
		if err := writeInt32(w, c.count); err != nil {
			return err
		}
		if err := writeUint64(w, c.keySum); err != nil {
			return err
		}
		if err := writeUint32(w, c.keyCheck); err != nil {
			return err
		}
		if err := writeByteVector(w, c.valueSum); err != nil {
			return err
		}
	}
	return nil
}

// DecodeTableV1 reads a table previously written by Encode.
func DecodeTableV1(r byteReader) (*TableV1, error) {
	version, err := readCompactSize(r)
	if err != nil {
		return nil, err
	}
	if version != uint64(V1) {
		return nil, errors.Wrapf(ErrBadVersion, "got version %d", version)
	}

	nSeeds, err := readCompactSize(r)
	if err != nil {
		return nil, err
	}
	seeds := make([]uint32, nSeeds)
	for range seeds {
		idx := make([]byte, 1)
		if _, err := io.ReadFull(r, idx); err != nil {
			return nil, err
		}
		seed, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		if int(idx[0]) >= len(seeds) {
			return nil, errors.New("iblt: seed index out of range")
		}
		seeds[idx[0]] = seed
	}

	salt, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	nHashBuf := make([]byte, 1)
	if _, err := io.ReadFull(r, nHashBuf); err != nil {
		return nil, err
	}
	nHash := nHashBuf[0]
	if nHash == 0 || len(seeds) != int(nHash) {
		return nil, errors.Wrap(ErrMalformedSize, "zero or mismatched hash function count")
	}
	modifiedBuf := make([]byte, 1)
	if _, err := io.ReadFull(r, modifiedBuf); err != nil {
		return nil, err
	}

	nCells, err := readCompactSize(r)
	if err != nil {
		return nil, err
	}
	if int(nCells)%int(nHash) != 0 {
		return nil, ErrMalformedSize
	}

	cells := make([]cellV1, nCells)
	for i := range cells {
		count, err := readInt32(r)
		if err != nil {
			return nil, err
		}
		keySum, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		keyCheck, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		valueSum, err := readByteVector(r)
		if err != nil {
			return nil, err
		}
		cells[i] = cellV1{count: count, keySum: keySum, keyCheck: keyCheck, valueSum: valueSum}
	}

	return &TableV1{
		salt:       salt,
		nHash:      nHash,
		seeds:      seeds,
		cells:      cells,
		isModified: modifiedBuf[0] != 0,
	}, nil
}

// Encode writes t's wire representation, as TableV1.Encode except CellV2
// omits keyCheck and the packed checksum bitmap trails the cell vector.
func (t *TableV2) Encode(w io.Writer) error {
	if err := writeCompactSize(w, uint64(V2)); err != nil {
		return err
	}
	if err := writeCompactSize(w, uint64(len(t.seeds))); err != nil {
		return err
	}
	for i, seed := range t.seeds {
		if _, err := w.Write([]byte{byte(i)}); err != nil {
			return err
		}
		if err := writeUint32(w, seed); err != nil {
			return err
		}
	}
	if err := writeUint32(w, t.salt); err != nil {
		return err
	}
	if _, err := w.Write([]byte{t.nHash}); err != nil {
		return err
	}
	modified := byte(0)
	if t.isModified {
		modified = 1
	}
	if _, err := w.Write([]byte{modified}); err != nil {
		return err
	}
	if err := writeCompactSize(w, uint64(len(t.cells))); err != nil {
		return err
	}
	for i := range t.cells {
		c := &t.cells[i]
		if err := writeInt32(w, c.count); err != nil {
			return err
		}
		if err := writeUint64(w, c.keySum); err != nil {
			return err
		}
		if err := writeByteVector(w, c.valueSum); err != nil {
			return err
		}
	}
	if _, err := w.Write([]byte{t.checksumBits}); err != nil {
		return err
	}
	return writeByteVector(w, t.checksums)
}

// DecodeTableV2 reads a table previously written by Encode.
func DecodeTableV2(r byteReader) (*TableV2, error) {
	version, err := readCompactSize(r)
	if err != nil {
		return nil, err
	}
	if version != uint64(V2) {
		return nil, errors.Wrapf(ErrBadVersion, "got version %d", version)
	}

	nSeeds, err := readCompactSize(r)
	if err != nil {
		return nil, err
	}
	seeds := make([]uint32, nSeeds)
	for range seeds {
		idx := make([]byte, 1)
		if _, err := io.ReadFull(r, idx); err != nil {
			return nil, err
		}
		seed, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		if int(idx[0]) >= len(seeds) {
			return nil, errors.New("iblt: seed index out of range")
		}
		seeds[idx[0]] = seed
	}

	salt, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	nHashBuf := make([]byte, 1)
	if _, err := io.ReadFull(r, nHashBuf); err != nil {
		return nil, err
	}
	nHash := nHashBuf[0]
	if nHash == 0 || len(seeds) != int(nHash) {
		return nil, errors.Wrap(ErrMalformedSize, "zero or mismatched hash function count")
	}
	modifiedBuf := make([]byte, 1)
	if _, err := io.ReadFull(r, modifiedBuf); err != nil {
		return nil, err
	}

	nCells, err := readCompactSize(r)
	if err != nil {
		return nil, err
	}
	if int(nCells)%int(nHash) != 0 {
		return nil, ErrMalformedSize
	}

	cells := make([]cellV2, nCells)
	for i := range cells {
		count, err := readInt32(r)
		if err != nil {
			return nil, err
		}
		keySum, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		valueSum, err := readByteVector(r)
		if err != nil {
			return nil, err
		}
		cells[i] = cellV2{count: count, keySum: keySum, valueSum: valueSum}
	}

	checksumBitsBuf := make([]byte, 1)
	if _, err := io.ReadFull(r, checksumBitsBuf); err != nil {
		return nil, err
	}
	checksums, err := readByteVector(r)
	if err != nil {
		return nil, err
	}

	return &TableV2{
		salt:         salt,
		nHash:        nHash,
		seeds:        seeds,
		cells:        cells,
		checksumBits: checksumBitsBuf[0],
		checksums:    checksums,
		isModified:   modifiedBuf[0] != 0,
	}, nil
}
