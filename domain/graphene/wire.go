package graphene

import (
	"io"

	"github.com/hexmire/subtail/util/binaryserializer"
)

func writeUint64(w io.Writer, v uint64) (int64, error) {
	if err := binaryserializer.PutUint64(w, v); err != nil {
		return 0, err
	}
	return 8, nil
}

func readUint64(r io.Reader) (uint64, error) {
	return binaryserializer.Uint64(r)
}
