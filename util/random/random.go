// Package random provides cryptographically secure random number
// generation for uses that must not be predictable to a peer, such as
// choosing mempool-sync short-id keys.
package random

import (
	"crypto/rand"
	"encoding/binary"
	"io"
)

// Uint64 returns a cryptographically secure random uint64.
func Uint64() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
