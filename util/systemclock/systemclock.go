// Package systemclock is the real-time, real-randomness implementation of
// mempoolsync.Clock, backing the daemon's wiring for the deterministic fake
// used in tests.
package systemclock

import (
	"math/rand"
	"time"

	"github.com/hexmire/subtail/util/mstime"
	"github.com/hexmire/subtail/util/random"
)

// Clock is a mempoolsync.Clock backed by the wall clock and a
// crypto/rand-seeded PRNG.
type Clock struct {
	rng *rand.Rand
}

// New returns a Clock whose PRNG is seeded from a cryptographically secure
// random source, so two daemons don't converge on the same session keys or
// candidate ordering.
func New() (*Clock, error) {
	seed, err := random.Uint64()
	if err != nil {
		return nil, err
	}
	return &Clock{rng: rand.New(rand.NewSource(int64(seed)))}, nil
}

// Now returns the current time at millisecond precision, matching the
// resolution the wire protocol's timestamps carry.
func (c *Clock) Now() time.Time {
	return mstime.Now()
}

// RandomUint64 returns a pseudo-random uint64, used to derive per-session
// SipHash keys.
func (c *Clock) RandomUint64() uint64 {
	return c.rng.Uint64()
}

// RandomIndex returns a pseudo-random index in [0, n).
func (c *Clock) RandomIndex(n int) int {
	return c.rng.Intn(n)
}
