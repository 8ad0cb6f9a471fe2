// Package kos implements the k-order-statistic proof-of-work validity
// test: a subblock's hash is accepted with probability governed by a
// gamma distribution rather than compared directly against a linear
// target, so that many independent weak proofs can be combined into one
// strong one without wasting the tail of the difficulty distribution.
package kos

import (
	"math/big"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// KOSInclusionProb is the maximum acceptable CDF value for a subblock
// hash to be considered below threshold.
const KOSInclusionProb = 0.99999

// scaleFactor rescales pow/target ratios into a range gonum's Gamma CDF
// can evaluate without losing precision to float64 range limits; any
// positive constant works since the CDF is evaluated after cancelling it
// out of both the shape's scale and the evaluation point.
const scaleFactor = 1e9

// IsBelowKOSThreshold reports whether pow is an acceptable subblock hash
// against target for shape parameter k. Both pow and target are treated
// as unsigned big-endian magnitudes (e.g. block header hashes).
func IsBelowKOSThreshold(pow, target *big.Int, k int) bool {
	if k == 0 {
		return true
	}
	if target.Sign() <= 0 || k < 0 {
		return false
	}
	if pow.Sign() < 0 {
		return false
	}

	ratio := new(big.Float).Quo(new(big.Float).SetInt(pow), new(big.Float).SetInt(target))
	scaledPow, _ := ratio.Float64()
	scaledPow *= scaleFactor

	dist := distuv.Gamma{Alpha: float64(k), Beta: 1 / scaleFactor}
	return dist.CDF(scaledPow) <= KOSInclusionProb
}

// CheckSubBlockPoW reports whether a subblock header hash, interpreted as
// an unsigned big-endian integer, is below the k-OS threshold for target
// and shape k.
func CheckSubBlockPoW(hash []byte, target *big.Int, k int) bool {
	pow := new(big.Int).SetBytes(hash)
	return IsBelowKOSThreshold(pow, target, k)
}

// CheckBobtailPoWFromOrderedProofs reports whether the mean of an already
// sorted, ascending slice of subblock proof values is below target when
// divided by k. The source this reproduces divides by k while only
// summing the k-1 smallest proofs; see CheckBobtailPoW.
func CheckBobtailPoWFromOrderedProofs(orderedProofs []*big.Int, target *big.Int, k int) bool {
	if k <= 0 {
		return false
	}
	sum := new(big.Int)
	for _, proof := range orderedProofs {
		sum.Add(sum, proof)
	}
	mean := new(big.Int).Div(sum, big.NewInt(int64(k)))
	return mean.Cmp(target) < 0
}

// CheckBobtailPoW reports whether a block's subblock set is a valid
// Bobtail proof-of-work: the mean of the k-1 numerically smallest
// subblock hashes must be below target. subblockHashes need not be
// sorted; the k-1 smallest are selected internally. This reproduces the
// off-by-one documented as an open question: k subblocks are required,
// but only k-1 of their hashes are averaged.
func CheckBobtailPoW(subblockHashes []*big.Int, target *big.Int, k int) bool {
	if k <= 1 || len(subblockHashes) < k {
		return false
	}
	sorted := make([]*big.Int, len(subblockHashes))
	copy(sorted, subblockHashes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Cmp(sorted[j]) < 0 })

	lowestK := sorted[:k-1]
	return CheckBobtailPoWFromOrderedProofs(lowestK, target, k)
}

// GetBestK binary-searches k in [1, 2^16) for the largest k such that the
// p-quantile of Gamma(shape=k, scale=1) is still below desiredNodes. This
// is used to choose BOBTAIL_K so that, in expectation, a target subblock
// count is reached before the k-th order statistic would exceed it.
func GetBestK(desiredNodes float64, prob float64) int {
	lo, hi := 1, (1<<16)-1
	best := 0
	for lo <= hi {
		mid := lo + (hi-lo)/2
		dist := distuv.Gamma{Alpha: float64(mid), Beta: 1}
		if dist.Quantile(prob) < desiredNodes {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best
}
