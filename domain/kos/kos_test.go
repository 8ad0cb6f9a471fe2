package kos

import (
	"math/big"
	"testing"
)

func TestIsBelowKOSThresholdAcceptanceBoundary(t *testing.T) {
	target := big.NewInt(1000000)
	k := 3

	accepted := big.NewInt(300000)
	if !IsBelowKOSThreshold(accepted, target, k) {
		t.Errorf("expected pow=3e5 to be accepted for k=%d target=%v", k, target)
	}

	rejected := big.NewInt(30000000)
	if IsBelowKOSThreshold(rejected, target, k) {
		t.Errorf("expected pow=3e7 to be rejected for k=%d target=%v", k, target)
	}
}

func TestIsBelowKOSThresholdRejectsNonPositiveTarget(t *testing.T) {
	if IsBelowKOSThreshold(big.NewInt(1), big.NewInt(0), 3) {
		t.Errorf("expected a non-positive target to always reject")
	}
}

func TestCheckBobtailPoWUsesKMinusOneProofs(t *testing.T) {
	target := big.NewInt(100)
	k := 4
	// Three of the four subblock hashes are far below target; the
	// omitted (largest) one must not be able to push the mean over.
	hashes := []*big.Int{
		big.NewInt(10),
		big.NewInt(20),
		big.NewInt(30),
		big.NewInt(1_000_000),
	}
	if !CheckBobtailPoW(hashes, target, k) {
		t.Fatalf("expected the k-1 smallest hashes to average below target, ignoring the outlier")
	}
}

func TestCheckBobtailPoWRequiresAtLeastKHashes(t *testing.T) {
	target := big.NewInt(1000)
	if CheckBobtailPoW([]*big.Int{big.NewInt(1), big.NewInt(2)}, target, 5) {
		t.Fatalf("expected CheckBobtailPoW to reject fewer than k subblock hashes")
	}
}

func TestGetBestKIsMonotonicInDesiredNodes(t *testing.T) {
	small := GetBestK(10, 0.99999)
	large := GetBestK(1000, 0.99999)
	if large <= small {
		t.Errorf("expected GetBestK to grow with desiredNodes: GetBestK(10)=%d GetBestK(1000)=%d", small, large)
	}
}
