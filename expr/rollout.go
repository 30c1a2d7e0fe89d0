package expr

import "hash/crc32"

// rolloutScale preserves fractional percentages when comparing against the
// checksum bucket.
const rolloutScale = 1000

// InRolloutBucket reports whether the actor identified by id falls inside the
// rollout percentage for featureName. The bucket is the IEEE CRC-32 checksum
// of the feature name concatenated with the actor id (no separator, feature
// name first), reduced modulo 100*rolloutScale. Any client sharing the hash,
// the scale constant, and the concatenation order makes the same decision,
// and raising the percentage only ever adds actors to the bucket.
//
// An empty id or a non-positive percentage is never in the bucket.
func InRolloutBucket(featureName, id string, percent float64) bool {
	if id == "" || percent <= 0 {
		return false
	}
	sum := crc32.ChecksumIEEE([]byte(featureName + id))
	return float64(sum%(100*rolloutScale)) < percent*rolloutScale
}
