package domain

import "math"

// All amounts in the system are int64 minor units (cents). Major-unit
// decimals exist only at the HTTP boundary.

func ToMinor(major float64) int64 {
	return int64(math.Round(major * 100))
}

func ToMajor(minor int64) float64 {
	return float64(minor) / 100
}

// ProportionalShare computes part/total of refund, rounded half away from
// zero. The caller assigns the remainder to the other leg so the legs always
// sum to refund exactly.
func ProportionalShare(part, total, refund int64) int64 {
	if total == 0 {
		return 0
	}
	return int64(math.Round(float64(part) * float64(refund) / float64(total)))
}
