package utils

import "math"

// NormalizeL2 scales vec in place to unit length and reports whether it did.
// A zero vector is left untouched.
func NormalizeL2(vec []float32) bool {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return false
	}
	scale := 1 / math.Sqrt(sum)
	for i, v := range vec {
		vec[i] = float32(float64(v) * scale)
	}
	return true
}
