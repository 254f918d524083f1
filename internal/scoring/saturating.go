package scoring

import "math"

// AddInt32 adds delta to value, clamping at the int32 bounds.
func AddInt32(value int32, delta int32) int32 {
	sum := int64(value) + int64(delta)
	if sum > math.MaxInt32 {
		return math.MaxInt32
	}
	if sum < math.MinInt32 {
		return math.MinInt32
	}
	return int32(sum)
}

// AddUint32 adds a signed delta to value, clamping at zero and MaxUint32.
func AddUint32(value uint32, delta int64) uint32 {
	sum := int64(value) + delta
	if sum > math.MaxUint32 {
		return math.MaxUint32
	}
	if sum < 0 {
		return 0
	}
	return uint32(sum)
}

// AddUint16 adds a signed delta to value, clamping at zero and MaxUint16.
func AddUint16(value uint16, delta int64) uint16 {
	sum := int64(value) + delta
	if sum > math.MaxUint16 {
		return math.MaxUint16
	}
	if sum < 0 {
		return 0
	}
	return uint16(sum)
}
