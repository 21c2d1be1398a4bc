package timeline

import (
	"math"
	"math/bits"
)

// TicksToFloat converts a tick count to the nearest float64, rounding ties
// to even. Values below 2^53 are exact.
func TicksToFloat(t uint64) float64 {
	if t == 0 {
		return 0
	}
	top := bits.Len64(t) - 1
	if top < 53 {
		return float64(t)
	}

	shift := uint(top - 52)
	kept := t >> shift
	rem := t & (1<<shift - 1)
	half := uint64(1) << (shift - 1)
	if rem > half || (rem == half && kept&1 == 1) {
		// May carry into bit 53; the value stays exactly representable.
		kept++
	}
	return math.Ldexp(float64(kept), int(shift))
}

// floatToTicks converts a non-negative float to ticks, saturating at the
// uint64 range.
func floatToTicks(f float64) uint64 {
	switch {
	case f <= 0 || math.IsNaN(f):
		return 0
	case f >= 1<<64:
		return math.MaxUint64
	default:
		return uint64(math.Round(f))
	}
}
