package wire

import "math"

// FixedScale is the fixed-point scaling factor for Move/Rotate/Scale
// vector lanes (spec.md §4.1): world units * 1000, packed into a signed
// 16-bit lane. This limits position magnitudes to +/-32.767 world units
// (spec.md §9); callers needing a larger range should widen to i32 and
// version-tag the wire format, which this build does not do.
const FixedScale = 1000

// PackFixed converts a float64 world-unit value into its i16 fixed-point
// wire representation, saturating at the i16 bounds rather than
// overflowing silently.
func PackFixed(v float64) int16 {
	scaled := math.Round(v * FixedScale)
	if scaled > math.MaxInt16 {
		return math.MaxInt16
	}
	if scaled < math.MinInt16 {
		return math.MinInt16
	}
	return int16(scaled)
}

// UnpackFixed converts a wire i16 lane back into a float64 world-unit value.
func UnpackFixed(v int16) float64 {
	return float64(v) / FixedScale
}
