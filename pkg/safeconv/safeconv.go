// Package safeconv provides integer narrowing conversions.
//
// The Must variants panic on overflow. The binary table writers size every
// field before writing it, so a value that does not fit at that point is a
// programming error rather than bad input. Int64ToUint32 reports overflow to
// the caller and is used for offsets derived from user files.
package safeconv

import "math"

// MaxUint32 is the maximum value for uint32 type.
const MaxUint32 = uint32(math.MaxUint32)

// MustIntToUint32 converts int to uint32, panics on bounds violation.
// Use only when bounds violations are logically impossible.
func MustIntToUint32(v int) uint32 {
	if v < 0 || uint64(v) > uint64(MaxUint32) {
		panic("safeconv: int to uint32 out of bounds")
	}

	return uint32(v)
}

// Int64ToUint32 converts int64 to uint32 and reports whether v fits.
func Int64ToUint32(v int64) (uint32, bool) {
	if v < 0 || v > int64(MaxUint32) {
		return 0, false
	}

	return uint32(v), true
}

// MustIntToUint16 converts int to uint16, panics on bounds violation.
func MustIntToUint16(v int) uint16 {
	if v < 0 || v > math.MaxUint16 {
		panic("safeconv: int to uint16 out of bounds")
	}

	return uint16(v)
}

// MustIntToUint8 converts int to uint8, panics on bounds violation.
func MustIntToUint8(v int) uint8 {
	if v < 0 || v > math.MaxUint8 {
		panic("safeconv: int to uint8 out of bounds")
	}

	return uint8(v)
}
