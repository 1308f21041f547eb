package render

import "golang.org/x/exp/constraints"

// NextPowerOfTwo returns the smallest power of two >= n. Values <= 1 map to 1.
func NextPowerOfTwo[T constraints.Integer](n T) T {
	p := T(1)
	for p < n {
		p <<= 1
	}
	return p
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo[T constraints.Integer](n T) bool {
	return n > 0 && n&(n-1) == 0
}

// CeilDiv returns ceil(a / b) for positive b.
func CeilDiv[T constraints.Integer](a, b T) T {
	return (a + b - 1) / b
}

// Log2 returns floor(log2(n)) for n >= 1, and 0 otherwise.
func Log2[T constraints.Integer](n T) int {
	l := 0
	for n > 1 {
		n >>= 1
		l++
	}
	return l
}

// MipCount returns the length of a full mip chain for a width x height
// surface: 1 + floor(log2(max(width, height))).
func MipCount(width, height int) int {
	return 1 + Log2(max(width, height))
}

// MipSize returns the size of mip level for a base size, floored at 1.
func MipSize(size, level int) int {
	return max(1, size>>level)
}
