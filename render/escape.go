package render

// NormSquare is real(z)² + imag(z)², the squared magnitude of z.
func NormSquare(z complex128) float64 {
	return real(z)*real(z) + imag(z)*imag(z)
}

// Escape counts iterations of z ← z² + c starting at the origin.
func Escape(c complex128, maxIter int) int {
	return EscapeFrom(0, c, maxIter)
}

// EscapeFrom iterates z ← z² + c at most maxIter times. The bound |z|² > 4
// is tested before every update, so the result is the number of updates
// completed when z left the disc, or maxIter if it never did.
func EscapeFrom(z, c complex128, maxIter int) int {
	for i := range maxIter {
		if NormSquare(z) > 4 {
			return i
		}
		z = z*z + c
	}
	return maxIter
}
