package backend

import "math"

// solve solves a·x = b in place for a dense n×n row-major matrix using
// Gaussian elimination with partial pivoting. b receives x. It reports false
// for a singular matrix.
func solve(a []float64, b []float64, n int) bool {
	for col := 0; col < n; col++ {
		pivot := col
		best := math.Abs(a[col*n+col])
		for r := col + 1; r < n; r++ {
			if v := math.Abs(a[r*n+col]); v > best {
				pivot, best = r, v
			}
		}
		if best < 1e-12 {
			return false
		}
		if pivot != col {
			for c := 0; c < n; c++ {
				a[col*n+c], a[pivot*n+c] = a[pivot*n+c], a[col*n+c]
			}
			b[col], b[pivot] = b[pivot], b[col]
		}

		inv := 1 / a[col*n+col]
		for r := col + 1; r < n; r++ {
			f := a[r*n+col] * inv
			if f == 0 {
				continue
			}
			for c := col; c < n; c++ {
				a[r*n+c] -= f * a[col*n+c]
			}
			b[r] -= f * b[col]
		}
	}

	for r := n - 1; r >= 0; r-- {
		sum := b[r]
		for c := r + 1; c < n; c++ {
			sum -= a[r*n+c] * b[c]
		}
		b[r] = sum / a[r*n+r]
	}
	return true
}
