package render

import (
	"runtime"

	mandel "github.com/marben/mandel_ppm"
)

// Workers reports how many workers a render uses by default: one per CPU,
// never fewer than one.
func Workers() int {
	return max(runtime.NumCPU(), 1)
}

// SplitRows splits height rows into n contiguous bands of height/n rows.
// The last band also takes the remainder. With n > height the leading bands
// are empty. n < 1 is treated as 1.
func SplitRows(height, n int) []mandel.Band {
	if height < 0 {
		panic("height must not be negative")
	}
	if n < 1 {
		n = 1
	}

	rowsPerBand := height / n
	bands := make([]mandel.Band, n)
	for i := range n {
		start := i * rowsPerBand
		end := start + rowsPerBand
		if i == n-1 {
			end = height
		}
		bands[i] = mandel.Band{Start: start, End: end}
	}
	return bands
}
