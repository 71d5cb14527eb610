package frames

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// BestOffset returns the shift sh in [-maxShift, maxShift] maximizing the
// number of frames where a[i] and b[i+sh] are both voice. Ties go to the
// smallest sh. Apply the result with b.Shift(sh).
//
// The full cross-correlation comes from one FFT round trip.
func BestOffset(a, b Mask, maxShift int) int {
	if maxShift <= 0 || len(a) == 0 || len(b) == 0 {
		return 0
	}

	n := 1
	for n < len(a)+len(b) {
		n <<= 1
	}

	fa := fft.FFTReal(toFloats(a, n))
	fb := fft.FFTReal(toFloats(b, n))
	prod := make([]complex128, n)
	for i := range prod {
		prod[i] = cmplx.Conj(fa[i]) * fb[i]
	}
	corr := fft.IFFT(prod)

	best, bestScore := 0, -1
	for sh := -maxShift; sh <= maxShift; sh++ {
		if sh >= len(b) || -sh >= len(a) {
			continue
		}
		idx := sh
		if idx < 0 {
			idx += n
		}
		score := int(math.Round(real(corr[idx])))
		if score > bestScore {
			best, bestScore = sh, score
		}
	}
	return best
}

func toFloats(m Mask, n int) []float64 {
	out := make([]float64, n)
	for i, v := range m {
		if v {
			out[i] = 1
		}
	}
	return out
}
