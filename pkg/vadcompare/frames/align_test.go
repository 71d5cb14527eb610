package frames

import (
	"math/rand"
	"testing"
)

// bruteOffset scans every shift and scores the overlap directly.
func bruteOffset(a, b Mask, maxShift int) int {
	best, bestScore := 0, -1
	for sh := -maxShift; sh <= maxShift; sh++ {
		score, overlap := 0, false
		for i := range a {
			j := i + sh
			if j < 0 || j >= len(b) {
				continue
			}
			overlap = true
			if a[i] && b[j] {
				score++
			}
		}
		if overlap && score > bestScore {
			best, bestScore = sh, score
		}
	}
	return best
}

func randomMask(rng *rand.Rand, n int) Mask {
	m := make(Mask, n)
	on := false
	for i := range m {
		if rng.Intn(12) == 0 {
			on = !on
		}
		m[i] = on
	}
	return m
}

func TestBestOffsetMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 100; trial++ {
		n := 50 + rng.Intn(400)
		a := randomMask(rng, n)
		b := randomMask(rng, n-rng.Intn(20))
		maxShift := rng.Intn(60)

		got := BestOffset(a, b, maxShift)
		want := bruteOffset(a, b, maxShift)
		if got != want {
			t.Fatalf("trial %d (len %d/%d, max %d): expected shift %d, got %d", trial, len(a), len(b), maxShift, want, got)
		}
	}
}

func TestBestOffsetRecoversDelay(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a := randomMask(rng, 1000)
	// b lags a by 17 frames
	b := a.Shift(-17)

	sh := BestOffset(a, b, 50)
	if sh != 17 {
		t.Fatalf("Expected shift 17, got %d", sh)
	}
	aligned := b.Shift(sh)
	for i := 0; i < len(a)-17; i++ {
		if aligned[i] != a[i] {
			t.Fatalf("Frame %d differs after alignment", i)
		}
	}
}

func TestBestOffsetDisabled(t *testing.T) {
	a := maskFromString("FTTF")
	if sh := BestOffset(a, a.Shift(1), 0); sh != 0 {
		t.Errorf("Expected 0 with search disabled, got %d", sh)
	}
	if sh := BestOffset(nil, a, 5); sh != 0 {
		t.Errorf("Expected 0 for empty mask, got %d", sh)
	}
}
