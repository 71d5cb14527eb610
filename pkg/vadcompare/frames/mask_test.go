package frames

import (
	"math"
	"math/rand"
	"testing"

	"github.com/himanishpuri/vadcompare/pkg/models"
)

func maskFromString(s string) Mask {
	m := make(Mask, len(s))
	for i, c := range s {
		m[i] = c == 'T'
	}
	return m
}

func (m Mask) String() string {
	b := make([]byte, len(m))
	for i, v := range m {
		if v {
			b[i] = 'T'
		} else {
			b[i] = 'F'
		}
	}
	return string(b)
}

func TestRasterizeWorkedExample(t *testing.T) {
	a := Rasterize([]models.Segment{{Start: 2, End: 5}}, 10, 1)
	b := Rasterize([]models.Segment{{Start: 2, End: 4}}, 10, 1)

	if got, want := a.String(), "FFTTTFFFFF"; got != want {
		t.Errorf("A: expected %s, got %s", want, got)
	}
	if got, want := b.String(), "FFTTFFFFFF"; got != want {
		t.Errorf("B: expected %s, got %s", want, got)
	}
}

func TestRasterizeMidpointBoundaries(t *testing.T) {
	tests := []struct {
		name string
		seg  models.Segment
		want string
	}{
		// frame 1 midpoint is 1.5: a start exactly on it is voice, an end exactly on it is not
		{"start on midpoint", models.Segment{Start: 1.5, End: 3}, "FTTFF"},
		{"end on midpoint", models.Segment{Start: 0, End: 1.5}, "TFFFF"},
		{"covers frame but misses midpoint", models.Segment{Start: 1.0, End: 1.4}, "FFFFF"},
		{"tiny segment around midpoint", models.Segment{Start: 2.49, End: 2.51}, "FFTFF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rasterize([]models.Segment{tt.seg}, 5, 1).String()
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestFrameCount(t *testing.T) {
	tests := []struct {
		duration, frame float64
		want            int
	}{
		{10, 1, 10},
		{10, 0.1, 100},
		{10.05, 0.1, 101},
		{0.3, 0.1, 3},
		{0, 0.01, 0},
		{1, 0, 0},
	}
	for _, tt := range tests {
		if got := FrameCount(tt.duration, tt.frame); got != tt.want {
			t.Errorf("FrameCount(%v, %v) = %d, want %d", tt.duration, tt.frame, got, tt.want)
		}
	}
}

func TestRasterizeConservesVoiceDuration(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		frame := []float64{0.01, 0.02, 0.1, 0.25}[rng.Intn(4)]

		var segs []models.Segment
		var voice float64
		cursor := rng.Float64()
		for k := 0; k < 1+rng.Intn(20); k++ {
			start := cursor + rng.Float64()*2
			end := start + 0.05 + rng.Float64()*3
			segs = append(segs, models.Segment{Start: start, End: end})
			voice += end - start
			cursor = end
		}
		duration := cursor + rng.Float64()

		got := float64(Rasterize(segs, duration, frame).Count()) * frame
		// each segment edge contributes at most half a frame of rounding
		if tol := float64(len(segs)) * frame; math.Abs(got-voice) > tol {
			t.Fatalf("trial %d: rasterized voice %.4f vs actual %.4f exceeds %.4f", trial, got, voice, tol)
		}
	}
}

func TestRasterizeSingleSegmentWithinOneFrame(t *testing.T) {
	m := Rasterize([]models.Segment{{Start: 0.123, End: 4.567}}, 6, 0.01)
	got := float64(m.Count()) * 0.01
	if math.Abs(got-(4.567-0.123)) > 0.01 {
		t.Errorf("Expected voice within one frame of %.3f, got %.3f", 4.567-0.123, got)
	}
}

func TestRasterizeIgnoresSegmentsPastDuration(t *testing.T) {
	m := Rasterize([]models.Segment{{Start: 1, End: 2}, {Start: 20, End: 30}}, 3, 1)
	if m.String() != "FTF" {
		t.Errorf("Expected FTF, got %s", m)
	}
}

func TestPad(t *testing.T) {
	m := maskFromString("TTF")
	padded, added := Pad(m, 5)
	if padded.String() != "TTFFF" || added != 2 {
		t.Errorf("Expected TTFFF with 2 padded, got %s with %d", padded, added)
	}
	same, added := Pad(m, 2)
	if same.String() != "TTF" || added != 0 {
		t.Errorf("Expected unchanged mask, got %s with %d", same, added)
	}
}

func TestRunsAndSegments(t *testing.T) {
	m := maskFromString("FTTFFTFTTT")
	runs := m.Runs()
	want := []Run{{1, 2}, {5, 1}, {7, 3}}
	if len(runs) != len(want) {
		t.Fatalf("Expected %v, got %v", want, runs)
	}
	for i := range want {
		if runs[i] != want[i] {
			t.Errorf("Run %d: expected %v, got %v", i, want[i], runs[i])
		}
	}

	segs := m.ToSegments(0.5)
	if segs[0] != (models.Segment{Start: 0.5, End: 1.5}) || segs[2] != (models.Segment{Start: 3.5, End: 5}) {
		t.Errorf("Unexpected segments %v", segs)
	}

	// round trip through Rasterize reproduces the mask
	if back := Rasterize(segs, 5, 0.5); back.String() != m.String() {
		t.Errorf("Round trip: expected %s, got %s", m, back)
	}
}

func TestShift(t *testing.T) {
	m := maskFromString("TTFFT")
	if got := m.Shift(2).String(); got != "FFTFF" {
		t.Errorf("Shift(2): got %s", got)
	}
	if got := m.Shift(-1).String(); got != "FTTFF" {
		t.Errorf("Shift(-1): got %s", got)
	}
	if got := m.Shift(9).String(); got != "FFFFF" {
		t.Errorf("Shift(9): got %s", got)
	}
	if got := m.Shift(0).String(); got != "TTFFT" {
		t.Errorf("Shift(0): got %s", got)
	}
}
