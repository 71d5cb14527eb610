// Package frames discretizes voice segments onto a fixed frame grid.
package frames

import (
	"math"

	"github.com/himanishpuri/vadcompare/pkg/models"
)

// DefaultFrameSize is the frame length in seconds, matching the 10 ms hop
// used when voice is recovered from filtered audio.
const DefaultFrameSize = 0.01

// gridEpsilon absorbs floating error in duration/frameSize (10/0.1 is not 100).
const gridEpsilon = 1e-9

// Mask is a frame-level voice array; true means voice.
type Mask []bool

// FrameCount returns ceil(duration / frameSize).
func FrameCount(duration, frameSize float64) int {
	if duration <= 0 || frameSize <= 0 {
		return 0
	}
	return int(math.Ceil(duration/frameSize - gridEpsilon))
}

// Rasterize marks frame i as voice iff its midpoint (i+0.5)*frameSize lies in
// [start, end) of some segment. Segments must be sorted and non-overlapping.
func Rasterize(segs []models.Segment, duration, frameSize float64) Mask {
	n := FrameCount(duration, frameSize)
	mask := make(Mask, n)

	j := 0
	for i := 0; i < n && j < len(segs); i++ {
		mid := (float64(i) + 0.5) * frameSize
		for j < len(segs) && segs[j].End <= mid {
			j++
		}
		if j < len(segs) && segs[j].Start <= mid {
			mask[i] = true
		}
	}
	return mask
}

// Count returns the number of voice frames.
func (m Mask) Count() int {
	n := 0
	for _, v := range m {
		if v {
			n++
		}
	}
	return n
}

// Pad returns m extended with silence to length n, and how many frames were added.
// A mask already at least n long is returned unchanged.
func Pad(m Mask, n int) (Mask, int) {
	if len(m) >= n {
		return m, 0
	}
	out := make(Mask, n)
	copy(out, m)
	return out, n - len(m)
}

// Run is a maximal stretch of consecutive true frames.
type Run struct {
	Start  int // first frame index
	Length int // number of frames
}

// Runs lists the voice runs of m in order.
func (m Mask) Runs() []Run {
	var runs []Run
	for i := 0; i < len(m); {
		if !m[i] {
			i++
			continue
		}
		start := i
		for i < len(m) && m[i] {
			i++
		}
		runs = append(runs, Run{Start: start, Length: i - start})
	}
	return runs
}

// ToSegments converts the voice runs of m back into time segments.
func (m Mask) ToSegments(frameSize float64) []models.Segment {
	runs := m.Runs()
	segs := make([]models.Segment, len(runs))
	for i, r := range runs {
		segs[i] = models.Segment{
			Start: float64(r.Start) * frameSize,
			End:   float64(r.Start+r.Length) * frameSize,
		}
	}
	return segs
}

// Shift moves m left by sh frames (right when sh is negative), filling with silence.
func (m Mask) Shift(sh int) Mask {
	if sh == 0 {
		return m
	}
	out := make(Mask, len(m))
	if sh > 0 {
		if sh < len(m) {
			copy(out, m[sh:])
		}
	} else if -sh < len(m) {
		copy(out[-sh:], m)
	}
	return out
}
