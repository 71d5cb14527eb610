package audio

import (
	"math"
	"sort"

	"github.com/himanishpuri/vadcompare/pkg/models"
)

const (
	// DefaultWindow and DefaultHop are the RMS analysis window and step, seconds.
	DefaultWindow = 0.02
	DefaultHop    = 0.01

	// DefaultSilenceThreshold separates hard-cut silence from kept audio.
	DefaultSilenceThreshold = 0.001
)

// Envelope is a frame-wise RMS curve. Value i covers the window starting at
// i*Hop seconds.
type Envelope struct {
	Values []float64
	Hop    float64
}

// RMS computes the RMS of each window-length frame stepped by hop. Only
// windows that fit entirely before the last sample are measured.
func RMS(samples []float64, sampleRate int, window, hop float64) Envelope {
	win := int(float64(sampleRate) * window)
	step := int(float64(sampleRate) * hop)
	if win <= 0 || step <= 0 {
		return Envelope{Hop: hop}
	}

	env := Envelope{Hop: float64(step) / float64(sampleRate)}
	for i := 0; i < len(samples)-win; i += step {
		var sum float64
		for _, s := range samples[i : i+win] {
			sum += s * s
		}
		env.Values = append(env.Values, math.Sqrt(sum/float64(win)))
	}
	return env
}

// VoiceSegments recovers voice segments from a VAD-filtered recording whose
// removed stretches were replaced by (near) silence. A hop is voice when its
// window RMS exceeds threshold; consecutive voice hops form one segment.
func VoiceSegments(clip *Clip, threshold float64) []models.Segment {
	env := RMS(clip.Samples, clip.SampleRate, DefaultWindow, DefaultHop)
	return env.Segments(threshold)
}

// Segments converts the hops above threshold into time segments.
func (e Envelope) Segments(threshold float64) []models.Segment {
	var segs []models.Segment
	for i := 0; i < len(e.Values); {
		if e.Values[i] <= threshold {
			i++
			continue
		}
		start := i
		for i < len(e.Values) && e.Values[i] > threshold {
			i++
		}
		segs = append(segs, models.Segment{
			Start: float64(start) * e.Hop,
			End:   float64(i) * e.Hop,
		})
	}
	return segs
}

// Stats returns the minimum, median and maximum of the envelope.
func (e Envelope) Stats() (lo, median, hi float64) {
	if len(e.Values) == 0 {
		return 0, 0, 0
	}
	sorted := append([]float64(nil), e.Values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[0], median, sorted[n-1]
}
