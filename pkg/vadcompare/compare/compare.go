// Package compare classifies two frame masks against each other.
package compare

import (
	"sort"

	"github.com/himanishpuri/vadcompare/pkg/vadcompare/frames"
)

// DefaultFactor is how many times larger one side's one-sided count must be
// before the other side is called more aggressive.
const DefaultFactor = 3.0

// Result holds per-frame agreement counts between sources A and B.
type Result struct {
	Frames      int
	BothVoice   int
	BothSilence int
	AOnly       int // A voice, B silence
	BOnly       int // A silence, B voice

	// Frames of silence appended to each side to equalize lengths.
	PaddedA int
	PaddedB int
}

// Compare pads the shorter mask with silence and counts each frame class.
func Compare(a, b frames.Mask) Result {
	n := max(len(a), len(b))
	a, padA := frames.Pad(a, n)
	b, padB := frames.Pad(b, n)

	r := Result{Frames: n, PaddedA: padA, PaddedB: padB}
	for i := 0; i < n; i++ {
		switch {
		case a[i] && b[i]:
			r.BothVoice++
		case !a[i] && !b[i]:
			r.BothSilence++
		case a[i]:
			r.AOnly++
		default:
			r.BOnly++
		}
	}
	return r
}

// Swap returns the result as if A and B had been exchanged.
func (r Result) Swap() Result {
	r.AOnly, r.BOnly = r.BOnly, r.AOnly
	r.PaddedA, r.PaddedB = r.PaddedB, r.PaddedA
	return r
}

// VoiceA is the number of frames A marks as voice.
func (r Result) VoiceA() int { return r.BothVoice + r.AOnly }

// VoiceB is the number of frames B marks as voice.
func (r Result) VoiceB() int { return r.BothVoice + r.BOnly }

// Disagreements is the number of frames where A and B differ.
func (r Result) Disagreements() int { return r.AOnly + r.BOnly }

// Padded reports whether either side needed zero-padding.
func (r Result) Padded() bool { return r.PaddedA > 0 || r.PaddedB > 0 }

// Percent returns count as a percentage of all frames.
func (r Result) Percent(count int) float64 {
	if r.Frames == 0 {
		return 0
	}
	return float64(count) * 100 / float64(r.Frames)
}

// DisagreementShares splits the disagreeing frames into the percentage owned
// by A-only and B-only. Both are zero when the sources agree everywhere.
func (r Result) DisagreementShares() (aShare, bShare float64) {
	d := r.Disagreements()
	if d == 0 {
		return 0, 0
	}
	return float64(r.AOnly) * 100 / float64(d), float64(r.BOnly) * 100 / float64(d)
}

// AggressivenessRatio returns AOnly/BOnly. ok is false when BOnly is zero.
func (r Result) AggressivenessRatio() (ratio float64, ok bool) {
	if r.BOnly == 0 {
		return 0, false
	}
	return float64(r.AOnly) / float64(r.BOnly), true
}

// IoU is the intersection over union of the two voice sets; 1 when both are empty.
func (r Result) IoU() float64 {
	union := r.BothVoice + r.AOnly + r.BOnly
	if union == 0 {
		return 1
	}
	return float64(r.BothVoice) / float64(union)
}

// Precision treats B as reference: the share of A's voice that B confirms.
func (r Result) Precision() float64 {
	if r.VoiceA() == 0 {
		return 1
	}
	return float64(r.BothVoice) / float64(r.VoiceA())
}

// Recall treats B as reference: the share of B's voice that A also finds.
func (r Result) Recall() float64 {
	if r.VoiceB() == 0 {
		return 1
	}
	return float64(r.BothVoice) / float64(r.VoiceB())
}

// Side names a source in a verdict.
type Side int

const (
	Neither Side = iota
	SideA
	SideB
)

// Verdict says which source removes more voice than the other.
type Verdict struct {
	// Aggressive is the side that marks more audio as silence, or Neither.
	Aggressive Side
	// Times is how many times more the other side keeps that the aggressive
	// side drops; 0 when Aggressive is Neither or the smaller count is zero.
	Times float64
}

// Verdict compares one-sided counts. When A keeps voice that B drops more than
// factor times as often as the reverse, B is the aggressive filter, and vice
// versa. A factor <= 0 falls back to DefaultFactor.
func (r Result) Verdict(factor float64) Verdict {
	if factor <= 0 {
		factor = DefaultFactor
	}
	a, b := float64(r.AOnly), float64(r.BOnly)
	switch {
	case r.Disagreements() == 0:
		return Verdict{}
	case a > b*factor:
		v := Verdict{Aggressive: SideB}
		if b > 0 {
			v.Times = a / b
		}
		return v
	case b > a*factor:
		v := Verdict{Aggressive: SideA}
		if a > 0 {
			v.Times = b / a
		}
		return v
	}
	return Verdict{}
}

// OneSided returns the A-only and B-only frame masks.
func OneSided(a, b frames.Mask) (aOnly, bOnly frames.Mask) {
	n := max(len(a), len(b))
	a, _ = frames.Pad(a, n)
	b, _ = frames.Pad(b, n)
	aOnly = make(frames.Mask, n)
	bOnly = make(frames.Mask, n)
	for i := 0; i < n; i++ {
		aOnly[i] = a[i] && !b[i]
		bOnly[i] = b[i] && !a[i]
	}
	return aOnly, bOnly
}

// TopRuns returns up to n of the longest runs in m, longest first.
// Equal lengths keep time order.
func TopRuns(m frames.Mask, n int) []frames.Run {
	runs := m.Runs()
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Length > runs[j].Length })
	if n >= 0 && len(runs) > n {
		runs = runs[:n]
	}
	return runs
}
