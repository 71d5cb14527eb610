package compare

import (
	"math"

	"github.com/himanishpuri/vadcompare/pkg/models"
)

// DefaultTolerance is the boundary slack, in seconds, for a matched segment pair.
const DefaultTolerance = 0.05

// PairStatus classifies one row of a segment pairing.
type PairStatus string

const (
	PairMatch  PairStatus = "match"
	PairDiffer PairStatus = "differ"
	PairOnlyA  PairStatus = "a-only"
	PairOnlyB  PairStatus = "b-only"
)

// Pair lines up the i-th segment of each source. A or B is nil when that
// source has fewer segments.
type Pair struct {
	Index     int
	A, B      *models.Segment
	StartDiff float64 // |A.Start - B.Start|, seconds
	EndDiff   float64
	Status    PairStatus
}

// Matching is the index-paired comparison of two segment lists.
type Matching struct {
	Tolerance float64
	Pairs     []Pair
	Common    int // pairs where both sides exist
	Matched   int // common pairs with both boundaries within tolerance
	// Mean absolute boundary differences over the common pairs, seconds.
	MeanStartDiff float64
	MeanEndDiff   float64
}

// MatchRate is Matched/Common, or 0 when nothing is common.
func (m Matching) MatchRate() float64 {
	if m.Common == 0 {
		return 0
	}
	return float64(m.Matched) / float64(m.Common)
}

// Differences returns the pairs that are not a match, in index order.
func (m Matching) Differences() []Pair {
	var out []Pair
	for _, p := range m.Pairs {
		if p.Status != PairMatch {
			out = append(out, p)
		}
	}
	return out
}

// MatchSegments pairs a[i] with b[i] and checks both boundaries against
// tolerance seconds. Extra segments on the longer side are reported alone.
func MatchSegments(a, b []models.Segment, tolerance float64) Matching {
	if tolerance < 0 {
		tolerance = DefaultTolerance
	}
	m := Matching{Tolerance: tolerance}

	var sumStart, sumEnd float64
	for i := 0; i < max(len(a), len(b)); i++ {
		p := Pair{Index: i + 1}
		switch {
		case i >= len(a):
			p.B = &b[i]
			p.Status = PairOnlyB
		case i >= len(b):
			p.A = &a[i]
			p.Status = PairOnlyA
		default:
			p.A, p.B = &a[i], &b[i]
			p.StartDiff = math.Abs(a[i].Start - b[i].Start)
			p.EndDiff = math.Abs(a[i].End - b[i].End)
			sumStart += p.StartDiff
			sumEnd += p.EndDiff
			m.Common++
			if p.StartDiff <= tolerance && p.EndDiff <= tolerance {
				p.Status = PairMatch
				m.Matched++
			} else {
				p.Status = PairDiffer
			}
		}
		m.Pairs = append(m.Pairs, p)
	}

	if m.Common > 0 {
		m.MeanStartDiff = sumStart / float64(m.Common)
		m.MeanEndDiff = sumEnd / float64(m.Common)
	}
	return m
}
