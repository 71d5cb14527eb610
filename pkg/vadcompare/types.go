package vadcompare

import (
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/compare"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/report"
)

// Request names the four inputs of one comparison run.
type Request struct {
	AudioPath   string // original recording
	LabelsA     string // first label source
	LabelsB     string // second label source
	OutputImage string // chart destination (PNG)
}

// Report is the outcome of a comparison.
type Report struct {
	Result      compare.Result
	ShiftFrames int
	Matching    *compare.Matching
	Summary     *report.Summary
	Images      []report.Image
	Exports     []report.Image
	// RunID is set when the run was recorded in history.
	RunID string
}
