package models

import "time"

// Segment is a contiguous voice interval in seconds. Start is inclusive, End exclusive.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Run is a comparison run as recorded in the history database.
type Run struct {
	ID          string    // UUID of the run
	AudioPath   string    // Original audio file
	SourceA     string    // Label source A
	SourceB     string    // Label source B
	FrameSize   float64   // Frame size in seconds
	Frames      int       // Total compared frames (after padding)
	BothVoice   int       // Frames voiced in both sources
	BothSilence int       // Frames silent in both sources
	AOnly       int       // Frames voiced in A only
	BOnly       int       // Frames voiced in B only
	PaddedA     int       // Silence frames appended to A
	PaddedB     int       // Silence frames appended to B
	ShiftFrames int       // Alignment shift applied to B
	CreatedAt   time.Time // When the run was recorded
}
