// Package report renders comparison results as text and images.
package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/vadcompare/pkg/vadcompare/compare"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/frames"
)

// SourceInfo describes one side of the comparison.
type SourceInfo struct {
	Name         string
	Path         string
	Format       string
	Segments     int
	VoiceSeconds float64
	Merged       int
}

// InputInfo describes the original recording.
type InputInfo struct {
	Path    string
	Media   string  // container summary; empty when it could not be read
	Decoded float64 // seconds of decoded audio
	Drift   float64 // container/decoded gap in seconds, set only above one frame
}

// Image is a rendered output file.
type Image struct {
	Label string
	Path  string
	Size  int64
}

// Summary is everything the text report prints.
type Summary struct {
	Duration  float64
	FrameSize float64
	Input     InputInfo
	A, B      SourceInfo
	Result    compare.Result
	Factor    float64

	// ShiftFrames is the alignment applied to B; 0 when alignment was off or found nothing.
	ShiftFrames int
	AlignSearch bool

	TopA, TopB []frames.Run
	Matching   *compare.Matching
	Images     []Image
	Exports    []Image
}

const rule = "============================================================"

// WriteSummary prints the human-readable comparison report to w.
func WriteSummary(w io.Writer, s *Summary) error {
	var b strings.Builder
	r := s.Result

	fmt.Fprintf(&b, "\n%s\nVAD Comparison Results\n%s\n", rule, rule)
	fmt.Fprintf(&b, "Total duration: %.2f s (%s frames of %s)\n",
		s.Duration, humanize.Comma(int64(r.Frames)), formatFrame(s.FrameSize))
	writeInput(&b, s.Input)

	b.WriteString("\nSources\n")
	b.WriteString(RenderTable(
		[]string{"Side", "Name", "File", "Format", "Segments", "Voice (s)", "Voice frames", "Silence frames"},
		[][]string{
			sourceRow("A", s.A, r.VoiceA(), r),
			sourceRow("B", s.B, r.VoiceB(), r),
		},
		4, 5, 6, 7,
	))
	b.WriteString("\n")
	for _, src := range []SourceInfo{s.A, s.B} {
		if src.Merged > 0 {
			fmt.Fprintf(&b, "  ! %s: %d overlapping segments were merged\n", src.Name, src.Merged)
		}
	}

	b.WriteString("\nFrame agreement\n")
	b.WriteString(RenderTable(
		[]string{"Class", "Frames", "Share"},
		[][]string{
			{"Both voice", humanize.Comma(int64(r.BothVoice)), percent(r.Percent(r.BothVoice))},
			{"Both silence", humanize.Comma(int64(r.BothSilence)), percent(r.Percent(r.BothSilence))},
			{fmt.Sprintf("%s only voice (%s cut)", s.A.Name, s.B.Name), humanize.Comma(int64(r.AOnly)), percent(r.Percent(r.AOnly))},
			{fmt.Sprintf("%s only voice (%s cut)", s.B.Name, s.A.Name), humanize.Comma(int64(r.BOnly)), percent(r.Percent(r.BOnly))},
			{"Total disagreement", humanize.Comma(int64(r.Disagreements())), percent(r.Percent(r.Disagreements()))},
		},
		1, 2,
	))
	b.WriteString("\n")

	fmt.Fprintf(&b, "\nIoU=%.4f  Precision=%.4f  Recall=%.4f  (%s as reference)\n",
		r.IoU(), r.Precision(), r.Recall(), s.B.Name)

	if d := r.Disagreements(); d > 0 {
		aShare, bShare := r.DisagreementShares()
		b.WriteString("\nOf the disagreeing frames:\n")
		fmt.Fprintf(&b, "  - %s only voice: %.1f%% (%s removed %d frames more)\n", s.A.Name, aShare, s.B.Name, r.AOnly)
		fmt.Fprintf(&b, "  - %s only voice: %.1f%% (%s removed %d frames more)\n", s.B.Name, bShare, s.A.Name, r.BOnly)
		if ratio, ok := r.AggressivenessRatio(); ok {
			fmt.Fprintf(&b, "  Aggressiveness ratio (%s only / %s only): %.2f\n", s.A.Name, s.B.Name, ratio)
		} else {
			fmt.Fprintf(&b, "  Aggressiveness ratio (%s only / %s only): undefined (no %s only frames)\n", s.A.Name, s.B.Name, s.B.Name)
		}
	}

	b.WriteString("\nVerdict: ")
	b.WriteString(verdictText(s))
	b.WriteString("\n")

	if r.Padded() {
		fmt.Fprintf(&b, "\n! Durations differ: padded %s with %d silent frames and %s with %d\n",
			s.A.Name, r.PaddedA, s.B.Name, r.PaddedB)
	}
	if s.AlignSearch {
		fmt.Fprintf(&b, "\nAlignment: %s shifted by %d frames (%+.0f ms)\n",
			s.B.Name, s.ShiftFrames, float64(s.ShiftFrames)*s.FrameSize*1000)
	}

	writeRuns(&b, s.A.Name+" only (longest)", s.TopA, s.FrameSize)
	writeRuns(&b, s.B.Name+" only (longest)", s.TopB, s.FrameSize)

	if s.Matching != nil {
		writeMatching(&b, s)
	}

	if files := append(append([]Image(nil), s.Images...), s.Exports...); len(files) > 0 {
		b.WriteString("\n")
		for _, img := range files {
			fmt.Fprintf(&b, "Saved %s: %s (%s)\n", img.Label, img.Path, humanize.Bytes(uint64(img.Size)))
		}
	}
	b.WriteString(rule + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func sourceRow(side string, src SourceInfo, voiceFrames int, r compare.Result) []string {
	return []string{
		side,
		src.Name,
		src.Path,
		src.Format,
		humanize.Comma(int64(src.Segments)),
		fmt.Sprintf("%.2f", src.VoiceSeconds),
		fmt.Sprintf("%s (%s)", humanize.Comma(int64(voiceFrames)), percent(r.Percent(voiceFrames))),
		fmt.Sprintf("%s (%s)", humanize.Comma(int64(r.Frames-voiceFrames)), percent(r.Percent(r.Frames-voiceFrames))),
	}
}

func verdictText(s *Summary) string {
	v := s.Result.Verdict(s.Factor)
	var aggressive, other string
	switch v.Aggressive {
	case compare.SideA:
		aggressive, other = s.A.Name, s.B.Name
	case compare.SideB:
		aggressive, other = s.B.Name, s.A.Name
	default:
		if s.Result.Disagreements() == 0 {
			return "identical frame labels."
		}
		return "both filters work at a similar level; differences are boundary-level only."
	}
	if v.Times > 0 {
		return fmt.Sprintf("%s filters much more aggressively than %s (about %.1fx); it removes more as noise.", aggressive, other, v.Times)
	}
	return fmt.Sprintf("%s filters more aggressively than %s; %s never keeps voice that %s drops.", aggressive, other, aggressive, other)
}

func writeRuns(b *strings.Builder, title string, runs []frames.Run, frameSize float64) {
	if len(runs) == 0 {
		return
	}
	rows := make([][]string, len(runs))
	for i, run := range runs {
		rows[i] = []string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%.2f", float64(run.Start)*frameSize),
			fmt.Sprintf("%.1f", float64(run.Length)*frameSize*1000),
		}
	}
	fmt.Fprintf(b, "\n%s\n", title)
	b.WriteString(RenderTable([]string{"#", "Start (s)", "Duration (ms)"}, rows, 0, 1, 2))
	b.WriteString("\n")
}

func writeInput(b *strings.Builder, in InputInfo) {
	if in.Path == "" {
		return
	}
	fmt.Fprintf(b, "Original: %s", filepath.Base(in.Path))
	if in.Media != "" {
		fmt.Fprintf(b, " (%s)", in.Media)
	}
	b.WriteString("\n")
	if in.Drift > 0 {
		fmt.Fprintf(b, "  ! container duration is off by %.0f ms from the %.2f s decoded\n", in.Drift*1000, in.Decoded)
	}
}

func writeMatching(b *strings.Builder, s *Summary) {
	m := s.Matching
	fmt.Fprintf(b, "\nSegment pairing (tolerance ±%.0f ms): %s %d segments, %s %d segments\n",
		m.Tolerance*1000, s.A.Name, s.A.Segments, s.B.Name, s.B.Segments)
	if s.A.Segments != s.B.Segments {
		b.WriteString("  ! segment counts differ\n")
	}
	if len(m.Pairs) == 0 {
		b.WriteString("  both sources have no voice segments\n")
		return
	}

	rows := make([][]string, 0, len(m.Pairs))
	for _, p := range m.Pairs {
		row := []string{fmt.Sprintf("%d", p.Index), "N/A", "N/A", "N/A", "N/A", "N/A", "N/A", string(p.Status)}
		if p.A != nil {
			row[1] = fmt.Sprintf("%.2f", p.A.Start)
			row[4] = fmt.Sprintf("%.2f", p.A.End)
		}
		if p.B != nil {
			row[2] = fmt.Sprintf("%.2f", p.B.Start)
			row[5] = fmt.Sprintf("%.2f", p.B.End)
		}
		if p.A != nil && p.B != nil {
			row[3] = fmt.Sprintf("%.0f ms", p.StartDiff*1000)
			row[6] = fmt.Sprintf("%.0f ms", p.EndDiff*1000)
		}
		rows = append(rows, row)
	}
	b.WriteString(RenderTable(
		[]string{"ID", s.A.Name + " start", s.B.Name + " start", "Diff", s.A.Name + " end", s.B.Name + " end", "Diff", "Status"},
		rows, 0, 1, 2, 3, 4, 5, 6,
	))
	b.WriteString("\n")

	fmt.Fprintf(b, "Matched segments: %d/%d", m.Matched, m.Common)
	if m.Common > 0 {
		fmt.Fprintf(b, " (%.1f%%), mean start diff %.1f ms, mean end diff %.1f ms",
			m.MatchRate()*100, m.MeanStartDiff*1000, m.MeanEndDiff*1000)
	}
	b.WriteString("\n")
	if len(m.Differences()) == 0 && m.Common > 0 {
		b.WriteString("All segments match.\n")
	}
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func formatFrame(frameSize float64) string {
	if frameSize < 1 {
		return fmt.Sprintf("%g ms", frameSize*1000)
	}
	return fmt.Sprintf("%g s", frameSize)
}
