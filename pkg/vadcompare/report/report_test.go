package report

import (
	"bytes"
	"errors"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/himanishpuri/vadcompare/pkg/models"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/audio"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/compare"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/frames"
)

func workedSummary() *Summary {
	a := frames.Rasterize([]models.Segment{{Start: 2, End: 5}}, 10, 1)
	b := frames.Rasterize([]models.Segment{{Start: 2, End: 4}}, 10, 1)
	aOnly, bOnly := compare.OneSided(a, b)
	return &Summary{
		Duration:  10,
		FrameSize: 1,
		A:         SourceInfo{Name: "Go", Path: "go.txt", Format: "labels", Segments: 1, VoiceSeconds: 3},
		B:         SourceInfo{Name: "Python", Path: "py.txt", Format: "labels", Segments: 1, VoiceSeconds: 2},
		Result:    compare.Compare(a, b),
		Factor:    compare.DefaultFactor,
		TopA:      compare.TopRuns(aOnly, 15),
		TopB:      compare.TopRuns(bOnly, 15),
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, workedSummary()); err != nil {
		t.Fatalf("WriteSummary failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Total duration: 10.00 s (10 frames of 1 s)",
		"Go only voice (Python cut)",
		"Total disagreement",
		"10.0%",
		"Verdict: Python filters more aggressively than Go",
		"Go only (longest)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Durations differ") {
		t.Error("Unexpected padding warning for equal-length masks")
	}
}

func TestWriteSummaryPaddingAndPairs(t *testing.T) {
	s := workedSummary()
	s.Result = compare.Compare(frames.Mask{true, false}, frames.Mask{true, false, false, true})
	m := compare.MatchSegments(
		[]models.Segment{{Start: 0, End: 1}},
		[]models.Segment{{Start: 0.01, End: 1}, {Start: 3, End: 4}},
		compare.DefaultTolerance,
	)
	s.Matching = &m
	s.B.Segments = 2
	s.Images = []Image{{Label: "chart", Path: "out.png", Size: 2048}}

	var buf bytes.Buffer
	if err := WriteSummary(&buf, s); err != nil {
		t.Fatalf("WriteSummary failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"padded Go with 2 silent frames and Python with 0",
		"Matched segments: 1/1",
		"segment counts differ",
		"b-only",
		"2.0 kB",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Summary missing %q:\n%s", want, out)
		}
	}
}

func TestVerdictText(t *testing.T) {
	s := workedSummary()
	s.Result = compare.Result{Frames: 100, AOnly: 2, BOnly: 10}
	if got := verdictText(s); !strings.HasPrefix(got, "Go filters much more aggressively than Python (about 5.0x)") {
		t.Errorf("Unexpected verdict %q", got)
	}
	s.Result = compare.Result{Frames: 100, AOnly: 5, BOnly: 6}
	if got := verdictText(s); !strings.Contains(got, "similar level") {
		t.Errorf("Unexpected verdict %q", got)
	}
	s.Result = compare.Result{Frames: 100, BothVoice: 100}
	if got := verdictText(s); got != "identical frame labels." {
		t.Errorf("Unexpected verdict %q", got)
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable([]string{"Name", "Count"}, [][]string{{"a", "1"}, {"bb"}}, 1)
	for _, want := range []string{"NAME", "COUNT", "bb"} {
		if !strings.Contains(out, want) {
			t.Errorf("Table missing %q:\n%s", want, out)
		}
	}
	// COUNT is five wide, so a right-aligned "1" is padded on the left.
	if !strings.Contains(out, "    1 │") {
		t.Errorf("Expected the Count column right-aligned:\n%s", out)
	}
	if strings.Contains(out, "1     │") {
		t.Errorf("Count column rendered left-aligned:\n%s", out)
	}
	if RenderTable(nil, nil) != "" {
		t.Error("Expected empty output without headers")
	}
}

func chartFixture() *ChartData {
	const rate = 4000
	original := make([]float64, rate*4)
	for i := range original {
		original[i] = 0.5 * math.Sin(2*math.Pi*220*float64(i)/rate)
	}
	segA := []models.Segment{{Start: 0.5, End: 2.5}}
	segB := []models.Segment{{Start: 0.6, End: 2.0}, {Start: 3, End: 3.5}}
	waveA := audio.Gate(original, rate, segA)
	waveB := audio.Gate(original, rate, segB)
	return &ChartData{
		SampleRate: rate,
		Original:   original,
		WaveA:      waveA,
		WaveB:      waveB,
		NameA:      "Go",
		NameB:      "Python",
		MaskA:      frames.Rasterize(segA, 4, 0.01),
		MaskB:      frames.Rasterize(segB, 4, 0.01),
		FrameSize:  0.01,
		EnvA:       audio.RMS(waveA, rate, audio.DefaultWindow, audio.DefaultHop),
		EnvB:       audio.RMS(waveB, rate, audio.DefaultWindow, audio.DefaultHop),
		ThresholdA: 0.009,
		ThresholdB: 0.001,
	}
}

func TestRenderChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comparison.png")
	opts := DefaultChartOptions()
	opts.Width, opts.Height, opts.DPI = opts.Width/2, opts.Height/2, 50

	if err := RenderChart(path, chartFixture(), opts); err != nil {
		t.Fatalf("RenderChart failed: %v", err)
	}
	assertPNG(t, path)

	detail := filepath.Join(t.TempDir(), "detail.png")
	opts.From, opts.To = 1.5, 3.2
	if err := RenderChart(detail, chartFixture(), opts); err != nil {
		t.Fatalf("RenderChart detail failed: %v", err)
	}
	assertPNG(t, detail)

	opts.From, opts.To = 3, 2
	if err := RenderChart(detail, chartFixture(), opts); err == nil {
		t.Error("Expected error for an empty window")
	}
}

func TestRenderChartUnwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "comparison.png")
	err := RenderChart(path, chartFixture(), DefaultChartOptions())
	var ioErr *models.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("Expected IOError, got %v", err)
	}
	if ioErr.Path != path {
		t.Errorf("Expected path %s, got %s", path, ioErr.Path)
	}
}

func TestRenderSpectrogram(t *testing.T) {
	data := chartFixture()
	path := filepath.Join(t.TempDir(), "spectrogram.png")
	clip := &audio.Clip{Samples: data.Original, SampleRate: data.SampleRate}
	if err := RenderSpectrogram(path, clip, SpectrogramOptions{Width: 256, Height: 64}); err != nil {
		t.Fatalf("RenderSpectrogram failed: %v", err)
	}
	assertPNG(t, path)

	if err := RenderSpectrogram(path, &audio.Clip{SampleRate: 8000}, DefaultSpectrogramOptions()); err == nil {
		t.Error("Expected error for an empty clip")
	}
}

func TestDrawSpectrogramPlacesTone(t *testing.T) {
	const rate = 8000
	samples := make([]float64, rate)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*2000*float64(i)/rate)
	}
	opts := SpectrogramOptions{Width: 256, Height: 64}
	img := drawSpectrogram(&audio.Clip{Samples: samples, SampleRate: rate}, opts)

	// 2 kHz is half of Nyquist: bin 32 of 64, drawn on row 64-32.
	x := opts.Width / 2
	tone, _, _, _ := img.At(x, 32).RGBA()
	far, _, _, _ := img.At(x, 5).RGBA()
	if tone == 0 {
		t.Errorf("Expected energy on the 2 kHz row")
	}
	if far != 0 {
		t.Errorf("Expected no leakage 27 bins from the tone, got red=%d", far)
	}
}

func TestExportCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "csv")
	a := frames.Rasterize([]models.Segment{{Start: 0.5, End: 1.5}}, 2, 0.01)
	b := frames.Rasterize([]models.Segment{{Start: 0.5, End: 1.0}, {Start: 1.1, End: 1.5}}, 2, 0.01)
	aOnly, bOnly := compare.OneSided(a, b)

	files, err := ExportCSV(dir, 0.01,
		SideExport{Name: "Silero Go", Mask: a, OnlyRuns: compare.TopRuns(aOnly, 15)},
		SideExport{Name: "python", Mask: b, OnlyRuns: compare.TopRuns(bOnly, 15)},
	)
	if err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}
	if len(files) != 4 {
		t.Fatalf("Expected 4 files, got %+v", files)
	}

	want := map[string]string{
		"silero_go_segments.csv":  "start_sec,end_sec\n0.500,1.500\n",
		"silero_go_only_runs.csv": "start_sec,dur_ms\n1.000,100.000\n",
		"python_segments.csv":     "start_sec,end_sec\n0.500,1.000\n1.100,1.500\n",
		"python_only_runs.csv":    "start_sec,dur_ms\n",
	}
	for name, body := range want {
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("Missing %s: %v", name, err)
			continue
		}
		if string(got) != body {
			t.Errorf("%s: expected %q, got %q", name, body, got)
		}
	}
	for _, f := range files {
		if f.Size == 0 {
			t.Errorf("Expected a size for %s", f.Path)
		}
	}
}

func TestExportStemsDisambiguate(t *testing.T) {
	stems := exportStems([]SideExport{{Name: "VAD"}, {Name: "vad"}})
	if stems[0] != "vad_1" || stems[1] != "vad_2" {
		t.Errorf("Unexpected stems %v", stems)
	}
	if got := fileStem("  ++  "); got != "source" {
		t.Errorf("Expected fallback stem, got %q", got)
	}
}

func TestExportCSVUnwritable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := ExportCSV(filepath.Join(blocker, "csv"), 0.01, SideExport{Name: "a"})
	var ioErr *models.IOError
	if !errors.As(err, &ioErr) || ioErr.Op != "mkdir" {
		t.Errorf("Expected mkdir IOError, got %v", err)
	}
}

func TestEnvelopeXYsBoundsPoints(t *testing.T) {
	samples := make([]float64, 100000)
	samples[500] = 0.9
	xys := envelopeXYs(samples, 1000, window{from: 0, to: 100, columns: 100})
	if len(xys) > 200 {
		t.Errorf("Expected at most 200 points, got %d", len(xys))
	}
	var peak float64
	for _, p := range xys {
		peak = math.Max(peak, p.Y)
	}
	if peak != 0.9 {
		t.Errorf("Expected the peak to survive decimation, got %v", peak)
	}
}

func assertPNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open %s: %v", path, err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("%s is not a valid PNG: %v", path, err)
	}
}
