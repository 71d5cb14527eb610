package vadcompare

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/himanishpuri/vadcompare/pkg/logger"
	"github.com/himanishpuri/vadcompare/pkg/models"
	"github.com/himanishpuri/vadcompare/pkg/utils"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/audio"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/compare"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/frames"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/report"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/segments"
)

// ErrNoHistory is returned by History when no run database is configured.
var ErrNoHistory = errors.New("run history is not enabled")

// compareService is the default implementation of the Service interface.
type compareService struct {
	storage History
	log     Logger
	config  *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.FrameSize <= 0 || math.IsNaN(cfg.FrameSize) || math.IsInf(cfg.FrameSize, 0) {
		return nil, fmt.Errorf("frame size must be a positive number of seconds, got %v", cfg.FrameSize)
	}
	if cfg.Detail != nil && cfg.Detail.End <= cfg.Detail.Start {
		return nil, fmt.Errorf("detail window end %.2f must be after start %.2f", cfg.Detail.End, cfg.Detail.Start)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	stor := cfg.Storage
	if stor == nil && cfg.HistoryPath != "" {
		var err error
		stor, err = NewSQLiteHistory(cfg.HistoryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
	}

	return &compareService{
		storage: stor,
		log:     cfg.Logger,
		config:  cfg,
	}, nil
}

// side is one label source resolved against the original audio.
type side struct {
	name      string
	source    *segments.Source
	wave      []float64
	env       audio.Envelope
	threshold float64
	mask      frames.Mask
}

// Compare loads the original audio and both sources, rasterizes and compares
// them, prints the summary and renders the chart(s).
func (s *compareService) Compare(ctx context.Context, req Request) (*Report, error) {
	if req.AudioPath == "" || req.LabelsA == "" || req.LabelsB == "" || req.OutputImage == "" {
		return nil, errors.New("audio, both label sources and an output image path are required")
	}
	cfg := s.config

	// 1. Original audio
	s.log.Infof("Loading original audio: %s", req.AudioPath)
	original, input, err := s.loadOriginal(ctx, req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load original audio: %w", err)
	}
	s.log.Debugf("Original: %d samples at %d Hz (%.2fs)", len(original.Samples), original.SampleRate, original.Duration())

	// 2. Label sources
	a, err := s.loadSide(ctx, cfg.NameA, req.LabelsA, cfg.FormatA, cfg.ThresholdA, original)
	if err != nil {
		return nil, err
	}
	b, err := s.loadSide(ctx, cfg.NameB, req.LabelsB, cfg.FormatB, cfg.ThresholdB, original)
	if err != nil {
		return nil, err
	}

	// 3. Rasterize
	duration := original.Duration()
	for _, sd := range []*side{a, b} {
		sd.mask = frames.Rasterize(sd.source.Segments, math.Max(duration, sd.source.End()), cfg.FrameSize)
		s.log.Debugf("%s: %d segments, %d/%d voice frames", sd.name, len(sd.source.Segments), sd.mask.Count(), len(sd.mask))
	}

	// 4. Align B against A
	shift := 0
	if cfg.AlignWindow > 0 {
		maxShift := int(math.Round(cfg.AlignWindow / cfg.FrameSize))
		shift = frames.BestOffset(a.mask, b.mask, maxShift)
		s.log.Infof("Best offset for %s: %d frames (%.0f ms)", b.name, shift, float64(shift)*cfg.FrameSize*1000)
		b.mask = b.mask.Shift(shift)
	}

	// 5. Compare
	result := compare.Compare(a.mask, b.mask)
	if result.Padded() {
		s.log.Warnf("Durations differ: padded %s with %d and %s with %d silent frames",
			a.name, result.PaddedA, b.name, result.PaddedB)
	}
	aOnly, bOnly := compare.OneSided(a.mask, b.mask)

	summary := &report.Summary{
		Duration:    float64(result.Frames) * cfg.FrameSize,
		FrameSize:   cfg.FrameSize,
		Input:       input,
		A:           sourceInfo(a),
		B:           sourceInfo(b),
		Result:      result,
		Factor:      cfg.Factor,
		ShiftFrames: shift,
		AlignSearch: cfg.AlignWindow > 0,
		TopA:        compare.TopRuns(aOnly, cfg.TopN),
		TopB:        compare.TopRuns(bOnly, cfg.TopN),
	}
	if cfg.ShowPairs {
		m := compare.MatchSegments(a.source.Segments, b.source.Segments, cfg.Tolerance)
		summary.Matching = &m
	}

	// 6. Images
	images, err := s.render(req.OutputImage, original, a, b)
	if err != nil {
		return nil, err
	}
	summary.Images = images

	if cfg.ExportDir != "" {
		exports, err := report.ExportCSV(cfg.ExportDir, cfg.FrameSize,
			report.SideExport{Name: a.name, Mask: a.mask, OnlyRuns: summary.TopA},
			report.SideExport{Name: b.name, Mask: b.mask, OnlyRuns: summary.TopB},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to export CSV: %w", err)
		}
		for i := range exports {
			exports[i].Path = absPath(exports[i].Path)
		}
		summary.Exports = exports
		s.log.Infof("Exported %d CSV files to %s", len(exports), cfg.ExportDir)
	}

	if err := report.WriteSummary(cfg.Output, summary); err != nil {
		return nil, fmt.Errorf("failed to write summary: %w", err)
	}

	rep := &Report{
		Result:      result,
		ShiftFrames: shift,
		Matching:    summary.Matching,
		Summary:     summary,
		Images:      images,
		Exports:     summary.Exports,
	}

	// 7. History
	if s.storage != nil {
		id, err := s.storage.RecordRun(models.Run{
			AudioPath:   absPath(req.AudioPath),
			SourceA:     absPath(req.LabelsA),
			SourceB:     absPath(req.LabelsB),
			FrameSize:   cfg.FrameSize,
			Frames:      result.Frames,
			BothVoice:   result.BothVoice,
			BothSilence: result.BothSilence,
			AOnly:       result.AOnly,
			BOnly:       result.BOnly,
			PaddedA:     result.PaddedA,
			PaddedB:     result.PaddedB,
			ShiftFrames: shift,
			CreatedAt:   time.Now(),
		})
		if err != nil {
			return rep, fmt.Errorf("failed to record run: %w", err)
		}
		rep.RunID = id
		s.log.Infof("Recorded run %s", id)
	}

	return rep, nil
}

func (s *compareService) loadOriginal(ctx context.Context, path string) (*audio.Clip, report.InputInfo, error) {
	input := report.InputInfo{Path: path}

	var media *audio.MediaInfo
	if s.config.Inspector != nil {
		info, err := s.config.Inspector(ctx, path)
		if err != nil {
			s.log.Debugf("Skipping container check for %s: %v", path, err)
		} else {
			media = info
			input.Media = info.String()
			s.log.Debugf("Input %s: %s", filepath.Base(path), input.Media)
		}
	}

	clip, err := audio.Load(ctx, path, s.config.TempDir)
	if err != nil {
		return nil, input, err
	}
	input.Decoded = clip.Duration()

	if media != nil {
		if drift := media.DurationDrift(input.Decoded); drift > s.config.FrameSize {
			input.Drift = drift
			s.log.Warnf("%s: container reports %.3fs but %.3fs decoded (off by %.0f ms)",
				filepath.Base(path), media.Duration, input.Decoded, drift*1000)
		}
	}

	if rate := s.config.AnalysisRate; rate > 0 && rate != clip.SampleRate {
		s.log.Infof("Resampling original from %d to %d Hz", clip.SampleRate, rate)
		clip, err = audio.Resample(clip, rate)
		return clip, input, err
	}
	return clip, input, nil
}

func (s *compareService) loadSide(ctx context.Context, name, path string, format segments.Format, threshold float64, original *audio.Clip) (*side, error) {
	sd := &side{name: name, threshold: threshold}
	format = format.Resolve(path)

	if format == segments.WAV {
		clip, err := audio.Load(ctx, path, s.config.TempDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", name, err)
		}
		if clip.SampleRate != original.SampleRate {
			s.log.Warnf("Different sample rates: original %d Hz, %s %d Hz; resampling", original.SampleRate, name, clip.SampleRate)
			if clip, err = audio.Resample(clip, original.SampleRate); err != nil {
				return nil, fmt.Errorf("failed to resample %s: %w", name, err)
			}
		}
		sd.wave = audio.PadTo(clip.Samples, len(original.Samples))
		sd.env = audio.RMS(sd.wave, original.SampleRate, audio.DefaultWindow, audio.DefaultHop)
		lo, med, hi := sd.env.Stats()
		s.log.Debugf("%s RMS min/med/max = %.5f/%.5f/%.3f, threshold %g", name, lo, med, hi, threshold)

		segs, merged := segments.Normalize(sd.env.Segments(threshold))
		sd.source = &segments.Source{Path: path, Format: format, Segments: segs, Merged: merged}
		return sd, nil
	}

	src, err := segments.Load(path, format)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s labels: %w", name, err)
	}
	if src.Merged > 0 {
		s.log.Warnf("%s: merged %d overlapping segments", name, src.Merged)
	}
	if len(src.Segments) == 0 {
		s.log.Warnf("%s: no voice segments in %s", name, path)
	}
	sd.source = src
	sd.wave = audio.Gate(original.Samples, original.SampleRate, src.Segments)
	sd.env = audio.RMS(sd.wave, original.SampleRate, audio.DefaultWindow, audio.DefaultHop)
	return sd, nil
}

func (s *compareService) render(out string, original *audio.Clip, a, b *side) ([]report.Image, error) {
	cfg := s.config
	data := &report.ChartData{
		SampleRate: original.SampleRate,
		Original:   original.Samples,
		WaveA:      a.wave,
		WaveB:      b.wave,
		NameA:      a.name,
		NameB:      b.name,
		MaskA:      a.mask,
		MaskB:      b.mask,
		FrameSize:  cfg.FrameSize,
		EnvA:       a.env,
		EnvB:       b.env,
		ThresholdA: a.threshold,
		ThresholdB: b.threshold,
	}

	var images []report.Image
	add := func(label, path string) {
		img := report.Image{Label: label, Path: absPath(path)}
		if info, err := os.Stat(path); err == nil {
			img.Size = info.Size()
		}
		images = append(images, img)
		s.log.Infof("Saved %s to %s", label, img.Path)
	}

	s.log.Infof("Rendering chart: %s", out)
	if err := report.RenderChart(out, data, report.DefaultChartOptions()); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	add("chart", out)

	if cfg.Detail != nil {
		path := utils.SiblingPath(out, "_detail")
		opts := report.DefaultChartOptions()
		opts.From, opts.To = cfg.Detail.Start, cfg.Detail.End
		if err := report.RenderChart(path, data, opts); err != nil {
			return nil, fmt.Errorf("failed to render detail chart: %w", err)
		}
		add("detail chart", path)
	}

	if cfg.Spectrogram {
		path := utils.SiblingPath(out, "_spectrogram")
		if err := report.RenderSpectrogram(path, original, report.DefaultSpectrogramOptions()); err != nil {
			return nil, fmt.Errorf("failed to render spectrogram: %w", err)
		}
		add("spectrogram", path)
	}
	return images, nil
}

// History lists recorded runs, newest first.
func (s *compareService) History(limit int) ([]models.Run, error) {
	if s.storage == nil {
		return nil, ErrNoHistory
	}
	return s.storage.ListRuns(limit)
}

func (s *compareService) Close() error {
	if s.storage == nil {
		return nil
	}
	return s.storage.Close()
}

func sourceInfo(sd *side) report.SourceInfo {
	return report.SourceInfo{
		Name:         sd.name,
		Path:         sd.source.Path,
		Format:       string(sd.source.Format),
		Segments:     len(sd.source.Segments),
		VoiceSeconds: sd.source.VoiceSeconds(),
		Merged:       sd.source.Merged,
	}
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
