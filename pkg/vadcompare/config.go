package vadcompare

import (
	"io"
	"os"

	"github.com/himanishpuri/vadcompare/pkg/vadcompare/audio"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/compare"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/frames"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/segments"
)

// Window is a time range in seconds.
type Window struct {
	Start, End float64
}

type Config struct {
	FrameSize float64

	FormatA, FormatB       segments.Format
	NameA, NameB           string
	ThresholdA, ThresholdB float64

	Tolerance   float64 // segment pairing slack, seconds
	Factor      float64 // verdict factor
	AlignWindow float64 // ± search range for B's offset, seconds; 0 disables
	TopN        int
	ShowPairs   bool

	Detail      *Window
	Spectrogram bool
	// ExportDir receives per-side segment and one-sided run CSVs; empty disables.
	ExportDir string

	// AnalysisRate resamples all audio to this rate; 0 keeps the original's rate.
	AnalysisRate int
	TempDir      string
	HistoryPath  string

	// Inspector reads container metadata of the original; nil skips the check.
	Inspector audio.Inspector

	Output  io.Writer
	Logger  Logger
	Storage History
}

type Option func(*Config)

func WithFrameSize(seconds float64) Option {
	return func(c *Config) {
		c.FrameSize = seconds
	}
}

func WithFormats(a, b segments.Format) Option {
	return func(c *Config) {
		c.FormatA, c.FormatB = a, b
	}
}

func WithNames(a, b string) Option {
	return func(c *Config) {
		if a != "" {
			c.NameA = a
		}
		if b != "" {
			c.NameB = b
		}
	}
}

// WithThresholds sets the RMS silence thresholds used for WAV sources.
func WithThresholds(a, b float64) Option {
	return func(c *Config) {
		c.ThresholdA, c.ThresholdB = a, b
	}
}

func WithTolerance(seconds float64) Option {
	return func(c *Config) {
		c.Tolerance = seconds
	}
}

func WithFactor(factor float64) Option {
	return func(c *Config) {
		c.Factor = factor
	}
}

func WithAlignWindow(seconds float64) Option {
	return func(c *Config) {
		c.AlignWindow = seconds
	}
}

func WithTopRuns(n int) Option {
	return func(c *Config) {
		c.TopN = n
	}
}

func WithSegmentPairs(show bool) Option {
	return func(c *Config) {
		c.ShowPairs = show
	}
}

// WithDetail adds a zoomed chart of [start, end] next to the main image.
func WithDetail(start, end float64) Option {
	return func(c *Config) {
		c.Detail = &Window{Start: start, End: end}
	}
}

func WithSpectrogram(enabled bool) Option {
	return func(c *Config) {
		c.Spectrogram = enabled
	}
}

// WithExportDir writes <name>_segments.csv and <name>_only_runs.csv for
// both sources into dir.
func WithExportDir(dir string) Option {
	return func(c *Config) {
		c.ExportDir = dir
	}
}

func WithAnalysisRate(rate int) Option {
	return func(c *Config) {
		c.AnalysisRate = rate
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

// WithHistoryPath enables run history in the SQLite database at path.
func WithHistoryPath(path string) Option {
	return func(c *Config) {
		c.HistoryPath = path
	}
}

func WithOutput(w io.Writer) Option {
	return func(c *Config) {
		c.Output = w
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithInspector replaces the ffprobe lookup run against the original audio.
func WithInspector(inspect audio.Inspector) Option {
	return func(c *Config) {
		c.Inspector = inspect
	}
}

func WithStorage(storage History) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func defaultConfig() *Config {
	return &Config{
		FrameSize:  frames.DefaultFrameSize,
		FormatA:    segments.Auto,
		FormatB:    segments.Auto,
		NameA:      "A",
		NameB:      "B",
		ThresholdA: audio.DefaultSilenceThreshold,
		ThresholdB: audio.DefaultSilenceThreshold,
		Tolerance:  compare.DefaultTolerance,
		Factor:     compare.DefaultFactor,
		TopN:       15,
		TempDir:    os.TempDir(),
		Inspector:  audio.FFprobe,
		Output:     os.Stdout,
	}
}
