// Package config loads the optional vadcompare TOML file and turns it into
// service options.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/himanishpuri/vadcompare/pkg/logger"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/audio"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/compare"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/frames"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/segments"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/storage"
)

// EnvTempDir overrides the scratch directory used for ffmpeg conversions.
const EnvTempDir = "VADCOMPARE_TEMP_DIR"

type Frames struct {
	// Size is the analysis frame length in seconds. Default: 0.01
	Size float64 `toml:"size"`
}

// Sources describes the two label sources being compared.
type Sources struct {
	FormatA string `toml:"format_a"`
	FormatB string `toml:"format_b"`
	NameA   string `toml:"name_a"`
	NameB   string `toml:"name_b"`
	// RMS silence thresholds applied when a source is a filtered WAV.
	ThresholdA float64 `toml:"threshold_a"`
	ThresholdB float64 `toml:"threshold_b"`
}

type Compare struct {
	ToleranceMS float64 `toml:"tolerance_ms"`
	Factor      float64 `toml:"factor"`
	// AlignMS is the ± offset search range for source B; 0 disables alignment.
	AlignMS float64 `toml:"align_ms"`
	Top     int     `toml:"top"`
	Pairs   bool    `toml:"pairs"`
}

type Output struct {
	Spectrogram bool `toml:"spectrogram"`
	// Detail window, seconds. Ignored unless DetailEnd > DetailStart.
	DetailStart float64 `toml:"detail_start"`
	DetailEnd   float64 `toml:"detail_end"`
	// ExportDir receives per-side segment and run CSVs; empty disables export.
	ExportDir string `toml:"export_dir"`
}

type Audio struct {
	// Rate resamples the original before analysis; 0 keeps its own rate.
	Rate    int    `toml:"rate"`
	TempDir string `toml:"temp_dir"`
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Logging struct {
	Level string `toml:"level"`
}

// Config mirrors the TOML file layout.
//
// Sections:
//   - frames: rasterization frame size
//   - sources: per-side format, display name and WAV threshold
//   - compare: verdict factor, pairing tolerance, alignment, run listing
//   - output: extra images and CSV export
//   - audio: resampling and scratch space
//   - history: SQLite run history
//   - logging: log level
type Config struct {
	Frames  Frames  `toml:"frames"`
	Sources Sources `toml:"sources"`
	Compare Compare `toml:"compare"`
	Output  Output  `toml:"output"`
	Audio   Audio   `toml:"audio"`
	History History `toml:"history"`
	Logging Logging `toml:"logging"`
}

// Default returns the built-in configuration.
func Default() Config {
	cfg := Config{
		Frames: Frames{Size: frames.DefaultFrameSize},
		Sources: Sources{
			FormatA:    string(segments.Auto),
			FormatB:    string(segments.Auto),
			NameA:      "A",
			NameB:      "B",
			ThresholdA: audio.DefaultSilenceThreshold,
			ThresholdB: audio.DefaultSilenceThreshold,
		},
		Compare: Compare{
			ToleranceMS: compare.DefaultTolerance * 1000,
			Factor:      compare.DefaultFactor,
			Top:         15,
		},
		Audio:   Audio{TempDir: os.TempDir()},
		History: History{Path: defaultHistoryPath()},
		Logging: Logging{Level: "info"},
	}
	if dir := strings.TrimSpace(os.Getenv(EnvTempDir)); dir != "" {
		cfg.Audio.TempDir = dir
	}
	return cfg
}

// Load reads path over the defaults. An empty path returns the defaults;
// a named file that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, cfg.Validate()
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file %s does not exist", path)
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.History.Path, err = expandPath(cfg.History.Path); err != nil {
		return nil, err
	}
	if cfg.Audio.TempDir, err = expandPath(cfg.Audio.TempDir); err != nil {
		return nil, err
	}
	if cfg.Output.ExportDir, err = expandPath(cfg.Output.ExportDir); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and format names.
func (c *Config) Validate() error {
	if c.Frames.Size <= 0 {
		return fmt.Errorf("frames.size must be positive, got %v", c.Frames.Size)
	}
	if _, err := segments.ParseFormat(c.Sources.FormatA); err != nil {
		return fmt.Errorf("sources.format_a: %w", err)
	}
	if _, err := segments.ParseFormat(c.Sources.FormatB); err != nil {
		return fmt.Errorf("sources.format_b: %w", err)
	}
	if c.Sources.ThresholdA < 0 || c.Sources.ThresholdB < 0 {
		return errors.New("sources thresholds must not be negative")
	}
	if c.Compare.Factor < 1 {
		return fmt.Errorf("compare.factor must be at least 1, got %v", c.Compare.Factor)
	}
	if c.Compare.ToleranceMS < 0 || c.Compare.AlignMS < 0 {
		return errors.New("compare.tolerance_ms and compare.align_ms must not be negative")
	}
	if c.Compare.Top < 0 {
		return fmt.Errorf("compare.top must not be negative, got %d", c.Compare.Top)
	}
	if c.Output.DetailEnd != 0 && c.Output.DetailEnd <= c.Output.DetailStart {
		return fmt.Errorf("output.detail_end %.2f must be after detail_start %.2f", c.Output.DetailEnd, c.Output.DetailStart)
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Audio.Rate < 0 {
		return fmt.Errorf("audio.rate must not be negative, got %d", c.Audio.Rate)
	}
	return nil
}

// Options converts the configuration into service options.
func (c *Config) Options() ([]vadcompare.Option, error) {
	formatA, err := segments.ParseFormat(c.Sources.FormatA)
	if err != nil {
		return nil, err
	}
	formatB, err := segments.ParseFormat(c.Sources.FormatB)
	if err != nil {
		return nil, err
	}

	opts := []vadcompare.Option{
		vadcompare.WithFrameSize(c.Frames.Size),
		vadcompare.WithFormats(formatA, formatB),
		vadcompare.WithNames(c.Sources.NameA, c.Sources.NameB),
		vadcompare.WithThresholds(c.Sources.ThresholdA, c.Sources.ThresholdB),
		vadcompare.WithTolerance(c.Compare.ToleranceMS / 1000),
		vadcompare.WithFactor(c.Compare.Factor),
		vadcompare.WithAlignWindow(c.Compare.AlignMS / 1000),
		vadcompare.WithTopRuns(c.Compare.Top),
		vadcompare.WithSegmentPairs(c.Compare.Pairs),
		vadcompare.WithSpectrogram(c.Output.Spectrogram),
		vadcompare.WithAnalysisRate(c.Audio.Rate),
		vadcompare.WithTempDir(c.Audio.TempDir),
	}
	if c.Output.DetailEnd > c.Output.DetailStart {
		opts = append(opts, vadcompare.WithDetail(c.Output.DetailStart, c.Output.DetailEnd))
	}
	if c.Output.ExportDir != "" {
		opts = append(opts, vadcompare.WithExportDir(c.Output.ExportDir))
	}
	if c.History.Enabled {
		opts = append(opts, vadcompare.WithHistoryPath(c.History.Path))
	}
	return opts, nil
}

// ParseWindow parses "START,END" in seconds.
func ParseWindow(value string) (start, end float64, err error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("window %q: want START,END", value)
	}
	if start, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err != nil {
		return 0, 0, fmt.Errorf("window %q: invalid start: %w", value, err)
	}
	if end, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err != nil {
		return 0, 0, fmt.Errorf("window %q: invalid end: %w", value, err)
	}
	if start < 0 || end <= start {
		return 0, 0, fmt.Errorf("window %q: need 0 <= START < END", value)
	}
	return start, end, nil
}

func defaultHistoryPath() string {
	if path := storage.PathFromEnv(); path != "" {
		return path
	}
	if base, ok := os.LookupEnv("XDG_DATA_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "vadcompare", "history.sqlite3")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "vadcompare_history.sqlite3"
	}
	return filepath.Join(home, ".local", "share", "vadcompare", "history.sqlite3")
}

// ExpandPath resolves a leading ~ and makes the path absolute.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if path == "~" {
			path = home
		} else if len(path) > 1 && (path[1] == '/' || path[1] == '\\') {
			path = filepath.Join(home, path[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", path, err)
	}
	return absolute, nil
}
