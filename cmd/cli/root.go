package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/vadcompare/internal/config"
	"github.com/himanishpuri/vadcompare/pkg/logger"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare"
)

const runTimeout = 5 * time.Minute

// rootFlags holds the values of every comparison flag. A flag only overrides
// the config file when it was set on the command line.
type rootFlags struct {
	configPath string
	logLevel   string
	dbPath     string

	frame       float64
	formatA     string
	formatB     string
	nameA       string
	nameB       string
	thresholdA  float64
	thresholdB  float64
	toleranceMS float64
	factor      float64
	alignMS     float64
	top         int
	pairs       bool
	detail      string
	spectrogram bool
	exportDir   string
	history     bool
	tempDir     string
	rate        int
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "vadcompare <original_audio> <labels_a> <labels_b> <output_image>",
		Short: "Compare two voice activity detection results frame by frame",
		Long: `vadcompare rasterizes two VAD segment lists onto a shared frame grid,
prints agreement statistics and renders a comparison chart.

Label sources may be "start end" text files, VAD console logs, JSON segment
lists or VAD-filtered WAV files.`,
		Args:          cobra.ExactArgs(4),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return applyLogLevel(flags)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, flags, args)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Configuration file path (TOML)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error (env: LOG_LEVEL)")
	pf.StringVar(&flags.dbPath, "db", "", "Run history database (env: VADCOMPARE_DB_PATH)")

	f := rootCmd.Flags()
	f.Float64Var(&flags.frame, "frame", 0.01, "Frame size in seconds")
	f.StringVar(&flags.formatA, "format-a", "auto", "Format of source A: auto, labels, log, json, wav")
	f.StringVar(&flags.formatB, "format-b", "auto", "Format of source B: auto, labels, log, json, wav")
	f.StringVar(&flags.nameA, "name-a", "A", "Display name of source A")
	f.StringVar(&flags.nameB, "name-b", "B", "Display name of source B")
	f.Float64Var(&flags.thresholdA, "threshold-a", 0.001, "RMS silence threshold when source A is a WAV")
	f.Float64Var(&flags.thresholdB, "threshold-b", 0.001, "RMS silence threshold when source B is a WAV")
	f.Float64Var(&flags.toleranceMS, "tolerance-ms", 50, "Boundary tolerance for segment pairing, milliseconds")
	f.Float64Var(&flags.factor, "factor", 3, "Ratio of one-sided frames needed to call a side more aggressive")
	f.Float64Var(&flags.alignMS, "align-ms", 0, "Search ± this many milliseconds for B's best offset (0 disables)")
	f.IntVar(&flags.top, "top", 15, "Longest one-sided runs to list per side")
	f.BoolVar(&flags.pairs, "pairs", false, "Print the index-paired segment comparison")
	f.StringVar(&flags.detail, "detail", "", "Also render a zoomed chart of START,END seconds")
	f.BoolVar(&flags.spectrogram, "spectrogram", false, "Also render a spectrogram of the original")
	f.StringVar(&flags.exportDir, "export-dir", "", "Write per-side segment and one-sided run CSVs into this directory")
	f.BoolVar(&flags.history, "history", false, "Record the run in the history database")
	f.StringVar(&flags.tempDir, "temp", "", "Directory for temporary audio conversion files (env: VADCOMPARE_TEMP_DIR)")
	f.IntVar(&flags.rate, "rate", 0, "Resample the original to this rate before analysis (0 keeps it)")

	rootCmd.AddCommand(newHistoryCommand(flags))

	return rootCmd
}

func applyLogLevel(flags *rootFlags) error {
	name := strings.TrimSpace(flags.logLevel)
	if name == "" {
		return nil
	}
	level, err := logger.ParseLevel(name)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	return nil
}

// loadConfig reads the config file (if any) and lays changed flags over it.
func loadConfig(cmd *cobra.Command, flags *rootFlags) (*config.Config, error) {
	cfg, err := config.Load(strings.TrimSpace(flags.configPath))
	if err != nil {
		return nil, err
	}
	if flags.configPath != "" && flags.logLevel == "" {
		if level, err := logger.ParseLevel(cfg.Logging.Level); err == nil {
			logger.SetLevel(level)
		}
	}

	set := cmd.Flags().Changed
	if set("frame") {
		cfg.Frames.Size = flags.frame
	}
	if set("format-a") {
		cfg.Sources.FormatA = flags.formatA
	}
	if set("format-b") {
		cfg.Sources.FormatB = flags.formatB
	}
	if set("name-a") {
		cfg.Sources.NameA = flags.nameA
	}
	if set("name-b") {
		cfg.Sources.NameB = flags.nameB
	}
	if set("threshold-a") {
		cfg.Sources.ThresholdA = flags.thresholdA
	}
	if set("threshold-b") {
		cfg.Sources.ThresholdB = flags.thresholdB
	}
	if set("tolerance-ms") {
		cfg.Compare.ToleranceMS = flags.toleranceMS
	}
	if set("factor") {
		cfg.Compare.Factor = flags.factor
	}
	if set("align-ms") {
		cfg.Compare.AlignMS = flags.alignMS
	}
	if set("top") {
		cfg.Compare.Top = flags.top
	}
	if set("pairs") {
		cfg.Compare.Pairs = flags.pairs
	}
	if set("detail") {
		start, end, err := config.ParseWindow(flags.detail)
		if err != nil {
			return nil, fmt.Errorf("--detail: %w", err)
		}
		cfg.Output.DetailStart, cfg.Output.DetailEnd = start, end
	}
	if set("spectrogram") {
		cfg.Output.Spectrogram = flags.spectrogram
	}
	if set("export-dir") {
		cfg.Output.ExportDir = flags.exportDir
	}
	if set("history") {
		cfg.History.Enabled = flags.history
	}
	if set("temp") {
		cfg.Audio.TempDir = flags.tempDir
	}
	if set("rate") {
		cfg.Audio.Rate = flags.rate
	}
	if flags.dbPath != "" {
		cfg.History.Path = flags.dbPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runCompare(cmd *cobra.Command, flags *rootFlags, args []string) error {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	opts = append(opts, vadcompare.WithOutput(cmd.OutOrStdout()))

	svc, err := vadcompare.NewService(opts...)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	_, err = svc.Compare(ctx, vadcompare.Request{
		AudioPath:   args[0],
		LabelsA:     args[1],
		LabelsB:     args[2],
		OutputImage: args[3],
	})
	return err
}
