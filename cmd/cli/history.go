package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/vadcompare/internal/config"
	"github.com/himanishpuri/vadcompare/pkg/models"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/compare"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/report"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/storage"
)

func newHistoryCommand(flags *rootFlags) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded comparison runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := historyPath(flags)
			if err != nil {
				return err
			}
			svc, err := vadcompare.NewService(
				vadcompare.WithHistoryPath(path),
				vadcompare.WithOutput(cmd.OutOrStdout()),
			)
			if err != nil {
				return err
			}
			defer svc.Close()

			runs, err := svc.History(limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintf(out, "No runs recorded in %s\n", path)
				return nil
			}
			fmt.Fprintln(out, renderRuns(runs))
			return nil
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")

	historyCmd.AddCommand(newHistoryDeleteCommand(flags))
	return historyCmd
}

func newHistoryDeleteCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run_id>",
		Short: "Delete a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := historyPath(flags)
			if err != nil {
				return err
			}
			db, err := storage.NewDBClientWithPath(path)
			if err != nil {
				return err
			}
			defer db.Close()

			run, err := db.GetRun(args[0])
			if err != nil {
				return err
			}
			if err := db.DeleteRun(run.ID); err != nil {
				return fmt.Errorf("delete run %s: %w", run.ID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s (%s)\n", run.ID, filepath.Base(run.AudioPath))
			return nil
		},
	}
}

func historyPath(flags *rootFlags) (string, error) {
	if flags.dbPath != "" {
		return config.ExpandPath(flags.dbPath)
	}
	cfg, err := config.Load(strings.TrimSpace(flags.configPath))
	if err != nil {
		return "", err
	}
	return cfg.History.Path, nil
}

func renderRuns(runs []models.Run) string {
	headers := []string{"Run", "When", "Audio", "A", "B", "Frames", "Agree", "A only", "B only", "Shift"}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		r := compare.Result{
			Frames:      run.Frames,
			BothVoice:   run.BothVoice,
			BothSilence: run.BothSilence,
			AOnly:       run.AOnly,
			BOnly:       run.BOnly,
		}
		agree := r.Percent(r.BothVoice + r.BothSilence)
		rows = append(rows, []string{
			run.ID,
			humanize.Time(run.CreatedAt),
			filepath.Base(run.AudioPath),
			filepath.Base(run.SourceA),
			filepath.Base(run.SourceB),
			humanize.Comma(int64(run.Frames)),
			strconv.FormatFloat(agree, 'f', 1, 64) + "%",
			humanize.Comma(int64(run.AOnly)),
			humanize.Comma(int64(run.BOnly)),
			strconv.Itoa(run.ShiftFrames),
		})
	}
	return report.RenderTable(headers, rows, 5, 6, 7, 8, 9)
}

