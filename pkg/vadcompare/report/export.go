package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/himanishpuri/vadcompare/pkg/models"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/frames"
)

// SideExport is what ExportCSV writes for one source: its rasterized
// segments and its longest one-sided runs.
type SideExport struct {
	Name     string
	Mask     frames.Mask
	OnlyRuns []frames.Run
}

// ExportCSV writes <name>_segments.csv (start_sec,end_sec) and
// <name>_only_runs.csv (start_sec,dur_ms) for each side into dir.
func ExportCSV(dir string, frameSize float64, sides ...SideExport) ([]Image, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &models.IOError{Op: "mkdir", Path: dir, Err: err}
	}

	stems := exportStems(sides)
	var files []Image
	for i, sd := range sides {
		segRows := [][]string{{"start_sec", "end_sec"}}
		for _, seg := range sd.Mask.ToSegments(frameSize) {
			segRows = append(segRows, []string{decimal3(seg.Start), decimal3(seg.End)})
		}
		runRows := [][]string{{"start_sec", "dur_ms"}}
		for _, run := range sd.OnlyRuns {
			runRows = append(runRows, []string{
				decimal3(float64(run.Start) * frameSize),
				decimal3(float64(run.Length) * frameSize * 1000),
			})
		}

		for _, out := range []struct {
			label string
			path  string
			rows  [][]string
		}{
			{sd.Name + " segments", filepath.Join(dir, stems[i]+"_segments.csv"), segRows},
			{sd.Name + " only runs", filepath.Join(dir, stems[i]+"_only_runs.csv"), runRows},
		} {
			size, err := writeCSV(out.path, out.rows)
			if err != nil {
				return files, err
			}
			files = append(files, Image{Label: out.label, Path: out.path, Size: size})
		}
	}
	return files, nil
}

func writeCSV(path string, rows [][]string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, &models.IOError{Op: "create", Path: path, Err: err}
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return 0, &models.IOError{Op: "write", Path: path, Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		return 0, &models.IOError{Op: "stat", Path: path, Err: err}
	}
	return info.Size(), nil
}

func decimal3(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

// exportStems turns display names into file name stems. Sides that end up
// with the same stem get their position appended.
func exportStems(sides []SideExport) []string {
	stems := make([]string, len(sides))
	seen := make(map[string]int)
	for i, sd := range sides {
		stems[i] = fileStem(sd.Name)
		seen[stems[i]]++
	}
	for i := range stems {
		if seen[stems[i]] > 1 {
			stems[i] = fmt.Sprintf("%s_%d", stems[i], i+1)
		}
	}
	return stems
}

func fileStem(name string) string {
	stem := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return '_'
	}, strings.TrimSpace(name))
	stem = strings.Trim(stem, "_")
	if stem == "" {
		return "source"
	}
	return stem
}
