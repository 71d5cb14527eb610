package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/himanishpuri/vadcompare/pkg/vadcompare/audio"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/storage"
)

type cliFixture struct {
	dir    string
	audio  string
	labelA string
	labelB string
	out    string
}

func setupCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	dir := t.TempDir()

	const rate = 8000
	samples := make([]float64, 2*rate)
	for i := rate / 2; i < 3*rate/2; i++ {
		samples[i] = 0.4 * math.Sin(2*math.Pi*250*float64(i)/rate)
	}

	f := &cliFixture{
		dir:    dir,
		audio:  filepath.Join(dir, "original.wav"),
		labelA: filepath.Join(dir, "go_output.txt"),
		labelB: filepath.Join(dir, "python_output.txt"),
		out:    filepath.Join(dir, "comparison.png"),
	}
	if err := audio.WriteWav(f.audio, &audio.Clip{Samples: samples, SampleRate: rate}); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	writeFile(t, f.labelA, "0.5 1.5\n")
	writeFile(t, f.labelB, "0.5 1.0\n1.1 1.5\n")
	return f
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func (f *cliFixture) args(extra ...string) []string {
	return append([]string{"--log-level", "error", f.audio, f.labelA, f.labelB, f.out}, extra...)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootRequiresFourArgs(t *testing.T) {
	if _, err := execute(t, "a.wav", "b.txt"); err == nil {
		t.Fatal("expected an error for missing arguments")
	}
}

func TestCompareCommandWritesSummaryAndChart(t *testing.T) {
	t.Setenv(storage.EnvDBPath, "")
	f := setupCLIFixture(t)

	out, err := execute(t, f.args("--name-a", "go", "--name-b", "python", "--pairs", "--detail", "0.4,1.2")...)
	if err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	for _, want := range []string{"VAD Comparison Results", "go", "python"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	for _, path := range []string{f.out, filepath.Join(f.dir, "comparison_detail.png")} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected %s: %v", path, err)
		}
	}
}

func TestCompareCommandExportDir(t *testing.T) {
	t.Setenv(storage.EnvDBPath, "")
	f := setupCLIFixture(t)
	dir := filepath.Join(f.dir, "csv")

	if _, err := execute(t, f.args("--name-a", "go", "--name-b", "python", "--export-dir", dir)...); err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	for _, name := range []string{"go_segments.csv", "go_only_runs.csv", "python_segments.csv", "python_only_runs.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
}

func TestCompareCommandRejectsBadDetail(t *testing.T) {
	f := setupCLIFixture(t)
	_, err := execute(t, f.args("--detail", "3,1")...)
	if err == nil || !strings.Contains(err.Error(), "--detail") {
		t.Fatalf("expected --detail error, got %v", err)
	}
}

func TestCompareCommandMissingLabels(t *testing.T) {
	f := setupCLIFixture(t)
	_, err := execute(t, "--log-level", "error", f.audio, filepath.Join(f.dir, "nope.txt"), f.labelB, f.out)
	if err == nil {
		t.Fatal("expected error for missing label file")
	}
	if _, statErr := os.Stat(f.out); statErr == nil {
		t.Error("chart should not be written when a source fails to load")
	}
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	f := setupCLIFixture(t)
	cfgPath := filepath.Join(f.dir, "vadcompare.toml")
	writeFile(t, cfgPath, "[sources]\nname_a = \"from-file\"\nname_b = \"also-file\"\n")

	out, err := execute(t, f.args("--config", cfgPath, "--name-b", "from-flag")...)
	if err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	if !strings.Contains(out, "from-file") || !strings.Contains(out, "from-flag") {
		t.Errorf("expected file and flag names in summary:\n%s", out)
	}
	if strings.Contains(out, "also-file") {
		t.Errorf("flag should override name_b from the config file:\n%s", out)
	}
}

func TestHistoryCommands(t *testing.T) {
	f := setupCLIFixture(t)
	db := filepath.Join(f.dir, "history.sqlite3")

	out, err := execute(t, "--log-level", "error", "history", "--db", db)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "No runs recorded") {
		t.Errorf("expected empty history message, got:\n%s", out)
	}

	if _, err := execute(t, f.args("--history", "--db", db)...); err != nil {
		t.Fatalf("compare failed: %v", err)
	}

	out, err = execute(t, "--log-level", "error", "history", "--db", db, "--limit", "5")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "original.wav") || !strings.Contains(out, "python_output.txt") {
		t.Errorf("expected run row in history:\n%s", out)
	}

	client, err := storage.NewDBClientWithPath(db)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	runs, err := client.ListRuns(1)
	client.Close()
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one stored run, got %d (%v)", len(runs), err)
	}

	out, err = execute(t, "--log-level", "error", "history", "delete", runs[0].ID, "--db", db)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !strings.Contains(out, "Deleted run "+runs[0].ID) {
		t.Errorf("unexpected delete output: %s", out)
	}

	if _, err := execute(t, "--log-level", "error", "history", "delete", runs[0].ID, "--db", db); err == nil {
		t.Error("expected error deleting an unknown run")
	}
}
