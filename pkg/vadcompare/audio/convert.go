package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/himanishpuri/vadcompare/pkg/models"
	"github.com/himanishpuri/vadcompare/pkg/utils"
)

// ErrFFmpegMissing is returned when a non-WAV input needs conversion but no
// ffmpeg binary is on PATH.
var ErrFFmpegMissing = errors.New("ffmpeg not found in PATH")

type ConvertWAVConfig struct {
	// SampleRate of the output; 0 keeps the source rate.
	SampleRate int
	// Timeout applies when ctx carries no deadline.
	Timeout time.Duration
}

// ConvertToMonoWAV transcodes any ffmpeg-readable input to 16-bit mono PCM
// WAV inside outputDir and returns the new path.
func ConvertToMonoWAV(
	ctx context.Context,
	inputPath string,
	outputDir string,
	cfg ConvertWAVConfig,
) (string, error) {

	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return "", ErrFFmpegMissing
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	baseName := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outputDir, baseName+".wav")

	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	args := []string{
		"-y",
		"-v", "quiet",
		"-i", inputPath,
		"-ac", "1", // mono
	}
	if cfg.SampleRate > 0 {
		args = append(args, "-ar", fmt.Sprintf("%d", cfg.SampleRate))
	}
	args = append(args, "-c:a", "pcm_s16le", tmpPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg failed: %v (%s)", err, out)
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}

	return outputPath, nil
}

// Load reads path as a mono clip. WAV files are decoded directly; anything
// else is converted with ffmpeg into tempDir first.
func Load(ctx context.Context, path, tempDir string) (*Clip, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &models.IOError{Op: "stat", Path: path, Err: err}
	}

	if utils.HasExt(path, ".wav", ".wave") {
		clip, err := ReadWav(path)
		if !errors.Is(err, ErrNotWav) {
			return clip, err
		}
		// mislabelled container; let ffmpeg sort it out
	}

	if tempDir == "" {
		tempDir = os.TempDir()
	}
	dir, err := os.MkdirTemp(tempDir, "vadcompare-")
	if err != nil {
		return nil, &models.IOError{Op: "mkdir", Path: tempDir, Err: err}
	}
	defer os.RemoveAll(dir)

	wavPath, err := ConvertToMonoWAV(ctx, path, dir, ConvertWAVConfig{})
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", path, err)
	}
	return ReadWav(wavPath)
}
