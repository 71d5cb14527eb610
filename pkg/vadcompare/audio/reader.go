// Package audio decodes, converts and measures the audio behind a comparison.
package audio

import (
	"errors"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/himanishpuri/vadcompare/pkg/models"
)

// Clip is mono audio normalized to [-1, 1].
type Clip struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// ErrNotWav is returned when a file has no valid RIFF/WAVE header.
var ErrNotWav = errors.New("not a WAV/RIFF file")

// ReadWav decodes a PCM WAV file of any bit depth and channel count into a
// mono clip. Channels are averaged.
func ReadWav(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &models.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotWav)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, &models.IOError{Op: "decode", Path: path, Err: err}
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%s: missing sample rate", path)
	}

	samples, err := downmix(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Clip{Samples: samples, SampleRate: buf.Format.SampleRate}, nil
}

// downmix averages interleaved channels and scales by the source bit depth.
func downmix(buf *goaudio.IntBuffer) ([]float64, error) {
	channels := buf.Format.NumChannels
	if channels <= 0 {
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}
	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = 16
	}
	scale := 1.0 / float64(int64(1)<<(depth-1))

	frames := len(buf.Data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c])
		}
		out[i] = sum / float64(channels) * scale
	}
	return out, nil
}

// WriteWav encodes a clip as 16-bit mono PCM.
func WriteWav(path string, clip *Clip) error {
	f, err := os.Create(path)
	if err != nil {
		return &models.IOError{Op: "create", Path: path, Err: err}
	}

	enc := wav.NewEncoder(f, clip.SampleRate, 16, 1, 1)
	data := make([]int, len(clip.Samples))
	for i, s := range clip.Samples {
		s = max(-1, min(1, s))
		data[i] = int(s * 32767)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: clip.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return &models.IOError{Op: "write", Path: path, Err: err}
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return &models.IOError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &models.IOError{Op: "close", Path: path, Err: err}
	}
	return nil
}

// Gate returns a copy of samples with every sample outside voice zeroed,
// approximating what a VAD filter would have written for those segments.
func Gate(samples []float64, sampleRate int, voice []models.Segment) []float64 {
	out := make([]float64, len(samples))
	for _, seg := range voice {
		from := max(0, int(seg.Start*float64(sampleRate)))
		to := min(len(samples), int(seg.End*float64(sampleRate)))
		if from < to {
			copy(out[from:to], samples[from:to])
		}
	}
	return out
}

// PadTo extends samples with silence to n samples.
func PadTo(samples []float64, n int) []float64 {
	if len(samples) >= n {
		return samples
	}
	out := make([]float64, n)
	copy(out, samples)
	return out
}
