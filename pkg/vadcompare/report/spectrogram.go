package report

import (
	"errors"
	"image"
	"image/draw"

	"github.com/eligwz/spectrogram"

	"github.com/himanishpuri/vadcompare/pkg/models"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/audio"
)

// SpectrogramOptions sizes the spectrogram image. Height is also the number
// of frequency bins.
type SpectrogramOptions struct {
	Width  int
	Height int
}

// DefaultSpectrogramOptions returns a 2048x512 image.
func DefaultSpectrogramOptions() SpectrogramOptions {
	return SpectrogramOptions{Width: 2048, Height: 512}
}

// RenderSpectrogram draws a power spectrogram of clip on a black background
// and saves it as PNG.
func RenderSpectrogram(path string, clip *audio.Clip, opts SpectrogramOptions) error {
	if clip == nil || len(clip.Samples) == 0 {
		return errors.New("spectrogram: no samples")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts = DefaultSpectrogramOptions()
	}

	if err := spectrogram.SavePng(drawSpectrogram(clip, opts), path); err != nil {
		return &models.IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// drawSpectrogram renders one column per pixel of width. Row 0 is the
// Nyquist frequency, the bottom row is DC.
func drawSpectrogram(clip *audio.Clip, opts SpectrogramOptions) *spectrogram.Image128 {
	img := spectrogram.NewImage128(image.Rect(0, 0, opts.Width, opts.Height))

	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	spectrogram.Drawfft(
		img,
		clip.Samples,
		uint32(clip.SampleRate),
		uint32(opts.Height),
		false, // no rectangle: Hamming window
		false, // FFT, not the naive DFT
		true,  // squared magnitude (power)
		false, // linear scale
	)
	return img
}
