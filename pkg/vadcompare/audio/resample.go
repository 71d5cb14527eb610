package audio

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample converts the clip to rate. The output is trimmed or zero-filled to
// exactly round(len * rate / source rate) samples so durations line up.
func Resample(clip *Clip, rate int) (*Clip, error) {
	if rate <= 0 || clip.SampleRate == rate {
		return clip, nil
	}
	want := int(math.Round(float64(len(clip.Samples)) * float64(rate) / float64(clip.SampleRate)))
	if len(clip.Samples) == 0 {
		return &Clip{SampleRate: rate}, nil
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(clip.SampleRate),
		OutputRate: float64(rate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	out, err := r.Process(clip.Samples)
	if err != nil {
		return nil, fmt.Errorf("resample %d -> %d Hz: %w", clip.SampleRate, rate, err)
	}

	if len(out) > want {
		out = out[:want]
	}
	return &Clip{Samples: PadTo(out, want), SampleRate: rate}, nil
}
