package audio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"time"
)

// ErrFFprobeMissing is returned by FFprobe when the binary is not on PATH.
var ErrFFprobeMissing = errors.New("ffprobe not found in PATH")

// ErrNoAudioStream is returned when a container holds no audio stream.
var ErrNoAudioStream = errors.New("no audio stream")

const inspectTimeout = 5 * time.Second

// MediaInfo is the container's own view of its first audio stream.
type MediaInfo struct {
	Container  string
	Codec      string
	Duration   float64 // seconds; 0 when the container does not say
	SampleRate int
	Channels   int
}

// Inspector reports container metadata without decoding the audio.
type Inspector func(ctx context.Context, path string) (*MediaInfo, error)

func (m *MediaInfo) String() string {
	return fmt.Sprintf("%s/%s, %d Hz, %d ch, %.2fs", m.Container, m.Codec, m.SampleRate, m.Channels, m.Duration)
}

// DurationDrift is how far decoded seconds are from the container's
// duration. It is 0 when the container reports no duration.
func (m *MediaInfo) DurationDrift(decoded float64) float64 {
	if m.Duration <= 0 {
		return 0
	}
	return math.Abs(m.Duration - decoded)
}

// FFprobe is the default Inspector.
func FFprobe(ctx context.Context, path string) (*MediaInfo, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return nil, ErrFFprobeMissing
	}
	ctx, cancel := context.WithTimeout(ctx, inspectTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "format=format_name,duration:stream=codec_name,sample_rate,channels,duration",
		"-of", "json",
		path,
	).Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffprobe %s: %w", path, ctx.Err())
		}
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return decodeMediaInfo(out)
}

// ffprobe prints numbers as strings; "N/A" and missing fields decode to 0.
type ffprobeNumber float64

func (n *ffprobeNumber) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		s = string(b)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = ffprobeNumber(v)
	return nil
}

func decodeMediaInfo(data []byte) (*MediaInfo, error) {
	var doc struct {
		Format struct {
			Name     string        `json:"format_name"`
			Duration ffprobeNumber `json:"duration"`
		} `json:"format"`
		Streams []struct {
			Type       string        `json:"codec_type"`
			Codec      string        `json:"codec_name"`
			SampleRate ffprobeNumber `json:"sample_rate"`
			Channels   int           `json:"channels"`
			Duration   ffprobeNumber `json:"duration"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}

	for _, st := range doc.Streams {
		// -select_streams leaves codec_type out unless asked for it.
		if st.Type != "" && st.Type != "audio" {
			continue
		}
		info := &MediaInfo{
			Container:  doc.Format.Name,
			Codec:      st.Codec,
			Duration:   float64(doc.Format.Duration),
			SampleRate: int(st.SampleRate),
			Channels:   st.Channels,
		}
		if info.Duration <= 0 {
			info.Duration = float64(st.Duration)
		}
		return info, nil
	}
	return nil, ErrNoAudioStream
}
