package segments

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format names how a label source encodes its voice segments.
type Format string

const (
	// Auto picks a format from the file extension.
	Auto Format = "auto"
	// Labels is one "start end [label]" row per line.
	Labels Format = "labels"
	// Log extracts every "X.XXs ~ Y.YYs" occurrence from VAD console output.
	Log Format = "log"
	// JSON reads {"segments":[{"start":..,"end":..}]} or a bare array.
	JSON Format = "json"
	// WAV is a VAD-filtered recording; voice is recovered from its amplitude.
	WAV Format = "wav"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	switch f {
	case "":
		return Auto, nil
	case Auto, Labels, Log, JSON, WAV:
		return f, nil
	case "txt", "csv", "tsv":
		return Labels, nil
	}
	return "", fmt.Errorf("unknown source format %q (want auto, labels, log, json or wav)", name)
}

// Resolve turns Auto into a concrete format based on path's extension.
func (f Format) Resolve(path string) Format {
	if f != Auto && f != "" {
		return f
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON
	case ".wav":
		return WAV
	case ".log":
		return Log
	default:
		return Labels
	}
}
