package segments

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/himanishpuri/vadcompare/pkg/models"
)

// Source is a parsed label source.
type Source struct {
	Path     string
	Format   Format
	Segments []models.Segment
	// Merged counts segments folded into a predecessor because they overlapped.
	Merged int
}

// End returns the end time of the last segment, or 0 for an empty source.
func (s *Source) End() float64 {
	if s == nil || len(s.Segments) == 0 {
		return 0
	}
	return s.Segments[len(s.Segments)-1].End
}

// VoiceSeconds sums the durations of all segments.
func (s *Source) VoiceSeconds() float64 {
	var total float64
	for _, seg := range s.Segments {
		total += seg.Duration()
	}
	return total
}

// Load reads and parses a label file. WAV sources are not handled here; they
// are decoded by the audio package.
func Load(path string, format Format) (*Source, error) {
	format = format.Resolve(path)
	if format == WAV {
		return nil, fmt.Errorf("%s: wav sources must be loaded with audio.VoiceSegments", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &models.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	return Parse(f, path, format)
}

// Parse decodes label text from r. name identifies the source in errors.
func Parse(r io.Reader, name string, format Format) (*Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &models.IOError{Op: "read", Path: name, Err: err}
	}
	text := decodeText(data)

	var segs []models.Segment
	switch format.Resolve(name) {
	case Labels:
		segs, err = parseLabels(text, name)
	case Log:
		segs, err = parseLog(text, name)
	case JSON:
		segs, err = parseJSON(text, name)
	default:
		return nil, fmt.Errorf("%s: format %q cannot be parsed as text", name, format)
	}
	if err != nil {
		return nil, err
	}

	segs, merged := Normalize(segs)
	return &Source{Path: name, Format: format.Resolve(name), Segments: segs, Merged: merged}, nil
}

func splitFields(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
}

// parseSeconds accepts "12.5" and "12.5s".
func parseSeconds(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if len(field) > 1 {
		field = strings.TrimSuffix(field, "s")
	}
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("not a finite number")
	}
	return v, nil
}

func checkSegment(seg models.Segment) string {
	switch {
	case seg.Start < 0:
		return "negative start time"
	case seg.End <= seg.Start:
		return "end must be greater than start"
	}
	return ""
}

func parseLabels(text, name string) ([]models.Segment, error) {
	var segs []models.Segment
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	seenRow := false
	for sc.Scan() {
		lineNo++
		raw := sc.Text()
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := splitFields(line)
		if len(fields) < 2 {
			return nil, &models.ParseError{Source: name, Line: lineNo, Text: raw, Reason: "expected start and end times"}
		}

		start, errStart := parseSeconds(fields[0])
		end, errEnd := parseSeconds(fields[1])
		if errStart != nil && errEnd != nil && !seenRow {
			// header row such as "start_sec,end_sec"
			seenRow = true
			continue
		}
		seenRow = true
		if errStart != nil {
			return nil, &models.ParseError{Source: name, Line: lineNo, Text: raw, Reason: "invalid start time"}
		}
		if errEnd != nil {
			return nil, &models.ParseError{Source: name, Line: lineNo, Text: raw, Reason: "invalid end time"}
		}

		seg := models.Segment{Start: start, End: end}
		if reason := checkSegment(seg); reason != "" {
			return nil, &models.ParseError{Source: name, Line: lineNo, Text: raw, Reason: reason}
		}
		segs = append(segs, seg)
	}
	if err := sc.Err(); err != nil {
		return nil, &models.IOError{Op: "read", Path: name, Err: err}
	}
	return segs, nil
}

var logSegmentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*s\s*~\s*(\d+(?:\.\d+)?)\s*s`)

// parseLog pulls segments out of free-form VAD console output. Lines without a
// "Xs ~ Ys" range are ordinary log noise and are skipped.
func parseLog(text, name string) ([]models.Segment, error) {
	var segs []models.Segment
	for i, line := range strings.Split(text, "\n") {
		for _, m := range logSegmentPattern.FindAllStringSubmatch(line, -1) {
			start, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return nil, &models.ParseError{Source: name, Line: i + 1, Text: line, Reason: "invalid start time"}
			}
			end, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				return nil, &models.ParseError{Source: name, Line: i + 1, Text: line, Reason: "invalid end time"}
			}
			seg := models.Segment{Start: start, End: end}
			if reason := checkSegment(seg); reason != "" {
				return nil, &models.ParseError{Source: name, Line: i + 1, Text: strings.TrimRight(line, "\r"), Reason: reason}
			}
			segs = append(segs, seg)
		}
	}
	return segs, nil
}

type jsonSegment struct {
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
}

type jsonDocument struct {
	Segments []jsonSegment `json:"segments"`
}

func parseJSON(text, name string) ([]models.Segment, error) {
	var items []jsonSegment
	var err error
	if strings.HasPrefix(strings.TrimSpace(text), "[") {
		err = json.Unmarshal([]byte(text), &items)
	} else {
		var doc jsonDocument
		err = json.Unmarshal([]byte(text), &doc)
		items = doc.Segments
	}
	if err != nil {
		line := 1
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) && int(syntaxErr.Offset) <= len(text) {
			line = strings.Count(text[:syntaxErr.Offset], "\n") + 1
		}
		return nil, &models.ParseError{Source: name, Line: line, Text: "", Reason: err.Error()}
	}

	segs := make([]models.Segment, 0, len(items))
	for i, item := range items {
		if item.Start == nil || item.End == nil {
			return nil, &models.ParseError{Source: name, Line: i + 1, Text: fmt.Sprintf("segment #%d", i+1), Reason: "segment missing start or end"}
		}
		seg := models.Segment{Start: *item.Start, End: *item.End}
		if reason := checkSegment(seg); reason != "" {
			return nil, &models.ParseError{Source: name, Line: i + 1, Text: fmt.Sprintf("segment #%d [%g, %g]", i+1, seg.Start, seg.End), Reason: reason}
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

// Normalize sorts segments by start and folds overlapping ones together.
// Segments that only touch (next.Start == prev.End) are kept apart.
// It returns the number of segments absorbed by a merge.
func Normalize(segs []models.Segment) ([]models.Segment, int) {
	if len(segs) < 2 {
		return segs, 0
	}
	sorted := make([]models.Segment, len(segs))
	copy(sorted, segs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	out := make([]models.Segment, 0, len(sorted))
	out = append(out, sorted[0])
	merged := 0
	for _, seg := range sorted[1:] {
		last := &out[len(out)-1]
		if seg.Start < last.End {
			if seg.End > last.End {
				last.End = seg.End
			}
			merged++
			continue
		}
		out = append(out, seg)
	}
	return out, merged
}
