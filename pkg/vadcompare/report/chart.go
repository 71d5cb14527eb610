package report

import (
	"fmt"
	"image/color"
	"math"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/himanishpuri/vadcompare/pkg/models"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/audio"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/compare"
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/frames"
)

var (
	colorOriginal = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	colorA        = color.RGBA{R: 0xFF, G: 0x6B, B: 0x6B, A: 255}
	colorB        = color.RGBA{R: 0x4E, G: 0xCD, B: 0xC4, A: 255}
	colorAOnly    = color.RGBA{R: 220, A: 230}
	colorBOnly    = color.RGBA{B: 220, A: 230}
)

// ChartData is the material for the comparison chart. All waveforms share
// SampleRate; masks share FrameSize.
type ChartData struct {
	SampleRate int
	Original   []float64
	WaveA      []float64
	WaveB      []float64

	NameA, NameB string
	MaskA, MaskB frames.Mask
	FrameSize    float64

	EnvA, EnvB             audio.Envelope
	ThresholdA, ThresholdB float64
}

// ChartOptions sizes the image and optionally restricts it to a time window.
type ChartOptions struct {
	Width, Height vg.Length
	DPI           int
	// From and To bound the time axis in seconds; To <= 0 means the whole clip.
	From, To float64
	// Columns caps the number of waveform points drawn per panel.
	Columns int
}

// DefaultChartOptions renders a 16x12 inch image at 100 dpi.
func DefaultChartOptions() ChartOptions {
	return ChartOptions{
		Width:   16 * vg.Inch,
		Height:  12 * vg.Inch,
		DPI:     100,
		Columns: 4000,
	}
}

// RenderChart draws the five comparison panels (original waveform, A and B
// waveforms with their voice spans, segment bars, RMS levels) into a PNG.
func RenderChart(path string, data *ChartData, opts ChartOptions) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		def := DefaultChartOptions()
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.DPI <= 0 {
		opts.DPI = 100
	}
	if opts.Columns <= 0 {
		opts.Columns = 4000
	}

	total := data.duration()
	from, to := math.Max(0, opts.From), opts.To
	if to <= 0 || to > total {
		to = total
	}
	if to <= from {
		return fmt.Errorf("empty chart window [%.2f, %.2f]", from, to)
	}
	win := window{from: from, to: to, columns: opts.Columns}

	panels := []*plot.Plot{
		waveformPanel("Original Audio Waveform", "Original", data.Original, data.SampleRate, colorOriginal, nil, win),
		waveformPanel(data.NameA+" VAD Filtered", data.NameA, data.WaveA, data.SampleRate, colorA, data.MaskA.ToSegments(data.FrameSize), win),
		waveformPanel(data.NameB+" VAD Filtered", data.NameB, data.WaveB, data.SampleRate, colorB, data.MaskB.ToSegments(data.FrameSize), win),
		segmentPanel(data, win),
		levelPanel(data, win),
	}
	panels[len(panels)-1].X.Label.Text = "Time (seconds)"

	return savePanels(path, panels, opts)
}

type window struct {
	from, to float64
	columns  int
}

func (d *ChartData) duration() float64 {
	var total float64
	if d.SampleRate > 0 {
		n := max(len(d.Original), len(d.WaveA), len(d.WaveB))
		total = float64(n) / float64(d.SampleRate)
	}
	total = math.Max(total, float64(max(len(d.MaskA), len(d.MaskB)))*d.FrameSize)
	return total
}

func newPanel(title string, win window) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Min, p.X.Max = win.from, win.to
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
	return p
}

func waveformPanel(title, label string, samples []float64, rate int, c color.Color, voice []models.Segment, win window) *plot.Plot {
	p := newPanel(title, win)
	p.Y.Label.Text = "Amplitude"
	p.Y.Min, p.Y.Max = -1, 1

	if len(voice) > 0 {
		spanColor := withAlpha(c, 60)
		addSpans(p, clipSegments(voice, win), -1, 1, spanColor)
	}

	if xys := envelopeXYs(samples, rate, win); len(xys) > 0 {
		line, err := plotter.NewLine(xys)
		if err == nil {
			line.Color = c
			line.Width = vg.Points(0.5)
			p.Add(line)
			p.Legend.Add(label, line)
		}
	}
	return p
}

func segmentPanel(data *ChartData, win window) *plot.Plot {
	p := newPanel(fmt.Sprintf("Voice/Silence Segments (top: %s | bottom: %s | red: %s only | blue: %s only)",
		data.NameA, data.NameB, data.NameA, data.NameB), win)
	p.Y.Label.Text = "Voice Activity"
	p.Y.Min, p.Y.Max = 0, 1
	p.Y.Tick.Marker = plot.ConstantTicks([]plot.Tick{
		{Value: 0.25, Label: data.NameB},
		{Value: 0.75, Label: data.NameA},
	})

	aOnly, bOnly := compare.OneSided(data.MaskA, data.MaskB)
	layers := []struct {
		segs   []models.Segment
		lo, hi float64
		c      color.Color
		label  string
	}{
		{data.MaskA.ToSegments(data.FrameSize), 0.5, 1, withAlpha(colorA, 128), data.NameA + ": Voice"},
		{data.MaskB.ToSegments(data.FrameSize), 0, 0.5, withAlpha(colorB, 128), data.NameB + ": Voice"},
		{aOnly.ToSegments(data.FrameSize), 0.5, 1, colorAOnly, data.NameA + " only"},
		{bOnly.ToSegments(data.FrameSize), 0, 0.5, colorBOnly, data.NameB + " only"},
	}
	for _, l := range layers {
		if poly := addSpans(p, clipSegments(l.segs, win), l.lo, l.hi, l.c); poly != nil {
			p.Legend.Add(l.label, poly)
		}
	}
	return p
}

func levelPanel(data *ChartData, win window) *plot.Plot {
	p := newPanel("Amplitude Level Comparison (near 0 = removed as silence)", win)
	p.Y.Label.Text = "RMS Amplitude"
	p.Y.Min = 0

	for _, side := range []struct {
		env       audio.Envelope
		threshold float64
		c         color.Color
		name      string
	}{
		{data.EnvA, data.ThresholdA, colorA, data.NameA},
		{data.EnvB, data.ThresholdB, colorB, data.NameB},
	} {
		if xys := rmsXYs(side.env, win); len(xys) > 0 {
			if line, err := plotter.NewLine(xys); err == nil {
				line.Color = side.c
				line.Width = vg.Points(1.5)
				p.Add(line)
				p.Legend.Add(side.name, line)
			}
		}

		th := side.threshold
		fn := plotter.NewFunction(func(float64) float64 { return th })
		fn.Color = side.c
		fn.Width = vg.Points(1.5)
		fn.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
		p.Add(fn)
		p.Legend.Add(fmt.Sprintf("%s silence th (%g)", side.name, th), fn)
	}
	return p
}

// addSpans fills one rectangle per segment between y=lo and y=hi. It returns
// nil when there is nothing to draw.
func addSpans(p *plot.Plot, segs []models.Segment, lo, hi float64, c color.Color) *plotter.Polygon {
	if len(segs) == 0 {
		return nil
	}
	rings := make([]plotter.XYer, len(segs))
	for i, s := range segs {
		rings[i] = plotter.XYs{{X: s.Start, Y: lo}, {X: s.End, Y: lo}, {X: s.End, Y: hi}, {X: s.Start, Y: hi}}
	}
	poly, err := plotter.NewPolygon(rings...)
	if err != nil {
		return nil
	}
	poly.Color = c
	poly.LineStyle.Width = 0
	p.Add(poly)
	return poly
}

func clipSegments(segs []models.Segment, win window) []models.Segment {
	var out []models.Segment
	for _, s := range segs {
		if s.End <= win.from || s.Start >= win.to {
			continue
		}
		out = append(out, models.Segment{Start: math.Max(s.Start, win.from), End: math.Min(s.End, win.to)})
	}
	return out
}

// envelopeXYs reduces samples inside the window to a min/max pair per column
// so long recordings keep their visual envelope at a bounded point count.
func envelopeXYs(samples []float64, rate int, win window) plotter.XYs {
	if rate <= 0 || len(samples) == 0 {
		return nil
	}
	first := max(0, int(win.from*float64(rate)))
	last := min(len(samples), int(math.Ceil(win.to*float64(rate))))
	if first >= last {
		return nil
	}
	span := samples[first:last]

	if len(span) <= 2*win.columns {
		xys := make(plotter.XYs, len(span))
		for i, s := range span {
			xys[i].X = float64(first+i) / float64(rate)
			xys[i].Y = s
		}
		return xys
	}

	per := int(math.Ceil(float64(len(span)) / float64(win.columns)))
	xys := make(plotter.XYs, 0, 2*win.columns)
	for i := 0; i < len(span); i += per {
		chunk := span[i:min(i+per, len(span))]
		lo, hi := chunk[0], chunk[0]
		for _, s := range chunk[1:] {
			lo, hi = math.Min(lo, s), math.Max(hi, s)
		}
		t := float64(first+i) / float64(rate)
		xys = append(xys, plotter.XY{X: t, Y: lo}, plotter.XY{X: t, Y: hi})
	}
	return xys
}

func rmsXYs(env audio.Envelope, win window) plotter.XYs {
	var xys plotter.XYs
	for i, v := range env.Values {
		t := float64(i) * env.Hop
		if t < win.from || t > win.to {
			continue
		}
		xys = append(xys, plotter.XY{X: t, Y: v})
	}
	return xys
}

func withAlpha(c color.Color, a uint8) color.Color {
	r, g, b, _ := c.RGBA()
	// premultiplied
	scale := float64(a) / 255
	return color.RGBA{
		R: uint8(float64(r>>8) * scale),
		G: uint8(float64(g>>8) * scale),
		B: uint8(float64(b>>8) * scale),
		A: a,
	}
}

// savePanels stacks panels vertically on one canvas and writes it as PNG.
func savePanels(path string, panels []*plot.Plot, opts ChartOptions) error {
	rows := make([][]*plot.Plot, len(panels))
	for i, p := range panels {
		rows[i] = []*plot.Plot{p}
	}

	img := vgimg.NewWith(vgimg.UseWH(opts.Width, opts.Height), vgimg.UseDPI(opts.DPI))
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      len(panels),
		Cols:      1,
		PadX:      vg.Millimeter,
		PadY:      3 * vg.Millimeter,
		PadTop:    2 * vg.Millimeter,
		PadBottom: 2 * vg.Millimeter,
		PadLeft:   2 * vg.Millimeter,
		PadRight:  2 * vg.Millimeter,
	}
	canvases := plot.Align(rows, tiles, dc)
	for i, p := range panels {
		p.Draw(canvases[i][0])
	}

	f, err := os.Create(path)
	if err != nil {
		return &models.IOError{Op: "create", Path: path, Err: err}
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return &models.IOError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &models.IOError{Op: "close", Path: path, Err: err}
	}
	return nil
}
