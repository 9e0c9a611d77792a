// Package render rasterizes draw instructions with go-chart and composes the
// panels into the final wall image.
package render

import (
	"bytes"
	"image"
	"image/png"
	"math"

	"github.com/cockroachdb/errors"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/draw"

	wallv1alpha1 "github.com/flatironinstitute/viswall-prom/api/v1alpha1"
	"github.com/flatironinstitute/viswall-prom/internal/chart"
)

const (
	barWidth         = 0.8
	capacityStroke   = 1.5
	lineStroke       = 2
	singlePointWidth = 3
)

// Panel rasterizes one panel at the given size
func Panel(in *chart.DrawInstructions, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Newf("panel %q: invalid size %dx%d", in.Title, width, height)
	}
	if in.NoData {
		return noData(in.Title, width, height), nil
	}

	switch in.ChartType {
	case wallv1alpha1.ChartInfo:
		return info(in, width, height)
	case wallv1alpha1.ChartGauge:
		return gauge(in, width, height)
	case wallv1alpha1.ChartBar:
		return renderChart(in, barSeries(in), width, height)
	default:
		return renderChart(in, lineSeries(in), width, height)
	}
}

func lineSeries(in *chart.DrawInstructions) []gochart.Series {
	var out []gochart.Series
	add := func(l chart.Line, stroke float64) {
		for _, seg := range l.Segments {
			style := gochart.Style{
				StrokeColor: l.Color,
				StrokeWidth: stroke,
			}
			if l.Fill {
				style.FillColor = l.Color
				style.StrokeWidth = 0
			}
			if len(seg.XValues) == 1 {
				style.DotWidth = singlePointWidth
				style.DotColor = l.Color
			}
			out = append(out, gochart.ContinuousSeries{
				Name:    l.Name,
				Style:   style,
				XValues: seg.XValues,
				YValues: seg.YValues,
			})
		}
	}
	for _, l := range in.Lines {
		add(l, lineStroke)
	}
	if in.Capacity != nil {
		add(*in.Capacity, lineStroke)
	}
	return out
}

// barSeries draws every bar as a closed rectangle path
func barSeries(in *chart.DrawInstructions) []gochart.Series {
	var out []gochart.Series
	rect := func(x, v float64) ([]float64, []float64) {
		x0, x1 := x-barWidth/2, x+barWidth/2
		return []float64{x0, x0, x1, x1, x0}, []float64{0, v, v, 0, 0}
	}
	for _, b := range in.Bars {
		if !b.Value.Valid {
			continue
		}
		xs, ys := rect(b.X, b.Value.Value)
		out = append(out, gochart.ContinuousSeries{
			Name:    b.Label,
			Style:   gochart.Style{FillColor: b.Color, StrokeColor: b.Color, StrokeWidth: 1},
			XValues: xs,
			YValues: ys,
		})
	}
	for _, b := range in.Bars {
		if !b.Capacity.Valid {
			continue
		}
		xs, ys := rect(b.X, b.Capacity.Value)
		out = append(out, gochart.ContinuousSeries{
			Name:    b.Label,
			Style:   gochart.Style{StrokeColor: chart.CapacityColor, StrokeWidth: capacityStroke},
			XValues: xs,
			YValues: ys,
		})
	}
	return out
}

func renderChart(in *chart.DrawInstructions, series []gochart.Series, width, height int) (image.Image, error) {
	if len(series) == 0 {
		return noData(in.Title, width, height), nil
	}

	ch := gochart.Chart{
		Title:      in.Title,
		TitleStyle: gochart.Style{FontSize: float64(fontSize(height)) + 2},
		Width:      width,
		Height:     height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: gochart.XAxis{
			Name:  in.XLabel,
			Range: continuous(in.XRange),
			Ticks: in.XTicks,
		},
		YAxis: gochart.YAxis{
			Name:  in.YLabel,
			Range: continuous(in.YRange),
			Ticks: in.YTicks,
		},
		Series: series,
	}
	if len(in.Legend) > 0 {
		ch.Elements = []gochart.Renderable{legend(in.Legend)}
	}

	var buf bytes.Buffer
	if err := ch.Render(gochart.PNG, &buf); err != nil {
		return nil, errors.Wrapf(err, "panel %q: render", in.Title)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, errors.Wrapf(err, "panel %q: decode", in.Title)
	}
	return img, nil
}

func gauge(in *chart.DrawInstructions, width, height int) (image.Image, error) {
	g := in.Gauge
	if g == nil || !g.Value.Valid {
		return noData(in.Title, width, height), nil
	}

	used := math.Min(math.Max(g.Value.Value, 0), g.Max)
	values := []gochart.Value{
		{Label: g.Label, Value: used, Style: gochart.Style{FillColor: g.Color, StrokeColor: drawing.ColorWhite}},
		{Value: g.Max - used, Style: gochart.Style{FillColor: drawing.ColorFromHex("dddddd"), StrokeColor: drawing.ColorWhite}},
	}
	if used == 0 {
		values = values[1:]
		values[0].Label = g.Label
	}

	dc := gochart.DonutChart{
		Title:      in.Title,
		TitleStyle: gochart.Style{FontSize: float64(fontSize(height)) + 2},
		Width:      width,
		Height:     height,
		Values:     values,
	}
	var buf bytes.Buffer
	if err := dc.Render(gochart.PNG, &buf); err != nil {
		return nil, errors.Wrapf(err, "panel %q: render gauge", in.Title)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, errors.Wrapf(err, "panel %q: decode gauge", in.Title)
	}
	return img, nil
}

func noData(title string, width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fill(img, img.Bounds(), white)
	scale := textScale(height)
	textBlock(img, []string{title, "No Data"}, width/2, height/3, scale)
	return img
}

func info(in *chart.DrawInstructions, width, height int) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fill(img, img.Bounds(), white)
	if in.Info == nil {
		return img, nil
	}

	scale := textScale(height)
	y := textBlock(img, splitLines(in.Info.Author), width/2, height/5, scale)

	if in.Info.Logo != "" {
		logo, err := loadLogo(in.Info.Logo)
		if err != nil {
			return nil, errors.Wrapf(err, "panel %q: logo", in.Title)
		}
		y += 8 * scale
		box := scaleToHeight(logo.Bounds(), height/5)
		target := box.Add(image.Pt(width/2-box.Dx()/2, y))
		draw.CatmullRom.Scale(img, target, logo, logo.Bounds(), draw.Over, nil)
		y = target.Max.Y
	}

	y += 8 * scale
	lines := append([]string{"Last updated:"}, splitLines(in.Info.Timestamp)...)
	textBlock(img, lines, width/2, y, scale)
	return img, nil
}

func continuous(r chart.Range) *gochart.ContinuousRange {
	return &gochart.ContinuousRange{Min: r.Min, Max: r.Max}
}

func fontSize(height int) int {
	s := height / 40
	if s < 8 {
		return 8
	}
	return s
}
