package render

import (
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/flatironinstitute/viswall-prom/internal/chart"
)

const (
	legendPadding = 6
	legendSwatch  = 10
	legendColumns = 2
)

// legend draws entries in two columns at the top left of the plot area.
// gochart.Legend would list every segment of every line, hence our own.
func legend(entries []chart.LegendEntry) gochart.Renderable {
	return func(r gochart.Renderer, cb gochart.Box, defaults gochart.Style) {
		text := gochart.Style{
			FontSize:  8,
			FontColor: drawing.ColorBlack,
		}.InheritFrom(defaults)
		text.GetTextOptions().WriteToRenderer(r)

		var lineHeight, colWidth int
		for _, e := range entries {
			tb := r.MeasureText(e.Name)
			if tb.Height() > lineHeight {
				lineHeight = tb.Height()
			}
			if tb.Width() > colWidth {
				colWidth = tb.Width()
			}
		}
		if lineHeight < legendSwatch {
			lineHeight = legendSwatch
		}
		colWidth += legendSwatch + 2*legendPadding

		rows := (len(entries) + legendColumns - 1) / legendColumns
		cols := legendColumns
		if len(entries) < cols {
			cols = len(entries)
		}
		frame := gochart.Box{
			Top:    cb.Top + legendPadding,
			Left:   cb.Left + legendPadding,
			Right:  cb.Left + legendPadding + cols*colWidth + legendPadding,
			Bottom: cb.Top + legendPadding + rows*(lineHeight+legendPadding) + legendPadding,
		}
		gochart.Draw.Box(r, frame, gochart.Style{
			FillColor:   drawing.ColorWhite.WithAlpha(240),
			StrokeColor: drawing.ColorFromHex("cccccc"),
			StrokeWidth: 1,
		})

		for i, e := range entries {
			col, row := i%legendColumns, i/legendColumns
			x := frame.Left + legendPadding + col*colWidth
			y := frame.Top + legendPadding + row*(lineHeight+legendPadding)

			swatch := gochart.Box{Top: y, Left: x, Right: x + legendSwatch, Bottom: y + legendSwatch}
			style := gochart.Style{FillColor: e.Color, StrokeColor: e.Color, StrokeWidth: 1}
			if e.Hollow {
				style = gochart.Style{StrokeColor: e.Color, StrokeWidth: capacityStroke}
			}
			gochart.Draw.Box(r, swatch, style)

			text.GetTextOptions().WriteToRenderer(r)
			r.Text(e.Name, x+legendSwatch+legendPadding, y+legendSwatch)
		}
	}
}
