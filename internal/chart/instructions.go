package chart

import (
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	wallv1alpha1 "github.com/flatironinstitute/viswall-prom/api/v1alpha1"
	"github.com/flatironinstitute/viswall-prom/internal/series"
)

// DrawInstructions is everything the renderer needs to draw one panel. X
// values of time charts are gochart.TimeToFloat64 instants; bar charts use
// the bar index.
type DrawInstructions struct {
	Title     string
	ChartType wallv1alpha1.ChartType
	XLabel    string
	YLabel    string

	// NoData panels carry only their title
	NoData bool

	// Lines are drawn in order. Filled lines are stacked bands, drawn top
	// band first so lower bands paint over the area they share.
	Lines []Line

	// Capacity is the black overlay of line and stacked charts
	Capacity *Line

	Bars  []Bar
	Gauge *Gauge
	Info  *Info

	XRange Range
	YRange Range
	XTicks []gochart.Tick
	YTicks []gochart.Tick

	Legend []LegendEntry
}

// Range is a closed axis interval
type Range struct {
	Min float64
	Max float64
}

// Line is one series split into runs of consecutive present values
type Line struct {
	Name     string
	Color    drawing.Color
	Fill     bool
	Segments []Segment
}

// Segment is an unbroken part of a line; missing values end a segment
type Segment struct {
	XValues []float64
	YValues []float64
}

// Bar is the latest value of one series next to its capacity
type Bar struct {
	Label    string
	X        float64
	Value    series.Float
	Capacity series.Float
	Color    drawing.Color
}

// Gauge is a single total against its maximum
type Gauge struct {
	Value series.Float
	Max   float64
	Label string
	Color drawing.Color
}

// Info is the attribution panel
type Info struct {
	Author    string
	Logo      string
	Updated   time.Time
	Timestamp string
}

// LegendEntry is one swatch of the legend
type LegendEntry struct {
	Name   string
	Color  drawing.Color
	Hollow bool
}
