// Package chart maps aligned series and a panel configuration onto draw
// instructions: visual encoding, colors, axis bounds and formatted ticks.
// Missing values become gaps, never zeros.
package chart

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"k8s.io/apimachinery/pkg/util/sets"

	wallv1alpha1 "github.com/flatironinstitute/viswall-prom/api/v1alpha1"
	"github.com/flatironinstitute/viswall-prom/internal/align"
	"github.com/flatironinstitute/viswall-prom/internal/series"
	"github.com/flatironinstitute/viswall-prom/internal/wallerr"
)

const (
	// DefaultPadding is the fraction of the value span added around the data
	DefaultPadding = 0.1

	// DefaultTimestampFormat is used by info panels without a configured layout
	DefaultTimestampFormat = "3:04 PM MST\n2006-01-02"

	singleInstantPad = 30 * time.Minute

	capacityName = "Capacity"
	noDataSuffix = " (no data)"
)

// Builder turns aligned series into DrawInstructions for one wall run
type Builder struct {
	Palette  *Palette
	Location *time.Location
	Footer   wallv1alpha1.FooterSpec

	// Colors holds the run-wide registry of each legend label. Panels whose
	// label has no entry get a registry of their own series names.
	Colors map[string]*Registry

	// Now is printed by info panels
	Now time.Time
}

// Build maps aligned onto the visual encoding of panel. It fails with a
// RenderSpecError, and returns no instructions, when the chart type is
// unknown or when there is nothing to draw and the panel does not allow it.
func (b *Builder) Build(aligned *align.AlignedSeriesSet, panel *wallv1alpha1.PanelSpec) (*DrawInstructions, error) {
	fail := func(format string, args ...any) error {
		return &wallerr.RenderSpecError{Panel: panel.Title, Reason: fmt.Sprintf(format, args...)}
	}

	switch panel.ChartType {
	case wallv1alpha1.ChartLine, wallv1alpha1.ChartStacked, wallv1alpha1.ChartBar, wallv1alpha1.ChartGauge:
	case wallv1alpha1.ChartInfo:
		return b.info(panel), nil
	default:
		return nil, fail("unknown chart type %q", panel.ChartType)
	}

	format, ok := FormatterFor(panel.Format)
	if !ok {
		return nil, fail("unknown value format %q", panel.Format)
	}
	padding := DefaultPadding
	if panel.Padding != nil {
		padding = *panel.Padding
	}
	if padding < 0 {
		return nil, fail("padding must not be negative")
	}

	data, capacity := b.split(aligned, panel)
	if len(data) == 0 || len(aligned.TimeAxis) == 0 {
		if panel.AllowEmpty {
			return &DrawInstructions{Title: panel.Title, ChartType: panel.ChartType, NoData: true}, nil
		}
		return nil, fail("no series to draw")
	}

	p := &panelBuild{
		Builder:  b,
		panel:    panel,
		aligned:  aligned,
		data:     data,
		capacity: capacity,
		format:   format,
		padding:  padding,
		out: &DrawInstructions{
			Title:     panel.Title,
			ChartType: panel.ChartType,
			XLabel:    panel.XLabel,
			YLabel:    panel.YLabel,
		},
		colors: b.registry(data, panel),
	}

	var err error
	switch panel.ChartType {
	case wallv1alpha1.ChartLine:
		p.line()
	case wallv1alpha1.ChartStacked:
		p.stacked()
	case wallv1alpha1.ChartBar:
		p.bar()
	case wallv1alpha1.ChartGauge:
		err = p.gauge()
	}
	if err != nil {
		return nil, fail("%s", err)
	}
	return p.out, nil
}

// split separates capacity series from data series and drops hidden names
func (b *Builder) split(aligned *align.AlignedSeriesSet, panel *wallv1alpha1.PanelSpec) (data, capacity []align.AlignedSeries) {
	if aligned == nil {
		return nil, nil
	}
	hidden := sets.New[string](panel.Hide...)
	for _, s := range aligned.Series {
		if hidden.Has(s.Labels.Name(panel.LegendLabel)) {
			continue
		}
		if s.Labels.IsCapacity() {
			capacity = append(capacity, s)
		} else {
			data = append(data, s)
		}
	}
	return data, capacity
}

// SeriesNames returns the display names of the data series panel draws
func (b *Builder) SeriesNames(aligned *align.AlignedSeriesSet, panel *wallv1alpha1.PanelSpec) []string {
	data, _ := b.split(aligned, panel)
	names := make([]string, 0, len(data))
	for _, s := range data {
		names = append(names, s.Labels.Name(panel.LegendLabel))
	}
	return names
}

func (b *Builder) registry(data []align.AlignedSeries, panel *wallv1alpha1.PanelSpec) *Registry {
	if r, ok := b.Colors[panel.LegendLabel]; ok {
		return r
	}
	names := make([]string, 0, len(data))
	for _, s := range data {
		names = append(names, s.Labels.Name(panel.LegendLabel))
	}
	return b.Palette.Registry(names)
}

func (b *Builder) info(panel *wallv1alpha1.PanelSpec) *DrawInstructions {
	loc := b.Location
	if loc == nil {
		loc = time.UTC
	}
	layout := b.Footer.TimestampFormat
	if layout == "" {
		layout = DefaultTimestampFormat
	}
	return &DrawInstructions{
		Title:     panel.Title,
		ChartType: wallv1alpha1.ChartInfo,
		Info: &Info{
			Author:    b.Footer.Author,
			Logo:      b.Footer.Logo,
			Updated:   b.Now,
			Timestamp: b.Now.In(loc).Format(layout),
		},
	}
}

type panelBuild struct {
	*Builder
	panel    *wallv1alpha1.PanelSpec
	aligned  *align.AlignedSeriesSet
	data     []align.AlignedSeries
	capacity []align.AlignedSeries
	format   Formatter
	padding  float64
	colors   *Registry
	out      *DrawInstructions
}

func (p *panelBuild) name(s align.AlignedSeries) string {
	return s.Labels.Name(p.panel.LegendLabel)
}

func (p *panelBuild) color(s align.AlignedSeries) drawing.Color {
	if p.panel.Color != "" {
		return drawing.ColorFromHex(strings.TrimPrefix(p.panel.Color, "#"))
	}
	return p.colors.Color(p.name(s))
}

func (p *panelBuild) timeAxis() []float64 {
	xs := make([]float64, len(p.aligned.TimeAxis))
	for i, t := range p.aligned.TimeAxis {
		xs[i] = gochart.TimeToFloat64(t)
	}
	return xs
}

func (p *panelBuild) timeXAxis(xs []float64) {
	axis := p.aligned.TimeAxis
	p.out.XRange = Range{Min: xs[0], Max: xs[len(xs)-1]}
	if len(xs) == 1 {
		// a single instant still needs a non-empty range and a tick
		pad := float64(singleInstantPad)
		p.out.XRange = Range{Min: xs[0] - pad, Max: xs[0] + pad}
		loc := p.Location
		if loc == nil {
			loc = time.UTC
		}
		p.out.XTicks = []gochart.Tick{{Value: xs[0], Label: FormatHour(axis[0].In(loc))}}
		return
	}
	p.out.XTicks = TimeTicks(axis[0], axis[len(axis)-1], p.Location)
}

func (p *panelBuild) line() {
	sortByName(p.data, p.panel.LegendLabel)
	xs := p.timeAxis()
	p.timeXAxis(xs)

	var b bounds
	for _, s := range p.data {
		c := p.color(s)
		p.out.Lines = append(p.out.Lines, Line{Name: p.name(s), Color: c, Segments: segments(xs, s.Values)})
		p.out.Legend = append(p.out.Legend, LegendEntry{Name: p.name(s), Color: c})
		b.add(s.Values...)
	}
	if len(p.capacity) > 0 {
		total := sumColumns(p.capacity, len(xs))
		p.out.Capacity = &Line{Name: capacityName, Color: CapacityColor, Segments: segments(xs, total)}
		p.out.Legend = append(p.out.Legend, LegendEntry{Name: capacityName, Color: CapacityColor})
		b.add(total...)
	}
	p.yAxis(b, false)
}

func (p *panelBuild) stacked() {
	sortByName(p.data, p.panel.LegendLabel)
	sort.SliceStable(p.data, func(i, j int) bool {
		return lastBefore(p.data[i].Last(), p.data[j].Last())
	})
	xs := p.timeAxis()
	p.timeXAxis(xs)

	// bands[k] is the top edge of band k, counted from the bottom
	bands := make([][]series.Float, len(p.data))
	var b bounds
	b.add(series.NewFloat(0))
	for k, s := range p.data {
		band := make([]series.Float, len(xs))
		for i, v := range s.Values {
			below := series.NewFloat(0)
			if k > 0 {
				below = bands[k-1][i]
			}
			if !v.Valid || !below.Valid {
				band[i] = series.Missing
				continue
			}
			band[i] = series.NewFloat(below.Value + v.Value)
		}
		bands[k] = band
		b.add(band...)
	}

	colors := make([]drawing.Color, len(p.data))
	for k, s := range p.data {
		colors[k] = p.color(s)
		p.out.Legend = append(p.out.Legend, LegendEntry{Name: p.name(s), Color: colors[k]})
	}
	for k := len(p.data) - 1; k >= 0; k-- {
		p.out.Lines = append(p.out.Lines, Line{
			Name:     p.name(p.data[k]),
			Color:    colors[k],
			Fill:     true,
			Segments: segments(xs, bands[k]),
		})
	}

	if len(p.capacity) > 0 {
		total := sumColumns(p.capacity, len(xs))
		p.out.Capacity = &Line{Name: capacityName, Color: CapacityColor, Segments: segments(xs, total)}
		p.out.Legend = append(p.out.Legend, LegendEntry{Name: capacityName, Color: CapacityColor})
		b.add(total...)
	}
	p.yAxis(b, true)
}

func (p *panelBuild) bar() {
	values := map[string]series.Float{}
	colors := map[string]drawing.Color{}
	for _, s := range p.data {
		name := p.name(s)
		values[name] = addFloat(values, name, s.Last())
		if _, ok := colors[name]; !ok {
			colors[name] = p.color(s)
		}
	}
	capacity := map[string]series.Float{}
	for _, s := range p.capacity {
		capacity[p.name(s)] = addFloat(capacity, p.name(s), s.Last())
	}

	// capacity alone never makes a bar
	var b bounds
	b.add(series.NewFloat(0))
	for _, name := range sets.List(sets.KeySet(values)) {
		limit, hasCap := capacity[name]
		if hasCap && limit.Valid && limit.Value == 0 {
			continue
		}
		value := values[name]
		if !hasCap {
			limit = series.Missing
		}
		label := name
		if nick, ok := p.panel.Nicknames[name]; ok {
			label = nick
		} else if nick, ok := p.panel.Nicknames[strings.ToLower(name)]; ok {
			// config keys arrive lowercased
			label = nick
		}
		if !value.Valid {
			label += noDataSuffix
		}
		color := colors[name]

		x := float64(len(p.out.Bars))
		p.out.Bars = append(p.out.Bars, Bar{Label: label, X: x, Value: value, Capacity: limit, Color: color})
		p.out.XTicks = append(p.out.XTicks, gochart.Tick{Value: x, Label: label})
		b.add(value, limit)
	}

	p.out.XRange = Range{Min: -0.5, Max: math.Max(float64(len(p.out.Bars))-0.5, 0.5)}
	if len(p.capacity) > 0 {
		p.out.Legend = append(p.out.Legend, LegendEntry{Name: capacityName, Color: CapacityColor, Hollow: true})
	}
	p.yAxis(b, true)
}

func (p *panelBuild) gauge() error {
	total := series.Missing
	for _, s := range p.data {
		if v := s.Last(); v.Valid {
			total = series.NewFloat(total.Value + v.Value)
		}
	}

	limit := 0.0
	if len(p.capacity) > 0 {
		caps := make([]align.AlignedSeries, 0, len(p.capacity))
		for _, s := range p.capacity {
			caps = append(caps, align.AlignedSeries{Labels: s.Labels, Values: []series.Float{s.Last()}})
		}
		if c := sumColumns(caps, 1)[0]; c.Valid {
			limit = c.Value
		}
	}
	if limit <= 0 && p.panel.GaugeMax != nil {
		limit = *p.panel.GaugeMax
	}
	if limit <= 0 {
		return errors.New("gauge needs a positive capacity or gaugeMax")
	}

	label := FormatValue(p.format, total) + " / " + p.format(limit)
	p.out.Gauge = &Gauge{Value: total, Max: limit, Label: label, Color: p.color(p.data[0])}
	p.out.YRange = Range{Min: 0, Max: limit}
	return nil
}

// yAxis pads the data bounds and computes ticks
func (p *panelBuild) yAxis(b bounds, zeroBaseline bool) {
	lo, hi := b.lo, b.hi
	if !b.ok {
		lo, hi = 0, 1
	}
	if zeroBaseline && lo > 0 {
		lo = 0
	}
	span := hi - lo
	if span == 0 {
		span = math.Abs(hi)
		if span == 0 {
			span = 1
		}
	}
	hi += p.padding * span
	if !zeroBaseline || lo < 0 {
		lo -= p.padding * span
	}
	p.out.YRange = Range{Min: lo, Max: hi}
	p.out.YTicks = ValueTicks(lo, hi, desiredValueTicks, p.format)
}

type bounds struct {
	lo, hi float64
	ok     bool
}

func (b *bounds) add(values ...series.Float) {
	for _, v := range values {
		if !v.Valid {
			continue
		}
		if !b.ok {
			b.lo, b.hi, b.ok = v.Value, v.Value, true
			continue
		}
		b.lo = math.Min(b.lo, v.Value)
		b.hi = math.Max(b.hi, v.Value)
	}
}

// segments cuts values into runs of present values
func segments(xs []float64, values []series.Float) []Segment {
	var out []Segment
	var cur *Segment
	for i, v := range values {
		if !v.Valid {
			cur = nil
			continue
		}
		if cur == nil {
			out = append(out, Segment{})
			cur = &out[len(out)-1]
		}
		cur.XValues = append(cur.XValues, xs[i])
		cur.YValues = append(cur.YValues, v.Value)
	}
	return out
}

// sumColumns adds series instant by instant; one missing term makes the sum missing
func sumColumns(in []align.AlignedSeries, n int) []series.Float {
	out := make([]series.Float, n)
	for i := range out {
		sum := 0.0
		valid := len(in) > 0
		for _, s := range in {
			if i >= len(s.Values) || !s.Values[i].Valid {
				valid = false
				break
			}
			sum += s.Values[i].Value
		}
		if valid {
			out[i] = series.NewFloat(sum)
		}
	}
	return out
}

// addFloat accumulates series that share a display name
func addFloat(m map[string]series.Float, name string, v series.Float) series.Float {
	prev, ok := m[name]
	if !ok {
		return v
	}
	if !prev.Valid || !v.Valid {
		return series.Missing
	}
	return series.NewFloat(prev.Value + v.Value)
}

// lastBefore orders by descending last value with missing values last
func lastBefore(a, b series.Float) bool {
	if a.Valid != b.Valid {
		return a.Valid
	}
	return a.Valid && a.Value > b.Value
}

func sortByName(in []align.AlignedSeries, key string) {
	sort.SliceStable(in, func(i, j int) bool {
		a, b := in[i].Labels.Name(key), in[j].Labels.Name(key)
		if a != b {
			return a < b
		}
		return in[i].Labels.String() < in[j].Labels.String()
	})
}
