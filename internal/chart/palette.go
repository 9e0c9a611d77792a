package chart

import (
	"strings"

	"github.com/prometheus/common/model"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/flatironinstitute/viswall-prom/internal/series"
)

// tab10 is the fallback categorical palette
var tab10 = []drawing.Color{
	drawing.ColorFromHex("1f77b4"),
	drawing.ColorFromHex("ff7f0e"),
	drawing.ColorFromHex("2ca02c"),
	drawing.ColorFromHex("d62728"),
	drawing.ColorFromHex("9467bd"),
	drawing.ColorFromHex("8c564b"),
	drawing.ColorFromHex("e377c2"),
	drawing.ColorFromHex("7f7f7f"),
	drawing.ColorFromHex("bcbd22"),
	drawing.ColorFromHex("17becf"),
}

// CapacityColor draws capacity lines and hollow bars
var CapacityColor = drawing.ColorBlack

// Palette holds the fixed colors of a wall. Fixed entries are matched
// case-insensitively.
type Palette struct {
	fixed map[string]drawing.Color
}

// NewPalette builds a palette from name to hex color pairs ("#CE3232" or "CE3232")
func NewPalette(fixed map[string]string) *Palette {
	p := &Palette{fixed: make(map[string]drawing.Color, len(fixed))}
	for name, hex := range fixed {
		p.fixed[strings.ToLower(name)] = drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
	}
	return p
}

// Fixed returns the pinned color of name, if any
func (p *Palette) Fixed(name string) (drawing.Color, bool) {
	if p == nil {
		return drawing.Color{}, false
	}
	c, ok := p.fixed[strings.ToLower(name)]
	return c, ok
}

// Registry pins one color per series name. It is built once from every name
// that shares it and is read-only afterwards.
type Registry struct {
	palette *Palette
	colors  map[string]drawing.Color
}

// Registry assigns fixed colors first, then tab10 colors to the remaining
// names in sorted order. The color of a name depends only on the set of
// names, never on the order they are drawn in.
func (p *Palette) Registry(names []string) *Registry {
	r := &Registry{palette: p, colors: make(map[string]drawing.Color, len(names))}
	rest := sets.New[string]()
	for _, name := range names {
		if c, ok := p.Fixed(name); ok {
			r.colors[name] = c
			continue
		}
		rest.Insert(name)
	}
	for i, name := range sets.List(rest) {
		r.colors[name] = tab10[i%len(tab10)]
	}
	return r
}

// Color returns the color of name. Names outside the registry fall back to
// the tab10 slot of their fingerprint.
func (r *Registry) Color(name string) drawing.Color {
	if c, ok := r.colors[name]; ok {
		return c
	}
	if c, ok := r.palette.Fixed(name); ok {
		return c
	}
	fp := series.Labels{model.MetricNameLabel: name}.Fingerprint()
	return tab10[fp%uint64(len(tab10))]
}
