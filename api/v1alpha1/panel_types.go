/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package v1alpha1

import "time"

// ChartType selects the visual encoding of a panel
type ChartType string

const (
	// ChartLine draws one broken polyline per series
	ChartLine ChartType = "line"

	// ChartStacked draws cumulative bands with an optional capacity line
	ChartStacked ChartType = "stacked"

	// ChartBar draws the latest value of each series with hollow capacity bars
	ChartBar ChartType = "bar"

	// ChartGauge draws the latest total against a maximum
	ChartGauge ChartType = "gauge"

	// ChartInfo draws the attribution, logo and timestamp; it has no queries
	ChartInfo ChartType = "info"
)

// ValueFormat selects how axis values are printed
type ValueFormat string

const (
	FormatCount   ValueFormat = "count"
	FormatPercent ValueFormat = "percent"
	FormatBytes   ValueFormat = "bytes"
	FormatRaw     ValueFormat = "raw"
)

// PanelSpec describes one chart region of the wall.
type PanelSpec struct {
	// Title is drawn in the panel and identifies it in errors
	Title string `json:"title"`

	ChartType ChartType `json:"chartType"`

	// Queries feed the plotted series
	// +optional
	Queries []QuerySpec `json:"queries,omitempty"`

	// Capacity feeds the capacity overlay (line, hollow bars or gauge maximum)
	// +optional
	Capacity *QuerySpec `json:"capacity,omitempty"`

	// LegendLabel is the label key whose value names a series, e.g. "account"
	// +optional
	LegendLabel string `json:"legendLabel,omitempty"`

	// +optional
	XLabel string `json:"xLabel,omitempty"`

	// +optional
	YLabel string `json:"yLabel,omitempty"`

	// +optional
	Format ValueFormat `json:"format,omitempty"`

	// Padding is the fraction of the value span added above (and below,
	// unless the chart keeps a zero baseline) the data
	// +optional
	Padding *float64 `json:"padding,omitempty"`

	// Resolution of the shared time axis; defaults to the largest query step
	// +optional
	Resolution time.Duration `json:"resolution,omitempty"`

	// Hide drops series whose name is listed
	// +optional
	Hide []string `json:"hide,omitempty"`

	// Color pins every series of the panel to one hex color
	// +optional
	Color string `json:"color,omitempty"`

	// Nicknames replace series names on bar labels
	// +optional
	Nicknames map[string]string `json:"nicknames,omitempty"`

	// AllowEmpty draws a "No Data" panel instead of failing when no series come back
	// +optional
	AllowEmpty bool `json:"allowEmpty,omitempty"`

	// GaugeMax is used when no capacity query is configured
	// +optional
	GaugeMax *float64 `json:"gaugeMax,omitempty"`
}

// AllQueries returns the data queries followed by the capacity query.
func (p *PanelSpec) AllQueries() []QuerySpec {
	out := make([]QuerySpec, 0, len(p.Queries)+1)
	out = append(out, p.Queries...)
	if p.Capacity != nil {
		out = append(out, *p.Capacity)
	}
	return out
}
