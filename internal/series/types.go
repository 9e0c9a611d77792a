// Package series holds the uniform time series representation every query
// result is normalized into, with missing samples kept explicit.
package series

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/common/model"
)

const (
	// RoleLabel is attached by the collector to tell capacity series apart
	// from the data series of the same panel
	RoleLabel = "__viswall_role__"

	// RoleCapacity marks a capacity series
	RoleCapacity = "capacity"
)

// Float is a sample value that may be missing. A missing value is never zero.
type Float struct {
	Value float64
	Valid bool
}

// Missing is the explicit no-data marker
var Missing = Float{}

// NewFloat returns v, or Missing when v is NaN or infinite.
func NewFloat(v float64) Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Missing
	}
	return Float{Value: v, Valid: true}
}

// Point is one sample of a TimeSeries
type Point struct {
	Time  time.Time
	Value Float
}

// Labels identify a series
type Labels map[string]string

// Get returns the value of key, empty if absent
func (l Labels) Get(key string) string {
	return l[key]
}

// IsCapacity reports whether the series carries the capacity role
func (l Labels) IsCapacity() bool {
	return l[RoleLabel] == RoleCapacity
}

// Name returns the value of key when present and otherwise the label set
// rendered without its role marker, so every series has a printable name.
func (l Labels) Name(key string) string {
	if key != "" {
		if v, ok := l[key]; ok && v != "" {
			return v
		}
	}
	if name, ok := l[model.MetricNameLabel]; ok && len(l.withoutRole()) == 1 {
		return name
	}
	return l.withoutRole().String()
}

// Fingerprint is stable across runs for the same label set
func (l Labels) Fingerprint() uint64 {
	return uint64(l.withoutRole().Fingerprint())
}

// String renders the label set as {a="b", c="d"} in key order
func (l Labels) String() string {
	return l.withoutRole().String()
}

// Clone returns a copy that can be modified independently
func (l Labels) Clone() Labels {
	out := make(Labels, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

func (l Labels) withoutRole() model.LabelSet {
	set := make(model.LabelSet, len(l))
	for k, v := range l {
		if k == RoleLabel {
			continue
		}
		set[model.LabelName(k)] = model.LabelValue(v)
	}
	return set
}

func labelsFromMetric(m model.Metric) Labels {
	out := make(Labels, len(m))
	for k, v := range m {
		out[string(k)] = string(v)
	}
	return out
}

// TimeSeries is a labelled sequence of points sorted strictly ascending by time.
type TimeSeries struct {
	Labels Labels
	Points []Point
}

// Len returns the number of points
func (s *TimeSeries) Len() int {
	return len(s.Points)
}

// Start returns the first timestamp; ok is false for an empty series
func (s *TimeSeries) Start() (t time.Time, ok bool) {
	if len(s.Points) == 0 {
		return time.Time{}, false
	}
	return s.Points[0].Time, true
}

// End returns the last timestamp; ok is false for an empty series
func (s *TimeSeries) End() (t time.Time, ok bool) {
	if len(s.Points) == 0 {
		return time.Time{}, false
	}
	return s.Points[len(s.Points)-1].Time, true
}

// sortPoints orders points ascending and drops later duplicates of a timestamp.
func sortPoints(points []Point) []Point {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})
	out := points[:0]
	for i, p := range points {
		if i > 0 && p.Time.Equal(out[len(out)-1].Time) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// SortByName orders series by their printable name under key, then by the
// full label set, so output does not depend on API response order.
func SortByName(in []TimeSeries, key string) {
	sort.SliceStable(in, func(i, j int) bool {
		a, b := in[i].Labels.Name(key), in[j].Labels.Name(key)
		if a != b {
			return strings.Compare(a, b) < 0
		}
		return in[i].Labels.String() < in[j].Labels.String()
	})
}
