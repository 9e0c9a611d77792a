// Package align resamples independently scraped series onto one shared time
// axis so they can be plotted together.
package align

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/flatironinstitute/viswall-prom/internal/series"
)

// AlignedSeries is one input series resampled onto the shared axis.
// len(Values) always equals len(AlignedSeriesSet.TimeAxis).
type AlignedSeries struct {
	Labels series.Labels
	Values []series.Float
}

// AlignedSeriesSet is the last representation before chart building.
type AlignedSeriesSet struct {
	TimeAxis []time.Time
	Series   []AlignedSeries
}

// Last returns the value of s at the final axis instant
func (s *AlignedSeries) Last() series.Float {
	if len(s.Values) == 0 {
		return series.Missing
	}
	return s.Values[len(s.Values)-1]
}

// Align builds an axis from the earliest to the latest timestamp of all
// inputs, every resolution, and snaps each series onto it. An axis instant
// takes the nearest sample no more than resolution/2 away; on a tie the
// earlier sample wins. Instants with no such sample, and samples that are
// themselves missing, yield series.Missing. Input order is preserved.
func Align(in []series.TimeSeries, resolution time.Duration) (*AlignedSeriesSet, error) {
	if resolution <= 0 {
		return nil, errors.Newf("alignment resolution must be positive, got %s", resolution)
	}

	axis := buildAxis(in, resolution)
	out := &AlignedSeriesSet{
		TimeAxis: axis,
		Series:   make([]AlignedSeries, 0, len(in)),
	}
	for i := range in {
		out.Series = append(out.Series, AlignedSeries{
			Labels: in[i].Labels,
			Values: snap(in[i].Points, axis, resolution),
		})
	}
	return out, nil
}

func buildAxis(in []series.TimeSeries, resolution time.Duration) []time.Time {
	var start, end time.Time
	found := false
	for i := range in {
		first, ok := in[i].Start()
		if !ok {
			continue
		}
		last, _ := in[i].End()
		if !found || first.Before(start) {
			start = first
		}
		if !found || last.After(end) {
			end = last
		}
		found = true
	}
	if !found {
		return []time.Time{}
	}

	steps := int64((end.Sub(start) + resolution/2) / resolution)
	axis := make([]time.Time, 0, steps+1)
	for k := int64(0); k <= steps; k++ {
		axis = append(axis, start.Add(time.Duration(k)*resolution))
	}
	return axis
}

// snap walks points and axis together; both are ascending.
func snap(points []series.Point, axis []time.Time, resolution time.Duration) []series.Float {
	values := make([]series.Float, len(axis))
	half := resolution / 2
	j := 0
	for i, t := range axis {
		// skip samples too early for this instant and every later one
		for j < len(points) && t.Sub(points[j].Time) > half {
			j++
		}
		best := -1
		var bestDist time.Duration
		for k := j; k < len(points); k++ {
			d := points[k].Time.Sub(t)
			if d > half {
				break
			}
			if d < 0 {
				d = -d
			}
			// strict less keeps the earlier sample on a tie
			if best < 0 || d < bestDist {
				best, bestDist = k, d
			}
		}
		if best < 0 {
			values[i] = series.Missing
			continue
		}
		values[i] = points[best].Value
	}
	return values
}
