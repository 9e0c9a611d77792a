package series

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/common/model"

	"github.com/flatironinstitute/viswall-prom/internal/transport/dto"
	"github.com/flatironinstitute/viswall-prom/internal/wallerr"
)

// Normalize converts a raw query result into time series. A scalar becomes
// one series with empty labels, each vector sample a single-point series and
// each matrix stream a multi-point series. NaN, infinite and native histogram
// samples become Missing points rather than being dropped.
func Normalize(raw *dto.RawResult) ([]TimeSeries, error) {
	if raw == nil {
		return nil, &wallerr.ShapeError{Err: errors.New("nil result")}
	}

	switch raw.ResultType {
	case dto.ResultTypeScalar:
		var scalar model.Scalar
		if err := decode(raw, &scalar); err != nil {
			return nil, err
		}
		return []TimeSeries{{
			Labels: Labels{},
			Points: []Point{{Time: scalar.Timestamp.Time(), Value: NewFloat(float64(scalar.Value))}},
		}}, nil

	case dto.ResultTypeVector:
		var vector model.Vector
		if err := decode(raw, &vector); err != nil {
			return nil, err
		}
		out := make([]TimeSeries, 0, len(vector))
		for _, sample := range vector {
			if sample == nil {
				continue
			}
			out = append(out, TimeSeries{
				Labels: labelsFromMetric(sample.Metric),
				Points: []Point{{Time: sample.Timestamp.Time(), Value: sampleValue(sample)}},
			})
		}
		return out, nil

	case dto.ResultTypeMatrix:
		var matrix model.Matrix
		if err := decode(raw, &matrix); err != nil {
			return nil, err
		}
		out := make([]TimeSeries, 0, len(matrix))
		for _, stream := range matrix {
			if stream == nil {
				continue
			}
			points := make([]Point, 0, len(stream.Values)+len(stream.Histograms))
			for _, pair := range stream.Values {
				points = append(points, Point{Time: pair.Timestamp.Time(), Value: NewFloat(float64(pair.Value))})
			}
			for _, pair := range stream.Histograms {
				points = append(points, Point{Time: pair.Timestamp.Time(), Value: Missing})
			}
			out = append(out, TimeSeries{
				Labels: labelsFromMetric(stream.Metric),
				Points: sortPoints(points),
			})
		}
		return out, nil

	default:
		// "string" results and anything newer are not plottable
		return nil, &wallerr.ShapeError{ResultType: raw.ResultType}
	}
}

// PointCount totals the points of all series
func PointCount(in []TimeSeries) int {
	n := 0
	for i := range in {
		n += in[i].Len()
	}
	return n
}

func decode(raw *dto.RawResult, into any) error {
	if len(raw.Result) == 0 {
		return &wallerr.ShapeError{ResultType: raw.ResultType, Err: errors.New("empty result body")}
	}
	if err := json.Unmarshal(raw.Result, into); err != nil {
		return &wallerr.ShapeError{ResultType: raw.ResultType, Err: err}
	}
	return nil
}

func sampleValue(s *model.Sample) Float {
	if s.Histogram != nil {
		return Missing
	}
	return NewFloat(float64(s.Value))
}
