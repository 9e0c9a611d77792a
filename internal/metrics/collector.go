package metrics

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/common/model"
	"sigs.k8s.io/controller-runtime/pkg/log"

	wallv1alpha1 "github.com/flatironinstitute/viswall-prom/api/v1alpha1"
	"github.com/flatironinstitute/viswall-prom/internal/series"
	"github.com/flatironinstitute/viswall-prom/internal/transport"
	"github.com/flatironinstitute/viswall-prom/internal/transport/dto"
)

// DefaultResolution is used for panels made only of instant queries
const DefaultResolution = time.Minute

// Collector fetches and normalizes the series of one panel
type Collector struct {
	// Clients by cluster name
	Clients map[string]transport.MetricsClient

	// Now is the run clock every lookback is resolved against
	Now time.Time
}

// Resolve turns q into a concrete request at the collector's clock
func (c *Collector) Resolve(q wallv1alpha1.QuerySpec) (*dto.QueryRequest, error) {
	expr, err := Expression(q)
	if err != nil {
		return nil, err
	}
	req := &dto.QueryRequest{
		Cluster:    q.Cluster,
		Expression: expr,
		Time:       c.Now,
	}
	if q.IsRange() {
		if q.Range.Step <= 0 {
			return nil, errors.Newf("range step must be positive, got %s", q.Range.Step)
		}
		req.Time = time.Time{}
		req.Start = c.Now.Add(-q.Range.Lookback)
		req.End = c.Now
		req.Step = q.Range.Step
	}
	return req, nil
}

// Fetch issues one query and normalizes its result
func (c *Collector) Fetch(ctx context.Context, q wallv1alpha1.QuerySpec) ([]series.TimeSeries, error) {
	logger := log.FromContext(ctx).WithName("collector")

	client, ok := c.Clients[q.Cluster]
	if !ok {
		return nil, errors.Newf("no client for cluster %q", q.Cluster)
	}
	req, err := c.Resolve(q)
	if err != nil {
		return nil, err
	}

	raw, err := client.Query(ctx, req)
	if err != nil {
		return nil, err
	}
	out, err := series.Normalize(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "cluster %s: %s", q.Cluster, req.Expression)
	}

	if q.Label != "" {
		for i := range out {
			if len(out[i].Labels) == 0 {
				out[i].Labels = series.Labels{model.MetricNameLabel: q.Label}
			}
		}
	}

	logger.V(1).Info("Fetched series",
		"cluster", q.Cluster,
		"expression", req.Expression,
		"series", len(out),
		"points", series.PointCount(out))

	return out, nil
}

// CollectPanel fetches every query of panel in order, data queries first.
// The series of each query are sorted by name; capacity series are tagged
// with the capacity role.
func (c *Collector) CollectPanel(ctx context.Context, panel *wallv1alpha1.PanelSpec) ([]series.TimeSeries, error) {
	var all []series.TimeSeries
	for i := range panel.Queries {
		out, err := c.Fetch(ctx, panel.Queries[i])
		if err != nil {
			return nil, err
		}
		series.SortByName(out, panel.LegendLabel)
		all = append(all, out...)
	}

	if panel.Capacity != nil {
		out, err := c.Fetch(ctx, *panel.Capacity)
		if err != nil {
			return nil, errors.Wrap(err, "capacity")
		}
		series.SortByName(out, panel.LegendLabel)
		for i := range out {
			labels := out[i].Labels.Clone()
			labels[series.RoleLabel] = series.RoleCapacity
			out[i].Labels = labels
		}
		all = append(all, out...)
	}

	return all, nil
}

// Resolution returns the shared axis step of panel: the configured one, or
// the largest range step, or DefaultResolution for instant-only panels.
func Resolution(panel *wallv1alpha1.PanelSpec) time.Duration {
	if panel.Resolution > 0 {
		return panel.Resolution
	}
	var step time.Duration
	for _, q := range panel.AllQueries() {
		if q.IsRange() && q.Range.Step > step {
			step = q.Range.Step
		}
	}
	if step == 0 {
		return DefaultResolution
	}
	return step
}
