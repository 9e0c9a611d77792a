// Package orchestrator runs the per-panel pipeline of a status wall
// (collect, normalize, align, build) and assembles the composed image.
// Panels are collected concurrently and built once every name is known.
// Any panel failure aborts the whole run.
package orchestrator

import (
	"context"
	"image"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/sets"
	"sigs.k8s.io/controller-runtime/pkg/log"

	wallv1alpha1 "github.com/flatironinstitute/viswall-prom/api/v1alpha1"
	"github.com/flatironinstitute/viswall-prom/internal/align"
	"github.com/flatironinstitute/viswall-prom/internal/chart"
	"github.com/flatironinstitute/viswall-prom/internal/metrics"
	"github.com/flatironinstitute/viswall-prom/internal/publisher"
	"github.com/flatironinstitute/viswall-prom/internal/render"
	"github.com/flatironinstitute/viswall-prom/internal/transport"
	"github.com/flatironinstitute/viswall-prom/internal/wallerr"
)

// Orchestrator owns one immutable wall configuration and the clients it
// queries. It keeps no state between runs.
type Orchestrator struct {
	spec    *wallv1alpha1.WallSpec
	clients map[string]transport.MetricsClient

	// Now is the run clock; every lookback and timestamp of a run uses a
	// single reading of it.
	Now func() time.Time

	// RunMetrics receives a report after every Publish when set
	RunMetrics *publisher.RunMetrics
}

// New returns an orchestrator for spec. clients must hold one client per
// cluster the panels reference.
func New(spec *wallv1alpha1.WallSpec, clients map[string]transport.MetricsClient) *Orchestrator {
	return &Orchestrator{
		spec:    spec,
		clients: clients,
		Now:     time.Now,
	}
}

// run is the per-invocation context shared by all panels
type run struct {
	now       time.Time
	location  *time.Location
	collector *metrics.Collector
	builder   *chart.Builder
}

func (o *Orchestrator) newRun() (*run, error) {
	now := o.Now()
	loc := time.UTC
	if tz := o.spec.Layout.Timezone; tz != "" {
		var err error
		if loc, err = time.LoadLocation(tz); err != nil {
			return nil, &wallerr.ConfigError{Field: "layout.timezone", Reason: err.Error()}
		}
	}
	return &run{
		now:       now,
		location:  loc,
		collector: &metrics.Collector{Clients: o.clients, Now: now},
		builder: &chart.Builder{
			Palette:  chart.NewPalette(o.spec.Colors),
			Location: loc,
			Footer:   o.spec.Footer,
			Now:      now,
		},
	}, nil
}

// Run processes every panel and composes the wall. Panel i is placed in
// grid cell i regardless of completion order. The first failure, wrapped in
// a *wallerr.PanelError, aborts the run and no image is returned.
func (o *Orchestrator) Run(ctx context.Context) (image.Image, error) {
	logger := log.FromContext(ctx).WithName("orchestrator")

	r, err := o.newRun()
	if err != nil {
		return nil, err
	}

	aligned := make([]*align.AlignedSeriesSet, len(o.spec.Panels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(o.spec.Concurrency, 1))

	for i := range o.spec.Panels {
		panel := &o.spec.Panels[i]
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			set, err := r.collect(gctx, panel)
			if err != nil {
				return &wallerr.PanelError{Index: i, Title: panel.Title, Err: err}
			}
			aligned[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "run cancelled")
	}

	r.builder.Colors = r.registries(o.spec.Panels, aligned)

	panels := make([]*chart.DrawInstructions, len(o.spec.Panels))
	for i := range o.spec.Panels {
		panel := &o.spec.Panels[i]
		in, err := r.builder.Build(aligned[i], panel)
		if err != nil {
			return nil, &wallerr.PanelError{Index: i, Title: panel.Title, Err: err}
		}
		logger.V(1).Info("Built panel", "panel", panel.Title, "series", len(aligned[i].Series), "noData", in.NoData)
		panels[i] = in
	}

	img, err := render.Compose(o.spec.Layout, r.footer(o.spec.Footer), panels)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compose wall")
	}

	logger.Info("Composed wall", "panels", len(panels), "at", r.now)
	return img, nil
}

// collect runs the queries of one panel and aligns them on its grid
func (r *run) collect(ctx context.Context, panel *wallv1alpha1.PanelSpec) (*align.AlignedSeriesSet, error) {
	if panel.ChartType == wallv1alpha1.ChartInfo {
		return &align.AlignedSeriesSet{}, nil
	}
	raw, err := r.collector.CollectPanel(ctx, panel)
	if err != nil {
		return nil, err
	}
	aligned, err := align.Align(raw, metrics.Resolution(panel))
	if err != nil {
		return nil, err
	}
	log.FromContext(ctx).WithName("orchestrator").V(1).Info("Collected panel",
		"panel", panel.Title, "series", len(aligned.Series), "instants", len(aligned.TimeAxis))
	return aligned, nil
}

// registries builds one color registry per legend label from every series
// name the run draws under it, so a name keeps its color across panels.
func (r *run) registries(panels []wallv1alpha1.PanelSpec, aligned []*align.AlignedSeriesSet) map[string]*chart.Registry {
	names := map[string]sets.Set[string]{}
	for i := range panels {
		panel := &panels[i]
		if panel.ChartType == wallv1alpha1.ChartInfo || panel.Color != "" {
			continue
		}
		if names[panel.LegendLabel] == nil {
			names[panel.LegendLabel] = sets.New[string]()
		}
		names[panel.LegendLabel].Insert(r.builder.SeriesNames(aligned[i], panel)...)
	}
	out := make(map[string]*chart.Registry, len(names))
	for label, set := range names {
		out[label] = r.builder.Palette.Registry(sets.List(set))
	}
	return out
}

func (r *run) footer(spec wallv1alpha1.FooterSpec) render.Footer {
	layout := spec.TimestampFormat
	if layout == "" {
		layout = chart.DefaultTimestampFormat
	}
	return render.Footer{
		Hidden:    spec.Hidden,
		Author:    spec.Author,
		Timestamp: r.now.In(r.location).Format(layout),
	}
}
