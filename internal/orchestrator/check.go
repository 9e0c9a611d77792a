package orchestrator

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/cockroachdb/errors"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/flatironinstitute/viswall-prom/internal/metrics"
	"github.com/flatironinstitute/viswall-prom/internal/series"
	"github.com/flatironinstitute/viswall-prom/internal/wallerr"
)

// Check probes every cluster and runs every panel query once, printing
// series and point counts to w. No image is produced. All checks run even
// after a failure; the returned error combines the failures in order.
func (o *Orchestrator) Check(ctx context.Context, w io.Writer) error {
	logger := log.FromContext(ctx).WithName("orchestrator")

	r, err := o.newRun()
	if err != nil {
		return err
	}

	var failures error
	names := make([]string, 0, len(o.clients))
	for name := range o.clients {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		report, err := o.clients[name].Probe(ctx)
		if err != nil {
			fmt.Fprintf(w, "cluster %s: FAILED: %v\n", name, err)
			failures = errors.CombineErrors(failures, err)
			continue
		}
		version := report.Version
		if version == "" {
			version = "unknown version"
		}
		fmt.Fprintf(w, "cluster %s (%s): %s, %d targets up, %d down\n",
			name, report.URL, version, report.TargetsUp, report.TargetsDown)
	}

	for i := range o.spec.Panels {
		panel := &o.spec.Panels[i]
		queries := panel.AllQueries()
		if len(queries) == 0 {
			continue
		}
		fmt.Fprintf(w, "panel %q:\n", panel.Title)
		for _, q := range queries {
			expr, err := metrics.Expression(q)
			if err != nil {
				expr = "<invalid query>"
			}
			out, err := r.collector.Fetch(ctx, q)
			if err != nil {
				fmt.Fprintf(w, "  %s %s: FAILED: %v\n", q.Cluster, expr, err)
				failures = errors.CombineErrors(failures, &wallerr.PanelError{Index: i, Title: panel.Title, Err: err})
				continue
			}
			fmt.Fprintf(w, "  %s %s: %d series, %d points\n", q.Cluster, expr, len(out), series.PointCount(out))
		}
	}

	if failures != nil {
		logger.Info("Connectivity check failed")
		return failures
	}
	logger.Info("Connectivity check passed", "clusters", len(names), "panels", len(o.spec.Panels))
	return nil
}
