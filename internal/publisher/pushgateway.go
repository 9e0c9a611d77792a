package publisher

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

const pushJob = "viswall"

// RunReport summarises one wall run for the Pushgateway
type RunReport struct {
	Duration time.Duration
	Panels   int
	Success  bool
	Finished time.Time
}

// RunMetrics pushes run reports of the batch job, which is gone before any
// scraper could see it.
type RunMetrics struct {
	URL string

	duration    prometheus.Gauge
	panels      prometheus.Gauge
	lastSuccess prometheus.Gauge
	failed      prometheus.Gauge
	registry    *prometheus.Registry
}

// NewRunMetrics registers the run gauges on a private registry
func NewRunMetrics(url string) *RunMetrics {
	m := &RunMetrics{
		URL:      url,
		registry: prometheus.NewRegistry(),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "viswall_run_duration_seconds",
			Help: "Duration of the last status wall run",
		}),
		panels: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "viswall_panels",
			Help: "Panels drawn by the last status wall run",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "viswall_last_success_timestamp_seconds",
			Help: "Unix time of the last successful status wall run",
		}),
		failed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "viswall_last_run_failed",
			Help: "1 if the last status wall run failed",
		}),
	}
	m.registry.MustRegister(m.duration, m.panels, m.lastSuccess, m.failed)
	return m
}

// Push sends report. A failed run keeps the previous success timestamp on
// the gateway by not pushing that gauge.
func (m *RunMetrics) Push(ctx context.Context, report RunReport) error {
	logger := log.FromContext(ctx).WithName("pushgateway")

	m.duration.Set(report.Duration.Seconds())
	m.panels.Set(float64(report.Panels))

	pusher := push.New(m.URL, pushJob).Collector(m.duration).Collector(m.panels).Collector(m.failed)
	if report.Success {
		m.failed.Set(0)
		m.lastSuccess.Set(float64(report.Finished.Unix()))
		pusher = pusher.Collector(m.lastSuccess)
	} else {
		m.failed.Set(1)
	}

	if err := pusher.AddContext(ctx); err != nil {
		return errors.Wrapf(err, "failed to push run metrics to %s", m.URL)
	}
	logger.V(1).Info("Pushed run metrics", "url", m.URL, "success", report.Success)
	return nil
}
