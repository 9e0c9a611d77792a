package http

import (
	"context"
	"time"

	"github.com/prometheus/common/model"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/flatironinstitute/viswall-prom/internal/transport/dto"
	"github.com/flatironinstitute/viswall-prom/internal/wallerr"
)

const probeExpression = "up"

// Probe checks that the cluster answers queries. Build info is best effort:
// older servers and some proxies do not expose it.
func (c *PrometheusClient) Probe(ctx context.Context) (*dto.ProbeReport, error) {
	logger := log.FromContext(ctx).WithName("prometheus-probe")

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	report := &dto.ProbeReport{
		Cluster: c.cluster,
		URL:     c.url,
	}

	if info, err := c.api.Buildinfo(ctx); err != nil {
		logger.V(1).Info("Build info unavailable", "cluster", c.cluster, "error", err.Error())
	} else {
		report.Version = info.Version
	}

	value, warnings, err := c.api.Query(ctx, probeExpression, time.Now())
	if err != nil {
		return nil, &wallerr.QueryError{
			Cluster:    c.cluster,
			Expression: probeExpression,
			Err:        err,
		}
	}
	if len(warnings) > 0 {
		logger.Info("Probe returned warnings", "cluster", c.cluster, "warnings", warnings)
	}

	if vector, ok := value.(model.Vector); ok {
		for _, sample := range vector {
			if sample.Value == 1 {
				report.TargetsUp++
			} else {
				report.TargetsDown++
			}
		}
	}

	logger.Info("Probe succeeded",
		"cluster", c.cluster,
		"version", report.Version,
		"targetsUp", report.TargetsUp,
		"targetsDown", report.TargetsDown)

	return report, nil
}
