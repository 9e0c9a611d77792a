package transport

import (
	"context"

	"github.com/flatironinstitute/viswall-prom/internal/transport/dto"
)

// MetricsClient abstracts the metrics query API of one cluster.
// Implementations: Prometheus HTTP API.
type MetricsClient interface {
	// Query issues a single instant or range query
	Query(ctx context.Context, req *dto.QueryRequest) (*dto.RawResult, error)

	// Probe checks connectivity and reports basic server facts
	Probe(ctx context.Context) (*dto.ProbeReport, error)

	// Close cleans up resources
	Close() error
}
