package metrics_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	wallv1alpha1 "github.com/flatironinstitute/viswall-prom/api/v1alpha1"
	"github.com/flatironinstitute/viswall-prom/internal/metrics"
	"github.com/flatironinstitute/viswall-prom/internal/transport"
	"github.com/flatironinstitute/viswall-prom/internal/transport/dto"
	"github.com/flatironinstitute/viswall-prom/internal/wallerr"
)

func TestCollector(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Metrics Collector Suite")
}

// fakeClient answers queries from canned results keyed by expression
type fakeClient struct {
	results  map[string]*dto.RawResult
	err      error
	requests []*dto.QueryRequest
}

func (f *fakeClient) Query(_ context.Context, req *dto.QueryRequest) (*dto.RawResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	raw, ok := f.results[req.Expression]
	if !ok {
		return &dto.RawResult{ResultType: dto.ResultTypeVector, Result: json.RawMessage(`[]`), Request: req}, nil
	}
	return raw, nil
}

func (f *fakeClient) Probe(context.Context) (*dto.ProbeReport, error) {
	return &dto.ProbeReport{}, nil
}

func (f *fakeClient) Close() error { return nil }

var _ transport.MetricsClient = &fakeClient{}

var _ = Describe("Metrics Collector", func() {
	var (
		ctx       context.Context
		now       time.Time
		client    *fakeClient
		collector *metrics.Collector
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)
		client = &fakeClient{results: map[string]*dto.RawResult{}}
		collector = &metrics.Collector{
			Clients: map[string]transport.MetricsClient{"rusty": client},
			Now:     now,
		}
	})

	Context("PromQL templates", func() {
		It("should render the usage and capacity queries", func() {
			t := wallv1alpha1.TemplateSpec{Resource: wallv1alpha1.ResourceCPUs, GroupBy: "account"}

			Expect(metrics.UsageQuery(t)).To(Equal(`sum by(account) (slurm_job_cpus{state="running",job="slurm"})`))
			Expect(metrics.CapacityQuery(t)).To(Equal(`sum by(account) (slurm_node_cpus{state!="drain",state!="down"})`))
		})

		It("should sum everything without a group", func() {
			t := wallv1alpha1.TemplateSpec{Resource: wallv1alpha1.ResourceGPUs}

			Expect(metrics.CapacityQuery(t)).To(Equal(`sum (slurm_node_gpus{state!="drain",state!="down"})`))
		})

		It("should prefer a literal expression", func() {
			expr, err := metrics.Expression(wallv1alpha1.QuerySpec{
				Expression: "up",
				Usage:      &wallv1alpha1.TemplateSpec{Resource: wallv1alpha1.ResourceCPUs},
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(expr).To(Equal("up"))
		})

		It("should fail on an empty query", func() {
			_, err := metrics.Expression(wallv1alpha1.QuerySpec{Cluster: "rusty"})

			Expect(err).To(HaveOccurred())
		})
	})

	Context("Resolve", func() {
		It("should evaluate instant queries at the run clock", func() {
			req, err := collector.Resolve(wallv1alpha1.QuerySpec{Cluster: "rusty", Expression: "up"})

			Expect(err).ToNot(HaveOccurred())
			Expect(req.IsRange()).To(BeFalse())
			Expect(req.Time).To(Equal(now))
		})

		It("should resolve the lookback window against the run clock", func() {
			req, err := collector.Resolve(wallv1alpha1.QuerySpec{
				Cluster:    "rusty",
				Expression: "up",
				Range:      &wallv1alpha1.RangeSpec{Lookback: 7 * 24 * time.Hour, Step: time.Hour},
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(req.IsRange()).To(BeTrue())
			Expect(req.Start).To(Equal(now.Add(-7 * 24 * time.Hour)))
			Expect(req.End).To(Equal(now))
			Expect(req.Step).To(Equal(time.Hour))
		})

		It("should reject a non-positive step", func() {
			_, err := collector.Resolve(wallv1alpha1.QuerySpec{
				Cluster:    "rusty",
				Expression: "up",
				Range:      &wallv1alpha1.RangeSpec{Lookback: time.Hour},
			})

			Expect(err).To(HaveOccurred())
		})
	})

	Context("CollectPanel", func() {
		var panel *wallv1alpha1.PanelSpec

		BeforeEach(func() {
			usage := wallv1alpha1.TemplateSpec{Resource: wallv1alpha1.ResourceGPUs, GroupBy: "gputype"}
			panel = &wallv1alpha1.PanelSpec{
				Title:     "Rusty Current GPU Usage",
				ChartType: wallv1alpha1.ChartBar,
				Queries:   []wallv1alpha1.QuerySpec{{Cluster: "rusty", Usage: &usage}},
				Capacity:  &wallv1alpha1.QuerySpec{Cluster: "rusty", CapacityOf: &usage},
			}
			client.results[metrics.UsageQuery(usage)] = &dto.RawResult{
				ResultType: dto.ResultTypeVector,
				Result: json.RawMessage(`[
					{"metric":{"gputype":"a100"},"value":[1714737600,"12"]},
					{"metric":{"gputype":"h100"},"value":[1714737600,"30"]}]`),
			}
			client.results[metrics.CapacityQuery(usage)] = &dto.RawResult{
				ResultType: dto.ResultTypeVector,
				Result: json.RawMessage(`[
					{"metric":{"gputype":"a100"},"value":[1714737600,"64"]},
					{"metric":{"gputype":"h100"},"value":[1714737600,"32"]}]`),
			}
		})

		It("should return data series followed by tagged capacity series", func() {
			out, err := collector.CollectPanel(ctx, panel)

			Expect(err).ToNot(HaveOccurred())
			Expect(out).To(HaveLen(4))
			Expect(out[0].Labels.IsCapacity()).To(BeFalse())
			Expect(out[1].Labels.IsCapacity()).To(BeFalse())
			Expect(out[2].Labels.IsCapacity()).To(BeTrue())
			Expect(out[3].Labels.Get("gputype")).To(Equal("h100"))
			Expect(client.requests).To(HaveLen(2))
		})

		It("should name unlabelled series after the query label", func() {
			client.results["count(up)"] = &dto.RawResult{
				ResultType: dto.ResultTypeScalar,
				Result:     json.RawMessage(`[1714737600,"3"]`),
			}
			panel.Queries = []wallv1alpha1.QuerySpec{{Cluster: "rusty", Expression: "count(up)", Label: "targets"}}
			panel.Capacity = nil

			out, err := collector.CollectPanel(ctx, panel)

			Expect(err).ToNot(HaveOccurred())
			Expect(out).To(HaveLen(1))
			Expect(out[0].Labels.Name("gputype")).To(Equal("targets"))
		})

		It("should propagate query errors unchanged", func() {
			client.err = &wallerr.QueryError{Cluster: "rusty", Expression: "up", StatusCode: 503}

			_, err := collector.CollectPanel(ctx, panel)

			Expect(wallerr.IsQueryError(err)).To(BeTrue())
		})

		It("should surface shape errors", func() {
			client.results[metrics.UsageQuery(*panel.Queries[0].Usage)] = &dto.RawResult{
				ResultType: dto.ResultTypeString,
				Result:     json.RawMessage(`[1714737600,"x"]`),
			}

			_, err := collector.CollectPanel(ctx, panel)

			Expect(wallerr.IsShapeError(err)).To(BeTrue())
		})

		It("should fail for an unknown cluster", func() {
			panel.Queries[0].Cluster = "popeye"

			_, err := collector.CollectPanel(ctx, panel)

			Expect(err).To(MatchError(ContainSubstring(`no client for cluster "popeye"`)))
		})
	})

	Context("Resolution", func() {
		It("should use the configured resolution first", func() {
			Expect(metrics.Resolution(&wallv1alpha1.PanelSpec{Resolution: 5 * time.Minute})).To(Equal(5 * time.Minute))
		})

		It("should use the largest range step", func() {
			panel := &wallv1alpha1.PanelSpec{Queries: []wallv1alpha1.QuerySpec{
				{Range: &wallv1alpha1.RangeSpec{Lookback: time.Hour, Step: time.Minute}},
				{Range: &wallv1alpha1.RangeSpec{Lookback: time.Hour, Step: time.Hour}},
			}}

			Expect(metrics.Resolution(panel)).To(Equal(time.Hour))
		})

		It("should fall back for instant-only panels", func() {
			Expect(metrics.Resolution(&wallv1alpha1.PanelSpec{})).To(Equal(metrics.DefaultResolution))
		})
	})
})
