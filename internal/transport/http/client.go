package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	promapi "github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	promconfig "github.com/prometheus/common/config"
	"github.com/prometheus/common/model"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/log"

	wallv1alpha1 "github.com/flatironinstitute/viswall-prom/api/v1alpha1"
	"github.com/flatironinstitute/viswall-prom/internal/transport/dto"
	"github.com/flatironinstitute/viswall-prom/internal/wallerr"
)

const (
	queryPath      = "/api/v1/query"
	queryRangePath = "/api/v1/query_range"

	defaultTimeout = 30 * time.Second
	statusSuccess  = "success"
)

// PrometheusClient implements transport.MetricsClient against the Prometheus HTTP API
type PrometheusClient struct {
	client       promapi.Client
	api          promv1.API
	roundTripper http.RoundTripper
	cluster      string
	url          string
	timeout      time.Duration
	backoff      wait.Backoff
}

// Option customises a PrometheusClient
type Option func(*PrometheusClient)

// WithBackoff replaces the retry schedule. Steps is overwritten from the
// cluster's retry count.
func WithBackoff(b wait.Backoff) Option {
	return func(c *PrometheusClient) {
		steps := c.backoff.Steps
		c.backoff = b
		c.backoff.Steps = steps
	}
}

// WithRoundTripper replaces the HTTP round tripper built from the cluster spec
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(c *PrometheusClient) {
		c.roundTripper = rt
	}
}

// NewPrometheusClient creates a client for one cluster
func NewPrometheusClient(spec wallv1alpha1.ClusterSpec, opts ...Option) (*PrometheusClient, error) {
	httpConfig := promconfig.DefaultHTTPClientConfig
	httpConfig.TLSConfig.InsecureSkipVerify = spec.InsecureSkipVerify
	if spec.Username != "" {
		httpConfig.BasicAuth = &promconfig.BasicAuth{
			Username:     spec.Username,
			Password:     promconfig.Secret(spec.Password),
			PasswordFile: spec.PasswordFile,
		}
	}
	if err := httpConfig.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid http config for cluster %s", spec.Name)
	}

	rt, err := promconfig.NewRoundTripperFromConfig(httpConfig, "viswall")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build round tripper for cluster %s", spec.Name)
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &PrometheusClient{
		roundTripper: rt,
		cluster:      spec.Name,
		url:          spec.URL,
		timeout:      timeout,
		backoff: wait.Backoff{
			Steps:    spec.Retries + 1,
			Duration: time.Second,
			Factor:   2,
			Jitter:   0.1,
			Cap:      16 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.client, err = promapi.NewClient(promapi.Config{
		Address:      spec.URL,
		RoundTripper: c.roundTripper,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create prometheus client for cluster %s", spec.Name)
	}
	c.api = promv1.NewAPI(c.client)

	return c, nil
}

// Query issues req, retrying transport and server failures as configured.
// Every failure is returned as a *wallerr.QueryError.
func (c *PrometheusClient) Query(ctx context.Context, req *dto.QueryRequest) (*dto.RawResult, error) {
	logger := log.FromContext(ctx).WithName("prometheus-client")

	var raw *dto.RawResult
	attempt := 0
	retriable := func(err error) bool {
		return ctx.Err() == nil && isRetriable(err)
	}
	err := retry.OnError(c.backoff, retriable, func() error {
		attempt++
		if attempt > 1 {
			logger.Info("Retrying query", "cluster", c.cluster, "attempt", attempt)
		}
		var err error
		raw, err = c.do(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(raw.Warnings) > 0 {
		logger.Info("Query returned warnings",
			"cluster", c.cluster,
			"expression", req.Expression,
			"warnings", raw.Warnings)
	}
	logger.V(1).Info("Query succeeded",
		"cluster", c.cluster,
		"expression", req.Expression,
		"resultType", raw.ResultType)

	return raw, nil
}

// do performs a single round trip
func (c *PrometheusClient) do(ctx context.Context, req *dto.QueryRequest) (*dto.RawResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	fail := func(status int, errorType string, err error) error {
		return &wallerr.QueryError{
			Cluster:    c.cluster,
			Expression: req.Expression,
			StatusCode: status,
			ErrorType:  errorType,
			Err:        err,
		}
	}

	endpoint := queryPath
	if req.IsRange() {
		endpoint = queryRangePath
	}
	u := c.client.URL(endpoint, nil)
	params := u.Query()
	params.Set("query", req.Expression)
	if req.IsRange() {
		params.Set("start", formatTime(req.Start))
		params.Set("end", formatTime(req.End))
		params.Set("step", strconv.FormatFloat(req.Step.Seconds(), 'f', -1, 64))
	} else if !req.Time.IsZero() {
		params.Set("time", formatTime(req.Time))
	}
	u.RawQuery = params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fail(0, "", errors.Wrap(err, "failed to create request"))
	}

	resp, body, err := c.client.Do(ctx, httpReq)
	if err != nil {
		return nil, fail(0, "", err)
	}

	var envelope dto.Envelope
	decodeErr := json.Unmarshal(body, &envelope)

	if resp.StatusCode/100 != 2 {
		msg := envelope.Error
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fail(resp.StatusCode, envelope.ErrorType, errors.Newf("%s", msg))
	}
	if decodeErr != nil {
		return nil, fail(resp.StatusCode, "", errors.Wrap(decodeErr, "malformed response body"))
	}
	if envelope.Status != statusSuccess {
		return nil, fail(resp.StatusCode, envelope.ErrorType,
			errors.Newf("status %q: %s", envelope.Status, envelope.Error))
	}

	raw := &dto.RawResult{}
	if err := json.Unmarshal(envelope.Data, raw); err != nil {
		return nil, fail(resp.StatusCode, "", errors.Wrap(err, "malformed response data"))
	}
	raw.Warnings = envelope.Warnings
	raw.Request = req

	return raw, nil
}

// Close releases idle connections
func (c *PrometheusClient) Close() error {
	type idleCloser interface{ CloseIdleConnections() }
	if ic, ok := c.roundTripper.(idleCloser); ok {
		ic.CloseIdleConnections()
	}
	return nil
}

// isRetriable accepts transport failures (including a timed out attempt) and
// 5xx responses, never client errors
func isRetriable(err error) bool {
	var qe *wallerr.QueryError
	if !errors.As(err, &qe) {
		return false
	}
	return qe.StatusCode == 0 || qe.StatusCode >= 500
}

func formatTime(t time.Time) string {
	return model.TimeFromUnixNano(t.UnixNano()).String()
}
