package dto

import "encoding/json"

// Result types as declared by the Prometheus HTTP API
const (
	ResultTypeScalar = "scalar"
	ResultTypeVector = "vector"
	ResultTypeMatrix = "matrix"
	ResultTypeString = "string"
)

// Envelope is the JSON body of every /api/v1/query and /api/v1/query_range response.
type Envelope struct {
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data,omitempty"`
	ErrorType string          `json:"errorType,omitempty"`
	Error     string          `json:"error,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`
}

// RawResult is the loosely typed payload of a successful query: the declared
// result type and its still-encoded body. Interpreting Result is the
// normalizer's job.
type RawResult struct {
	ResultType string          `json:"resultType"`
	Result     json.RawMessage `json:"result"`

	// Warnings reported by the API alongside a successful result
	Warnings []string `json:"-"`

	// Request that produced this result
	Request *QueryRequest `json:"-"`
}
