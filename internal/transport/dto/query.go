package dto

import "time"

// QueryRequest is one resolved metrics query. A zero Step means an instant
// query evaluated at Time; otherwise the range [Start, End] is sampled every Step.
type QueryRequest struct {
	Cluster    string
	Expression string

	// Time is the evaluation instant of an instant query
	Time time.Time

	Start time.Time
	End   time.Time
	Step  time.Duration
}

// IsRange reports whether the request is a range query.
func (r *QueryRequest) IsRange() bool {
	return r.Step > 0
}
