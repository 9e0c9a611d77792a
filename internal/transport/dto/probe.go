package dto

// ProbeReport is the outcome of a connectivity check against one cluster.
type ProbeReport struct {
	Cluster string `json:"cluster"`
	URL     string `json:"url"`

	// Version of the Prometheus server, empty if build info is unavailable
	Version string `json:"version,omitempty"`

	// TargetsUp and TargetsDown count the series of the "up" metric
	TargetsUp   int `json:"targetsUp"`
	TargetsDown int `json:"targetsDown"`
}
