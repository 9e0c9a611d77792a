/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package v1alpha1

import "time"

// Resource is the Slurm exporter resource a usage or capacity template reads
type Resource string

const (
	ResourceCPUs  Resource = "cpus"
	ResourceBytes Resource = "bytes"
	ResourceGPUs  Resource = "gpus"
)

// QuerySpec describes one metrics query. Exactly one of Expression, Usage or
// CapacityOf must be set.
type QuerySpec struct {
	// Cluster names the ClusterSpec to query
	Cluster string `json:"cluster"`

	// Expression is literal PromQL
	// +optional
	Expression string `json:"expression,omitempty"`

	// Usage renders the running-jobs usage template
	// +optional
	Usage *TemplateSpec `json:"usage,omitempty"`

	// CapacityOf renders the node capacity template
	// +optional
	CapacityOf *TemplateSpec `json:"capacityOf,omitempty"`

	// Label names series that carry no identifying labels of their own
	// +optional
	Label string `json:"label,omitempty"`

	// Range turns the query into a range query. Absent means instant.
	// +optional
	Range *RangeSpec `json:"range,omitempty"`
}

// TemplateSpec parameterises the Slurm usage and capacity templates.
type TemplateSpec struct {
	Resource Resource `json:"resource"`

	// GroupBy is the label to aggregate by; empty sums everything
	// +optional
	GroupBy string `json:"groupBy,omitempty"`
}

// RangeSpec is a window relative to the run clock.
type RangeSpec struct {
	// Lookback is how far before "now" the window starts
	Lookback time.Duration `json:"lookback"`

	// Step between samples
	Step time.Duration `json:"step"`
}

// IsRange reports whether q is a range query.
func (q *QuerySpec) IsRange() bool {
	return q.Range != nil
}
