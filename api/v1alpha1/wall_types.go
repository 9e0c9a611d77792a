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

// Package v1alpha1 holds the configuration schema of a status wall: the
// Prometheus clusters it reads from, the panels it draws and how they are laid
// out on the final image. Every type here is read-only once loaded.
package v1alpha1

import "time"

// WallSpec is the root configuration document.
type WallSpec struct {
	// Clusters are the Prometheus endpoints queries may target
	Clusters []ClusterSpec `json:"clusters"`

	// Panels are drawn in order, row-major, into the layout grid
	Panels []PanelSpec `json:"panels"`

	// Layout of the composed image
	Layout LayoutSpec `json:"layout"`

	// Footer drawn below the panel grid and inside info panels
	// +optional
	Footer FooterSpec `json:"footer,omitempty"`

	// Colors pins label values (case-insensitive) to a hex color
	// +optional
	Colors map[string]string `json:"colors,omitempty"`

	// Output controls where and how the image is written
	// +optional
	Output OutputSpec `json:"output,omitempty"`

	// Concurrency is the number of panels processed at once. 0 and 1 both
	// mean sequential.
	// +optional
	Concurrency int `json:"concurrency,omitempty"`
}

// ClusterSpec describes one Prometheus-compatible endpoint.
type ClusterSpec struct {
	// Name referenced by QuerySpec.Cluster
	Name string `json:"name"`

	// URL of the Prometheus HTTP API, without the /api/v1 suffix
	URL string `json:"url"`

	// +optional
	Username string `json:"username,omitempty"`

	// +optional
	Password string `json:"password,omitempty"`

	// PasswordFile takes precedence over Password
	// +optional
	PasswordFile string `json:"passwordFile,omitempty"`

	// +optional
	InsecureSkipVerify bool `json:"insecureSkipVerify,omitempty"`

	// Timeout bounds a single query round trip
	// +optional
	Timeout time.Duration `json:"timeout,omitempty"`

	// Retries is the number of extra attempts on transport or 5xx failures
	// +optional
	Retries int `json:"retries,omitempty"`
}

// LayoutSpec describes the panel grid.
type LayoutSpec struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	Rows    int `json:"rows"`
	Columns int `json:"columns"`

	// ColumnWeights are relative column widths; missing entries weigh 1
	// +optional
	ColumnWeights []int `json:"columnWeights,omitempty"`

	// Timezone used for axis ticks and the footer timestamp (IANA name)
	// +optional
	Timezone string `json:"timezone,omitempty"`
}

// FooterSpec is the attribution and timestamp text.
type FooterSpec struct {
	// +optional
	Author string `json:"author,omitempty"`

	// Logo is a PNG file scaled next to the author text
	// +optional
	Logo string `json:"logo,omitempty"`

	// TimestampFormat is a Go time layout
	// +optional
	TimestampFormat string `json:"timestampFormat,omitempty"`

	// Hidden suppresses the footer strip; info panels still show it
	// +optional
	Hidden bool `json:"hidden,omitempty"`
}

// OutputSpec controls publishing of the composed image.
type OutputSpec struct {
	// Path of the PNG file. Empty means connectivity check only.
	// +optional
	Path string `json:"path,omitempty"`

	// LatestLink is a symlink re-pointed at Path after a successful run
	// +optional
	LatestLink string `json:"latestLink,omitempty"`

	// Pushgateway receives run metrics when set
	// +optional
	Pushgateway string `json:"pushgateway,omitempty"`
}

// Cluster returns the cluster named name.
func (w *WallSpec) Cluster(name string) (ClusterSpec, bool) {
	for _, c := range w.Clusters {
		if c.Name == name {
			return c, true
		}
	}
	return ClusterSpec{}, false
}
