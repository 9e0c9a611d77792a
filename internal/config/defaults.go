package config

import (
	"time"
	// the default timezone must resolve in minimal container images
	_ "time/tzdata"

	"github.com/spf13/viper"

	wallv1alpha1 "github.com/flatironinstitute/viswall-prom/api/v1alpha1"
)

const (
	DefaultWidth    = 1920
	DefaultHeight   = 1080
	DefaultRows     = 2
	DefaultColumns  = 3
	DefaultTimezone = "America/New_York"

	// DefaultClusterTimeout bounds one query round trip
	DefaultClusterTimeout = 30 * time.Second
)

// DefaultColumnWeights apply only to the default three-column grid
var DefaultColumnWeights = []int{12, 4, 4}

func setDefaults(v *viper.Viper) {
	v.SetDefault("layout.width", DefaultWidth)
	v.SetDefault("layout.height", DefaultHeight)
	v.SetDefault("layout.rows", DefaultRows)
	v.SetDefault("layout.columns", DefaultColumns)
	v.SetDefault("layout.timezone", DefaultTimezone)
	v.SetDefault("concurrency", 1)
}

func applyDefaults(spec *wallv1alpha1.WallSpec) {
	for i := range spec.Clusters {
		if spec.Clusters[i].Timeout <= 0 {
			spec.Clusters[i].Timeout = DefaultClusterTimeout
		}
	}
	if len(spec.Layout.ColumnWeights) == 0 && spec.Layout.Columns == DefaultColumns {
		spec.Layout.ColumnWeights = append([]int(nil), DefaultColumnWeights...)
	}
}
