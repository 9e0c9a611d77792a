package config

import (
	"fmt"
	"regexp"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"

	wallv1alpha1 "github.com/flatironinstitute/viswall-prom/api/v1alpha1"
	"github.com/flatironinstitute/viswall-prom/internal/wallerr"
)

var (
	hexColor = regexp.MustCompile(`^#?([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

	knownFormats   = sets.New(wallv1alpha1.FormatCount, wallv1alpha1.FormatPercent, wallv1alpha1.FormatBytes, wallv1alpha1.FormatRaw, "")
	knownResources = sets.New(wallv1alpha1.ResourceCPUs, wallv1alpha1.ResourceBytes, wallv1alpha1.ResourceGPUs)
)

// Validate checks spec for inconsistencies detectable before any query runs.
// Unknown chart types are left to the chart builder.
func Validate(spec *wallv1alpha1.WallSpec) error {
	clusters := sets.New[string]()
	for i, c := range spec.Clusters {
		field := fmt.Sprintf("clusters[%d]", i)
		if c.Name == "" {
			return invalid(field+".name", "must not be empty")
		}
		if clusters.Has(c.Name) {
			return invalid(field+".name", fmt.Sprintf("duplicate cluster %q", c.Name))
		}
		clusters.Insert(c.Name)
		if c.URL == "" {
			return invalid(field+".url", "must not be empty")
		}
		if c.Retries < 0 {
			return invalid(field+".retries", "must not be negative")
		}
	}

	l := spec.Layout
	if l.Width <= 0 || l.Height <= 0 {
		return invalid("layout", fmt.Sprintf("invalid canvas %dx%d", l.Width, l.Height))
	}
	if l.Rows <= 0 || l.Columns <= 0 {
		return invalid("layout", fmt.Sprintf("invalid grid %dx%d", l.Rows, l.Columns))
	}
	for i, w := range l.ColumnWeights {
		if w <= 0 {
			return invalid(fmt.Sprintf("layout.columnWeights[%d]", i), "must be positive")
		}
	}
	if _, err := time.LoadLocation(l.Timezone); err != nil {
		return invalid("layout.timezone", err.Error())
	}
	if cells := l.Rows * l.Columns; len(spec.Panels) > cells {
		return invalid("panels", fmt.Sprintf("%d panels do not fit a %dx%d grid", len(spec.Panels), l.Rows, l.Columns))
	}

	for name, c := range spec.Colors {
		if !hexColor.MatchString(c) {
			return invalid("colors."+name, fmt.Sprintf("invalid hex color %q", c))
		}
	}
	if spec.Concurrency < 0 {
		return invalid("concurrency", "must not be negative")
	}

	for i := range spec.Panels {
		if err := validatePanel(fmt.Sprintf("panels[%d]", i), &spec.Panels[i], spec); err != nil {
			return err
		}
	}
	return nil
}

func validatePanel(field string, p *wallv1alpha1.PanelSpec, spec *wallv1alpha1.WallSpec) error {
	if !knownFormats.Has(p.Format) {
		return invalid(field+".format", fmt.Sprintf("unknown format %q", p.Format))
	}
	if p.Color != "" && !hexColor.MatchString(p.Color) {
		return invalid(field+".color", fmt.Sprintf("invalid hex color %q", p.Color))
	}
	if p.Resolution < 0 {
		return invalid(field+".resolution", "must not be negative")
	}
	if p.ChartType == wallv1alpha1.ChartInfo {
		return nil
	}

	for i := range p.Queries {
		if err := validateQuery(fmt.Sprintf("%s.queries[%d]", field, i), &p.Queries[i], spec); err != nil {
			return err
		}
	}
	if p.Capacity != nil {
		return validateQuery(field+".capacity", p.Capacity, spec)
	}
	return nil
}

func validateQuery(field string, q *wallv1alpha1.QuerySpec, spec *wallv1alpha1.WallSpec) error {
	if _, ok := spec.Cluster(q.Cluster); !ok {
		return invalid(field+".cluster", fmt.Sprintf("unknown cluster %q", q.Cluster))
	}

	set := 0
	if q.Expression != "" {
		set++
	}
	for _, t := range []*wallv1alpha1.TemplateSpec{q.Usage, q.CapacityOf} {
		if t == nil {
			continue
		}
		set++
		if !knownResources.Has(t.Resource) {
			return invalid(field, fmt.Sprintf("unknown resource %q", t.Resource))
		}
	}
	switch set {
	case 0:
		return invalid(field+".expression", "must not be empty")
	case 1:
	default:
		return invalid(field, "exactly one of expression, usage or capacityOf must be set")
	}

	if q.Range != nil {
		if q.Range.Step <= 0 {
			return invalid(field+".range.step", "must be positive")
		}
		if q.Range.Lookback < 0 {
			return invalid(field+".range.lookback", "must not be negative")
		}
	}
	return nil
}

func invalid(field, reason string) error {
	return &wallerr.ConfigError{Field: field, Reason: reason}
}
