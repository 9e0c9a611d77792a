package metrics

import (
	"fmt"

	"github.com/cockroachdb/errors"

	wallv1alpha1 "github.com/flatironinstitute/viswall-prom/api/v1alpha1"
)

// UsageQuery sums a resource held by running Slurm jobs, grouped by groupBy
func UsageQuery(t wallv1alpha1.TemplateSpec) string {
	return fmt.Sprintf(`%s (slurm_job_%s{state="running",job="slurm"})`, aggregation(t.GroupBy), t.Resource)
}

// CapacityQuery sums a resource of the nodes that are neither drained nor down
func CapacityQuery(t wallv1alpha1.TemplateSpec) string {
	return fmt.Sprintf(`%s (slurm_node_%s{state!="drain",state!="down"})`, aggregation(t.GroupBy), t.Resource)
}

// Expression returns the PromQL text of q
func Expression(q wallv1alpha1.QuerySpec) (string, error) {
	switch {
	case q.Expression != "":
		return q.Expression, nil
	case q.Usage != nil:
		return UsageQuery(*q.Usage), nil
	case q.CapacityOf != nil:
		return CapacityQuery(*q.CapacityOf), nil
	default:
		return "", errors.New("query has neither an expression nor a template")
	}
}

func aggregation(groupBy string) string {
	if groupBy == "" {
		return "sum"
	}
	return fmt.Sprintf("sum by(%s)", groupBy)
}
