package orchestrator

import (
	"testing"
	"time"

	wallv1alpha1 "github.com/flatironinstitute/viswall-prom/api/v1alpha1"
	"github.com/flatironinstitute/viswall-prom/internal/align"
	"github.com/flatironinstitute/viswall-prom/internal/series"
)

func accounts(names ...string) *align.AlignedSeriesSet {
	set := &align.AlignedSeriesSet{TimeAxis: []time.Time{time.Unix(1714737600, 0)}}
	for _, name := range names {
		set.Series = append(set.Series, align.AlignedSeries{
			Labels: series.Labels{"account": name},
			Values: []series.Float{series.NewFloat(1)},
		})
	}
	return set
}

func TestRegistriesShareNamesAcrossPanels(t *testing.T) {
	spec := &wallv1alpha1.WallSpec{
		Colors: map[string]string{"cca": "#CE3232"},
		Panels: []wallv1alpha1.PanelSpec{
			{Title: "Rusty", ChartType: wallv1alpha1.ChartStacked, LegendLabel: "account"},
			{Title: "Popeye", ChartType: wallv1alpha1.ChartStacked, LegendLabel: "account"},
			{Title: "Nodes", ChartType: wallv1alpha1.ChartBar, LegendLabel: "nodes", Color: "#537EBA"},
			{ChartType: wallv1alpha1.ChartInfo},
		},
	}
	o := New(spec, nil)
	r, err := o.newRun()
	if err != nil {
		t.Fatalf("newRun: %v", err)
	}

	aligned := []*align.AlignedSeriesSet{
		accounts("acct6", "cca"),
		accounts("acct0", "acct6"),
		{},
		{},
	}
	registries := r.registries(spec.Panels, aligned)

	if len(registries) != 1 {
		t.Fatalf("expected one registry for the account label, got %d", len(registries))
	}
	colors := registries["account"]
	if colors == nil {
		t.Fatalf("no registry for the account label")
	}

	// the same registry is consulted no matter which panel draws acct6
	swapped := r.registries(spec.Panels, []*align.AlignedSeriesSet{
		accounts("acct0", "acct6"),
		accounts("acct6", "cca"),
		{},
		{},
	})["account"]
	for _, name := range []string{"acct0", "acct6", "cca"} {
		if got, want := swapped.Color(name), colors.Color(name); got != want {
			t.Fatalf("color of %s changed with panel order: %v != %v", name, got, want)
		}
	}
	if colors.Color("acct0") == colors.Color("acct6") {
		t.Fatalf("acct0 and acct6 share a color")
	}
	if got := colors.Color("CCA"); got != colors.Color("cca") {
		t.Fatalf("fixed colors should match case-insensitively")
	}
}
