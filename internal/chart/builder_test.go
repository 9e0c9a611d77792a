package chart

import (
	"testing"
	"time"
	_ "time/tzdata"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/wcharczuk/go-chart/v2/drawing"

	wallv1alpha1 "github.com/flatironinstitute/viswall-prom/api/v1alpha1"
	"github.com/flatironinstitute/viswall-prom/internal/align"
	"github.com/flatironinstitute/viswall-prom/internal/series"
	"github.com/flatironinstitute/viswall-prom/internal/wallerr"
)

func TestChart(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Chart Builder Suite")
}

var (
	epoch = time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)
	no    = series.Missing
)

func f(v float64) series.Float { return series.NewFloat(v) }

func axis(n int, step time.Duration) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = epoch.Add(time.Duration(i) * step)
	}
	return out
}

func named(key, name string, values ...series.Float) align.AlignedSeries {
	return align.AlignedSeries{Labels: series.Labels{key: name}, Values: values}
}

func capacityOf(key, name string, values ...series.Float) align.AlignedSeries {
	return align.AlignedSeries{Labels: series.Labels{key: name, series.RoleLabel: series.RoleCapacity}, Values: values}
}

var _ = Describe("Builder", func() {
	var (
		builder *Builder
		panel   *wallv1alpha1.PanelSpec
	)

	BeforeEach(func() {
		builder = &Builder{
			Palette:  NewPalette(map[string]string{"cca": "#CE3232"}),
			Location: time.UTC,
			Footer:   wallv1alpha1.FooterSpec{Author: "Made by your friends in SCC"},
			Now:      epoch,
		}
		panel = &wallv1alpha1.PanelSpec{Title: "Rusty CPU Usage by Center", LegendLabel: "account"}
	})

	Context("with an invalid panel", func() {
		It("should reject an unknown chart type without emitting instructions", func() {
			panel.ChartType = "unknown"
			aligned := &align.AlignedSeriesSet{TimeAxis: axis(1, time.Minute), Series: []align.AlignedSeries{named("account", "cca", f(1))}}

			out, err := builder.Build(aligned, panel)

			Expect(out).To(BeNil())
			Expect(wallerr.IsRenderSpecError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring(`unknown chart type "unknown"`))
		})

		It("should reject an empty series set", func() {
			panel.ChartType = wallv1alpha1.ChartLine

			out, err := builder.Build(&align.AlignedSeriesSet{}, panel)

			Expect(out).To(BeNil())
			Expect(wallerr.IsRenderSpecError(err)).To(BeTrue())
		})

		It("should draw a No Data panel when empty results are allowed", func() {
			panel.ChartType = wallv1alpha1.ChartBar
			panel.AllowEmpty = true

			out, err := builder.Build(&align.AlignedSeriesSet{}, panel)

			Expect(err).ToNot(HaveOccurred())
			Expect(out.NoData).To(BeTrue())
			Expect(out.Title).To(Equal(panel.Title))
		})

		It("should treat a panel of only capacity series as empty", func() {
			panel.ChartType = wallv1alpha1.ChartLine
			aligned := &align.AlignedSeriesSet{TimeAxis: axis(1, time.Minute), Series: []align.AlignedSeries{capacityOf("account", "cca", f(1))}}

			_, err := builder.Build(aligned, panel)

			Expect(wallerr.IsRenderSpecError(err)).To(BeTrue())
		})

		It("should reject an unknown value format", func() {
			panel.ChartType = wallv1alpha1.ChartLine
			panel.Format = "hex"
			aligned := &align.AlignedSeriesSet{TimeAxis: axis(1, time.Minute), Series: []align.AlignedSeries{named("account", "cca", f(1))}}

			_, err := builder.Build(aligned, panel)

			Expect(wallerr.IsRenderSpecError(err)).To(BeTrue())
		})
	})

	Context("line charts", func() {
		BeforeEach(func() {
			panel.ChartType = wallv1alpha1.ChartLine
		})

		It("should break lines at missing values instead of drawing zeros", func() {
			aligned := &align.AlignedSeriesSet{
				TimeAxis: axis(4, time.Minute),
				Series:   []align.AlignedSeries{named("account", "ccb", f(1), no, f(3), f(4))},
			}

			out, err := builder.Build(aligned, panel)

			Expect(err).ToNot(HaveOccurred())
			Expect(out.Lines).To(HaveLen(1))
			Expect(out.Lines[0].Segments).To(HaveLen(2))
			Expect(out.Lines[0].Segments[0].YValues).To(Equal([]float64{1}))
			Expect(out.Lines[0].Segments[1].YValues).To(Equal([]float64{3, 4}))
			Expect(out.Lines[0].Segments[1].YValues).ToNot(ContainElement(0.0))
		})

		It("should pad the bounds of the present values", func() {
			aligned := &align.AlignedSeriesSet{
				TimeAxis: axis(3, time.Minute),
				Series:   []align.AlignedSeries{named("account", "ccb", f(1), no, f(4))},
			}

			out, err := builder.Build(aligned, panel)

			Expect(err).ToNot(HaveOccurred())
			Expect(out.YRange.Min).To(BeNumerically("~", 0.7, 1e-9))
			Expect(out.YRange.Max).To(BeNumerically("~", 4.3, 1e-9))
			for _, tick := range out.YTicks {
				Expect(tick.Value).To(BeNumerically(">=", out.YRange.Min))
				Expect(tick.Value).To(BeNumerically("<=", out.YRange.Max))
			}
		})

		It("should honor a configured padding", func() {
			padding := 0.0
			panel.Padding = &padding
			aligned := &align.AlignedSeriesSet{
				TimeAxis: axis(2, time.Minute),
				Series:   []align.AlignedSeries{named("account", "ccb", f(2), f(8))},
			}

			out, err := builder.Build(aligned, panel)

			Expect(err).ToNot(HaveOccurred())
			Expect(out.YRange).To(Equal(Range{Min: 2, Max: 8}))
		})

		It("should color series deterministically and honor fixed colors", func() {
			aligned := &align.AlignedSeriesSet{
				TimeAxis: axis(1, time.Minute),
				Series: []align.AlignedSeries{
					named("account", "CCA", f(1)),
					named("account", "ccq", f(2)),
					named("account", "ccn", f(3)),
				},
			}

			first, err := builder.Build(aligned, panel)
			Expect(err).ToNot(HaveOccurred())
			second, err := builder.Build(aligned, panel)
			Expect(err).ToNot(HaveOccurred())

			Expect(first.Legend).To(Equal(second.Legend))
			Expect(first.Lines[0].Name).To(Equal("CCA"))
			Expect(first.Lines[0].Color).To(Equal(drawing.ColorFromHex("CE3232")))
			Expect(first.Lines[1].Color).ToNot(Equal(first.Lines[2].Color))
		})

		It("should overlay the summed capacity", func() {
			aligned := &align.AlignedSeriesSet{
				TimeAxis: axis(2, time.Minute),
				Series: []align.AlignedSeries{
					named("account", "cca", f(1), f(2)),
					capacityOf("partition", "gen", f(10), f(10)),
					capacityOf("partition", "gpu", f(5), no),
				},
			}

			out, err := builder.Build(aligned, panel)

			Expect(err).ToNot(HaveOccurred())
			Expect(out.Capacity).ToNot(BeNil())
			Expect(out.Capacity.Color).To(Equal(CapacityColor))
			Expect(out.Capacity.Segments).To(HaveLen(1))
			Expect(out.Capacity.Segments[0].YValues).To(Equal([]float64{15}))
			Expect(out.Legend[len(out.Legend)-1].Name).To(Equal("Capacity"))
		})

		It("should tick a single instant that is not on the hour", func() {
			at := epoch.Add(17 * time.Minute)
			aligned := &align.AlignedSeriesSet{
				TimeAxis: []time.Time{at},
				Series:   []align.AlignedSeries{named("account", "cca", f(1))},
			}

			out, err := builder.Build(aligned, panel)

			Expect(err).ToNot(HaveOccurred())
			Expect(out.XTicks).To(HaveLen(1))
			Expect(out.XTicks[0].Label).To(Equal("12:17"))
			Expect(out.XTicks[0].Value).To(BeNumerically(">", out.XRange.Min))
			Expect(out.XTicks[0].Value).To(BeNumerically("<", out.XRange.Max))
		})

		It("should compute time ticks for the axis", func() {
			aligned := &align.AlignedSeriesSet{
				TimeAxis: axis(7*24+1, time.Hour),
				Series:   []align.AlignedSeries{named("account", "cca", make([]series.Float, 7*24+1)...)},
			}
			aligned.Series[0].Values[0] = f(1)

			out, err := builder.Build(aligned, panel)

			Expect(err).ToNot(HaveOccurred())
			Expect(out.XTicks).ToNot(BeEmpty())
			Expect(out.XTicks[0].Label).To(Equal("May 04"))
			Expect(out.XRange.Min).To(BeNumerically("<", out.XRange.Max))
		})
	})

	Context("stacked charts", func() {
		BeforeEach(func() {
			panel.ChartType = wallv1alpha1.ChartStacked
		})

		It("should stack by descending last value and propagate gaps upwards", func() {
			aligned := &align.AlignedSeriesSet{
				TimeAxis: axis(3, time.Hour),
				Series: []align.AlignedSeries{
					named("account", "ccb", f(5), f(5), f(1)),
					named("account", "cca", f(1), no, f(3)),
					capacityOf("account", "total", f(10), f(10), f(10)),
				},
			}

			out, err := builder.Build(aligned, panel)

			Expect(err).ToNot(HaveOccurred())
			Expect(out.Legend[0].Name).To(Equal("cca"))
			Expect(out.Legend[1].Name).To(Equal("ccb"))

			// top band is drawn first
			Expect(out.Lines).To(HaveLen(2))
			top, bottom := out.Lines[0], out.Lines[1]
			Expect(top.Name).To(Equal("ccb"))
			Expect(top.Fill).To(BeTrue())
			Expect(top.Segments).To(HaveLen(2))
			Expect(top.Segments[0].YValues).To(Equal([]float64{6}))
			Expect(top.Segments[1].YValues).To(Equal([]float64{4}))
			Expect(bottom.Segments).To(HaveLen(2))

			Expect(out.YRange.Min).To(Equal(0.0))
			Expect(out.YRange.Max).To(BeNumerically("~", 11, 1e-9))
		})

		It("should order missing last values below present ones", func() {
			aligned := &align.AlignedSeriesSet{
				TimeAxis: axis(2, time.Hour),
				Series: []align.AlignedSeries{
					named("account", "aaa", f(1), no),
					named("account", "zzz", f(1), f(1)),
				},
			}

			out, err := builder.Build(aligned, panel)

			Expect(err).ToNot(HaveOccurred())
			Expect(out.Legend[0].Name).To(Equal("zzz"))
		})
	})

	Context("colors", func() {
		BeforeEach(func() {
			panel.ChartType = wallv1alpha1.ChartStacked
		})

		colorsOf := func(out *DrawInstructions) map[string]drawing.Color {
			m := map[string]drawing.Color{}
			for _, e := range out.Legend {
				m[e.Name] = e.Color
			}
			return m
		}

		It("should keep a series color when its stacking rank changes", func() {
			build := func(acct0, acct6 float64) *DrawInstructions {
				aligned := &align.AlignedSeriesSet{
					TimeAxis: axis(1, time.Hour),
					Series: []align.AlignedSeries{
						named("account", "acct0", f(acct0)),
						named("account", "acct6", f(acct6)),
					},
				}
				out, err := builder.Build(aligned, panel)
				Expect(err).ToNot(HaveOccurred())
				return out
			}

			before := build(5, 1)
			after := build(1, 5)

			Expect(before.Legend[0].Name).To(Equal("acct0"))
			Expect(after.Legend[0].Name).To(Equal("acct6"))
			Expect(colorsOf(after)).To(Equal(colorsOf(before)))
			Expect(colorsOf(before)["acct0"]).To(Equal(tab10[0]))
			Expect(colorsOf(before)["acct6"]).To(Equal(tab10[1]))
		})

		It("should share a run-wide registry across panels", func() {
			builder.Colors = map[string]*Registry{
				"account": builder.Palette.Registry([]string{"ccq", "ccn", "cca", "ccb"}),
			}
			first := &align.AlignedSeriesSet{
				TimeAxis: axis(1, time.Hour),
				Series:   []align.AlignedSeries{named("account", "ccq", f(1)), named("account", "cca", f(2))},
			}
			second := &align.AlignedSeriesSet{
				TimeAxis: axis(1, time.Hour),
				Series:   []align.AlignedSeries{named("account", "ccq", f(3)), named("account", "ccn", f(4))},
			}

			a, err := builder.Build(first, panel)
			Expect(err).ToNot(HaveOccurred())
			b, err := builder.Build(second, panel)
			Expect(err).ToNot(HaveOccurred())

			Expect(colorsOf(a)["cca"]).To(Equal(drawing.ColorFromHex("CE3232")))
			Expect(colorsOf(a)["ccq"]).To(Equal(colorsOf(b)["ccq"]))
			// ccb, ccn, ccq take the first slots in name order
			Expect(colorsOf(b)["ccn"]).To(Equal(tab10[1]))
			Expect(colorsOf(b)["ccq"]).To(Equal(tab10[2]))
		})

		It("should list the names a panel draws", func() {
			panel.Hide = []string{"ccz"}
			aligned := &align.AlignedSeriesSet{
				TimeAxis: axis(1, time.Hour),
				Series: []align.AlignedSeries{
					named("account", "ccq", f(1)),
					named("account", "ccz", f(1)),
					capacityOf("account", "total", f(9)),
				},
			}

			Expect(builder.SeriesNames(aligned, panel)).To(Equal([]string{"ccq"}))
		})
	})

	Context("bar charts", func() {
		BeforeEach(func() {
			panel.ChartType = wallv1alpha1.ChartBar
			panel.Title = "Rusty Current GPU Usage"
			panel.LegendLabel = "gputype"
			panel.Hide = []string{"v100"}
			panel.Nicknames = map[string]string{"a100-sxm4-80gb": "a100-80gb"}
		})

		It("should draw the latest values with hollow capacity bars", func() {
			aligned := &align.AlignedSeriesSet{
				TimeAxis: axis(1, time.Minute),
				Series: []align.AlignedSeries{
					named("gputype", "h100", f(30)),
					named("gputype", "a100-sxm4-80gb", f(12)),
					named("gputype", "v100", f(4)),
					named("gputype", "t4", f(0)),
					named("gputype", "l40s", no),
					capacityOf("gputype", "a100-sxm4-80gb", f(64)),
					capacityOf("gputype", "h100", f(32)),
					capacityOf("gputype", "v100", f(16)),
					capacityOf("gputype", "t4", f(0)),
					capacityOf("gputype", "l40s", f(8)),
				},
			}

			out, err := builder.Build(aligned, panel)

			Expect(err).ToNot(HaveOccurred())
			labels := []string{}
			for _, bar := range out.Bars {
				labels = append(labels, bar.Label)
			}
			Expect(labels).To(Equal([]string{"a100-80gb", "h100", "l40s (no data)"}))
			Expect(out.Bars[0].Value).To(Equal(f(12)))
			Expect(out.Bars[0].Capacity).To(Equal(f(64)))
			Expect(out.Bars[2].Value.Valid).To(BeFalse())
			Expect(out.XTicks).To(HaveLen(3))
			Expect(out.YRange.Min).To(Equal(0.0))
			Expect(out.YRange.Max).To(BeNumerically("~", 70.4, 1e-9))
			Expect(out.Legend).To(ConsistOf(LegendEntry{Name: "Capacity", Color: CapacityColor, Hollow: true}))
		})

		It("should not draw a bar for a name that only has capacity", func() {
			aligned := &align.AlignedSeriesSet{
				TimeAxis: axis(1, time.Minute),
				Series: []align.AlignedSeries{
					named("gputype", "h100", f(30)),
					capacityOf("gputype", "h100", f(32)),
					capacityOf("gputype", "l40s", f(8)),
				},
			}

			out, err := builder.Build(aligned, panel)

			Expect(err).ToNot(HaveOccurred())
			Expect(out.Bars).To(HaveLen(1))
			Expect(out.Bars[0].Label).To(Equal("h100"))
			Expect(out.XTicks).To(HaveLen(1))
			Expect(out.YRange.Max).To(BeNumerically("~", 35.2, 1e-9))
		})

		It("should use the panel color for every bar", func() {
			panel.Color = "#537EBA"
			aligned := &align.AlignedSeriesSet{
				TimeAxis: axis(1, time.Minute),
				Series: []align.AlignedSeries{
					named("gputype", "h100", f(30)),
					named("gputype", "a100", f(12)),
				},
			}

			out, err := builder.Build(aligned, panel)

			Expect(err).ToNot(HaveOccurred())
			for _, bar := range out.Bars {
				Expect(bar.Color).To(Equal(drawing.ColorFromHex("537EBA")))
			}
		})
	})

	Context("gauges", func() {
		BeforeEach(func() {
			panel.ChartType = wallv1alpha1.ChartGauge
			panel.Format = wallv1alpha1.FormatCount
		})

		It("should total the latest values against the capacity", func() {
			aligned := &align.AlignedSeriesSet{
				TimeAxis: axis(1, time.Minute),
				Series: []align.AlignedSeries{
					named("account", "cca", f(600)),
					named("account", "ccb", f(900)),
					capacityOf("account", "all", f(2000)),
				},
			}

			out, err := builder.Build(aligned, panel)

			Expect(err).ToNot(HaveOccurred())
			Expect(out.Gauge.Value).To(Equal(f(1500)))
			Expect(out.Gauge.Max).To(Equal(2000.0))
			Expect(out.Gauge.Label).To(Equal("2 K / 2 K"))
		})

		It("should fall back to the configured maximum", func() {
			limit := 100.0
			panel.GaugeMax = &limit
			aligned := &align.AlignedSeriesSet{TimeAxis: axis(1, time.Minute), Series: []align.AlignedSeries{named("account", "cca", f(40))}}

			out, err := builder.Build(aligned, panel)

			Expect(err).ToNot(HaveOccurred())
			Expect(out.Gauge.Max).To(Equal(100.0))
		})

		It("should fail without any maximum", func() {
			aligned := &align.AlignedSeriesSet{TimeAxis: axis(1, time.Minute), Series: []align.AlignedSeries{named("account", "cca", f(40))}}

			out, err := builder.Build(aligned, panel)

			Expect(out).To(BeNil())
			Expect(wallerr.IsRenderSpecError(err)).To(BeTrue())
		})
	})

	Context("info panels", func() {
		It("should carry the author and the update time without any series", func() {
			panel.ChartType = wallv1alpha1.ChartInfo
			builder.Location, _ = time.LoadLocation("America/New_York")

			out, err := builder.Build(nil, panel)

			Expect(err).ToNot(HaveOccurred())
			Expect(out.Info.Author).To(Equal("Made by your friends in SCC"))
			Expect(out.Info.Timestamp).To(Equal("8:00 AM EDT\n2024-05-03"))
		})
	})
})
