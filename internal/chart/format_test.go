package chart

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	wallv1alpha1 "github.com/flatironinstitute/viswall-prom/api/v1alpha1"
)

var _ = Describe("Formatters", func() {
	DescribeTable("FormatCount",
		func(v float64, want string) {
			Expect(FormatCount(v)).To(Equal(want))
		},
		Entry("below a thousand", 950.0, "950"),
		Entry("zero", 0.0, "0"),
		Entry("exactly a thousand", 1000.0, "1 K"),
		Entry("thousands", 12000.0, "12 K"),
	)

	It("should print percentages and raw values", func() {
		Expect(FormatPercent(45)).To(Equal("45%"))
		Expect(FormatPercent(12.34)).To(Equal("12.3%"))
		Expect(FormatRaw(0.25)).To(Equal("0.25"))
	})

	It("should print binary byte quantities", func() {
		Expect(FormatBytes(16 * 1024 * 1024 * 1024)).To(Equal("16Gi"))
		Expect(FormatBytes(512)).To(Equal("512"))
	})

	It("should resolve formatters by name", func() {
		f, ok := FormatterFor("")
		Expect(ok).To(BeTrue())
		Expect(f(2000)).To(Equal("2 K"))

		_, ok = FormatterFor(wallv1alpha1.ValueFormat("hex"))
		Expect(ok).To(BeFalse())
	})

	It("should omit the abbreviation dot for May only", func() {
		Expect(FormatDate(time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC))).To(Equal("May 03"))
		Expect(FormatDate(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))).To(Equal("Jan. 02"))
		Expect(FormatDate(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC))).To(Equal("Jun. 30"))
	})
})

var _ = Describe("Ticks", func() {
	It("should place value ticks inside the range", func() {
		ticks := ValueTicks(0, 11000, 6, FormatCount)

		Expect(len(ticks)).To(BeNumerically(">=", 4))
		Expect(ticks[0].Value).To(Equal(0.0))
		Expect(ticks[0].Label).To(Equal("0"))
		for _, tick := range ticks {
			Expect(tick.Value).To(BeNumerically("<=", 11000))
		}
	})

	It("should survive a degenerate range", func() {
		Expect(ValueTicks(5, 5, 6, FormatRaw)).ToNot(BeEmpty())
	})

	It("should use daily ticks for a week", func() {
		end := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
		ticks := TimeTicks(end.Add(-7*24*time.Hour), end, time.UTC)

		Expect(ticks).To(HaveLen(7))
		Expect(ticks[0].Label).To(Equal("May 04"))
		Expect(ticks[6].Label).To(Equal("May 10"))
	})

	It("should use hourly ticks for a few hours", func() {
		start := time.Date(2024, 5, 3, 9, 30, 0, 0, time.UTC)
		ticks := TimeTicks(start, start.Add(3*time.Hour), time.UTC)

		labels := []string{}
		for _, tick := range ticks {
			labels = append(labels, tick.Label)
		}
		Expect(labels).To(Equal([]string{"10:00", "11:00", "12:00"}))
	})

	It("should label ticks in the requested timezone", func() {
		loc := time.FixedZone("EST", -5*60*60)
		start := time.Date(2024, 1, 3, 14, 0, 0, 0, time.UTC)
		ticks := TimeTicks(start, start.Add(time.Hour), loc)

		Expect(ticks[0].Label).To(Equal("09:00"))
	})
})
