package chart

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"k8s.io/apimachinery/pkg/api/resource"

	wallv1alpha1 "github.com/flatironinstitute/viswall-prom/api/v1alpha1"
	"github.com/flatironinstitute/viswall-prom/internal/series"
)

// Formatter prints an axis or label value
type Formatter func(v float64) string

// FormatterFor returns the formatter of f. An empty format counts.
func FormatterFor(f wallv1alpha1.ValueFormat) (Formatter, bool) {
	switch f {
	case "", wallv1alpha1.FormatCount:
		return FormatCount, true
	case wallv1alpha1.FormatPercent:
		return FormatPercent, true
	case wallv1alpha1.FormatBytes:
		return FormatBytes, true
	case wallv1alpha1.FormatRaw:
		return FormatRaw, true
	default:
		return nil, false
	}
}

// FormatCount prints thousands with a K suffix: 12500 -> "12 K", 950 -> "950"
func FormatCount(v float64) string {
	if v >= 1000 {
		return fmt.Sprintf("%.0f K", v/1000)
	}
	return fmt.Sprintf("%.0f", v)
}

// FormatPercent prints a percentage value: 45 -> "45%"
func FormatPercent(v float64) string {
	return strconv.FormatFloat(round(v, 1), 'f', -1, 64) + "%"
}

// FormatBytes prints a binary quantity: 17179869184 -> "16Gi"
func FormatBytes(v float64) string {
	if v < 0 {
		return "-" + FormatBytes(-v)
	}
	return resource.NewQuantity(int64(math.Round(v)), resource.BinarySI).String()
}

// FormatRaw prints v in the shortest exact form
func FormatRaw(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FormatValue prints a possibly missing value
func FormatValue(f Formatter, v series.Float) string {
	if !v.Valid {
		return "no data"
	}
	return f(v.Value)
}

// FormatDate prints a daily tick: "Jan. 02", with no dot after "May"
func FormatDate(t time.Time) string {
	month := t.Format("Jan")
	if month != "May" {
		month += "."
	}
	return month + " " + t.Format("02")
}

// FormatHour prints an hourly tick
func FormatHour(t time.Time) string {
	return t.Format("15:04")
}

func round(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}
