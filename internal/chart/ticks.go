package chart

import (
	"math"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
)

const (
	desiredValueTicks = 6
	maxTimeTicks      = 24

	// at or above this span time ticks are daily
	dailyTickSpan = 48 * time.Hour
)

// ValueTicks returns about n ticks between min and max using 1, 2, 2.5 and 5
// multiples of a power of ten. Ticks outside [min, max] are dropped so they
// never widen the axis.
func ValueTicks(min, max float64, n int, format Formatter) []gochart.Tick {
	if n < 2 || math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
		return nil
	}
	if max <= min {
		max = min + 1
	}
	span := max - min
	mag := math.Pow(10, math.Floor(math.Log10(span/float64(n-1))))
	bestStep := mag
	bestScore := math.MaxFloat64
	for _, c := range []float64{1, 2, 2.5, 5, 10} {
		step := c * mag
		count := math.Floor(span/step) + 1
		score := math.Abs(count - float64(n))
		if score < bestScore {
			bestScore = score
			bestStep = step
		}
	}

	ticks := []gochart.Tick{}
	start := math.Ceil(min/bestStep) * bestStep
	for i := 0; ; i++ {
		v := start + float64(i)*bestStep
		if v > max+bestStep*1e-9 {
			break
		}
		// avoid -0 and float noise in labels
		v = round(v, 9)
		if v == 0 {
			v = 0
		}
		ticks = append(ticks, gochart.Tick{Value: v, Label: format(v)})
		if len(ticks) > n*3 {
			break
		}
	}
	return ticks
}

// TimeTicks returns midnight ticks labelled like "Jan. 02" when the window
// spans two days or more, and otherwise hourly ticks labelled "15:04". Ticks
// are computed in loc.
func TimeTicks(start, end time.Time, loc *time.Location) []gochart.Tick {
	if loc == nil {
		loc = time.UTC
	}
	start, end = start.In(loc), end.In(loc)
	if end.Before(start) {
		return nil
	}

	daily := end.Sub(start) >= dailyTickSpan
	var t time.Time
	if daily {
		t = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	} else {
		t = time.Date(start.Year(), start.Month(), start.Day(), start.Hour(), 0, 0, 0, loc)
	}
	if t.Before(start) {
		t = next(t, daily, loc)
	}

	// thin out long windows so labels do not collide
	stride := 1
	if daily {
		days := int(end.Sub(start).Hours()/24) + 1
		stride = (days + maxTimeTicks - 1) / maxTimeTicks
	} else {
		hours := int(end.Sub(start).Hours()) + 1
		stride = (hours + 12 - 1) / 12
	}
	if stride < 1 {
		stride = 1
	}

	ticks := []gochart.Tick{}
	for i := 0; !t.After(end); i++ {
		if i%stride == 0 {
			label := FormatHour(t)
			if daily {
				label = FormatDate(t)
			}
			ticks = append(ticks, gochart.Tick{Value: gochart.TimeToFloat64(t), Label: label})
		}
		t = next(t, daily, loc)
	}
	return ticks
}

// next steps by calendar day so DST changes keep ticks on midnight
func next(t time.Time, daily bool, loc *time.Location) time.Time {
	if daily {
		return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
	}
	return t.Add(time.Hour)
}
