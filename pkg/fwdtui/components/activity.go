package components

import (
	"strings"

	"github.com/txn2/keybusfwd/pkg/fwdmetrics"
)

// activityLevels go from a trickle of traffic to a saturated interval.
var activityLevels = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// quietMark is drawn for an interval with no traffic at all, so a silent
// or disconnected bus reads differently from a slow one.
const quietMark = '·'

// minActivityScale keeps a single line per second from drawing full bars.
const minActivityScale = 4.0

// ActivityStrip renders per-interval rates as a strip of width cells, one
// cell per interval with the newest on the right. Older intervals that do
// not fit are dropped and missing ones are left blank.
func ActivityStrip(rates []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(rates) > width {
		rates = rates[len(rates)-width:]
	}

	scale := minActivityScale
	for _, r := range rates {
		if r > scale {
			scale = r
		}
	}

	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", width-len(rates)))
	for _, r := range rates {
		if r <= 0 {
			sb.WriteRune(quietMark)
			continue
		}
		level := int(r / scale * float64(len(activityLevels)))
		if level >= len(activityLevels) {
			level = len(activityLevels) - 1
		}
		sb.WriteRune(activityLevels[level])
	}
	return sb.String()
}

// LineRates turns cumulative samples into per-interval lines per second
func LineRates(samples []fwdmetrics.RateSample) []float64 {
	return intervalRates(samples, func(s fwdmetrics.RateSample) uint64 { return s.Lines })
}

// InputRates turns cumulative samples into per-interval client bytes per
// second, which is the keystroke rate plus any telnet negotiation.
func InputRates(samples []fwdmetrics.RateSample) []float64 {
	return intervalRates(samples, func(s fwdmetrics.RateSample) uint64 { return s.BytesIn })
}

// intervalRates differences a counter between consecutive samples. A
// counter that went backwards (registry reset) counts as a quiet interval.
func intervalRates(samples []fwdmetrics.RateSample, counter func(fwdmetrics.RateSample) uint64) []float64 {
	if len(samples) < 2 {
		return nil
	}
	rates := make([]float64, 0, len(samples)-1)
	for i := 1; i < len(samples); i++ {
		dt := samples[i].Timestamp.Sub(samples[i-1].Timestamp).Seconds()
		prev, cur := counter(samples[i-1]), counter(samples[i])
		if dt <= 0 || cur < prev {
			rates = append(rates, 0)
			continue
		}
		rates = append(rates, float64(cur-prev)/dt)
	}
	return rates
}
