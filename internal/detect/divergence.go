package detect

import (
	"fmt"
	"math"
	"strings"
)

// Pair names two instruments whose prices should track each other with the
// given correlation sign.
type Pair struct {
	A           string
	B           string
	Correlation string // "positive" or "negative"
	Note        string
}

// DivergenceRule fires when one leg of a correlated pair moved and the other
// did not follow. Unlike the single-window rules it reads two windows, so it
// is evaluated over the full window set.
type DivergenceRule struct {
	Pairs     []Pair
	Threshold float64
	MinMove   float64
}

// EvaluatePairs inspects every configured pair present in windows.
func (r DivergenceRule) EvaluatePairs(windows map[string]Window) []Signal {
	var out []Signal
	for _, pair := range r.Pairs {
		wa, okA := windows[pair.A]
		wb, okB := windows[pair.B]
		if !okA || !okB {
			continue
		}
		if sig, ok := r.evaluate(pair, wa, wb); ok {
			out = append(out, sig)
		}
	}
	return out
}

func (r DivergenceRule) evaluate(pair Pair, wa, wb Window) (Signal, bool) {
	changeA, curA, ok := windowChange(wa)
	if !ok {
		return Signal{}, false
	}
	changeB, curB, ok := windowChange(wb)
	if !ok {
		return Signal{}, false
	}
	if math.Abs(changeA) < r.MinMove {
		return Signal{}, false
	}
	factor := 1.0
	if strings.EqualFold(pair.Correlation, "negative") {
		factor = -1.0
	}
	expectedB := changeA * factor
	divergence := changeB - expectedB
	if math.Abs(divergence) < r.Threshold {
		return Signal{}, false
	}

	action := "BUY YES"
	if divergence > 0 {
		// B already overshot the expected move; fade it.
		action = "BUY NO"
	}
	cur, _ := wb.current()
	return Signal{
		InstrumentID: pair.B,
		Question:     wb.Question,
		Metric:       MetricDivergence,
		Side:         strings.ToLower(pair.Correlation),
		Ratio:        divergence,
		Baseline:     expectedB,
		Current:      changeB,
		Quality:      divergenceQuality(divergence, r.Threshold),
		Message: fmt.Sprintf("%s moved %+.3f (now %.3f) but %s moved %+.3f (now %.3f, expected %+.3f): %s %s",
			pair.A, changeA, curA, pair.B, changeB, curB, expectedB, action, pair.B),
		DetectedAt: cur.Timestamp,
	}, true
}

// windowChange measures the current price against the average of the first
// half of the window, so a slow drift reads as a move while jitter cancels.
func windowChange(w Window) (change, current float64, ok bool) {
	values := w.series(yesPrice)
	if len(values) == 0 {
		values = w.series(price)
	}
	if len(values) < 4 {
		return 0, 0, false
	}
	half := values[:len(values)/2]
	var sum float64
	for _, v := range half {
		sum += v
	}
	ref := sum / float64(len(half))
	current = values[len(values)-1]
	return current - ref, current, true
}

func divergenceQuality(divergence, threshold float64) int {
	mag := math.Abs(divergence)
	switch {
	case mag >= threshold*2:
		return 90
	case mag >= threshold*1.5:
		return 75
	default:
		return 60
	}
}
