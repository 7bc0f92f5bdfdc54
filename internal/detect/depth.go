package detect

import (
	"fmt"

	"marketscan/internal/baseline"
	"marketscan/internal/indicators"
)

// DepthSpikeRule fires when one side of the book holds a multiple of its
// historical depth. Books thinner than MinDepth are ignored outright; a 3x
// jump on a near-empty book is noise, not flow.
type DepthSpikeRule struct {
	Threshold  float64
	MinDepth   float64
	MinSamples int
}

func (r DepthSpikeRule) Evaluate(w Window) []Signal {
	var out []Signal
	if sig, ok := r.side(w, MetricBidDepth, "bid", bidDepth); ok {
		out = append(out, sig)
	}
	if sig, ok := r.side(w, MetricAskDepth, "ask", askDepth); ok {
		out = append(out, sig)
	}
	return out
}

func (r DepthSpikeRule) side(w Window, metric, side string, pick func(Observation) *float64) (Signal, bool) {
	values := w.series(pick)
	history, current, ok := baseline.Reference(values)
	if !ok {
		return Signal{}, false
	}
	base, ready := baseline.Compute(history, r.MinSamples)
	if !ready {
		return Signal{}, false
	}
	if current < r.MinDepth {
		return Signal{}, false
	}
	ratio, ok := base.Ratio(current)
	if !ok || ratio < r.Threshold {
		return Signal{}, false
	}
	cur, _ := w.current()
	z, _ := base.ZScore(current)
	quality := indicators.Composite(
		indicators.ZScoreSignificance(z),
		indicators.VolatilityContext(history),
		indicators.RateOfChangeVelocity(history, current),
		indicators.TimeOfDayContext(cur.Timestamp.UTC().Hour()),
		imbalanceScore(cur),
	)
	return Signal{
		InstrumentID: w.InstrumentID,
		Question:     w.Question,
		Metric:       metric,
		Side:         side,
		Ratio:        ratio,
		Baseline:     base.Mean,
		Current:      current,
		ZScore:       z,
		Quality:      quality,
		Message:      fmt.Sprintf("%s depth %.0f is %.2fx the %.0f baseline", side, current, ratio, base.Mean),
		DetectedAt:   cur.Timestamp,
	}, true
}

func imbalanceScore(o Observation) int {
	if o.BidDepth == nil || o.AskDepth == nil {
		return 20
	}
	return indicators.ImbalanceStrength(*o.BidDepth, *o.AskDepth)
}
