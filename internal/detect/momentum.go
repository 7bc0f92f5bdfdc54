package detect

import (
	"fmt"
	"math"

	"marketscan/internal/baseline"
	"marketscan/internal/indicators"
)

// PriceMomentumRule fires when the latest probability price moved at least
// Threshold points away from its trailing average. Prices pinned near 0 or 1
// are skipped; moves there are resolution mechanics, not sentiment.
type PriceMomentumRule struct {
	Threshold float64
	Window    int
	MinPrice  float64
	MaxPrice  float64
}

func (r PriceMomentumRule) Evaluate(w Window) []Signal {
	values := w.series(yesPrice)
	if len(values) == 0 {
		values = w.series(price)
	}
	history, current, ok := baseline.Reference(values)
	if !ok {
		return nil
	}
	if r.Window > 0 && len(history) > r.Window {
		history = history[len(history)-r.Window:]
	}
	base, ready := baseline.Compute(history, r.Window)
	if !ready {
		return nil
	}
	if base.Mean < r.MinPrice || base.Mean > r.MaxPrice {
		return nil
	}
	delta := current - base.Mean
	if math.Abs(delta) < r.Threshold {
		return nil
	}
	side := "up"
	if delta < 0 {
		side = "down"
	}
	cur, _ := w.current()
	z, _ := base.ZScore(current)
	quality := indicators.Composite(
		indicators.ZScoreSignificance(z),
		indicators.RSICondition(values),
		indicators.BollingerPosition(values),
		indicators.RateOfChangeVelocity(history, current),
	)
	return []Signal{{
		InstrumentID: w.InstrumentID,
		Question:     w.Question,
		Metric:       MetricPriceMomentum,
		Side:         side,
		Ratio:        delta,
		Baseline:     base.Mean,
		Current:      current,
		ZScore:       z,
		Quality:      quality,
		Message:      fmt.Sprintf("price moved %+.3f from %.3f trailing average", delta, base.Mean),
		DetectedAt:   cur.Timestamp,
	}}
}
