package detect

import (
	"fmt"

	"marketscan/internal/baseline"
	"marketscan/internal/indicators"
)

// ContrarianFlowRule fires when depth floods into the side the book has been
// leaning against. A book that has been bid-heavy suddenly seeing its
// bid:ask ratio collapse means someone large is taking the other side.
type ContrarianFlowRule struct {
	Threshold  float64
	MinSamples int
	MinDepth   float64
}

func (r ContrarianFlowRule) Evaluate(w Window) []Signal {
	ratios := make([]float64, 0, len(w.Observations))
	for _, obs := range w.Observations {
		if obs.BidDepth == nil || obs.AskDepth == nil || *obs.AskDepth <= 0 {
			continue
		}
		ratios = append(ratios, *obs.BidDepth / *obs.AskDepth)
	}
	history, current, ok := baseline.Reference(ratios)
	if !ok {
		return nil
	}
	base, ready := baseline.Compute(history, r.MinSamples)
	if !ready || base.Mean <= 0 {
		return nil
	}
	cur, _ := w.current()
	if cur.BidDepth == nil || cur.AskDepth == nil || *cur.AskDepth <= 0 {
		return nil
	}
	if *cur.BidDepth < r.MinDepth && *cur.AskDepth < r.MinDepth {
		return nil
	}
	// a one-sided book reads as a flip of any size; skip it rather than
	// divide by a vanishing ratio
	if current <= 0 {
		return nil
	}

	var side string
	var swing float64
	switch {
	case base.Mean >= 1 && current <= base.Mean/r.Threshold:
		// bid-heavy book flipping toward asks
		side = "ask"
		swing = base.Mean / current
	case base.Mean < 1 && current >= base.Mean*r.Threshold:
		// ask-heavy book flipping toward bids
		side = "bid"
		swing = current / base.Mean
	default:
		return nil
	}

	z, _ := base.ZScore(current)
	quality := indicators.Composite(
		indicators.ImbalanceStrength(*cur.BidDepth, *cur.AskDepth),
		indicators.ZScoreSignificance(z),
		indicators.VolatilityContext(history),
	)
	return []Signal{{
		InstrumentID: w.InstrumentID,
		Question:     w.Question,
		Metric:       MetricContrarianFlow,
		Side:         side,
		Ratio:        swing,
		Baseline:     base.Mean,
		Current:      current,
		ZScore:       z,
		Quality:      quality,
		Message:      fmt.Sprintf("flow flipped toward %s side, bid:ask %.2f vs %.2f baseline", side, current, base.Mean),
		DetectedAt:   cur.Timestamp,
	}}
}
