// Package detect classifies anomalies over in-memory snapshot windows. The
// rules are pure: they never fetch, persist, or call out.
package detect

import "time"

// Metric names identify the anomaly family. They key alert deduplication
// and suppression, so they must stay stable.
const (
	MetricBidDepth       = "bid_depth_spike"
	MetricAskDepth       = "ask_depth_spike"
	MetricPriceMomentum  = "price_momentum"
	MetricContrarianFlow = "contrarian_flow"
	MetricDivergence     = "correlation_divergence"
)

// Observation is one point of a window, decoupled from storage.
type Observation struct {
	Timestamp time.Time
	YesPrice  *float64
	BidDepth  *float64
	AskDepth  *float64
	Price     *float64
}

// Window is the time-ordered history for one instrument, oldest first. The
// last observation is "current"; everything before it is reference history.
type Window struct {
	InstrumentID string
	Question     string
	Observations []Observation
}

// Signal is one classified anomaly.
type Signal struct {
	InstrumentID string
	Question     string
	Metric       string
	Side         string
	Ratio        float64
	Baseline     float64
	Current      float64
	ZScore       float64
	Quality      int
	Message      string
	DetectedAt   time.Time
}

// Rule evaluates one window and returns zero or more signals.
type Rule interface {
	Evaluate(w Window) []Signal
}

func (w Window) current() (Observation, bool) {
	if len(w.Observations) == 0 {
		return Observation{}, false
	}
	return w.Observations[len(w.Observations)-1], true
}

// series extracts one metric column, skipping gaps. The returned slice keeps
// time order but may be shorter than the window.
func (w Window) series(pick func(Observation) *float64) []float64 {
	out := make([]float64, 0, len(w.Observations))
	for _, obs := range w.Observations {
		if v := pick(obs); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func yesPrice(o Observation) *float64 { return o.YesPrice }
func bidDepth(o Observation) *float64 { return o.BidDepth }
func askDepth(o Observation) *float64 { return o.AskDepth }
func price(o Observation) *float64    { return o.Price }
