// Package marketmon assembles the prediction-market orderbook scanner:
// collect, detect, alert, synthesize, resolve, prune.
package marketmon

import (
	"context"
	"errors"
	"time"

	"marketscan/internal/collect"
	"marketscan/internal/config"
	"marketscan/internal/detect"
	"marketscan/internal/logger"
	"marketscan/internal/notify"
	"marketscan/internal/resolve"
	"marketscan/internal/store"
	"marketscan/internal/synth"
)

type Scanner struct {
	Cfg       config.MonitorConfig
	Retention config.RetentionConfig
	Store     *store.Store
	Collector *collect.Collector
	Notifier  *notify.Notifier

	// Synth is nil when no AI key is configured; the scanner then runs
	// detection-only.
	Synth    *synth.Synthesizer
	Resolver *resolve.Resolver

	now func() time.Time
}

func (s *Scanner) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// RunStats summarizes one cycle.
type RunStats struct {
	Observed int
	Signals  int
	Alerts   int
	Ideas    int
	Resolved int
}

// Run executes one full cycle. Retention runs last no matter what failed
// before it.
func (s *Scanner) Run(ctx context.Context) (stats RunStats, err error) {
	defer func() {
		result, perr := s.Store.Prune(store.RetentionPolicy{
			SnapshotDays:   s.Retention.SnapshotDays,
			AlertDays:      s.Retention.AlertDays,
			IdeaDays:       s.Retention.IdeaDays,
			ResearchDays:   s.Retention.ResearchDays,
			InstrumentDays: s.Retention.InstrumentDays,
		})
		if perr != nil {
			logger.Errorf("[monitor] retention failed: %v", perr)
			if err == nil {
				err = perr
			}
			return
		}
		logger.Infof("[monitor] retention pruned %d snapshots, %d alerts, %d ideas, %d instruments",
			result.Snapshots, result.Alerts, result.Ideas, result.Instruments)
	}()

	observed, cerr := s.Collector.Run(ctx)
	if cerr != nil {
		return stats, cerr
	}
	stats.Observed = len(observed)

	signals := s.detect(observed)
	stats.Signals = len(signals)

	actionable := s.alert(ctx, signals)
	stats.Alerts = len(actionable)

	if s.Synth != nil && len(actionable) > 0 {
		stats.Ideas = s.synthesize(ctx, actionable)
	}

	if s.Resolver != nil {
		resolved, rerr := s.Resolver.Run(ctx)
		if rerr != nil {
			logger.Errorf("[monitor] resolver failed: %v", rerr)
		}
		stats.Resolved = resolved
	}
	s.retirePinned(observed)
	return stats, nil
}

// detect loads the snapshot window for each observed instrument and runs
// the rule set, then the cross-market divergence pass.
func (s *Scanner) detect(observed []string) []detect.Signal {
	rules := []detect.Rule{
		detect.DepthSpikeRule{
			Threshold:  s.Cfg.SpikeThreshold,
			MinDepth:   s.Cfg.MinDepth,
			MinSamples: s.Cfg.MinSnapshots,
		},
		detect.PriceMomentumRule{
			Threshold: s.Cfg.PriceMoveThreshold,
			Window:    s.Cfg.PriceWindow,
			MinPrice:  0.05,
			MaxPrice:  0.95,
		},
		detect.ContrarianFlowRule{
			Threshold:  s.Cfg.ImbalanceThreshold,
			MinSamples: s.Cfg.MinSnapshots,
			MinDepth:   s.Cfg.MinDepth,
		},
	}

	windows := make(map[string]detect.Window, len(observed))
	var signals []detect.Signal
	for _, id := range observed {
		window, err := s.loadWindow(id)
		if err != nil {
			logger.Errorf("[monitor] %v", err)
			continue
		}
		windows[id] = window
		for _, rule := range rules {
			signals = append(signals, rule.Evaluate(window)...)
		}
	}

	if len(s.Cfg.CorrelatedPairs) > 0 {
		div := detect.DivergenceRule{
			Pairs:     pairsFromConfig(s.Cfg.CorrelatedPairs),
			Threshold: s.Cfg.DivergenceThreshold,
			MinMove:   0.05,
		}
		signals = append(signals, div.EvaluatePairs(windows)...)
	}
	return signals
}

func (s *Scanner) loadWindow(id string) (detect.Window, error) {
	snaps, err := s.Store.SnapshotWindow(id, s.Cfg.MinSnapshots*4)
	if err != nil {
		return detect.Window{}, err
	}
	window := detect.Window{InstrumentID: id}
	if inst, err := s.Store.Instrument(id); err == nil {
		window.Question = inst.Question
	}
	for _, snap := range snaps {
		window.Observations = append(window.Observations, detect.Observation{
			Timestamp: snap.Timestamp,
			YesPrice:  snap.YesPrice,
			BidDepth:  snap.BidDepth,
			AskDepth:  snap.AskDepth,
			Price:     snap.Price,
		})
	}
	return window, nil
}

// alert applies the quality gate and cross-run suppression, persists the
// surviving signals, and delivers them.
func (s *Scanner) alert(ctx context.Context, signals []detect.Signal) []detect.Signal {
	suppressionCutoff := s.clock().UTC().Add(-time.Duration(s.Cfg.SuppressionHours) * time.Hour)
	var actionable []detect.Signal
	for _, sig := range signals {
		if sig.Quality < s.Cfg.QualityGate {
			logger.Debugf("[monitor] %s on %s below quality gate (%d)", sig.Metric, sig.InstrumentID, sig.Quality)
			continue
		}
		seen, err := s.Store.HasRecentAlert(sig.InstrumentID, sig.Metric, suppressionCutoff)
		if err != nil {
			logger.Errorf("[monitor] %v", err)
		} else if seen {
			continue
		}
		alert := &store.SignalAlert{
			InstrumentID: sig.InstrumentID,
			Metric:       sig.Metric,
			Ratio:        sig.Ratio,
			Baseline:     sig.Baseline,
			Current:      sig.Current,
			Side:         sig.Side,
			Quality:      sig.Quality,
			Message:      sig.Message,
			DetectedAt:   sig.DetectedAt,
		}
		if err := s.Store.SaveAlert(alert); err != nil {
			logger.Errorf("[monitor] %v", err)
			continue
		}
		actionable = append(actionable, sig)

		sent, err := s.Notifier.SignalAlert(ctx, sig)
		if err != nil {
			logger.Warnf("[monitor] alert delivery failed: %v", err)
			continue
		}
		if sent {
			if err := s.Store.MarkAlertNotified(alert.ID); err != nil {
				logger.Errorf("[monitor] %v", err)
			}
		}
	}
	return actionable
}

func (s *Scanner) synthesize(ctx context.Context, signals []detect.Signal) int {
	result, err := s.Synth.Synthesize(ctx, synth.Input{Signals: signals})
	if err != nil {
		if errors.Is(err, store.ErrDailyCapReached) {
			logger.Warnf("[monitor] synthesis skipped: %v", err)
		} else {
			logger.Errorf("[monitor] synthesis failed: %v", err)
		}
		return 0
	}
	if len(result.Ideas) == 0 {
		return 0
	}
	if err := s.Store.SaveIdeas(result.Ideas); err != nil {
		logger.Errorf("[monitor] %v", err)
		return 0
	}
	if err := s.Notifier.IdeaAlert(ctx, result.Ideas, result.Bridge); err != nil {
		logger.Warnf("[monitor] idea delivery failed: %v", err)
	} else {
		for _, idea := range result.Ideas {
			if err := s.Store.MarkIdeaNotified(idea.ID); err != nil {
				logger.Errorf("[monitor] %v", err)
			}
		}
	}
	return len(result.Ideas)
}

// retirePinned deactivates markets whose latest price reads as resolved.
func (s *Scanner) retirePinned(observed []string) {
	for _, id := range observed {
		snaps, err := s.Store.SnapshotWindow(id, 1)
		if err != nil || len(snaps) == 0 || snaps[0].YesPrice == nil {
			continue
		}
		if outcome, done := resolve.BinaryResult(*snaps[0].YesPrice); done {
			logger.Infof("[monitor] market %s resolved %s, deactivating", id, outcome)
			if err := s.Store.DeactivateInstrument(id); err != nil {
				logger.Errorf("[monitor] %v", err)
			}
		}
	}
}

func pairsFromConfig(pairs []config.CorrelatedPair) []detect.Pair {
	out := make([]detect.Pair, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, detect.Pair{A: p.A, B: p.B, Correlation: p.Correlation, Note: p.Note})
	}
	return out
}
