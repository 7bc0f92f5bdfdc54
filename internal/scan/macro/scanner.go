// Package macro assembles the macroeconomic catalyst scanner: import ranked
// catalysts, synthesize grounded trade ideas, resolve old ones, prune.
package macro

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketscan/internal/config"
	"marketscan/internal/logger"
	"marketscan/internal/market"
	"marketscan/internal/notify"
	"marketscan/internal/resolve"
	"marketscan/internal/store"
	"marketscan/internal/synth"
)

type Scanner struct {
	Cfg       config.MacroConfig
	Retention config.RetentionConfig
	Store     *store.Store
	Quotes    market.QuoteSource
	Notifier  *notify.Notifier
	Synth     *synth.Synthesizer
	Resolver  *resolve.Resolver

	now func() time.Time
}

func (s *Scanner) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

type RunStats struct {
	Catalysts int
	Queued    int
	Ideas     int
	Resolved  int
}

// Run executes one scan over the given catalysts. Retention runs last even
// when earlier stages fail.
func (s *Scanner) Run(ctx context.Context, catalysts []synth.Catalyst) (stats RunStats, err error) {
	defer func() {
		result, perr := s.Store.Prune(store.RetentionPolicy{
			SnapshotDays:   s.Retention.SnapshotDays,
			AlertDays:      s.Retention.AlertDays,
			IdeaDays:       s.Retention.IdeaDays,
			ResearchDays:   s.Retention.ResearchDays,
			InstrumentDays: s.Retention.InstrumentDays,
		})
		if perr != nil {
			logger.Errorf("[macro] retention failed: %v", perr)
			if err == nil {
				err = perr
			}
			return
		}
		logger.Infof("[macro] retention pruned %d ideas, %d research items", result.Ideas, result.Research)
	}()

	stats.Catalysts = len(catalysts)
	stats.Queued = s.queueResearch(catalysts)

	if s.Synth != nil && len(catalysts) > 0 {
		stats.Ideas = s.synthesize(ctx, catalysts)
	}

	if s.Resolver != nil {
		resolved, rerr := s.Resolver.Run(ctx)
		if rerr != nil {
			logger.Errorf("[macro] resolver failed: %v", rerr)
		}
		stats.Resolved = resolved
	}
	return stats, nil
}

// queueResearch enqueues catalysts above the impact threshold for manual
// deep research.
func (s *Scanner) queueResearch(catalysts []synth.Catalyst) int {
	queued := 0
	expiry := s.clock().UTC().Add(time.Duration(s.Cfg.ResearchExpiryHours) * time.Hour)
	for _, c := range catalysts {
		if c.ImpactScore < s.Cfg.ImpactThreshold {
			continue
		}
		sectors, _ := json.Marshal(c.Sectors)
		instruments, _ := json.Marshal(c.KeyInstruments)
		item := &store.ResearchItem{
			Headline:       c.Headline,
			ImpactScore:    c.ImpactScore,
			Direction:      c.Direction,
			Sectors:        sectors,
			Rationale:      c.Rationale,
			KeyInstruments: instruments,
			SourceURL:      c.SourceURL,
			Status:         store.ResearchPending,
			ExpiresAt:      expiry,
		}
		if err := s.Store.EnqueueResearch(item); err != nil {
			logger.Errorf("[macro] %v", err)
			continue
		}
		queued++
	}
	return queued
}

func (s *Scanner) synthesize(ctx context.Context, catalysts []synth.Catalyst) int {
	input := synth.Input{
		Catalysts:     catalysts,
		Tape:          s.fetchTape(ctx),
		OpenPositions: s.openPositionLines(),
	}
	window := time.Duration(s.Cfg.AccuracyWindowDays) * 24 * time.Hour
	if stats, err := s.Store.AccuracyByGrade(window); err != nil {
		logger.Errorf("[macro] %v", err)
	} else {
		input.AccuracyBlock = resolve.FormatAccuracy(stats)
	}

	result, err := s.Synth.Synthesize(ctx, input)
	if err != nil {
		if errors.Is(err, store.ErrDailyCapReached) {
			logger.Warnf("[macro] synthesis skipped: %v", err)
		} else {
			logger.Errorf("[macro] synthesis failed: %v", err)
		}
		return 0
	}
	if len(result.Ideas) == 0 {
		return 0
	}
	if err := s.Store.SaveIdeas(result.Ideas); err != nil {
		logger.Errorf("[macro] %v", err)
		return 0
	}
	if err := s.Notifier.IdeaAlert(ctx, result.Ideas, result.Bridge); err != nil {
		logger.Warnf("[macro] idea delivery failed: %v", err)
	} else {
		for _, idea := range result.Ideas {
			if err := s.Store.MarkIdeaNotified(idea.ID); err != nil {
				logger.Errorf("[macro] %v", err)
			}
		}
	}
	return len(result.Ideas)
}

// fetchTape pulls the configured indicator quotes for the regime section of
// the ideation prompt. Missing quotes are simply absent from the tape.
func (s *Scanner) fetchTape(ctx context.Context) []market.Quote {
	var tape []market.Quote
	for _, symbol := range s.Cfg.Indicators {
		q, err := s.Quotes.Quote(ctx, symbol)
		if err != nil {
			logger.Warnf("[macro] tape quote for %s failed: %v", symbol, err)
			continue
		}
		tape = append(tape, q)
	}
	return tape
}

func (s *Scanner) openPositionLines() []string {
	ideas, err := s.Store.OpenIdeas()
	if err != nil {
		logger.Errorf("[macro] %v", err)
		return nil
	}
	lines := make([]string, 0, len(ideas))
	for _, idea := range ideas {
		lines = append(lines, fmt.Sprintf("%s %s (grade %s, conf %d/5)",
			idea.Direction, idea.Symbol, idea.Grade, idea.Confidence))
	}
	return lines
}
