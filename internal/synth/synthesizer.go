package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketscan/internal/ai"
	"marketscan/internal/detect"
	"marketscan/internal/logger"
	"marketscan/internal/market"
	"marketscan/internal/pkg/jsonutil"
	"marketscan/internal/store"
)

// Synthesizer turns detected signals and catalysts into persisted trade
// ideas using the two-stage protocol: ideate without prices, then ground
// the levels against live quotes.
type Synthesizer struct {
	AI     ai.Client
	Quotes market.QuoteSource

	// Budget is consulted before every AI call. It returns
	// store.ErrDailyCapReached once the daily budget is spent.
	Budget func() error

	// Bridge, when set, tries to attach a correlated prediction-market bet.
	Bridge *Bridge

	IdeaTTL time.Duration

	now func() time.Time
}

// Input collects everything one synthesis sees.
type Input struct {
	Signals       []detect.Signal
	Catalysts     []Catalyst
	Tape          []market.Quote
	OpenPositions []string
	AccuracyBlock string
}

// Result is the outcome of one synthesis. Ideas is empty when confidence
// fell below the actionable gate; that is not an error.
type Result struct {
	Analysis   *Analysis
	Confidence int
	Ideas      []*store.Idea
	Bridge     *BridgeBet
}

func (s *Synthesizer) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Synthesize runs the full protocol over one batch of signals.
func (s *Synthesizer) Synthesize(ctx context.Context, input Input) (*Result, error) {
	if len(input.Signals) == 0 && len(input.Catalysts) == 0 {
		return &Result{}, nil
	}
	if err := s.Budget(); err != nil {
		return nil, err
	}

	userPrompt := BuildIdeationPrompt(input.Signals, input.Catalysts, input.Tape, input.OpenPositions, input.AccuracyBlock)
	raw, err := s.AI.Chat(ctx, "ideation", ideationSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("ideation call failed: %w", err)
	}
	analysis, err := ParseAnalysis(raw)
	if err != nil {
		return nil, err
	}
	confidence := ExtractConfidence(analysis.Confidence, raw)
	result := &Result{Analysis: analysis, Confidence: confidence}
	if confidence < MinActionableConfidence {
		logger.Infof("[synth] confidence %d/5 below actionable gate, discarding", confidence)
		return result, nil
	}

	groupID := uuid.NewString()
	quotes := s.fetchQuotes(ctx, analysis.Trade.Tickers)
	levels := s.ground(ctx, analysis, quotes)

	signalsJSON, _ := json.Marshal(summarizeSignals(input.Signals))
	expiry := s.clock().UTC().Add(s.IdeaTTL)
	for _, ticker := range analysis.Trade.Tickers {
		quote, haveQuote := quotes[ticker]
		if !haveQuote {
			logger.Warnf("[synth] no live quote for %s, dropping leg", ticker)
			continue
		}
		idea := &store.Idea{
			GroupID:      groupID,
			Symbol:       ticker,
			Direction:    analysis.Trade.Direction,
			Narrative:    analysis.Narrative,
			MarketRegime: analysis.MarketRegime,
			SectorImpact: analysis.SectorImpact,
			Thesis:       analysis.Trade.Thesis,
			Timeline:     analysis.Trade.Timeline,
			Confidence:   confidence,
			Grade:        analysis.Grade,
			Signals:      signalsJSON,
			Status:       store.IdeaOpen,
			ExpiresAt:    expiry,
		}
		entry := quote.Price
		idea.EntryPrice = &entry
		if lv, ok := levels[ticker]; ok {
			idea.EntryPrice = &lv.Entry
			idea.TargetPrice = &lv.Target
			idea.StopPrice = &lv.Stop
		}
		result.Ideas = append(result.Ideas, idea)
	}

	if s.Bridge != nil {
		// best effort; a failed bridge never blocks the core idea
		if bet, ok := s.Bridge.Attach(ctx, analysis); ok {
			result.Bridge = bet
		}
	}
	return result, nil
}

// Level is one grounded set of prices for a ticker.
type Level struct {
	Entry  float64
	Target float64
	Stop   float64
}

func (s *Synthesizer) fetchQuotes(ctx context.Context, tickers []string) map[string]market.Quote {
	out := make(map[string]market.Quote, len(tickers))
	for _, t := range tickers {
		q, err := s.Quotes.Quote(ctx, t)
		if err != nil {
			logger.Warnf("[synth] quote fetch for %s failed: %v", t, err)
			continue
		}
		out[t] = q
	}
	return out
}

// ground runs stage 2. Every failure path returns what was salvageable:
// tickers without a validated level fall back to entry-at-market upstream.
func (s *Synthesizer) ground(ctx context.Context, analysis *Analysis, quotes map[string]market.Quote) map[string]Level {
	if len(quotes) == 0 {
		return nil
	}
	if err := s.Budget(); err != nil {
		logger.Warnf("[synth] grounding skipped: %v", err)
		return nil
	}
	ordered := make([]market.Quote, 0, len(quotes))
	for _, t := range analysis.Trade.Tickers {
		if q, ok := quotes[t]; ok {
			ordered = append(ordered, q)
		}
	}
	raw, err := s.AI.Chat(ctx, "grounding", groundingSystemPrompt, BuildGroundingPrompt(analysis, ordered))
	if err != nil {
		logger.Warnf("[synth] grounding call failed, falling back to market entries: %v", err)
		return nil
	}
	return parseLevels(raw, analysis.Trade.Direction, quotes)
}

func parseLevels(raw, direction string, quotes map[string]market.Quote) map[string]Level {
	doc, ok := jsonutil.ExtractObject(raw)
	if !ok {
		return nil
	}
	var parsed struct {
		Levels []struct {
			Ticker string  `json:"ticker"`
			Entry  float64 `json:"entry"`
			Target float64 `json:"target"`
			Stop   float64 `json:"stop"`
		} `json:"levels"`
	}
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		return nil
	}
	out := make(map[string]Level, len(parsed.Levels))
	for _, lv := range parsed.Levels {
		ticker := strings.ToUpper(strings.TrimSpace(lv.Ticker))
		if _, known := quotes[ticker]; !known {
			continue
		}
		level := Level{Entry: lv.Entry, Target: lv.Target, Stop: lv.Stop}
		if !levelConsistent(direction, level) {
			logger.Warnf("[synth] inconsistent levels for %s discarded (entry=%.2f target=%.2f stop=%.2f)",
				ticker, lv.Entry, lv.Target, lv.Stop)
			continue
		}
		out[ticker] = level
	}
	return out
}

// levelConsistent checks the direction arithmetic with decimals so a
// boundary-equal level is rejected deterministically.
func levelConsistent(direction string, lv Level) bool {
	entry := decimal.NewFromFloat(lv.Entry)
	target := decimal.NewFromFloat(lv.Target)
	stop := decimal.NewFromFloat(lv.Stop)
	if entry.LessThanOrEqual(decimal.Zero) {
		return false
	}
	switch direction {
	case store.DirectionLong:
		return target.GreaterThan(entry) && stop.LessThan(entry)
	case store.DirectionShort:
		return target.LessThan(entry) && stop.GreaterThan(entry)
	default:
		return false
	}
}

func summarizeSignals(signals []detect.Signal) []map[string]any {
	out := make([]map[string]any, 0, len(signals))
	for _, s := range signals {
		out = append(out, map[string]any{
			"instrument": s.InstrumentID,
			"metric":     s.Metric,
			"quality":    s.Quality,
			"message":    s.Message,
		})
	}
	return out
}
