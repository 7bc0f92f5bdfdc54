package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"marketscan/internal/ai"
	"marketscan/internal/logger"
	"marketscan/internal/pkg/jsonutil"
	"marketscan/internal/store"
)

// MarketIndex is the slice of storage the bridge searches. The production
// implementation is the prediction-market snapshot store.
type MarketIndex interface {
	ActiveInstruments(limit int) ([]store.Instrument, error)
	SnapshotWindow(instrumentID string, limit int) ([]store.Snapshot, error)
}

// BridgeBet is an optional prediction-market enrichment of a macro idea.
type BridgeBet struct {
	MarketID   string
	Question   string
	Direction  string // "BUY YES" or "BUY NO"
	Edge       string
	Grade      string
	Confidence int
	YesPrice   *float64
}

// Bridge links macro theses to prediction markets: extract search keywords,
// find the best-matching tracked market, and ask whether it is mispriced
// relative to the thesis. Every failure path disables the enrichment
// silently; the core idea never depends on it.
type Bridge struct {
	AI          ai.Client
	Index       MarketIndex
	Budget      func() error
	SearchLimit int
}

const keywordSystemPrompt = `You extract search keywords. Given a trade thesis, return 3-5 short
search keywords that would find related prediction markets.
Return ONLY a JSON array of strings.`

const bridgeEvalSystemPrompt = `You evaluate whether a prediction market is mispriced relative to a
trade thesis. Respond with JSON only:
{
  "relevant": true,
  "direction": "BUY YES | BUY NO",
  "edge": "one sentence on the mispricing",
  "grade": "A+ | A | B+ | B | C",
  "confidence": 1
}
Set "relevant" to false when the market has no real connection to the
thesis. Confidence runs 1-5; use 1 when the edge is marginal.`

// Attach returns (nil, false) whenever any step fails or finds nothing.
func (b *Bridge) Attach(ctx context.Context, analysis *Analysis) (*BridgeBet, bool) {
	if b.AI == nil || b.Index == nil {
		return nil, false
	}
	keywords := b.keywords(ctx, analysis)
	if len(keywords) == 0 {
		return nil, false
	}
	inst, matches := b.bestMatch(keywords)
	if inst == nil || matches == 0 {
		return nil, false
	}
	bet := b.evaluate(ctx, analysis, inst)
	if bet == nil {
		return nil, false
	}
	return bet, true
}

func (b *Bridge) keywords(ctx context.Context, analysis *Analysis) []string {
	if err := b.Budget(); err != nil {
		logger.Debugf("[bridge] keyword extraction skipped: %v", err)
		return nil
	}
	raw, err := b.AI.Chat(ctx, "bridge-keywords", keywordSystemPrompt, analysis.Trade.Thesis)
	if err != nil {
		logger.Debugf("[bridge] keyword extraction failed: %v", err)
		return nil
	}
	doc, ok := jsonutil.ExtractArray(raw)
	if !ok {
		return nil
	}
	var words []string
	if err := json.Unmarshal([]byte(doc), &words); err != nil {
		return nil
	}
	out := words[:0]
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// bestMatch ranks tracked markets by how many keywords appear in their
// question text. Plain substring counting; good enough to shortlist.
func (b *Bridge) bestMatch(keywords []string) (*store.Instrument, int) {
	limit := b.SearchLimit
	if limit <= 0 {
		limit = 200
	}
	instruments, err := b.Index.ActiveInstruments(limit)
	if err != nil {
		logger.Debugf("[bridge] market search failed: %v", err)
		return nil, 0
	}
	var best *store.Instrument
	bestCount := 0
	for i := range instruments {
		question := strings.ToLower(instruments[i].Question)
		count := 0
		for _, kw := range keywords {
			if strings.Contains(question, kw) {
				count++
			}
		}
		if count > bestCount {
			best = &instruments[i]
			bestCount = count
		}
	}
	return best, bestCount
}

func (b *Bridge) evaluate(ctx context.Context, analysis *Analysis, inst *store.Instrument) *BridgeBet {
	if err := b.Budget(); err != nil {
		logger.Debugf("[bridge] evaluation skipped: %v", err)
		return nil
	}
	var yesPrice *float64
	if snaps, err := b.Index.SnapshotWindow(inst.ID, 1); err == nil && len(snaps) > 0 {
		yesPrice = snaps[len(snaps)-1].YesPrice
	}
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Thesis: %s\nDirection: %s\n\n", analysis.Trade.Thesis, analysis.Trade.Direction)
	fmt.Fprintf(&prompt, "Prediction market: %s\n", inst.Question)
	if yesPrice != nil {
		fmt.Fprintf(&prompt, "Current YES price: %.3f\n", *yesPrice)
	} else {
		prompt.WriteString("Current YES price: unknown\n")
	}

	raw, err := b.AI.Chat(ctx, "bridge-eval", bridgeEvalSystemPrompt, prompt.String())
	if err != nil {
		logger.Debugf("[bridge] evaluation failed: %v", err)
		return nil
	}
	doc, ok := jsonutil.ExtractObject(raw)
	if !ok {
		return nil
	}
	var parsed struct {
		Relevant   bool   `json:"relevant"`
		Direction  string `json:"direction"`
		Edge       string `json:"edge"`
		Grade      string `json:"grade"`
		Confidence int    `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		return nil
	}
	if !parsed.Relevant || parsed.Confidence < MinActionableConfidence {
		return nil
	}
	direction := strings.ToUpper(strings.TrimSpace(parsed.Direction))
	if direction != "BUY YES" && direction != "BUY NO" {
		return nil
	}
	return &BridgeBet{
		MarketID:   inst.ID,
		Question:   inst.Question,
		Direction:  direction,
		Edge:       parsed.Edge,
		Grade:      normalizeGrade(parsed.Grade),
		Confidence: clampConfidence(parsed.Confidence),
		YesPrice:   yesPrice,
	}
}
