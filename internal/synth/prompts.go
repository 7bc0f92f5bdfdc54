package synth

import (
	"fmt"
	"strings"

	"marketscan/internal/detect"
	"marketscan/internal/market"
)

// Catalyst is a ranked external event feeding stage-1 ideation.
type Catalyst struct {
	Headline       string
	ImpactScore    int
	Direction      string
	Sectors        []string
	Rationale      string
	KeyInstruments []string
	SourceURL      string
}

const ideationSystemPrompt = `You are a macro trading analyst. You connect market anomalies and
catalysts into a single coherent trade thesis.

Rules:
- Do NOT mention any specific price level, entry, target, or stop. Price
  levels are computed later against live quotes; any number you invent here
  would be stale or hallucinated.
- Direction must be "long" or "short".
- Grade the setup A+, A, B+, B, or C.
- Rate confidence as an integer from 0 (no edge) to 5 (exceptional).
- Return ONLY the JSON object, no commentary.`

const ideationOutputContract = `Return ONLY a JSON object with this exact shape:
{
  "narrative": "one-paragraph story connecting the signals",
  "market_regime": "risk-on | risk-off | mixed, with one sentence why",
  "sector_impact": "which sectors move and how",
  "trade": {
    "direction": "long | short",
    "tickers": ["..."],
    "thesis": "why this trade, tied to the signals",
    "timeline": "expected holding period"
  },
  "confidence": 0,
  "grade": "A+ | A | B+ | B | C"
}`

// BuildIdeationPrompt assembles the stage-1 user prompt from everything the
// run observed. The accuracy block closes the feedback loop: the model sees
// how its past grades actually performed.
func BuildIdeationPrompt(signals []detect.Signal, catalysts []Catalyst, tape []market.Quote, openPositions []string, accuracyBlock string) string {
	var b strings.Builder

	if len(tape) > 0 {
		b.WriteString("## Market tape\n")
		for _, q := range tape {
			fmt.Fprintf(&b, "- %s: %.2f (%+.2f%%)\n", q.Symbol, q.Price, q.ChangePct)
		}
		b.WriteString("\n")
	}

	if len(catalysts) > 0 {
		b.WriteString("## Catalysts\n")
		for _, c := range catalysts {
			fmt.Fprintf(&b, "- [impact %d/10, %s] %s\n", c.ImpactScore, c.Direction, c.Headline)
			if c.Rationale != "" {
				fmt.Fprintf(&b, "  rationale: %s\n", c.Rationale)
			}
			if len(c.Sectors) > 0 {
				fmt.Fprintf(&b, "  sectors: %s\n", strings.Join(c.Sectors, ", "))
			}
			if len(c.KeyInstruments) > 0 {
				fmt.Fprintf(&b, "  instruments: %s\n", strings.Join(c.KeyInstruments, ", "))
			}
		}
		b.WriteString("\n")
	}

	if len(signals) > 0 {
		b.WriteString("## Detected anomalies\n")
		for _, s := range signals {
			name := s.Question
			if name == "" {
				name = s.InstrumentID
			}
			fmt.Fprintf(&b, "- [%s, quality %d/100] %s: %s\n", s.Metric, s.Quality, name, s.Message)
		}
		b.WriteString("\n")
	}

	if len(openPositions) > 0 {
		b.WriteString("## Open ideas (do not duplicate)\n")
		for _, p := range openPositions {
			fmt.Fprintf(&b, "- %s\n", p)
		}
		b.WriteString("\n")
	}

	if strings.TrimSpace(accuracyBlock) != "" {
		b.WriteString("## Your historical accuracy by grade\n")
		b.WriteString(accuracyBlock)
		b.WriteString("\n")
	}

	b.WriteString(ideationOutputContract)
	return b.String()
}

const groundingSystemPrompt = `You are a trade execution planner. Given a thesis, a direction, and
LIVE market prices, set entry, target, and stop levels.

Rules:
- Use ONLY the live prices provided. Never invent a price.
- The target must be profitable for the direction: above entry for long,
  below entry for short.
- Risk one unit to make at least two: keep reward-to-risk at or above 2:1.
- The stop must sit at a level that invalidates the thesis.
- Return ONLY the JSON object.`

// BuildGroundingPrompt assembles the stage-2 user prompt for one synthesis.
func BuildGroundingPrompt(analysis *Analysis, quotes []market.Quote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thesis: %s\n", analysis.Trade.Thesis)
	fmt.Fprintf(&b, "Direction: %s\n", analysis.Trade.Direction)
	if analysis.Trade.Timeline != "" {
		fmt.Fprintf(&b, "Timeline: %s\n", analysis.Trade.Timeline)
	}
	b.WriteString("\nLive prices:\n")
	for _, q := range quotes {
		fmt.Fprintf(&b, "- %s: %.2f\n", q.Symbol, q.Price)
	}
	b.WriteString(`
Return ONLY a JSON object of this shape, one entry per ticker:
{
  "levels": [
    {"ticker": "...", "entry": 0.0, "target": 0.0, "stop": 0.0}
  ]
}
`)
	return b.String()
}
