package synth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"marketscan/internal/pkg/jsonutil"
)

// Analysis is the stage-1 ideation contract. It deliberately carries no
// price levels; those are filled in by grounding against live quotes.
type Analysis struct {
	Narrative    string   `json:"narrative"`
	MarketRegime string   `json:"market_regime"`
	SectorImpact string   `json:"sector_impact"`
	Trade        TradeRec `json:"trade"`
	Confidence   *int     `json:"confidence"`
	Grade        string   `json:"grade"`
}

type TradeRec struct {
	Direction string   `json:"direction"`
	Tickers   []string `json:"tickers"`
	Thesis    string   `json:"thesis"`
	Timeline  string   `json:"timeline"`
}

const analysisSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["narrative", "trade"],
  "properties": {
    "narrative": {"type": "string", "minLength": 1},
    "market_regime": {"type": "string"},
    "sector_impact": {"type": "string"},
    "trade": {
      "type": "object",
      "required": ["direction", "tickers", "thesis"],
      "properties": {
        "direction": {"type": "string", "enum": ["long", "short"]},
        "tickers": {"type": "array", "items": {"type": "string"}, "minItems": 1},
        "thesis": {"type": "string", "minLength": 1},
        "timeline": {"type": "string"}
      }
    },
    "confidence": {"type": "integer"},
    "grade": {"type": "string"}
  }
}`

var analysisSchema = jsonschema.MustCompileString("analysis.json", analysisSchemaJSON)

// ParseAnalysis decodes stage-1 output: extract the JSON document, check it
// against the schema, then strict-decode. On failure one salvage pass probes
// the fields individually; only if that also fails is the output unusable.
func ParseAnalysis(raw string) (*Analysis, error) {
	doc, ok := jsonutil.ExtractObject(raw)
	if !ok {
		return nil, fmt.Errorf("no JSON object in model output")
	}
	if !gjson.Valid(doc) {
		return salvageAnalysis(raw)
	}
	var inst any
	if err := json.Unmarshal([]byte(doc), &inst); err != nil {
		return salvageAnalysis(raw)
	}
	if err := analysisSchema.Validate(inst); err != nil {
		return salvageAnalysis(raw)
	}
	var analysis Analysis
	if err := json.Unmarshal([]byte(doc), &analysis); err != nil {
		return salvageAnalysis(raw)
	}
	normalizeAnalysis(&analysis)
	return &analysis, nil
}

// salvageAnalysis is the single bounded recovery attempt: pull the fields
// out with path queries, tolerating structural damage around them.
func salvageAnalysis(raw string) (*Analysis, error) {
	doc, ok := jsonutil.ExtractObject(raw)
	if !ok {
		doc = raw
	}
	narrative := gjson.Get(doc, "narrative").String()
	direction := gjson.Get(doc, "trade.direction").String()
	thesis := gjson.Get(doc, "trade.thesis").String()
	if narrative == "" || direction == "" || thesis == "" {
		return nil, fmt.Errorf("no usable analysis in model output")
	}
	analysis := &Analysis{
		Narrative:    narrative,
		MarketRegime: gjson.Get(doc, "market_regime").String(),
		SectorImpact: gjson.Get(doc, "sector_impact").String(),
		Grade:        gjson.Get(doc, "grade").String(),
		Trade: TradeRec{
			Direction: direction,
			Thesis:    thesis,
			Timeline:  gjson.Get(doc, "trade.timeline").String(),
		},
	}
	for _, t := range gjson.Get(doc, "trade.tickers").Array() {
		if s := strings.TrimSpace(t.String()); s != "" {
			analysis.Trade.Tickers = append(analysis.Trade.Tickers, s)
		}
	}
	if len(analysis.Trade.Tickers) == 0 {
		return nil, fmt.Errorf("no usable analysis in model output")
	}
	if conf := gjson.Get(doc, "confidence"); conf.Exists() {
		n := int(conf.Int())
		analysis.Confidence = &n
	}
	normalizeAnalysis(analysis)
	return analysis, nil
}

func normalizeAnalysis(a *Analysis) {
	a.Trade.Direction = strings.ToLower(strings.TrimSpace(a.Trade.Direction))
	a.Grade = normalizeGrade(a.Grade)
	tickers := a.Trade.Tickers[:0]
	for _, t := range a.Trade.Tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			tickers = append(tickers, t)
		}
	}
	a.Trade.Tickers = tickers
}

var knownGrades = map[string]string{
	"A+": "A+", "A": "A", "B+": "B+", "B": "B", "C": "C",
}

func normalizeGrade(grade string) string {
	g := strings.ToUpper(strings.TrimSpace(grade))
	if normalized, ok := knownGrades[g]; ok {
		return normalized
	}
	return "C"
}
