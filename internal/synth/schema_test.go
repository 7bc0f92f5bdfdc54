package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodAnalysis = `{
  "narrative": "Energy supply shock building",
  "market_regime": "risk-off",
  "sector_impact": "energy up, airlines down",
  "trade": {
    "direction": "long",
    "tickers": ["XLE", "uso"],
    "thesis": "supply cut flows into crude",
    "timeline": "2-4 weeks"
  },
  "confidence": 4,
  "grade": "B+"
}`

func TestParseAnalysis(t *testing.T) {
	t.Run("clean document", func(t *testing.T) {
		a, err := ParseAnalysis(goodAnalysis)
		require.NoError(t, err)
		assert.Equal(t, "long", a.Trade.Direction)
		assert.Equal(t, []string{"XLE", "USO"}, a.Trade.Tickers)
		assert.Equal(t, "B+", a.Grade)
		require.NotNil(t, a.Confidence)
		assert.Equal(t, 4, *a.Confidence)
	})

	t.Run("fenced document", func(t *testing.T) {
		a, err := ParseAnalysis("Here you go:\n```json\n" + goodAnalysis + "\n```\n")
		require.NoError(t, err)
		assert.Equal(t, "Energy supply shock building", a.Narrative)
	})

	t.Run("prose around the document", func(t *testing.T) {
		a, err := ParseAnalysis("Sure! " + goodAnalysis + " Hope this helps.")
		require.NoError(t, err)
		assert.Equal(t, "long", a.Trade.Direction)
	})

	t.Run("schema violation falls back to salvage", func(t *testing.T) {
		// direction outside the enum fails validation but salvage still
		// finds the fields
		bad := `{"narrative": "n", "trade": {"direction": "LONG", "tickers": ["SPY"], "thesis": "t"}}`
		a, err := ParseAnalysis(bad)
		require.NoError(t, err)
		assert.Equal(t, "long", a.Trade.Direction)
		assert.Equal(t, []string{"SPY"}, a.Trade.Tickers)
	})

	t.Run("unknown grade normalizes to C", func(t *testing.T) {
		doc := `{"narrative": "n", "grade": "S+", "trade": {"direction": "short", "tickers": ["SPY"], "thesis": "t"}}`
		a, err := ParseAnalysis(doc)
		require.NoError(t, err)
		assert.Equal(t, "C", a.Grade)
	})

	t.Run("no tickers is unusable", func(t *testing.T) {
		doc := `{"narrative": "n", "trade": {"direction": "long", "tickers": [], "thesis": "t"}}`
		_, err := ParseAnalysis(doc)
		assert.Error(t, err)
	})

	t.Run("plain prose is unusable", func(t *testing.T) {
		_, err := ParseAnalysis("I think energy goes up.")
		assert.Error(t, err)
	})

	t.Run("empty output is unusable", func(t *testing.T) {
		_, err := ParseAnalysis("")
		assert.Error(t, err)
	})
}
