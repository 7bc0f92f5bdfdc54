package macro

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCatalysts(t *testing.T) {
	t.Run("alias keys normalize", func(t *testing.T) {
		input := `[
		  {"headline": "CPI comes in hot", "impact_score": 9, "direction": "Bearish",
		   "sectors": ["rates"], "rationale": "sticky services inflation", "url": "https://example.com/cpi"},
		  {"title": "Fed speaker turns dovish", "impact": "7", "summary": "hints at cuts",
		   "source": "https://example.com/fed"}
		]`
		catalysts, err := ReadCatalysts(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, catalysts, 2)

		first := catalysts[0]
		assert.Equal(t, "CPI comes in hot", first.Headline)
		assert.Equal(t, 9, first.ImpactScore)
		assert.Equal(t, "bearish", first.Direction)
		assert.Equal(t, "sticky services inflation", first.Rationale)
		assert.Equal(t, "https://example.com/cpi", first.SourceURL)

		// title/impact/summary/source are accepted as aliases
		second := catalysts[1]
		assert.Equal(t, "Fed speaker turns dovish", second.Headline)
		assert.Equal(t, 7, second.ImpactScore)
		assert.Equal(t, "hints at cuts", second.Rationale)
		assert.Equal(t, "https://example.com/fed", second.SourceURL)
	})

	t.Run("entries without a headline are dropped", func(t *testing.T) {
		input := `[{"impact_score": 9}, {"headline": "kept", "impact_score": 5}]`
		catalysts, err := ReadCatalysts(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, catalysts, 1)
		assert.Equal(t, "kept", catalysts[0].Headline)
	})

	t.Run("malformed input fails", func(t *testing.T) {
		_, err := ReadCatalysts(strings.NewReader(`{"not": "an array"}`))
		require.Error(t, err)
	})

	t.Run("empty array is fine", func(t *testing.T) {
		catalysts, err := ReadCatalysts(strings.NewReader(`[]`))
		require.NoError(t, err)
		assert.Empty(t, catalysts)
	})
}
