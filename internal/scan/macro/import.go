package macro

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"marketscan/internal/pkg/convert"
	"marketscan/internal/synth"
)

// catalystDoc tolerates the alias keys that appear across catalyst feeds:
// title/headline, summary/rationale, impact/impact_score.
type catalystDoc struct {
	Title          string   `json:"title"`
	Headline       string   `json:"headline"`
	ImpactScore    any      `json:"impact_score"`
	Impact         any      `json:"impact"`
	Direction      string   `json:"direction"`
	Sectors        []string `json:"sectors"`
	Summary        string   `json:"summary"`
	Rationale      string   `json:"rationale"`
	KeyInstruments []string `json:"key_instruments"`
	Source         string   `json:"source"`
	URL            string   `json:"url"`
}

// ReadCatalysts decodes a JSON array of ranked catalysts. Entries without a
// headline are dropped with a warning rather than failing the batch.
func ReadCatalysts(r io.Reader) ([]synth.Catalyst, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading catalyst input failed: %w", err)
	}
	var docs []catalystDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parsing catalyst input failed: %w", err)
	}
	out := make([]synth.Catalyst, 0, len(docs))
	for _, doc := range docs {
		headline := strings.TrimSpace(doc.Headline)
		if headline == "" {
			headline = strings.TrimSpace(doc.Title)
		}
		if headline == "" {
			continue
		}
		impact := int(convert.ToFloat64(doc.ImpactScore))
		if impact == 0 {
			impact = int(convert.ToFloat64(doc.Impact))
		}
		rationale := strings.TrimSpace(doc.Rationale)
		if rationale == "" {
			rationale = strings.TrimSpace(doc.Summary)
		}
		source := strings.TrimSpace(doc.URL)
		if source == "" {
			source = strings.TrimSpace(doc.Source)
		}
		out = append(out, synth.Catalyst{
			Headline:       headline,
			ImpactScore:    impact,
			Direction:      strings.ToLower(strings.TrimSpace(doc.Direction)),
			Sectors:        doc.Sectors,
			Rationale:      rationale,
			KeyInstruments: doc.KeyInstruments,
			SourceURL:      source,
		})
	}
	return out, nil
}
