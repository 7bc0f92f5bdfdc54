// Package notify renders and delivers Discord alerts with deduplication and
// a global outbound rate budget.
package notify

import (
	"fmt"
	"time"

	"marketscan/internal/pkg/text"
)

// Discord hard limit for an embed field value.
const maxFieldLength = 1024

// Embed colors. Confidence maps to the severity ramp; fixed colors cover
// the other alert classes.
const (
	ColorSuccess  = 65280    // green
	ColorDeepDive = 10181046 // purple
	ColorNeutral  = 9807270  // grey
)

var confidenceColors = map[int]int{
	5: 16711680, // red, highest urgency
	4: 16744448, // orange
	3: 16776960, // yellow
	2: 3447003,  // blue
	1: 9807270,  // grey
}

func ConfidenceColor(confidence int) int {
	if c, ok := confidenceColors[confidence]; ok {
		return c
	}
	return ColorNeutral
}

// Embed mirrors the Discord embed wire shape.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type EmbedFooter struct {
	Text string `json:"text,omitempty"`
}

type webhookPayload struct {
	Username string  `json:"username,omitempty"`
	Embeds   []Embed `json:"embeds"`
}

// field builds a capped embed field. Empty values render as N/A so embeds
// never silently drop a row.
func field(name, value string, inline bool) EmbedField {
	if value == "" {
		value = "N/A"
	}
	return EmbedField{Name: name, Value: text.Truncate(value, maxFieldLength), Inline: inline}
}

// fmtPrice renders an optional price, N/A when absent.
func fmtPrice(p *float64) string {
	if p == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *p)
}

func stamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339)
}
