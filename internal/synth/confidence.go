package synth

import (
	"regexp"
	"strconv"
)

// MinActionableConfidence is the persistence and alert gate. Anything below
// it is logged and discarded as a valid non-error outcome.
const MinActionableConfidence = 2

// Legacy free-text patterns, tried in order. Models drift between formats;
// all of these have been seen in the wild.
var confidencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`CONFIDENCE:\s*(\d)\s*/\s*5`),
	regexp.MustCompile(`[Cc]onfidence:\s*(\d)\s*/\s*5`),
	regexp.MustCompile(`[Cc]onf(?:idence)?[\s:]+(\d)/5`),
}

// ExtractConfidence resolves the 0-5 confidence of an analysis. A structured
// value wins; otherwise the raw text is scanned with the legacy patterns.
// Absent everything, the floor value 1 is assumed, which keeps unparseable
// output below the actionable gate.
func ExtractConfidence(structured *int, raw string) int {
	if structured != nil {
		return clampConfidence(*structured)
	}
	for _, re := range confidencePatterns {
		m := re.FindStringSubmatch(raw)
		if len(m) == 2 {
			n, err := strconv.Atoi(m[1])
			if err == nil {
				return clampConfidence(n)
			}
		}
	}
	return 1
}

func clampConfidence(n int) int {
	if n < 0 {
		return 0
	}
	if n > 5 {
		return 5
	}
	return n
}
