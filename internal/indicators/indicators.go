// Package indicators scores detected anomalies on a 0-100 quality scale so
// weak signals never reach the synthesis stage.
package indicators

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"marketscan/internal/baseline"
)

const (
	rsiPeriod     = 12
	rsiOverbought = 70.0
	rsiOversold   = 30.0

	bbPeriod = 20
	bbStdDev = 2.0
)

// Rating buckets for a composite score.
const (
	RatingExcellent = "excellent"
	RatingGood      = "good"
	RatingModerate  = "moderate"
	RatingWeak      = "weak"
)

func Rating(score int) string {
	switch {
	case score >= 80:
		return RatingExcellent
	case score >= 65:
		return RatingGood
	case score >= 50:
		return RatingModerate
	default:
		return RatingWeak
	}
}

// ZScoreSignificance grades how far outside the baseline the value sits.
func ZScoreSignificance(z float64) int {
	z = math.Abs(z)
	switch {
	case z >= 3.0:
		return 100
	case z >= 2.5:
		return 80
	case z >= 2.0:
		return 60
	default:
		return 30
	}
}

// ImbalanceStrength grades the majority-to-minority depth ratio.
func ImbalanceStrength(bidDepth, askDepth float64) int {
	if bidDepth <= 0 || askDepth <= 0 {
		return 20
	}
	ratio := bidDepth / askDepth
	if ratio < 1 {
		ratio = 1 / ratio
	}
	switch {
	case ratio >= 5:
		return 90
	case ratio >= 3:
		return 70
	case ratio >= 2:
		return 50
	default:
		return 20
	}
}

// VolatilityContext grades a spike by the regime it appears in. A spike out
// of a quiet window is more informative than one inside a noisy window.
func VolatilityContext(history []float64) int {
	if len(history) < 4 {
		return 60
	}
	full, ok := baseline.Compute(history, 2)
	if !ok || full.Mean == 0 {
		return 60
	}
	recent, ok := baseline.Compute(history[len(history)/2:], 2)
	if !ok {
		return 60
	}
	fullCV := full.Stdev / math.Abs(full.Mean)
	recentCV := 0.0
	if recent.Mean != 0 {
		recentCV = recent.Stdev / math.Abs(recent.Mean)
	}
	switch {
	case recentCV < fullCV*0.5:
		return 80
	case recentCV > fullCV*1.5:
		return 40
	default:
		return 60
	}
}

// RateOfChangeVelocity grades how fast the metric moved per observation.
func RateOfChangeVelocity(history []float64, current float64) int {
	if len(history) == 0 {
		return 50
	}
	prev := history[len(history)-1]
	if prev == 0 {
		return 50
	}
	roc := math.Abs((current - prev) / prev)
	switch {
	case roc >= 0.50:
		return 90
	case roc >= 0.25:
		return 70
	default:
		return 50
	}
}

// TimeOfDayContext grades activity landing outside regular US trading hours.
func TimeOfDayContext(hourUTC int) int {
	if hourUTC >= 13 && hourUTC < 21 {
		return 50
	}
	return 75
}

// RSICondition grades momentum exhaustion. Needs rsiPeriod+1 prices; shorter
// series return the neutral score.
func RSICondition(prices []float64) int {
	if len(prices) <= rsiPeriod {
		return 40
	}
	series := talib.Rsi(prices, rsiPeriod)
	rsi := series[len(series)-1]
	if math.IsNaN(rsi) {
		return 40
	}
	if rsi >= rsiOverbought || rsi <= rsiOversold {
		return 70
	}
	return 40
}

// BollingerPosition grades where the latest price sits relative to its
// bands. Breakouts score high, mid-band drift low.
func BollingerPosition(prices []float64) int {
	if len(prices) < bbPeriod {
		return 50
	}
	upper, _, lower := talib.BBands(prices, bbPeriod, bbStdDev, bbStdDev, talib.SMA)
	last := len(prices) - 1
	price := prices[last]
	up, lo := upper[last], lower[last]
	if math.IsNaN(up) || math.IsNaN(lo) {
		return 50
	}
	band := up - lo
	if band <= 0 {
		return 50
	}
	switch {
	case price > up || price < lo:
		return 80
	case price > up-band*0.1 || price < lo+band*0.1:
		return 60
	default:
		return 40
	}
}

// Composite averages the provided component scores. Empty input scores zero.
func Composite(scores ...int) int {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return sum / len(scores)
}
