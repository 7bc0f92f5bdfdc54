package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZScoreSignificance(t *testing.T) {
	assert.Equal(t, 100, ZScoreSignificance(3.2))
	assert.Equal(t, 100, ZScoreSignificance(-3.2))
	assert.Equal(t, 80, ZScoreSignificance(2.7))
	assert.Equal(t, 60, ZScoreSignificance(2.0))
	assert.Equal(t, 30, ZScoreSignificance(1.5))
}

func TestImbalanceStrength(t *testing.T) {
	assert.Equal(t, 90, ImbalanceStrength(5000, 1000))
	// symmetric for ask-heavy books
	assert.Equal(t, 90, ImbalanceStrength(1000, 5000))
	assert.Equal(t, 70, ImbalanceStrength(3000, 1000))
	assert.Equal(t, 50, ImbalanceStrength(2000, 1000))
	assert.Equal(t, 20, ImbalanceStrength(1100, 1000))
	assert.Equal(t, 20, ImbalanceStrength(0, 1000))
}

func TestVolatilityContext(t *testing.T) {
	t.Run("quiet recent window scores high", func(t *testing.T) {
		history := []float64{100, 140, 60, 120, 100, 101, 100, 99}
		assert.Equal(t, 80, VolatilityContext(history))
	})
	t.Run("noisy recent window scores low", func(t *testing.T) {
		history := []float64{1000, 1000, 1000, 1000, 1, 1, 1, 200}
		assert.Equal(t, 40, VolatilityContext(history))
	})
	t.Run("short history is neutral", func(t *testing.T) {
		assert.Equal(t, 60, VolatilityContext([]float64{100, 101}))
	})
}

func TestRateOfChangeVelocity(t *testing.T) {
	history := []float64{1000, 1050, 980}
	assert.Equal(t, 90, RateOfChangeVelocity(history, 4200))
	assert.Equal(t, 70, RateOfChangeVelocity(history, 1300))
	assert.Equal(t, 50, RateOfChangeVelocity(history, 1000))
	assert.Equal(t, 50, RateOfChangeVelocity(nil, 4200))
}

func TestTimeOfDayContext(t *testing.T) {
	assert.Equal(t, 50, TimeOfDayContext(14))
	assert.Equal(t, 50, TimeOfDayContext(20))
	assert.Equal(t, 75, TimeOfDayContext(21))
	assert.Equal(t, 75, TimeOfDayContext(3))
}

func TestRSICondition(t *testing.T) {
	t.Run("monotonic rise is overbought", func(t *testing.T) {
		prices := make([]float64, 20)
		for i := range prices {
			prices[i] = 100 + float64(i)
		}
		assert.Equal(t, 70, RSICondition(prices))
	})
	t.Run("monotonic fall is oversold", func(t *testing.T) {
		prices := make([]float64, 20)
		for i := range prices {
			prices[i] = 100 - float64(i)
		}
		assert.Equal(t, 70, RSICondition(prices))
	})
	t.Run("short series is neutral", func(t *testing.T) {
		assert.Equal(t, 40, RSICondition([]float64{1, 2, 3}))
	})
}

func TestBollingerPosition(t *testing.T) {
	t.Run("breakout scores high", func(t *testing.T) {
		prices := make([]float64, 25)
		for i := range prices {
			prices[i] = 100 + float64(i%3)
		}
		prices[len(prices)-1] = 130
		assert.Equal(t, 80, BollingerPosition(prices))
	})
	t.Run("mid band drift scores low", func(t *testing.T) {
		prices := make([]float64, 25)
		for i := range prices {
			prices[i] = 100 + float64(i%3)
		}
		assert.Equal(t, 40, BollingerPosition(prices))
	})
	t.Run("short series is neutral", func(t *testing.T) {
		assert.Equal(t, 50, BollingerPosition([]float64{1, 2, 3}))
	})
}

func TestComposite(t *testing.T) {
	assert.Equal(t, 70, Composite(60, 80))
	assert.Equal(t, 55, Composite(30, 60, 75))
	assert.Equal(t, 0, Composite())
}

func TestRating(t *testing.T) {
	assert.Equal(t, RatingExcellent, Rating(85))
	assert.Equal(t, RatingGood, Rating(70))
	assert.Equal(t, RatingModerate, Rating(55))
	assert.Equal(t, RatingWeak, Rating(40))
}
