package baseline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	t.Run("below minimum samples is not ready", func(t *testing.T) {
		_, ok := Compute([]float64{1, 2, 3}, 12)
		assert.False(t, ok)
	})

	t.Run("exactly minimum samples is ready", func(t *testing.T) {
		values := make([]float64, 12)
		for i := range values {
			values[i] = float64(i)
		}
		b, ok := Compute(values, 12)
		assert.True(t, ok)
		assert.Equal(t, 12, b.Count)
		assert.InDelta(t, 5.5, b.Mean, 1e-9)
	})

	t.Run("mean and stdev", func(t *testing.T) {
		b, ok := Compute([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 2)
		assert.True(t, ok)
		assert.InDelta(t, 5.0, b.Mean, 1e-9)
		assert.InDelta(t, 2.0, b.Stdev, 1e-9)
	})

	t.Run("empty input is never ready", func(t *testing.T) {
		_, ok := Compute(nil, 1)
		assert.False(t, ok)
	})
}

func TestZScore(t *testing.T) {
	t.Run("flat window has no z-score", func(t *testing.T) {
		b, ok := Compute([]float64{5, 5, 5, 5}, 2)
		assert.True(t, ok)
		_, ok = b.ZScore(10)
		assert.False(t, ok)
	})

	t.Run("standard score", func(t *testing.T) {
		b, _ := Compute([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 2)
		z, ok := b.ZScore(9)
		assert.True(t, ok)
		assert.InDelta(t, 2.0, z, 1e-9)
	})
}

func TestRatio(t *testing.T) {
	t.Run("against mean", func(t *testing.T) {
		b, _ := Compute([]float64{1000, 1050, 980}, 3)
		ratio, ok := b.Ratio(4200)
		assert.True(t, ok)
		assert.InDelta(t, 4.16, ratio, 0.01)
	})

	t.Run("near-zero mean is rejected", func(t *testing.T) {
		b, _ := Compute([]float64{0, 0, 0}, 3)
		_, ok := b.Ratio(100)
		assert.False(t, ok)
	})
}

func TestReference(t *testing.T) {
	history, current, ok := Reference([]float64{1, 2, 3, 4})
	assert.True(t, ok)
	assert.Equal(t, []float64{1, 2, 3}, history)
	assert.Equal(t, 4.0, current)

	_, _, ok = Reference([]float64{1})
	assert.False(t, ok)
}
