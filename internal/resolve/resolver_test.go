package resolve

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketscan/internal/market"
	"marketscan/internal/store"
)

type stubQuotes struct {
	prices map[string]float64
}

func (s stubQuotes) Quote(_ context.Context, symbol string) (market.Quote, error) {
	price, ok := s.prices[symbol]
	if !ok {
		return market.Quote{}, fmt.Errorf("%w: no quote for %s", market.ErrFetch, symbol)
	}
	return market.Quote{Symbol: symbol, Price: price, AsOf: time.Now()}, nil
}

func fp(v float64) *float64 { return &v }

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func seedIdea(t *testing.T, st *store.Store, idea *store.Idea) uint {
	t.Helper()
	require.NoError(t, st.SaveIdeas([]*store.Idea{idea}))
	return idea.ID
}

func TestResolverRun(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	newResolver := func(st *store.Store, quotes stubQuotes) *Resolver {
		r := &Resolver{Store: st, Quotes: quotes, BreakevenBandPct: 1.0}
		r.SetClock(func() time.Time { return now })
		return r
	}

	t.Run("long target hit is a win", func(t *testing.T) {
		st := newTestStore(t)
		id := seedIdea(t, st, &store.Idea{GroupID: "g", Symbol: "SPY", Direction: store.DirectionLong,
			EntryPrice: fp(100), TargetPrice: fp(110), StopPrice: fp(95), ExpiresAt: now.Add(time.Hour)})

		r := newResolver(st, stubQuotes{prices: map[string]float64{"SPY": 110.0}})
		resolved, err := r.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, resolved)

		idea, err := st.Idea(id)
		require.NoError(t, err)
		assert.Equal(t, store.IdeaWin, idea.Status)
	})

	t.Run("long stop hit is a loss", func(t *testing.T) {
		st := newTestStore(t)
		id := seedIdea(t, st, &store.Idea{GroupID: "g", Symbol: "SPY", Direction: store.DirectionLong,
			EntryPrice: fp(100), TargetPrice: fp(110), StopPrice: fp(95), ExpiresAt: now.Add(time.Hour)})

		r := newResolver(st, stubQuotes{prices: map[string]float64{"SPY": 94.5}})
		_, err := r.Run(context.Background())
		require.NoError(t, err)

		idea, err := st.Idea(id)
		require.NoError(t, err)
		assert.Equal(t, store.IdeaLoss, idea.Status)
	})

	t.Run("short win when price drops through target", func(t *testing.T) {
		st := newTestStore(t)
		id := seedIdea(t, st, &store.Idea{GroupID: "g", Symbol: "TLT", Direction: store.DirectionShort,
			EntryPrice: fp(92), TargetPrice: fp(86), StopPrice: fp(95), ExpiresAt: now.Add(time.Hour)})

		r := newResolver(st, stubQuotes{prices: map[string]float64{"TLT": 85.9}})
		_, err := r.Run(context.Background())
		require.NoError(t, err)

		idea, err := st.Idea(id)
		require.NoError(t, err)
		assert.Equal(t, store.IdeaWin, idea.Status)
	})

	t.Run("between levels before expiry stays open", func(t *testing.T) {
		st := newTestStore(t)
		id := seedIdea(t, st, &store.Idea{GroupID: "g", Symbol: "SPY", Direction: store.DirectionLong,
			EntryPrice: fp(100), TargetPrice: fp(110), StopPrice: fp(95), ExpiresAt: now.Add(time.Hour)})

		r := newResolver(st, stubQuotes{prices: map[string]float64{"SPY": 103.0}})
		resolved, err := r.Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, resolved)

		idea, err := st.Idea(id)
		require.NoError(t, err)
		assert.Equal(t, store.IdeaOpen, idea.Status)
	})

	t.Run("flat at expiry is breakeven", func(t *testing.T) {
		st := newTestStore(t)
		id := seedIdea(t, st, &store.Idea{GroupID: "g", Symbol: "SPY", Direction: store.DirectionLong,
			EntryPrice: fp(100), TargetPrice: fp(110), StopPrice: fp(95), ExpiresAt: now.Add(-time.Minute)})

		r := newResolver(st, stubQuotes{prices: map[string]float64{"SPY": 100.8}})
		_, err := r.Run(context.Background())
		require.NoError(t, err)

		idea, err := st.Idea(id)
		require.NoError(t, err)
		assert.Equal(t, store.IdeaBreakeven, idea.Status)
	})

	t.Run("modest gain at expiry resolves by sign", func(t *testing.T) {
		st := newTestStore(t)
		id := seedIdea(t, st, &store.Idea{GroupID: "g", Symbol: "SPY", Direction: store.DirectionLong,
			EntryPrice: fp(100), TargetPrice: fp(110), StopPrice: fp(95), ExpiresAt: now.Add(-time.Minute)})

		r := newResolver(st, stubQuotes{prices: map[string]float64{"SPY": 103.0}})
		_, err := r.Run(context.Background())
		require.NoError(t, err)

		idea, err := st.Idea(id)
		require.NoError(t, err)
		assert.Equal(t, store.IdeaWin, idea.Status)
	})

	t.Run("unpriceable idea expires once past deadline", func(t *testing.T) {
		st := newTestStore(t)
		id := seedIdea(t, st, &store.Idea{GroupID: "g", Symbol: "GONE", Direction: store.DirectionLong,
			EntryPrice: fp(100), ExpiresAt: now.Add(-time.Minute)})

		r := newResolver(st, stubQuotes{})
		resolved, err := r.Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, resolved)

		idea, err := st.Idea(id)
		require.NoError(t, err)
		assert.Equal(t, store.IdeaExpired, idea.Status)
	})

	t.Run("unpriceable idea before deadline stays open", func(t *testing.T) {
		st := newTestStore(t)
		id := seedIdea(t, st, &store.Idea{GroupID: "g", Symbol: "GONE", Direction: store.DirectionLong,
			EntryPrice: fp(100), ExpiresAt: now.Add(time.Hour)})

		r := newResolver(st, stubQuotes{})
		_, err := r.Run(context.Background())
		require.NoError(t, err)

		idea, err := st.Idea(id)
		require.NoError(t, err)
		assert.Equal(t, store.IdeaOpen, idea.Status)
	})
}

func TestPctMove(t *testing.T) {
	assert.InDelta(t, 10.0, PctMove(100, 110, store.DirectionLong), 1e-9)
	assert.InDelta(t, -5.0, PctMove(100, 95, store.DirectionLong), 1e-9)
	// shorts invert so profit is positive
	assert.InDelta(t, 6.5217, PctMove(92, 86, store.DirectionShort), 1e-4)
	assert.InDelta(t, -3.2609, PctMove(92, 95, store.DirectionShort), 1e-4)
	assert.Zero(t, PctMove(0, 95, store.DirectionLong))
}

func TestBinaryResult(t *testing.T) {
	result, ok := BinaryResult(0.97)
	assert.True(t, ok)
	assert.Equal(t, "YES", result)

	result, ok = BinaryResult(0.03)
	assert.True(t, ok)
	assert.Equal(t, "NO", result)

	_, ok = BinaryResult(0.95)
	assert.False(t, ok)
	_, ok = BinaryResult(0.50)
	assert.False(t, ok)
}

func TestFormatAccuracy(t *testing.T) {
	assert.Empty(t, FormatAccuracy(nil))

	block := FormatAccuracy([]store.GradeStat{
		{Grade: "B+", Total: 3, Wins: 2, Losses: 1, AvgPctMove: 2.67},
	})
	assert.Contains(t, block, "grade B+")
	assert.Contains(t, block, "67% win rate")
	assert.Contains(t, block, "+2.67%")
}