package marketmon

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketscan/internal/collect"
	"marketscan/internal/config"
	"marketscan/internal/market"
	"marketscan/internal/notify"
	"marketscan/internal/store"
	"marketscan/internal/synth"
)

type stubBookSource struct {
	books map[string]market.BookSnapshot
}

func (s stubBookSource) ActiveMarkets(_ context.Context, _ int) ([]market.Market, error) {
	return nil, fmt.Errorf("%w: discovery disabled in tests", market.ErrFetch)
}

func (s stubBookSource) Book(_ context.Context, marketID string) (market.BookSnapshot, error) {
	snap, ok := s.books[marketID]
	if !ok {
		return market.BookSnapshot{}, fmt.Errorf("%w: unknown market %s", market.ErrFetch, marketID)
	}
	return snap, nil
}

type stubAI struct {
	responses map[string]string
}

func (s stubAI) Chat(_ context.Context, purpose, _, _ string) (string, error) {
	resp, ok := s.responses[purpose]
	if !ok {
		return "", fmt.Errorf("unexpected purpose %s", purpose)
	}
	return resp, nil
}

type recordingSender struct {
	embeds []notify.Embed
}

func (s *recordingSender) Send(_ context.Context, embeds ...notify.Embed) error {
	s.embeds = append(s.embeds, embeds...)
	return nil
}

func fp(v float64) *float64 { return &v }

func monitorConfig() config.MonitorConfig {
	return config.MonitorConfig{
		Markets:            []string{"M1"},
		MinSnapshots:       3,
		SpikeThreshold:     3.0,
		MinDepth:           500,
		PriceMoveThreshold: 0.10,
		PriceWindow:        3,
		ImbalanceThreshold: 3.0,
		QualityGate:        50,
		SuppressionHours:   6,
		FetchConcurrency:   1,
	}
}

func retention() config.RetentionConfig {
	return config.RetentionConfig{SnapshotDays: 7, AlertDays: 30, IdeaDays: 90, ResearchDays: 7, InstrumentDays: 30}
}

func seedHistory(t *testing.T, st *store.Store, base time.Time) {
	t.Helper()
	require.NoError(t, st.UpsertInstrument(&store.Instrument{ID: "M1", Question: "Will rates be cut in March?", Active: true}))
	for i, depth := range []float64{1000, 1050, 980} {
		require.NoError(t, st.AppendSnapshot(&store.Snapshot{
			InstrumentID: "M1",
			Timestamp:    base.Add(time.Duration(i) * time.Minute),
			YesPrice:     fp(0.45),
			BidDepth:     fp(depth),
			AskDepth:     fp(1000),
		}))
	}
}

func TestScannerCycle(t *testing.T) {
	base := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)

	newScanner := func(t *testing.T, source market.BookSource, sender notify.Sender, ai *synth.Synthesizer) (*Scanner, *store.Store) {
		st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })

		cfg := monitorConfig()
		s := &Scanner{
			Cfg:       cfg,
			Retention: retention(),
			Store:     st,
			Collector: &collect.Collector{Source: source, Store: st, Markets: cfg.Markets, Concurrency: 1},
			Notifier:  &notify.Notifier{Sender: sender, Dedup: notify.NewDedupCache(300*time.Second, 50)},
			Synth:     ai,
		}
		s.now = func() time.Time { return base.Add(4 * time.Minute) }
		// retention runs on the store clock; pin it too so the seeded
		// history is never inside the prune horizon
		st.SetClock(s.now)
		return s, st
	}

	t.Run("depth spike produces one alert", func(t *testing.T) {
		sender := &recordingSender{}
		source := stubBookSource{books: map[string]market.BookSnapshot{
			"M1": {MarketID: "M1", YesPrice: fp(0.45), BidDepth: fp(4200), AskDepth: fp(1000),
				Timestamp: base.Add(3 * time.Minute)},
		}}
		s, st := newScanner(t, source, sender, nil)
		seedHistory(t, st, base)

		stats, err := s.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Observed)
		assert.Equal(t, 1, stats.Signals)
		assert.Equal(t, 1, stats.Alerts)
		assert.Zero(t, stats.Ideas)

		require.Len(t, sender.embeds, 1)
		assert.Contains(t, sender.embeds[0].Title, "bid depth spike")

		alerts, err := st.AlertsSince(base)
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, "bid_depth_spike", alerts[0].Metric)
		assert.InDelta(t, 4.16, alerts[0].Ratio, 0.01)
		assert.InDelta(t, 1010, alerts[0].Baseline, 0.01)
		assert.True(t, alerts[0].Notified)
	})

	t.Run("second cycle is suppressed", func(t *testing.T) {
		sender := &recordingSender{}
		source := stubBookSource{books: map[string]market.BookSnapshot{
			"M1": {MarketID: "M1", YesPrice: fp(0.45), BidDepth: fp(4200), AskDepth: fp(1000),
				Timestamp: base.Add(3 * time.Minute)},
		}}
		s, st := newScanner(t, source, sender, nil)
		seedHistory(t, st, base)

		_, err := s.Run(context.Background())
		require.NoError(t, err)

		// another spike a cycle later: detected but inside the
		// suppression horizon, so no second alert
		source.books["M1"] = market.BookSnapshot{
			MarketID: "M1", YesPrice: fp(0.45), BidDepth: fp(6000), AskDepth: fp(1000),
			Timestamp: base.Add(8 * time.Minute),
		}
		stats, err := s.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Signals)
		assert.Zero(t, stats.Alerts)
		assert.Len(t, sender.embeds, 1)
	})

	t.Run("quiet book yields nothing", func(t *testing.T) {
		sender := &recordingSender{}
		source := stubBookSource{books: map[string]market.BookSnapshot{
			"M1": {MarketID: "M1", YesPrice: fp(0.45), BidDepth: fp(1020), AskDepth: fp(1000),
				Timestamp: base.Add(3 * time.Minute)},
		}}
		s, st := newScanner(t, source, sender, nil)
		seedHistory(t, st, base)

		stats, err := s.Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, stats.Signals)
		assert.Empty(t, sender.embeds)
	})

	t.Run("actionable signal flows into a persisted idea", func(t *testing.T) {
		sender := &recordingSender{}
		source := stubBookSource{books: map[string]market.BookSnapshot{
			"M1": {MarketID: "M1", YesPrice: fp(0.45), BidDepth: fp(4200), AskDepth: fp(1000),
				Timestamp: base.Add(3 * time.Minute)},
		}}

		ideation := `{
		  "narrative": "heavy yes-side accumulation ahead of the meeting",
		  "market_regime": "event-driven",
		  "sector_impact": "rate-sensitive markets",
		  "trade": {"direction": "long", "tickers": ["M1"], "thesis": "informed flow front-running a cut", "timeline": "1 week"},
		  "confidence": 3,
		  "grade": "B+"
		}`

		s, st := newScanner(t, source, sender, nil)
		s.Synth = &synth.Synthesizer{
			AI:      stubAI{responses: map[string]string{"ideation": ideation, "grounding": "no levels here"}},
			Quotes:  BookQuotes{Store: st},
			Budget:  func() error { return nil },
			IdeaTTL: 48 * time.Hour,
		}
		seedHistory(t, st, base)

		stats, err := s.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Alerts)
		assert.Equal(t, 1, stats.Ideas)

		// signal alert plus idea alert
		require.Len(t, sender.embeds, 2)

		ideas, err := st.OpenIdeas()
		require.NoError(t, err)
		require.Len(t, ideas, 1)
		idea := ideas[0]
		assert.Equal(t, "M1", idea.Symbol)
		assert.Equal(t, store.DirectionLong, idea.Direction)
		assert.Equal(t, 3, idea.Confidence)
		assert.Equal(t, "B+", idea.Grade)
		assert.True(t, idea.Notified)
		// grounding produced nothing usable, entry falls back to the book
		require.NotNil(t, idea.EntryPrice)
		assert.InDelta(t, 0.45, *idea.EntryPrice, 1e-9)
		assert.Nil(t, idea.TargetPrice)
	})

	t.Run("pinned market is retired", func(t *testing.T) {
		sender := &recordingSender{}
		source := stubBookSource{books: map[string]market.BookSnapshot{
			"M1": {MarketID: "M1", YesPrice: fp(0.99), BidDepth: fp(1000), AskDepth: fp(1000),
				Timestamp: base.Add(3 * time.Minute)},
		}}
		s, st := newScanner(t, source, sender, nil)
		seedHistory(t, st, base)

		// pinned books are skipped at collect time, so simulate a stored
		// pinned close directly
		require.NoError(t, st.AppendSnapshot(&store.Snapshot{
			InstrumentID: "M1", Timestamp: base.Add(3 * time.Minute), YesPrice: fp(0.99),
		}))
		s.retirePinned([]string{"M1"})

		active, err := st.ActiveInstruments(0)
		require.NoError(t, err)
		assert.Empty(t, active)
	})
}
