package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func fp(v float64) *float64 { return &v }

func TestSnapshotWindow(t *testing.T) {
	st := newTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, st.UpsertInstrument(&Instrument{ID: "m1", Question: "Will X happen?", Active: true}))
	for i := 0; i < 5; i++ {
		require.NoError(t, st.AppendSnapshot(&Snapshot{
			InstrumentID: "m1",
			Timestamp:    base.Add(time.Duration(i) * time.Minute),
			YesPrice:     fp(0.40 + float64(i)*0.01),
			BidDepth:     fp(1000),
		}))
	}

	t.Run("returns latest N ascending", func(t *testing.T) {
		window, err := st.SnapshotWindow("m1", 3)
		require.NoError(t, err)
		require.Len(t, window, 3)
		assert.Equal(t, base.Add(2*time.Minute).Unix(), window[0].Timestamp.Unix())
		assert.Equal(t, base.Add(4*time.Minute).Unix(), window[2].Timestamp.Unix())
		assert.InDelta(t, 0.44, *window[2].YesPrice, 1e-9)
	})

	t.Run("duplicate timestamp is ignored", func(t *testing.T) {
		require.NoError(t, st.AppendSnapshot(&Snapshot{
			InstrumentID: "m1",
			Timestamp:    base.Add(4 * time.Minute),
			YesPrice:     fp(0.99),
		}))
		window, err := st.SnapshotWindow("m1", 10)
		require.NoError(t, err)
		require.Len(t, window, 5)
		assert.InDelta(t, 0.44, *window[4].YesPrice, 1e-9)
	})

	t.Run("unknown instrument is empty", func(t *testing.T) {
		window, err := st.SnapshotWindow("nope", 10)
		require.NoError(t, err)
		assert.Empty(t, window)
	})
}

func TestUpsertInstrument(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.UpsertInstrument(&Instrument{ID: "m1", Question: "v1", Active: true}))
	require.NoError(t, st.UpsertInstrument(&Instrument{ID: "m1", Question: "v2", Active: true}))

	inst, err := st.Instrument("m1")
	require.NoError(t, err)
	assert.Equal(t, "v2", inst.Question)

	active, err := st.ActiveInstruments(0)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	require.NoError(t, st.DeactivateInstrument("m1"))
	active, err = st.ActiveInstruments(0)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestResolveIdea(t *testing.T) {
	st := newTestStore(t)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return clock })

	ideas := []*Idea{{GroupID: "g1", Symbol: "TLT", Direction: DirectionShort, Confidence: 3, Grade: "B+",
		EntryPrice: fp(92), TargetPrice: fp(86), StopPrice: fp(95), ExpiresAt: clock.Add(48 * time.Hour)}}
	require.NoError(t, st.SaveIdeas(ideas))
	id := ideas[0].ID
	require.NotZero(t, id)

	t.Run("resolution writes the outcome and closes the idea", func(t *testing.T) {
		require.NoError(t, st.ResolveIdea(id, IdeaWin, 86.0, 6.52))

		idea, err := st.Idea(id)
		require.NoError(t, err)
		assert.Equal(t, IdeaWin, idea.Status)
		assert.False(t, idea.Open())

		var outcome Outcome
		require.NoError(t, st.db.First(&outcome, "idea_id = ?", id).Error)
		assert.Equal(t, IdeaWin, outcome.Result)
		assert.Equal(t, 86.0, outcome.ExitPrice)
		assert.Equal(t, clock.Unix(), outcome.ResolvedAt.Unix())
	})

	t.Run("double resolve is a no-op", func(t *testing.T) {
		err := st.ResolveIdea(id, IdeaLoss, 95.0, -3.26)
		assert.ErrorIs(t, err, ErrAlreadyResolved)

		idea, err := st.Idea(id)
		require.NoError(t, err)
		assert.Equal(t, IdeaWin, idea.Status)

		var count int64
		st.db.Model(&Outcome{}).Where("idea_id = ?", id).Count(&count)
		assert.EqualValues(t, 1, count)
	})

	t.Run("invalid result is rejected", func(t *testing.T) {
		err := st.ResolveIdea(id, "maybe", 0, 0)
		require.Error(t, err)
	})
}

func TestAccuracyByGrade(t *testing.T) {
	st := newTestStore(t)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return clock })

	seed := []struct {
		grade   string
		result  string
		pctMove float64
	}{
		{"B+", IdeaWin, 4.0},
		{"B+", IdeaLoss, -2.0},
		{"B+", IdeaWin, 6.0},
		{"C", IdeaBreakeven, 0.2},
	}
	for i, row := range seed {
		ideas := []*Idea{{GroupID: "g", Symbol: "SPY", Direction: DirectionLong, Grade: row.grade,
			ExpiresAt: clock.Add(time.Hour)}}
		require.NoError(t, st.SaveIdeas(ideas))
		require.NoError(t, st.ResolveIdea(ideas[0].ID, row.result, 100+float64(i), row.pctMove))
	}

	stats, err := st.AccuracyByGrade(90 * 24 * time.Hour)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	byGrade := map[string]GradeStat{}
	for _, s := range stats {
		byGrade[s.Grade] = s
	}
	bPlus := byGrade["B+"]
	assert.Equal(t, 3, bPlus.Total)
	assert.Equal(t, 2, bPlus.Wins)
	assert.Equal(t, 1, bPlus.Losses)
	assert.InDelta(t, 66.67, bPlus.WinRate(), 0.01)
	assert.InDelta(t, 8.0/3.0, bPlus.AvgPctMove, 1e-9)

	c := byGrade["C"]
	assert.Equal(t, 1, c.Breakevens)
	assert.Equal(t, 0.0, c.WinRate())
}

func TestConsumeAICall(t *testing.T) {
	st := newTestStore(t)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return clock })

	t.Run("cap enforced after n calls", func(t *testing.T) {
		require.NoError(t, st.ConsumeAICall(2))
		require.NoError(t, st.ConsumeAICall(2))
		assert.ErrorIs(t, st.ConsumeAICall(2), ErrDailyCapReached)

		usage, err := st.UsageToday()
		require.NoError(t, err)
		assert.Equal(t, 2, usage.Calls)
	})

	t.Run("counter resets on a new day", func(t *testing.T) {
		clock = clock.Add(24 * time.Hour)
		require.NoError(t, st.ConsumeAICall(2))
	})

	t.Run("zero cap is unlimited", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			require.NoError(t, st.ConsumeAICall(0))
		}
	})

	t.Run("token spend accumulates", func(t *testing.T) {
		require.NoError(t, st.AddTokens(120))
		require.NoError(t, st.AddTokens(80))
		usage, err := st.UsageToday()
		require.NoError(t, err)
		assert.Equal(t, 200, usage.Tokens)
	})
}

func TestPendingResearch(t *testing.T) {
	st := newTestStore(t)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return clock })

	fresh := &ResearchItem{Headline: "CPI surprise", ImpactScore: 9, ExpiresAt: clock.Add(48 * time.Hour)}
	stale := &ResearchItem{Headline: "old catalyst", ImpactScore: 8, ExpiresAt: clock.Add(-time.Hour)}
	require.NoError(t, st.EnqueueResearch(stale))
	require.NoError(t, st.EnqueueResearch(fresh))

	pending, err := st.PendingResearch()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "CPI surprise", pending[0].Headline)

	expired, err := st.ResearchItemByID(stale.ID)
	require.NoError(t, err)
	assert.Equal(t, ResearchExpired, expired.Status)

	t.Run("completion stores the text", func(t *testing.T) {
		require.NoError(t, st.CompleteResearch(fresh.ID, "full writeup"))
		item, err := st.ResearchItemByID(fresh.ID)
		require.NoError(t, err)
		assert.Equal(t, ResearchCompleted, item.Status)
		assert.Equal(t, "full writeup", item.Research)
		require.NotNil(t, item.CompletedAt)
	})
}

func TestPrune(t *testing.T) {
	st := newTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return now })
	old := now.Add(-40 * 24 * time.Hour)

	require.NoError(t, st.UpsertInstrument(&Instrument{ID: "m1", Active: true}))
	require.NoError(t, st.AppendSnapshot(&Snapshot{InstrumentID: "m1", Timestamp: old}))
	require.NoError(t, st.AppendSnapshot(&Snapshot{InstrumentID: "m1", Timestamp: now.Add(-time.Hour)}))
	require.NoError(t, st.SaveAlert(&SignalAlert{InstrumentID: "m1", Metric: "bid_depth_spike", DetectedAt: old}))

	// one resolved idea well past the horizon, one open idea just as old
	closed := []*Idea{{GroupID: "g1", Symbol: "SPY", Direction: DirectionLong, ExpiresAt: old}}
	require.NoError(t, st.SaveIdeas(closed))
	require.NoError(t, st.db.Model(&Idea{}).Where("id = ?", closed[0].ID).
		Updates(map[string]interface{}{"status": IdeaWin, "created_at": old}).Error)
	require.NoError(t, st.db.Create(&Outcome{IdeaID: closed[0].ID, Result: IdeaWin, ResolvedAt: old}).Error)

	open := []*Idea{{GroupID: "g2", Symbol: "TLT", Direction: DirectionShort, ExpiresAt: old}}
	require.NoError(t, st.SaveIdeas(open))
	require.NoError(t, st.db.Model(&Idea{}).Where("id = ?", open[0].ID).
		Update("created_at", old).Error)

	result, err := st.Prune(RetentionPolicy{
		SnapshotDays:   7,
		AlertDays:      30,
		IdeaDays:       30,
		ResearchDays:   7,
		InstrumentDays: 30,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Snapshots)
	assert.EqualValues(t, 1, result.Alerts)
	assert.EqualValues(t, 1, result.Ideas)

	// the open idea survived regardless of age
	survivor, err := st.Idea(open[0].ID)
	require.NoError(t, err)
	assert.Equal(t, IdeaOpen, survivor.Status)

	_, err = st.Idea(closed[0].ID)
	require.Error(t, err)

	var outcomes int64
	st.db.Model(&Outcome{}).Count(&outcomes)
	assert.EqualValues(t, 0, outcomes)
}

func TestAlertSuppression(t *testing.T) {
	st := newTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, st.SaveAlert(&SignalAlert{
		InstrumentID: "m1", Metric: "bid_depth_spike", Ratio: 4.16, DetectedAt: now.Add(-30 * time.Minute),
	}))

	recent, err := st.HasRecentAlert("m1", "bid_depth_spike", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, recent)

	recent, err = st.HasRecentAlert("m1", "bid_depth_spike", now.Add(-10*time.Minute))
	require.NoError(t, err)
	assert.False(t, recent)

	recent, err = st.HasRecentAlert("m1", "price_momentum", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, recent)
}
