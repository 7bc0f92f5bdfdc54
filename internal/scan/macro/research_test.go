package macro

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketscan/internal/notify"
	"marketscan/internal/store"
)

type captureSender struct {
	embeds []notify.Embed
}

func (c *captureSender) Send(_ context.Context, embeds ...notify.Embed) error {
	c.embeds = append(c.embeds, embeds...)
	return nil
}

func newResearchScanner(t *testing.T) (*Scanner, *store.Store, *captureSender) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sender := &captureSender{}
	s := &Scanner{
		Store:    st,
		Notifier: &notify.Notifier{Sender: sender, Dedup: notify.NewDedupCache(300*time.Second, 50)},
	}
	return s, st, sender
}

func TestCompleteResearch(t *testing.T) {
	enqueue := func(t *testing.T, st *store.Store, headline string) *store.ResearchItem {
		t.Helper()
		item := &store.ResearchItem{
			Headline:    headline,
			ImpactScore: 9,
			Direction:   "bearish",
			Status:      store.ResearchPending,
			ExpiresAt:   time.Now().UTC().Add(48 * time.Hour),
		}
		require.NoError(t, st.EnqueueResearch(item))
		return item
	}

	t.Run("completed entries close the queue and deliver a report", func(t *testing.T) {
		s, st, sender := newResearchScanner(t)
		item := enqueue(t, st, "CPI comes in hot")

		input := strings.NewReader(`[{"queue_id": ` + itoa(item.ID) + `, "deep_research": "services inflation is sticky"}]`)
		completed, err := s.CompleteResearch(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, 1, completed)

		pending, err := st.PendingResearch()
		require.NoError(t, err)
		assert.Empty(t, pending)

		require.Len(t, sender.embeds, 1)
		assert.Contains(t, sender.embeds[0].Title, "CPI comes in hot")
		assert.Contains(t, sender.embeds[0].Description, "services inflation is sticky")
	})

	t.Run("entries without id or text are skipped", func(t *testing.T) {
		s, st, sender := newResearchScanner(t)
		item := enqueue(t, st, "Fed speaker turns dovish")

		input := strings.NewReader(`[
		  {"deep_research": "no queue id"},
		  {"queue_id": ` + itoa(item.ID) + `, "deep_research": "   "}
		]`)
		completed, err := s.CompleteResearch(context.Background(), input)
		require.NoError(t, err)
		assert.Zero(t, completed)
		assert.Empty(t, sender.embeds)

		pending, err := st.PendingResearch()
		require.NoError(t, err)
		assert.Len(t, pending, 1, "skipped entries leave the queue untouched")
	})

	t.Run("malformed input fails", func(t *testing.T) {
		s, _, _ := newResearchScanner(t)
		_, err := s.CompleteResearch(context.Background(), strings.NewReader(`{"not": "an array"}`))
		require.Error(t, err)
	})
}

func TestListResearchEmptyQueue(t *testing.T) {
	s, _, _ := newResearchScanner(t)
	require.NoError(t, s.ListResearch())
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
