// Package collect appends per-cycle snapshots for every watched market.
package collect

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"marketscan/internal/logger"
	"marketscan/internal/market"
	"marketscan/internal/store"
)

type Collector struct {
	Source market.BookSource
	Store  *store.Store

	// Markets pins the watch list; empty means discover the top markets by
	// volume each cycle.
	Markets       []string
	DiscoverLimit int
	Concurrency   int
}

// Run observes one cycle. It returns the instrument ids that produced a
// snapshot; per-market fetch failures are logged and skipped.
func (c *Collector) Run(ctx context.Context) ([]string, error) {
	ids, err := c.watchList(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	var observed []string

	g, gctx := errgroup.WithContext(ctx)
	limit := c.Concurrency
	if limit < 1 {
		limit = 5
	}
	g.SetLimit(limit)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			snap, err := c.Source.Book(gctx, id)
			if err != nil {
				logger.Warnf("[collect] book fetch for %s failed: %v", id, err)
				return nil
			}
			if snap.Pinned() {
				logger.Debugf("[collect] %s is pinned, skipping snapshot", id)
				return nil
			}
			record := &store.Snapshot{
				InstrumentID: id,
				Timestamp:    snap.Timestamp,
				YesPrice:     snap.YesPrice,
				NoPrice:      snap.NoPrice,
				BidDepth:     snap.BidDepth,
				AskDepth:     snap.AskDepth,
			}
			if err := c.Store.AppendSnapshot(record); err != nil {
				logger.Errorf("[collect] %v", err)
				return nil
			}
			mu.Lock()
			observed = append(observed, id)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return observed, err
	}
	return observed, nil
}

// watchList resolves the markets to observe and refreshes their instrument
// rows.
func (c *Collector) watchList(ctx context.Context) ([]string, error) {
	if len(c.Markets) > 0 {
		return c.Markets, nil
	}
	markets, err := c.Source.ActiveMarkets(ctx, c.DiscoverLimit)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(markets))
	for _, m := range markets {
		inst := &store.Instrument{
			ID:       m.ID,
			Question: m.Question,
			Slug:     m.Slug,
			Category: m.Category,
			EndDate:  m.EndDate,
			Active:   true,
		}
		if err := c.Store.UpsertInstrument(inst); err != nil {
			logger.Errorf("[collect] %v", err)
			continue
		}
		ids = append(ids, m.ID)
	}
	return ids, nil
}
