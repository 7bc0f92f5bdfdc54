package marketmon

import (
	"context"
	"fmt"

	"marketscan/internal/market"
	"marketscan/internal/store"
)

// BookQuotes serves the latest stored YES price as a quote, letting the
// synthesizer and resolver price prediction-market legs the same way they
// price tickers.
type BookQuotes struct {
	Store *store.Store
}

func (b BookQuotes) Quote(_ context.Context, symbol string) (market.Quote, error) {
	snaps, err := b.Store.SnapshotWindow(symbol, 1)
	if err != nil {
		return market.Quote{}, fmt.Errorf("%w: %v", market.ErrFetch, err)
	}
	if len(snaps) == 0 || snaps[0].YesPrice == nil {
		return market.Quote{}, fmt.Errorf("%w: no price for %s", market.ErrFetch, symbol)
	}
	return market.Quote{
		Symbol: symbol,
		Price:  *snaps[0].YesPrice,
		AsOf:   snaps[0].Timestamp,
	}, nil
}
