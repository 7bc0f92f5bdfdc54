package market

import (
	"context"
	"errors"
	"time"
)

// ErrFetch marks upstream data-source failures. Callers skip the affected
// instrument for the cycle instead of aborting the run.
var ErrFetch = errors.New("market fetch failed")

// Market describes a tradable binary prediction market.
type Market struct {
	ID        string
	Question  string
	Slug      string
	Category  string
	EndDate   *time.Time
	YesPrice  float64
	Volume    float64
	Liquidity float64
}

// BookSnapshot is one observation of a market's orderbook state.
type BookSnapshot struct {
	MarketID  string
	YesPrice  *float64
	NoPrice   *float64
	BidDepth  *float64
	AskDepth  *float64
	Timestamp time.Time
}

// Pinned reports whether the market trades at an effectively resolved price.
// Pinned books produce degenerate baselines and are excluded upstream.
func (s BookSnapshot) Pinned() bool {
	if s.YesPrice == nil {
		return false
	}
	return *s.YesPrice < 0.02 || *s.YesPrice > 0.98
}

// Quote is a point-in-time price for a ticker.
type Quote struct {
	Symbol    string
	Price     float64
	ChangePct float64
	AsOf      time.Time
}

// BookSource yields orderbook observations for prediction markets.
type BookSource interface {
	ActiveMarkets(ctx context.Context, limit int) ([]Market, error)
	Book(ctx context.Context, marketID string) (BookSnapshot, error)
}

// QuoteSource yields live prices for tickers.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
}
