// Package resolve closes the loop on persisted trade ideas: it re-checks
// live prices, marks wins and losses, and feeds grade accuracy back into
// synthesis.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"marketscan/internal/logger"
	"marketscan/internal/market"
	"marketscan/internal/notify"
	"marketscan/internal/store"
)

type Resolver struct {
	Store  *store.Store
	Quotes market.QuoteSource

	// Notifier is optional; without it resolutions are only persisted.
	Notifier *notify.Notifier

	// BreakevenBandPct is the absolute pct-move band treated as flat at
	// expiry.
	BreakevenBandPct float64

	now func() time.Time
}

func (r *Resolver) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

// SetClock overrides the time source. Test hook.
func (r *Resolver) SetClock(now func() time.Time) { r.now = now }

// Run resolves every open idea it can price. Prices are always re-fetched;
// creation-time prices are never trusted for resolution. Per-idea failures
// are logged and skipped.
func (r *Resolver) Run(ctx context.Context) (int, error) {
	ideas, err := r.Store.OpenIdeas()
	if err != nil {
		return 0, err
	}
	resolved := 0
	for i := range ideas {
		idea := &ideas[i]
		quote, err := r.Quotes.Quote(ctx, idea.Symbol)
		if err != nil {
			logger.Warnf("[resolve] quote for %s failed, skipping: %v", idea.Symbol, err)
			if r.clock().After(idea.ExpiresAt) {
				r.expireUnpriceable(idea)
			}
			continue
		}
		result, pctMove, ok := r.classify(idea, quote.Price)
		if !ok {
			continue
		}
		if err := r.Store.ResolveIdea(idea.ID, result, quote.Price, pctMove); err != nil {
			if errors.Is(err, store.ErrAlreadyResolved) {
				continue
			}
			logger.Errorf("[resolve] persisting resolution for idea %d failed: %v", idea.ID, err)
			continue
		}
		resolved++
		logger.Infof("[resolve] idea %d (%s %s) resolved %s at %.2f (%+.2f%%)",
			idea.ID, idea.Symbol, idea.Direction, result, quote.Price, pctMove)
		r.announce(ctx, idea, result, quote.Price, pctMove)
	}
	return resolved, nil
}

// classify decides the terminal state for an idea at the given live price.
// ok=false means the idea stays open.
func (r *Resolver) classify(idea *store.Idea, price float64) (string, float64, bool) {
	if idea.EntryPrice == nil {
		// nothing to measure against; expire once past deadline
		if r.clock().After(idea.ExpiresAt) {
			return store.IdeaExpired, 0, true
		}
		return "", 0, false
	}
	pctMove := PctMove(*idea.EntryPrice, price, idea.Direction)

	if idea.TargetPrice != nil && idea.StopPrice != nil {
		px := decimal.NewFromFloat(price)
		target := decimal.NewFromFloat(*idea.TargetPrice)
		stop := decimal.NewFromFloat(*idea.StopPrice)
		switch idea.Direction {
		case store.DirectionLong:
			if px.GreaterThanOrEqual(target) {
				return store.IdeaWin, pctMove, true
			}
			if px.LessThanOrEqual(stop) {
				return store.IdeaLoss, pctMove, true
			}
		case store.DirectionShort:
			if px.LessThanOrEqual(target) {
				return store.IdeaWin, pctMove, true
			}
			if px.GreaterThanOrEqual(stop) {
				return store.IdeaLoss, pctMove, true
			}
		}
	}

	if !r.clock().After(idea.ExpiresAt) {
		return "", 0, false
	}
	// expiry without a level hit: flat moves are breakeven, the rest
	// resolve by sign
	band := r.BreakevenBandPct
	if band <= 0 {
		band = 1.0
	}
	switch {
	case pctMove >= -band && pctMove <= band:
		return store.IdeaBreakeven, pctMove, true
	case pctMove > 0:
		return store.IdeaWin, pctMove, true
	default:
		return store.IdeaLoss, pctMove, true
	}
}

func (r *Resolver) expireUnpriceable(idea *store.Idea) {
	err := r.Store.ResolveIdea(idea.ID, store.IdeaExpired, 0, 0)
	if err != nil && !errors.Is(err, store.ErrAlreadyResolved) {
		logger.Errorf("[resolve] expiring idea %d failed: %v", idea.ID, err)
	}
}

func (r *Resolver) announce(ctx context.Context, idea *store.Idea, result string, exitPrice, pctMove float64) {
	if r.Notifier == nil {
		return
	}
	outcome := &store.Outcome{
		IdeaID:     idea.ID,
		Result:     result,
		ExitPrice:  exitPrice,
		PctMove:    pctMove,
		ResolvedAt: r.clock().UTC(),
	}
	if err := r.Notifier.OutcomeAlert(ctx, idea, outcome); err != nil {
		logger.Warnf("[resolve] outcome alert for idea %d failed: %v", idea.ID, err)
	}
}

// PctMove computes the signed percentage move from entry to exit, inverted
// for shorts so that profit is always positive.
func PctMove(entry, exit float64, direction string) float64 {
	if entry == 0 {
		return 0
	}
	e := decimal.NewFromFloat(entry)
	x := decimal.NewFromFloat(exit)
	pct := x.Sub(e).Div(e).Mul(decimal.NewFromInt(100))
	if direction == store.DirectionShort {
		pct = pct.Neg()
	}
	out, _ := pct.Round(4).Float64()
	return out
}

// BinaryResult classifies a pinned prediction-market price. ok=false means
// the market is still live.
func BinaryResult(yesPrice float64) (string, bool) {
	switch {
	case yesPrice > 0.95:
		return "YES", true
	case yesPrice < 0.05:
		return "NO", true
	default:
		return "", false
	}
}

// FormatAccuracy renders per-grade stats as the prompt block injected into
// stage-1 ideation. Empty stats yield an empty string.
func FormatAccuracy(stats []store.GradeStat) string {
	if len(stats) == 0 {
		return ""
	}
	var b strings.Builder
	for _, st := range stats {
		fmt.Fprintf(&b, "- grade %s: %d resolved, %.0f%% win rate, avg move %+.2f%%\n",
			st.Grade, st.Total, st.WinRate(), st.AvgPctMove)
	}
	return b.String()
}
