package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"marketscan/internal/pkg/circuit"
)

const (
	defaultGammaBase = "https://gamma-api.polymarket.com"
	defaultClobBase  = "https://clob.polymarket.com"
)

// PolymarketClient reads markets from the Gamma catalog API and orderbooks
// from the CLOB API.
type PolymarketClient struct {
	GammaBase string
	ClobBase  string
	httpc     *http.Client
	breaker   *circuit.Breaker
	now       func() time.Time
}

func NewPolymarketClient(gammaBase, clobBase string) *PolymarketClient {
	if strings.TrimSpace(gammaBase) == "" {
		gammaBase = defaultGammaBase
	}
	if strings.TrimSpace(clobBase) == "" {
		clobBase = defaultClobBase
	}
	return &PolymarketClient{
		GammaBase: strings.TrimRight(gammaBase, "/"),
		ClobBase:  strings.TrimRight(clobBase, "/"),
		httpc:     &http.Client{Timeout: 15 * time.Second},
		breaker:   circuit.NewBreaker("polymarket", 5, 30*time.Second),
		now:       time.Now,
	}
}

type gammaMarket struct {
	ID         string `json:"id"`
	Question   string `json:"question"`
	Slug       string `json:"slug"`
	Category   string `json:"category"`
	EndDate    string `json:"endDate"`
	Volume     string `json:"volumeNum"`
	Liquidity  string `json:"liquidityNum"`
	OutcomeRaw string `json:"outcomePrices"`
	ClobIDs    string `json:"clobTokenIds"`
}

func (c *PolymarketClient) ActiveMarkets(ctx context.Context, limit int) ([]Market, error) {
	if limit <= 0 {
		limit = 20
	}
	q := url.Values{}
	q.Set("active", "true")
	q.Set("closed", "false")
	q.Set("order", "volumeNum")
	q.Set("ascending", "false")
	q.Set("limit", strconv.Itoa(limit))
	endpoint := c.GammaBase + "/markets?" + q.Encode()

	var raw []gammaMarket
	if err := c.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("%w: listing markets: %v", ErrFetch, err)
	}
	out := make([]Market, 0, len(raw))
	for _, gm := range raw {
		m := Market{
			ID:       gm.ID,
			Question: gm.Question,
			Slug:     gm.Slug,
			Category: gm.Category,
		}
		if t, err := time.Parse(time.RFC3339, gm.EndDate); err == nil {
			m.EndDate = &t
		}
		m.Volume, _ = strconv.ParseFloat(gm.Volume, 64)
		m.Liquidity, _ = strconv.ParseFloat(gm.Liquidity, 64)
		if prices := decodeStringList(gm.OutcomeRaw); len(prices) > 0 {
			m.YesPrice, _ = strconv.ParseFloat(prices[0], 64)
		}
		out = append(out, m)
	}
	return out, nil
}

type clobBook struct {
	Bids []clobLevel `json:"bids"`
	Asks []clobLevel `json:"asks"`
}

type clobLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// Book captures yes/no prices plus summed bid and ask depth for a market's
// YES token. The market id must be resolvable to a CLOB token id first.
func (c *PolymarketClient) Book(ctx context.Context, marketID string) (BookSnapshot, error) {
	tokenID, err := c.yesTokenID(ctx, marketID)
	if err != nil {
		return BookSnapshot{}, err
	}
	endpoint := c.ClobBase + "/book?token_id=" + url.QueryEscape(tokenID)
	var book clobBook
	if err := c.getJSON(ctx, endpoint, &book); err != nil {
		return BookSnapshot{}, fmt.Errorf("%w: orderbook %s: %v", ErrFetch, marketID, err)
	}

	snap := BookSnapshot{MarketID: marketID, Timestamp: c.now().UTC()}
	bestBid, bidDepth := sumLevels(book.Bids)
	bestAsk, askDepth := sumLevels(book.Asks)
	if bidDepth > 0 {
		snap.BidDepth = &bidDepth
	}
	if askDepth > 0 {
		snap.AskDepth = &askDepth
	}
	if bestBid > 0 && bestAsk > 0 {
		mid := (bestBid + bestAsk) / 2
		no := 1 - mid
		snap.YesPrice = &mid
		snap.NoPrice = &no
	}
	return snap, nil
}

func (c *PolymarketClient) yesTokenID(ctx context.Context, marketID string) (string, error) {
	var gm gammaMarket
	endpoint := c.GammaBase + "/markets/" + url.PathEscape(marketID)
	if err := c.getJSON(ctx, endpoint, &gm); err != nil {
		return "", fmt.Errorf("%w: resolving market %s: %v", ErrFetch, marketID, err)
	}
	ids := decodeStringList(gm.ClobIDs)
	if len(ids) == 0 {
		return "", fmt.Errorf("%w: market %s has no clob tokens", ErrFetch, marketID)
	}
	return ids[0], nil
}

func (c *PolymarketClient) getJSON(ctx context.Context, endpoint string, dest any) error {
	if c.breaker != nil && !c.breaker.Allow() {
		return fmt.Errorf("circuit open")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		c.recordFailure()
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.recordFailure()
		return fmt.Errorf("status=%d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return err
	}
	if c.breaker != nil {
		c.breaker.RecordSuccess()
	}
	return nil
}

func (c *PolymarketClient) recordFailure() {
	if c.breaker != nil {
		c.breaker.RecordFailure()
	}
}

// Gamma encodes list fields as JSON strings inside JSON.
func decodeStringList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func sumLevels(levels []clobLevel) (best, depth float64) {
	for i, lv := range levels {
		price, err := strconv.ParseFloat(lv.Price, 64)
		if err != nil {
			continue
		}
		size, err := strconv.ParseFloat(lv.Size, 64)
		if err != nil {
			continue
		}
		if i == 0 {
			best = price
		}
		depth += size
	}
	return best, depth
}
