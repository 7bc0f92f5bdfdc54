package market

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"marketscan/internal/pkg/circuit"
)

// StooqClient fetches delayed quotes from the stooq CSV endpoint. Symbols
// are normalized to stooq conventions (US tickers get a ".us" suffix,
// index-style symbols pass through).
type StooqClient struct {
	BaseURL string
	httpc   *http.Client
	breaker *circuit.Breaker
	now     func() time.Time
}

func NewStooqClient(baseURL string) *StooqClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://stooq.com"
	}
	return &StooqClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 10 * time.Second},
		breaker: circuit.NewBreaker("stooq", 5, 30*time.Second),
		now:     time.Now,
	}
}

func (c *StooqClient) Quote(ctx context.Context, symbol string) (Quote, error) {
	if c.breaker != nil && !c.breaker.Allow() {
		return Quote{}, fmt.Errorf("%w: quote %s: circuit open", ErrFetch, symbol)
	}
	sym := normalizeStooqSymbol(symbol)
	q := url.Values{}
	q.Set("s", sym)
	q.Set("f", "sd2t2ohlcv")
	q.Set("h", "")
	q.Set("e", "csv")
	endpoint := c.BaseURL + "/q/l/?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: quote %s: %v", ErrFetch, symbol, err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		c.recordFailure()
		return Quote{}, fmt.Errorf("%w: quote %s: %v", ErrFetch, symbol, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.recordFailure()
		return Quote{}, fmt.Errorf("%w: quote %s: status=%d", ErrFetch, symbol, resp.StatusCode)
	}
	if c.breaker != nil {
		c.breaker.RecordSuccess()
	}

	records, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		return Quote{}, fmt.Errorf("%w: quote %s: %v", ErrFetch, symbol, err)
	}
	// header row plus one data row
	if len(records) < 2 || len(records[1]) < 7 {
		return Quote{}, fmt.Errorf("%w: quote %s: malformed response", ErrFetch, symbol)
	}
	row := records[1]
	closePx, err := strconv.ParseFloat(row[6], 64)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: quote %s: no price data", ErrFetch, symbol)
	}
	quote := Quote{Symbol: strings.ToUpper(symbol), Price: closePx, AsOf: c.now().UTC()}
	if openPx, err := strconv.ParseFloat(row[3], 64); err == nil && openPx > 0 {
		quote.ChangePct = (closePx - openPx) / openPx * 100
	}
	return quote, nil
}

func (c *StooqClient) recordFailure() {
	if c.breaker != nil {
		c.breaker.RecordFailure()
	}
}

func normalizeStooqSymbol(symbol string) string {
	s := strings.ToLower(strings.TrimSpace(symbol))
	switch s {
	case "vix":
		return "^vix"
	case "dxy":
		return "dx.f"
	case "spx":
		return "^spx"
	}
	if strings.HasPrefix(s, "^") || strings.Contains(s, ".") {
		return s
	}
	return s + ".us"
}
