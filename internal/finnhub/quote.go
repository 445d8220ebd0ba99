package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"net/http"

	"sectordash/internal/quote"
)

// quoteResponse is the raw /api/v1/quote payload. Finnhub returns all
// fields as bare numbers; c is a pointer so a payload without it is
// distinguishable from a zero close.
type quoteResponse struct {
	Close     *float64 `json:"c"`
	PrevClose float64  `json:"pc"`
	Open      float64  `json:"o"`
	High      float64  `json:"h"`
	Low       float64  `json:"l"`
}

// FetchQuote retrieves the current quote for symbol. One attempt, no
// retry: a 429 maps to ErrRateLimited and everything else non-200 to a
// plain error, leaving retry policy to layers above.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (quote.Quote, error) {
	query := maps.Clone(c.query)
	query.Set("symbol", symbol)

	url := fmt.Sprintf("%s/api/v1/quote?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return quote.Quote{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return quote.Quote{}, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusTooManyRequests:
		return quote.Quote{}, ErrRateLimited

	case http.StatusUnauthorized, http.StatusForbidden:
		return quote.Quote{}, fmt.Errorf("unauthorized")

	default:
		return quote.Quote{}, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	var body quoteResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return quote.Quote{}, fmt.Errorf("decoding quote response: %w", err)
	}
	if body.Close == nil {
		return quote.Quote{}, fmt.Errorf("invalid response: missing close for %s", symbol)
	}

	change := *body.Close - body.PrevClose
	var pct float64
	if body.PrevClose != 0 {
		pct = round4(change / body.PrevClose * 100)
	}
	return quote.Quote{
		Close:     *body.Close,
		PrevClose: body.PrevClose,
		Open:      body.Open,
		High:      body.High,
		Low:       body.Low,
		Change:    change,
		PctChange: pct,
		Provider:  c.Name(),
	}, nil
}

// round4 rounds to 4 decimal places, matching the precision the dashboard
// displays for percent changes.
func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
