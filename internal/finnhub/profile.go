package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
)

// Profile is the subset of the Finnhub company profile the dashboard uses.
// MarketCap is reported in millions of USD and may be zero when Finnhub
// has no figure for the symbol; that is missing data, not an error.
type Profile struct {
	Name      string  `json:"name"`
	Ticker    string  `json:"ticker"`
	MarketCap float64 `json:"marketCapitalization"`
}

// FetchProfile retrieves the company profile for symbol. Same single
// attempt and status mapping as FetchQuote.
func (c *Client) FetchProfile(ctx context.Context, symbol string) (Profile, error) {
	query := maps.Clone(c.query)
	query.Set("symbol", symbol)

	url := fmt.Sprintf("%s/api/v1/stock/profile2?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return Profile{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusTooManyRequests:
		return Profile{}, ErrRateLimited

	case http.StatusUnauthorized, http.StatusForbidden:
		return Profile{}, fmt.Errorf("unauthorized")

	default:
		return Profile{}, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	var p Profile
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		return Profile{}, fmt.Errorf("decoding profile response: %w", err)
	}
	return p, nil
}
