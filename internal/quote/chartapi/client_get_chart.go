package chartapi

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"
)

// Chart is one symbol/range slice of the chart API response, reduced to the
// fields this package consumes.
type Chart struct {
	Meta   Meta
	Closes []*float64
}

// Meta carries the price fields of the chart response's meta object.
type Meta struct {
	Symbol             string   `json:"symbol"`
	Currency           string   `json:"currency"`
	ShortName          string   `json:"shortName"`
	LongName           string   `json:"longName"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
	PreviousClose      *float64 `json:"previousClose"`
	ChartPreviousClose *float64 `json:"chartPreviousClose"`
}

// chartResponse is the top-level container of the wire payload. The close
// series lives at chart.result[0].indicators.quote[0].close and may contain
// nulls for halted or missing intervals.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta       Meta    `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetChart retrieves chart data for one symbol, range and interval.
func (c *ChartAPIClient) GetChart(ctx context.Context, symbol, dataRange, interval string, opts ...ChartAPIClientOption) (*Chart, error) {
	var override = &ChartAPIClient{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		header:     c.header.Clone(),
		query:      c.query,
	}
	for _, opt := range opts {
		opt(override)
	}

	query := maps.Clone(override.query)
	query.Add("range", dataRange)
	query.Add("interval", interval)

	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", override.baseURL, url.PathEscape(symbol), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = override.header

	res, err := override.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusNotFound:
		return nil, fmt.Errorf("unknown symbol %q", symbol)

	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limited")

	default:
		return nil, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	var body chartResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding chart response: %w", err)
	}
	if e := body.Chart.Error; e != nil {
		return nil, fmt.Errorf("chart error: %s: %s", e.Code, e.Description)
	}
	if len(body.Chart.Result) == 0 {
		return nil, fmt.Errorf("empty chart result for %q", symbol)
	}

	result := body.Chart.Result[0]
	chart := &Chart{Meta: result.Meta}
	if len(result.Indicators.Quote) > 0 {
		chart.Closes = result.Indicators.Quote[0].Close
	}
	return chart, nil
}
