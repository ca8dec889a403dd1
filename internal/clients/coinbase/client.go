// Package coinbase fetches spot exchange rates from the Coinbase public API.
package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/rs/zerolog"

	"github.com/aristath/coinwatch/internal/domain"
)

// DefaultBaseURL is the Coinbase v2 API root
const DefaultBaseURL = "https://api.coinbase.com/v2"

// Client for the Coinbase exchange-rates endpoint
type Client struct {
	baseURL  string
	currency string
	client   *http.Client
	log      zerolog.Logger
}

// NewClient creates a client quoting prices in currency.
// An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL, currency string, timeout time.Duration, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		currency: strings.ToUpper(currency),
		client:   &http.Client{Timeout: timeout},
		log:      log.With().Str("client", "coinbase").Logger(),
	}
}

// GetRate returns the price of one unit of symbol in the client's currency.
// Every failure wraps domain.ErrFetch.
func (c *Client) GetRate(ctx context.Context, symbol string) (float64, error) {
	endpoint := fmt.Sprintf("%s/exchange-rates?currency=%s", c.baseURL, url.QueryEscape(strings.ToUpper(symbol)))
	c.log.Debug().Str("url", endpoint).Msg("Fetching rate")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", domain.ErrFetch, symbol, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: request failed: %w", domain.ErrFetch, symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: %s: API returned status %d", domain.ErrFetch, symbol, resp.StatusCode)
	}

	var body any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("%w: %s: failed to parse response: %w", domain.ErrFetch, symbol, err)
	}

	rate, err := c.extractRate(body)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", domain.ErrFetch, symbol, err)
	}

	c.log.Debug().
		Str("symbol", symbol).
		Str("currency", c.currency).
		Float64("rate", rate).
		Msg("Fetched rate")

	return rate, nil
}

// extractRate reads $.data.rates.<currency>, which Coinbase encodes as a decimal string
func (c *Client) extractRate(body any) (float64, error) {
	path := "$.data.rates." + c.currency
	val, err := jsonpath.Get(path, body)
	if err != nil {
		return 0, fmt.Errorf("rate not found at %q: %w", path, err)
	}

	// a single match may still come back as a one-element list
	if list, ok := val.([]any); ok && len(list) > 0 {
		val = list[0]
	}

	var rate float64
	switch v := val.(type) {
	case string:
		rate, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid rate %q: %w", v, err)
		}
	case float64:
		rate = v
	default:
		return 0, fmt.Errorf("unexpected rate type %T at %q", val, path)
	}

	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, fmt.Errorf("non-finite rate %v", rate)
	}
	if rate < 0 {
		return 0, fmt.Errorf("negative rate %v", rate)
	}
	return rate, nil
}
