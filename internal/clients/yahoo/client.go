// Package yahoo fetches current market prices from the Yahoo Finance quote
// API. The research engine uses them only as paper trade entry and exit
// snapshots.
package yahoo

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://query1.finance.yahoo.com/v7/finance/quote"

// batchSize limits symbols per quote request
const batchSize = 50

// Client is a Yahoo Finance quote client
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new quote client. An empty baseURL uses the public
// Yahoo Finance endpoint.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "yahoo").Logger(),
	}
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []quoteResult `json:"result"`
		Error  interface{}   `json:"error"`
	} `json:"quoteResponse"`
}

type quoteResult struct {
	Symbol             string   `json:"symbol"`
	CurrentPrice       *float64 `json:"currentPrice"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
}

// GetPrices fetches current prices for the given symbols. Symbols that
// return no usable quote are simply absent from the result; a partial
// snapshot is not an error.
func (c *Client) GetPrices(symbols []string) (map[string]float64, error) {
	prices := make(map[string]float64, len(symbols))

	for start := 0; start < len(symbols); start += batchSize {
		end := start + batchSize
		if end > len(symbols) {
			end = len(symbols)
		}

		results, err := c.fetchBatch(symbols[start:end])
		if err != nil {
			return nil, err
		}

		for _, r := range results {
			price := pickPrice(r)
			if price <= 0 {
				c.log.Debug().Str("symbol", r.Symbol).Msg("No usable price in quote")
				continue
			}
			prices[strings.ToUpper(r.Symbol)] = price
		}
	}

	return prices, nil
}

// GetPrice fetches a single symbol's price with exponential backoff
func (c *Client) GetPrice(symbol string, maxRetries int) (*float64, error) {
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		prices, err := c.GetPrices([]string{symbol})
		if err == nil {
			if price, ok := prices[strings.ToUpper(symbol)]; ok {
				return &price, nil
			}
			err = fmt.Errorf("no usable price for %s", symbol)
		}

		lastErr = err
		if attempt < maxRetries-1 {
			waitTime := time.Duration(1<<uint(attempt)) * time.Second
			c.log.Warn().Err(err).
				Str("symbol", symbol).
				Int("attempt", attempt+1).
				Dur("wait", waitTime).
				Msg("Failed to get price, retrying")
			time.Sleep(waitTime)
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

func (c *Client) fetchBatch(symbols []string) ([]quoteResult, error) {
	params := url.Values{}
	params.Add("symbols", strings.Join(symbols, ","))
	params.Add("fields", "symbol,regularMarketPrice,currentPrice")

	req, err := http.NewRequest("GET", c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers to mimic browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quotes: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result quoteResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("quote API error: %v", result.QuoteResponse.Error)
	}

	return result.QuoteResponse.Result, nil
}

func pickPrice(r quoteResult) float64 {
	if r.CurrentPrice != nil && *r.CurrentPrice > 0 {
		return *r.CurrentPrice
	}
	if r.RegularMarketPrice != nil && *r.RegularMarketPrice > 0 {
		return *r.RegularMarketPrice
	}
	return 0
}
