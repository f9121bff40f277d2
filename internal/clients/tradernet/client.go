// Package tradernet talks to the brokerage microservice. The research
// engine only reads positions from it; it never places orders.
package tradernet

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client for the brokerage microservice
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// ServiceResponse is the standard response envelope
type ServiceResponse struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *string         `json:"error"`
	Timestamp string          `json:"timestamp"`
}

// NewClient creates a new brokerage microservice client
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "tradernet").Logger(),
	}
}

// get makes a GET request to the microservice
func (c *Client) get(endpoint string) (*ServiceResponse, error) {
	resp, err := c.client.Get(c.baseURL + endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	return c.parseResponse(resp)
}

// parseResponse parses the service response
func (c *Client) parseResponse(resp *http.Response) (*ServiceResponse, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result ServiceResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if !result.Success {
		errMsg := "unknown error"
		if result.Error != nil {
			errMsg = *result.Error
		}
		return &result, fmt.Errorf("microservice error: %s", errMsg)
	}

	return &result, nil
}

// Position represents a portfolio position
type Position struct {
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"quantity"`
	AvgPrice      float64 `json:"avg_price"`
	CurrentPrice  float64 `json:"current_price"`
	MarketValue   float64 `json:"market_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	Currency      string  `json:"currency"`
}

// PositionsResponse is the response for GetPortfolio
type PositionsResponse struct {
	Positions []Position `json:"positions"`
}

// GetPortfolio gets current portfolio positions
func (c *Client) GetPortfolio() ([]Position, error) {
	resp, err := c.get("/api/portfolio/positions")
	if err != nil {
		return nil, err
	}

	var result PositionsResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse positions: %w", err)
	}

	return result.Positions, nil
}
