// Package rates fetches the USD-per-ADA conversion rate from an external
// price oracle with Coincap-style asset endpoints.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/seedlabs/entrygate/logger"
)

// Config tunes the oracle client.
type Config struct {
	BaseURL          string
	APIKey           string
	Timeout          time.Duration
	MaxRetries       int
	RetryBackoffBase time.Duration
}

// Client queries the price oracle. It implements clients.RateSource.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        logger.Logger
}

func NewClient(cfg Config, httpClient *http.Client, log logger.Logger) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Client{cfg: cfg, httpClient: httpClient, log: log}
}

// USDPerADA returns the current USD price of one ADA.
func (c *Client) USDPerADA(ctx context.Context) (float64, error) {
	return c.fetchWithRetry(ctx, "cardano", 0)
}

func (c *Client) fetchWithRetry(ctx context.Context, assetID string, attempt int) (float64, error) {
	url := fmt.Sprintf("%s/v3/assets/%s", c.cfg.BaseURL, assetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating rate request: %w", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if attempt < c.cfg.MaxRetries {
			return c.retry(ctx, assetID, attempt, err)
		}
		return 0, fmt.Errorf("rate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if retryableStatus(resp.StatusCode) && attempt < c.cfg.MaxRetries {
			return c.retry(ctx, assetID, attempt, fmt.Errorf("status %d", resp.StatusCode))
		}
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("rate oracle returned %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("reading rate response: %w", err)
	}
	return parseAssetPrice(body)
}

func (c *Client) retry(ctx context.Context, assetID string, attempt int, cause error) (float64, error) {
	backoff := c.cfg.RetryBackoffBase
	if backoff == 0 {
		backoff = time.Second
	}
	backoff *= time.Duration(attempt + 1)
	c.log.Warn("rate lookup failed, retrying", map[string]any{
		"attempt": attempt + 1,
		"backoff": backoff.String(),
		"cause":   cause.Error(),
	})
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(backoff):
	}
	return c.fetchWithRetry(ctx, assetID, attempt+1)
}

func parseAssetPrice(body []byte) (float64, error) {
	var response struct {
		Data struct {
			PriceUSD string `json:"priceUsd"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return 0, fmt.Errorf("parsing rate response: %w", err)
	}
	price, err := strconv.ParseFloat(response.Data.PriceUSD, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", response.Data.PriceUSD, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("oracle returned non-positive price %v", price)
	}
	return price, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusGatewayTimeout
}
