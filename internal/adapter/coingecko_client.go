// Package adapter provides price data adapters for the portfolio tracker.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/portfolio-tracker/internal/errors"
	"github.com/portfolio-tracker/internal/logging"
)

const (
	// DefaultCoinGeckoBaseURL is the public CoinGecko API
	DefaultCoinGeckoBaseURL = "https://api.coingecko.com/api/v3"

	coinGeckoProvider = "coingecko"
)

// CoinGeckoClient handles batch price lookups by coin id
type CoinGeckoClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	stats      *providerStats
}

// NewCoinGeckoClient creates a new CoinGecko API client.
// apiKey is optional and sent as a demo key header when set.
func NewCoinGeckoClient(baseURL, apiKey string, timeout time.Duration) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	baseURL = strings.TrimRight(baseURL, "/")
	return &CoinGeckoClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		stats:      newProviderStats(coinGeckoProvider, baseURL),
	}
}


// SimplePrices fetches prices for ids in the given quote currencies.
// The result maps coin id to currency to price; ids CoinGecko does not
// know are absent from the result. An empty id list issues no request.
func (c *CoinGeckoClient) SimplePrices(ctx context.Context, ids []string, currencies ...string) (map[string]map[string]float64, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return map[string]map[string]float64{}, nil
	}
	if len(currencies) == 0 {
		currencies = []string{"usd"}
	}

	escaped := make([]string, len(ids))
	for i, id := range ids {
		escaped[i] = url.QueryEscape(id)
	}
	reqURL := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s",
		c.baseURL, strings.Join(escaped, ","), url.QueryEscape(strings.Join(currencies, ",")))

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"provider": coinGeckoProvider,
		"ids":      strings.Join(ids, ","),
	}).Debug("Fetching batch prices")

	prices, err := c.fetchSimplePrices(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	if prices == nil {
		prices = map[string]map[string]float64{}
	}
	return prices, nil
}

// fetchSimplePrices performs the single best-effort request for one batch
func (c *CoinGeckoClient) fetchSimplePrices(ctx context.Context, reqURL string) (map[string]map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, apperrors.NewProviderError(coinGeckoProvider, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = apperrors.NewProviderError(coinGeckoProvider, err)
		c.stats.RecordFailure(err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		err := apperrors.NewProviderStatusError(coinGeckoProvider, resp.StatusCode)
		c.stats.RecordFailure(err)
		return nil, err
	}

	var prices map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&prices); err != nil {
		err = apperrors.NewProviderError(coinGeckoProvider, fmt.Errorf("failed to parse response: %w", err))
		c.stats.RecordFailure(err)
		return nil, err
	}
	c.stats.RecordSuccess(time.Since(start))
	return prices, nil
}

// USDPrices fetches USD prices keyed by coin id
func (c *CoinGeckoClient) USDPrices(ctx context.Context, ids []string) (map[string]float64, error) {
	quotes, err := c.SimplePrices(ctx, ids, "usd")
	if err != nil {
		return nil, err
	}

	prices := make(map[string]float64, len(quotes))
	for id, quote := range quotes {
		if usd, ok := quote["usd"]; ok {
			prices[id] = usd
		}
	}
	return prices, nil
}

// GetHealth returns request statistics for the CoinGecko upstream
func (c *CoinGeckoClient) GetHealth() *ProviderHealth {
	return c.stats.GetHealth()
}

// uniqueIDs drops empty and repeated ids, keeping first-seen order
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
