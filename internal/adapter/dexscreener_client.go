package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/portfolio-tracker/internal/errors"
	"github.com/portfolio-tracker/internal/logging"
)

const (
	// DefaultDexScreenerBaseURL is the public DexScreener API
	DefaultDexScreenerBaseURL = "https://api.dexscreener.com"

	dexScreenerProvider = "dexscreener"
)

// DexScreenerClient handles per-contract price lookups
type DexScreenerClient struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	stats      *providerStats
}

// NewDexScreenerClient creates a new DexScreener API client.
// Outgoing requests are limited to rps per second; rps <= 0 disables the limit.
func NewDexScreenerClient(baseURL string, timeout time.Duration, rps float64) *DexScreenerClient {
	if baseURL == "" {
		baseURL = DefaultDexScreenerBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	baseURL = strings.TrimRight(baseURL, "/")
	return &DexScreenerClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(limit, 1),
		stats:      newProviderStats(dexScreenerProvider, baseURL),
	}
}


// DexPair represents a single trading pair from DexScreener
type DexPair struct {
	ChainID     string   `json:"chainId"`
	DexID       string   `json:"dexId"`
	URL         string   `json:"url"`
	PairAddress string   `json:"pairAddress"`
	BaseToken   DexToken `json:"baseToken"`
	QuoteToken  DexToken `json:"quoteToken"`
	PriceNative string   `json:"priceNative"`
	PriceUsd    string   `json:"priceUsd"`
}

// DexToken represents one side of a trading pair
type DexToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// TokenPairsResponse represents the token pairs API response
type TokenPairsResponse struct {
	SchemaVersion string    `json:"schemaVersion"`
	Pairs         []DexPair `json:"pairs"`
}

// TokenPairs fetches every trading pair DexScreener lists for a contract
func (c *DexScreenerClient) TokenPairs(ctx context.Context, contract string) ([]DexPair, error) {
	reqURL := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, url.PathEscape(contract))

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.fetchPairs(ctx, reqURL)
}

func (c *DexScreenerClient) fetchPairs(ctx context.Context, reqURL string) ([]DexPair, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, apperrors.NewProviderError(dexScreenerProvider, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = apperrors.NewProviderError(dexScreenerProvider, err)
		c.stats.RecordFailure(err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		err := apperrors.NewProviderStatusError(dexScreenerProvider, resp.StatusCode)
		c.stats.RecordFailure(err)
		return nil, err
	}

	var pairsResp TokenPairsResponse
	if err := json.NewDecoder(resp.Body).Decode(&pairsResp); err != nil {
		err = apperrors.NewProviderError(dexScreenerProvider, fmt.Errorf("failed to parse response: %w", err))
		c.stats.RecordFailure(err)
		return nil, err
	}
	c.stats.RecordSuccess(time.Since(start))

	return pairsResp.Pairs, nil
}

// ContractPrice returns the USD price of the first pair listed on chain.
// It fails with a NO_MATCHING_PAIR error when the contract has no pair on
// that chain and with a provider error when the price is not a number.
func (c *DexScreenerClient) ContractPrice(ctx context.Context, contract, chain string) (float64, error) {
	pairs, err := c.TokenPairs(ctx, contract)
	if err != nil {
		return 0, err
	}

	chainID := ResolveChainID(chain)
	for _, pair := range pairs {
		if pair.ChainID != chainID {
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(pair.PriceUsd), 64)
		if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
			return 0, apperrors.NewProviderError(dexScreenerProvider,
				fmt.Errorf("unparsable priceUsd %q for %s", pair.PriceUsd, contract))
		}

		logging.FromContext(ctx).WithFields(map[string]interface{}{
			"provider": dexScreenerProvider,
			"contract": contract,
			"chain":    chainID,
			"dex":      pair.DexID,
		}).Debugf("Resolved contract price %v", price)
		return price, nil
	}

	return 0, apperrors.NewNoMatchingPairError(contract, chainID)
}

// GetHealth returns request statistics for the DexScreener upstream
func (c *DexScreenerClient) GetHealth() *ProviderHealth {
	return c.stats.GetHealth()
}
