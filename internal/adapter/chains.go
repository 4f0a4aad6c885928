package adapter

import "strings"

// coinIDs maps well-known ticker symbols to CoinGecko coin ids
var coinIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"USDC":  "usd-coin",
	"USDT":  "tether",
	"DAI":   "dai",
	"MATIC": "matic-network",
	"AVAX":  "avalanche-2",
	"LINK":  "chainlink",
	"UNI":   "uniswap",
	"AAVE":  "aave",
	"ARB":   "arbitrum",
	"OP":    "optimism",
}

// dexChainIDs maps chain names to DexScreener chain ids
var dexChainIDs = map[string]string{
	"ethereum":  "ethereum",
	"solana":    "solana",
	"base":      "base",
	"arbitrum":  "arbitrum",
	"polygon":   "polygon",
	"bsc":       "bsc",
	"avalanche": "avalanche",
	"optimism":  "optimism",
}

// ResolveCoinID returns the CoinGecko id for a holding.
// An explicit id wins, then the symbol table, then the lower-cased symbol.
// An empty result means the holding cannot be priced by id.
func ResolveCoinID(symbol, explicitID string) string {
	if explicitID != "" {
		return explicitID
	}
	if id, ok := coinIDs[strings.ToUpper(symbol)]; ok {
		return id
	}
	return strings.ToLower(symbol)
}

// ResolveChainID maps a chain name to the DexScreener chain id.
// Unknown chains are passed through unchanged.
func ResolveChainID(chain string) string {
	if id, ok := dexChainIDs[strings.ToLower(chain)]; ok {
		return id
	}
	return chain
}
