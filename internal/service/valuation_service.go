package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/portfolio-tracker/internal/logging"
	"github.com/portfolio-tracker/internal/types"
)

// BatchPriceProvider prices many coins in one request
type BatchPriceProvider interface {
	USDPrices(ctx context.Context, ids []string) (map[string]float64, error)
}

// ContractPriceProvider prices one token contract on one chain
type ContractPriceProvider interface {
	ContractPrice(ctx context.Context, contract, chain string) (float64, error)
}

// DefaultFetchConcurrency bounds parallel contract lookups in one valuation
const DefaultFetchConcurrency = 4

// ValuationService turns holdings into a priced, percentage-weighted report
type ValuationService struct {
	batch       BatchPriceProvider
	contracts   ContractPriceProvider
	concurrency int
	now         func() time.Time
}

// NewValuationService creates a new valuation service.
// concurrency < 1 falls back to DefaultFetchConcurrency; 1 prices contracts sequentially.
func NewValuationService(batch BatchPriceProvider, contracts ContractPriceProvider, concurrency int) *ValuationService {
	if concurrency < 1 {
		concurrency = DefaultFetchConcurrency
	}
	return &ValuationService{
		batch:       batch,
		contracts:   contracts,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// contractLookup is one pending contract price request
type contractLookup struct {
	contract string
	chain    string
	label    string
}

// Valuate prices every holding and aggregates the result.
// Unavailable prices count as 0; only a cancelled context fails the run.
func (s *ValuationService) Valuate(ctx context.Context, holdings []types.Holding) (*types.Report, error) {
	logger := logging.FromContext(ctx)
	buckets := Classify(holdings)

	logger.WithFields(map[string]interface{}{
		"holdings":         len(holdings),
		"batch_ids":        len(buckets.BatchIDs),
		"contract_lookups": buckets.ContractLookups(),
	}).Debug("Valuing portfolio")

	batchPrices := s.fetchBatchPrices(ctx, buckets.BatchIDs)
	singlePrices, groupPrices := s.fetchContractPrices(ctx, buckets)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	assets := aggregate(buckets, batchPrices, singlePrices, groupPrices)
	total := normalize(assets)

	return &types.Report{
		TotalValue:  total,
		Assets:      assets,
		LastUpdated: s.now().UTC(),
	}, nil
}

// fetchBatchPrices issues the single batch request. Failures yield an empty mapping.
func (s *ValuationService) fetchBatchPrices(ctx context.Context, ids []string) map[string]float64 {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return map[string]float64{}
	}

	prices, err := s.batch.USDPrices(ctx, ids)
	if err != nil {
		logging.FromContext(ctx).WithError(err).WithField("ids", strings.Join(ids, ",")).
			Warn("Batch price lookup failed, pricing ids at 0")
		return map[string]float64{}
	}
	return prices
}

// fetchContractPrices looks up every contract single and group member.
// Results land in slots indexed like the buckets, so the outcome does not
// depend on completion order. A nil slot is an unresolved price.
func (s *ValuationService) fetchContractPrices(ctx context.Context, b *Buckets) ([]*float64, [][]*float64) {
	lookups := make([]contractLookup, 0, b.ContractLookups())
	for _, h := range b.ContractSingles {
		lookups = append(lookups, contractLookup{contract: h.Contract, chain: h.Chain, label: h.Name()})
	}
	for _, g := range b.ContractGroups {
		for _, t := range g.Tokens {
			label := t.Symbol
			if label == "" {
				label = t.Contract
			}
			lookups = append(lookups, contractLookup{contract: t.Contract, chain: t.Chain, label: g.Name + "/" + label})
		}
	}

	results := make([]*float64, len(lookups))
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, l := range lookups {
		g.Go(func() error {
			price, err := s.contracts.ContractPrice(ctx, l.contract, l.chain)
			if err != nil {
				logging.FromContext(ctx).WithError(err).WithFields(map[string]interface{}{
					"holding":  l.label,
					"contract": l.contract,
					"chain":    l.chain,
				}).Warn("Contract price lookup failed, pricing holding at 0")
				return nil
			}
			results[i] = &price
			return nil
		})
	}
	_ = g.Wait()

	singles := results[:len(b.ContractSingles)]
	groups := make([][]*float64, len(b.ContractGroups))
	offset := len(b.ContractSingles)
	for i, grp := range b.ContractGroups {
		groups[i] = results[offset : offset+len(grp.Tokens)]
		offset += len(grp.Tokens)
	}
	return singles, groups
}

// aggregate builds assets in bucket order: batch singles, contract singles,
// contract groups, stablecoin singles, stablecoin groups.
func aggregate(b *Buckets, batchPrices map[string]float64, singlePrices []*float64, groupPrices [][]*float64) []types.Asset {
	assets := make([]types.Asset, 0,
		len(b.Batch)+len(b.ContractSingles)+len(b.ContractGroups)+len(b.StableSingles)+len(b.StableGroups))

	for _, bh := range b.Batch {
		price := batchPrices[bh.CoinID]
		symbol := bh.Holding.Symbol
		if symbol == "" {
			symbol = strings.ToUpper(bh.CoinID)
		}
		assets = append(assets, types.Asset{
			Symbol: symbol,
			Amount: bh.Holding.Amount,
			Price:  price,
			Value:  bh.Holding.Amount * price,
			Color:  bh.Holding.Color,
		})
	}

	for i, h := range b.ContractSingles {
		var price float64
		if p := singlePrices[i]; p != nil {
			price = *p
		}
		symbol := h.Symbol
		if symbol == "" {
			symbol = "UNKNOWN"
		}
		assets = append(assets, types.Asset{
			Symbol: symbol,
			Amount: h.Amount,
			Price:  price,
			Value:  h.Amount * price,
			Color:  h.Color,
		})
	}

	for i, g := range b.ContractGroups {
		var amount, value float64
		for j, t := range g.Tokens {
			p := groupPrices[i][j]
			if p == nil {
				continue
			}
			amount += t.Amount
			value += t.Amount * *p
		}
		var price float64
		if amount > 0 {
			price = value / amount
		}
		assets = append(assets, types.Asset{
			Symbol:  g.Name,
			Amount:  amount,
			Price:   price,
			Value:   value,
			IsGroup: true,
			Color:   g.Color,
		})
	}

	for _, h := range b.StableSingles {
		symbol := h.Symbol
		if symbol == "" {
			symbol = "STABLE"
		}
		assets = append(assets, types.Asset{
			Symbol: symbol,
			Amount: h.Amount,
			Price:  1,
			Value:  h.Amount,
			Color:  h.Color,
		})
	}

	for _, h := range b.StableGroups {
		var amount float64
		for _, t := range h.Tokens {
			amount += t.Amount
		}
		assets = append(assets, types.Asset{
			Symbol:  h.Group,
			Amount:  amount,
			Price:   1,
			Value:   amount,
			IsGroup: true,
			Color:   h.Color,
		})
	}

	return assets
}

// normalize fills in percentages, sorts by value descending and returns the total
func normalize(assets []types.Asset) float64 {
	var total float64
	for _, a := range assets {
		total += a.Value
	}

	for i := range assets {
		if total > 0 {
			assets[i].Percentage = assets[i].Value / total * 100
		} else {
			assets[i].Percentage = 0
		}
	}

	sort.SliceStable(assets, func(i, j int) bool {
		return assets[i].Value > assets[j].Value
	})
	return total
}

// dedupe drops empty and repeated ids, keeping first-seen order
func dedupe(ids []string) []string {
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
