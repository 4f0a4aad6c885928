package service

import (
	"github.com/portfolio-tracker/internal/adapter"
	"github.com/portfolio-tracker/internal/types"
)

// BatchHolding is a single holding priced through the batch id lookup
type BatchHolding struct {
	Holding types.Holding
	CoinID  string
}

// ContractGroup is a non-stablecoin group whose contract members are
// priced one by one and reported as one aggregate asset
type ContractGroup struct {
	Name   string
	Color  string
	Tokens []types.Token
}

// Buckets partitions holdings by pricing strategy.
// Slice order follows the order holdings were listed.
type Buckets struct {
	// BatchIDs lists every id enqueued for the batch lookup, grouped
	// members included, in enqueue order and possibly repeated.
	BatchIDs        []string
	Batch           []BatchHolding
	ContractSingles []types.Holding
	ContractGroups  []ContractGroup
	StableSingles   []types.Holding
	StableGroups    []types.Holding
}

// ContractLookups returns the number of contract price requests the buckets need
func (b *Buckets) ContractLookups() int {
	n := len(b.ContractSingles)
	for _, g := range b.ContractGroups {
		n += len(g.Tokens)
	}
	return n
}

// Classify routes each holding to exactly one pricing bucket.
// The stablecoin flag wins over every other field.
//
// Grouped members without a contract are enqueued for the batch lookup
// but are not carried into any group total. A group left with no
// contract members produces no asset. A repeated group name replaces the
// members of the earlier group while keeping its position.
func Classify(holdings []types.Holding) *Buckets {
	b := &Buckets{}
	groupIndex := make(map[string]int)

	for _, h := range holdings {
		if h.IsGroup() {
			if h.Stablecoin {
				b.StableGroups = append(b.StableGroups, h)
				continue
			}

			var contractTokens []types.Token
			for _, t := range h.Tokens {
				if t.HasContract() {
					contractTokens = append(contractTokens, t)
					continue
				}
				if id := adapter.ResolveCoinID(t.Symbol, ""); id != "" {
					b.BatchIDs = append(b.BatchIDs, id)
				}
			}
			if len(contractTokens) == 0 {
				continue
			}

			group := ContractGroup{Name: h.Group, Color: h.Color, Tokens: contractTokens}
			if i, ok := groupIndex[h.Group]; ok {
				b.ContractGroups[i] = group
				continue
			}
			groupIndex[h.Group] = len(b.ContractGroups)
			b.ContractGroups = append(b.ContractGroups, group)
			continue
		}

		switch {
		case h.Stablecoin:
			b.StableSingles = append(b.StableSingles, h)
		case h.HasContract():
			b.ContractSingles = append(b.ContractSingles, h)
		default:
			id := adapter.ResolveCoinID(h.Symbol, h.ID)
			if id == "" {
				continue
			}
			b.BatchIDs = append(b.BatchIDs, id)
			b.Batch = append(b.Batch, BatchHolding{Holding: h, CoinID: id})
		}
	}

	return b
}
