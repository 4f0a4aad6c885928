package service

import (
	"context"
	"errors"
	"sync"

	"github.com/portfolio-tracker/internal/models"
	"github.com/portfolio-tracker/internal/types"
)

// Mock providers and stores for testing

type mockBatchProvider struct {
	mu     sync.Mutex
	prices map[string]float64
	err    error
	calls  [][]string
}

func (m *mockBatchProvider) USDPrices(ctx context.Context, ids []string) (map[string]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]string(nil), ids...))
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]float64)
	for _, id := range ids {
		if p, ok := m.prices[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type mockContractProvider struct {
	mu     sync.Mutex
	prices map[string]float64 // keyed by contract
	calls  []string
}

var errNoPair = errors.New("no pair")

func (m *mockContractProvider) ContractPrice(ctx context.Context, contract, chain string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, contract)
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if p, ok := m.prices[contract]; ok {
		return p, nil
	}
	return 0, errNoPair
}

type staticHoldings struct {
	holdings []types.Holding
	err      error
}

func (s *staticHoldings) Holdings(ctx context.Context) ([]types.Holding, error) {
	return s.holdings, s.err
}

type mockSnapshotStore struct {
	snapshots map[string]models.Snapshot
	saves     int
	loadErr   error
	saveErr   error
}

func (m *mockSnapshotStore) Load(ctx context.Context) (map[string]models.Snapshot, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make(map[string]models.Snapshot, len(m.snapshots))
	for k, v := range m.snapshots {
		out[k] = v
	}
	return out, nil
}

func (m *mockSnapshotStore) Save(ctx context.Context, snapshots map[string]models.Snapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.snapshots = snapshots
	return nil
}

func single(symbol string, amount float64) types.Holding {
	return types.Holding{Kind: types.HoldingSingle, Symbol: symbol, Amount: amount}
}

func contractSingle(symbol, contract, chain string, amount float64) types.Holding {
	return types.Holding{Kind: types.HoldingSingle, Symbol: symbol, Contract: contract, Chain: chain, Amount: amount}
}

func group(name string, stable bool, tokens ...types.Token) types.Holding {
	return types.Holding{Kind: types.HoldingGroup, Group: name, Stablecoin: stable, Tokens: tokens}
}
