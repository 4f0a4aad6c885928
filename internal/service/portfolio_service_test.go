package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-tracker/internal/types"
)

type mockReportCache struct {
	mu     sync.Mutex
	report *types.Report
	getErr error
	setErr error
	sets   int
}

func (m *mockReportCache) Get(ctx context.Context) (*types.Report, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	if m.report == nil {
		return nil, false, nil
	}
	return m.report.Clone(), true, nil
}

func (m *mockReportCache) Set(ctx context.Context, report *types.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.report = report.Clone()
	return nil
}

type countingValuator struct {
	calls   int32
	err     error
	started chan struct{}
	release chan struct{}
}

func (v *countingValuator) Valuate(ctx context.Context, holdings []types.Holding) (*types.Report, error) {
	if atomic.AddInt32(&v.calls, 1) == 1 && v.started != nil {
		close(v.started)
	}
	if v.release != nil {
		<-v.release
	}
	if v.err != nil {
		return nil, v.err
	}
	var total float64
	assets := make([]types.Asset, 0, len(holdings))
	for _, h := range holdings {
		assets = append(assets, types.Asset{Symbol: h.Symbol, Amount: h.Amount, Price: 1, Value: h.Amount, Percentage: 100})
		total += h.Amount
	}
	return &types.Report{TotalValue: total, Assets: assets, LastUpdated: time.Now()}, nil
}

func TestGetPortfolioCachesReport(t *testing.T) {
	cache := &mockReportCache{}
	valuator := &countingValuator{}
	svc := NewPortfolioService(&staticHoldings{holdings: []types.Holding{single("ETH", 3)}}, valuator, cache)

	first, err := svc.GetPortfolio(context.Background())
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 3.0, first.TotalValue)
	assert.Equal(t, 1, cache.sets)

	second, err := svc.GetPortfolio(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Assets, second.Assets)
	assert.Equal(t, first.LastUpdated, second.LastUpdated)
	assert.Equal(t, int32(1), atomic.LoadInt32(&valuator.calls))

	// callers cannot mutate the cached slot
	second.Assets[0].Symbol = "MUTATED"
	third, err := svc.GetPortfolio(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ETH", third.Assets[0].Symbol)
}

func TestGetPortfolioCacheFailuresAreNotFatal(t *testing.T) {
	cache := &mockReportCache{getErr: errors.New("redis down"), setErr: errors.New("redis down")}
	valuator := &countingValuator{}
	svc := NewPortfolioService(&staticHoldings{holdings: []types.Holding{single("BTC", 1)}}, valuator, cache)

	report, err := svc.GetPortfolio(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Cached)
	assert.Equal(t, 1.0, report.TotalValue)
}

func TestGetPortfolioPropagatesErrors(t *testing.T) {
	t.Run("holdings", func(t *testing.T) {
		svc := NewPortfolioService(&staticHoldings{err: errors.New("bad yaml")}, &countingValuator{}, &mockReportCache{})
		_, err := svc.GetPortfolio(context.Background())
		assert.EqualError(t, err, "bad yaml")
	})

	t.Run("valuation", func(t *testing.T) {
		cache := &mockReportCache{}
		svc := NewPortfolioService(&staticHoldings{}, &countingValuator{err: errors.New("boom")}, cache)
		_, err := svc.GetPortfolio(context.Background())
		assert.EqualError(t, err, "boom")
		assert.Zero(t, cache.sets, "no partial result is cached")
	})
}

func TestGetPortfolioConcurrentMissesComputeOnce(t *testing.T) {
	valuator := &countingValuator{started: make(chan struct{}), release: make(chan struct{})}
	svc := NewPortfolioService(&staticHoldings{holdings: []types.Holding{single("SOL", 4)}}, valuator, &mockReportCache{})

	var wg sync.WaitGroup
	results := make([]*types.Report, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report, err := svc.GetPortfolio(context.Background())
			assert.NoError(t, err)
			results[i] = report
		}()
	}

	<-valuator.started
	time.Sleep(20 * time.Millisecond)
	close(valuator.release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&valuator.calls))
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, 4.0, r.TotalValue)
	}
}

func TestGetPortfolioCallerCancellation(t *testing.T) {
	valuator := &countingValuator{release: make(chan struct{})}
	cache := &mockReportCache{}
	svc := NewPortfolioService(&staticHoldings{holdings: []types.Holding{single("ETH", 1)}}, valuator, cache)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := svc.GetPortfolio(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// the abandoned computation still completes and fills the cache
	close(valuator.release)
	assert.Eventually(t, func() bool {
		cache.mu.Lock()
		defer cache.mu.Unlock()
		return cache.report != nil
	}, time.Second, 5*time.Millisecond)
}
