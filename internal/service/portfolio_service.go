package service

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/portfolio-tracker/internal/logging"
	"github.com/portfolio-tracker/internal/types"
)

// Interfaces for dependency injection

// HoldingsSource supplies the holdings to value
type HoldingsSource interface {
	Holdings(ctx context.Context) ([]types.Holding, error)
}

// Valuator computes a report from holdings
type Valuator interface {
	Valuate(ctx context.Context, holdings []types.Holding) (*types.Report, error)
}

// ReportCache holds the last computed report.
// Get reports ok=false when the slot is empty or stale.
type ReportCache interface {
	Get(ctx context.Context) (*types.Report, bool, error)
	Set(ctx context.Context, report *types.Report) error
}

// PortfolioService serves the current portfolio report through a cache
type PortfolioService struct {
	holdings HoldingsSource
	valuator Valuator
	cache    ReportCache
	inflight singleflight.Group
}

// NewPortfolioService creates a new portfolio service
func NewPortfolioService(holdings HoldingsSource, valuator Valuator, cache ReportCache) *PortfolioService {
	return &PortfolioService{
		holdings: holdings,
		valuator: valuator,
		cache:    cache,
	}
}

// GetPortfolio returns the cached report when fresh, otherwise recomputes it.
// Concurrent misses share one computation.
func (s *PortfolioService) GetPortfolio(ctx context.Context) (*types.Report, error) {
	logger := logging.FromContext(ctx)

	cached, ok, err := s.cache.Get(ctx)
	if err != nil {
		logger.WithError(err).Warn("Report cache read failed, recomputing")
	} else if ok {
		report := cached.Clone()
		report.Cached = true
		return report, nil
	}

	// The computation outlives a caller that gives up so waiters still get a result
	computeCtx := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan("portfolio", func() (interface{}, error) {
		return s.compute(computeCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		report := res.Val.(*types.Report).Clone()
		report.Cached = false
		return report, nil
	}
}

func (s *PortfolioService) compute(ctx context.Context) (*types.Report, error) {
	logger := logging.FromContext(ctx)

	holdings, err := s.holdings.Holdings(ctx)
	if err != nil {
		return nil, err
	}

	report, err := s.valuator.Valuate(ctx, holdings)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, report.Clone()); err != nil {
		logger.WithError(err).Warn("Report cache write failed")
	}

	logger.WithFields(map[string]interface{}{
		"total_value": report.TotalValue,
		"assets":      len(report.Assets),
	}).Info("Portfolio valued")

	return report, nil
}
