package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/portfolio-tracker/internal/errors"
	"github.com/portfolio-tracker/internal/logging"
	"github.com/portfolio-tracker/internal/models"
	"github.com/portfolio-tracker/internal/types"
)

// MonthLayout is the key format of the snapshot store
const MonthLayout = "2006-01"

// SnapshotStore persists snapshots keyed by month
type SnapshotStore interface {
	Load(ctx context.Context) (map[string]models.Snapshot, error)
	Save(ctx context.Context, snapshots map[string]models.Snapshot) error
}

// SnapshotService captures one portfolio snapshot per calendar month
type SnapshotService struct {
	store    SnapshotStore
	holdings HoldingsSource
	valuator Valuator
	now      func() time.Time
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(store SnapshotStore, holdings HoldingsSource, valuator Valuator) *SnapshotService {
	return &SnapshotService{
		store:    store,
		holdings: holdings,
		valuator: valuator,
		now:      time.Now,
	}
}

// CaptureInput represents input for capturing a snapshot
type CaptureInput struct {
	Month   string // YYYY-MM; empty means the current month
	IsFirst bool
}

// CaptureResult describes a stored snapshot
type CaptureResult struct {
	Month    string
	Snapshot models.Snapshot
}

// Capture values the portfolio and stores it under the target month.
// An existing snapshot for that month is never overwritten.
func (s *SnapshotService) Capture(ctx context.Context, input CaptureInput) (*CaptureResult, error) {
	month := input.Month
	if month == "" {
		month = CurrentMonth(s.now())
	}
	if err := ValidateMonth(month); err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx).WithField("month", month)

	snapshots, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if existing, ok := snapshots[month]; ok {
		return nil, apperrors.NewSnapshotExistsError(month, existing.TotalValue)
	}

	holdings, err := s.holdings.Holdings(ctx)
	if err != nil {
		return nil, err
	}

	report, err := s.valuator.Valuate(ctx, holdings)
	if err != nil {
		return nil, err
	}

	snapshot := RoundSnapshot(report, input.IsFirst, s.now())
	snapshots[month] = snapshot
	if err := s.store.Save(ctx, snapshots); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"total_value": snapshot.TotalValue,
		"assets":      len(snapshot.Assets),
		"first":       input.IsFirst,
	}).Info("Snapshot captured")

	return &CaptureResult{Month: month, Snapshot: snapshot}, nil
}

// List returns every stored snapshot, newest month first
func (s *SnapshotService) List(ctx context.Context) ([]models.MonthlySnapshot, error) {
	snapshots, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]models.MonthlySnapshot, 0, len(snapshots))
	for month, snap := range snapshots {
		result = append(result, models.MonthlySnapshot{Month: month, Snapshot: snap})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Month > result[j].Month
	})
	return result, nil
}

// ValidateMonth checks that month is a YYYY-MM key
func ValidateMonth(month string) error {
	if _, err := time.Parse(MonthLayout, month); err != nil {
		return apperrors.NewInvalidParameterError("month", fmt.Sprintf("%q is not in YYYY-MM format", month))
	}
	return nil
}

// CurrentMonth returns the month a capture without an explicit month targets
func (s *SnapshotService) CurrentMonth() string {
	return CurrentMonth(s.now())
}

// CurrentMonth returns the YYYY-MM key for t in its own location
func CurrentMonth(t time.Time) string {
	return t.Format(MonthLayout)
}

// RoundSnapshot converts a report into its stored form.
// Price, value and total keep 2 decimals, percentage keeps 1; amounts are stored as is.
func RoundSnapshot(report *types.Report, isFirst bool, capturedAt time.Time) models.Snapshot {
	assets := make([]models.SnapshotAsset, 0, len(report.Assets))
	for _, a := range report.Assets {
		sa := models.NewSnapshotAsset(a)
		sa.Price = round(sa.Price, 2)
		sa.Value = round(sa.Value, 2)
		sa.Percentage = round(sa.Percentage, 1)
		assets = append(assets, sa)
	}

	return models.Snapshot{
		CapturedAt: capturedAt.UTC(),
		IsFirst:    isFirst,
		TotalValue: round(report.TotalValue, 2),
		Assets:     assets,
	}
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
