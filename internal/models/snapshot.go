package models

import (
	"time"

	"github.com/portfolio-tracker/internal/types"
)

// SnapshotAsset is one rounded asset line as it is stored in the snapshot file.
// Display hints such as color are not persisted.
type SnapshotAsset struct {
	Symbol     string  `json:"symbol" yaml:"symbol"`
	Amount     float64 `json:"amount" yaml:"amount"`
	Price      float64 `json:"price" yaml:"price"`
	Value      float64 `json:"value" yaml:"value"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
	IsGroup    bool    `json:"isGroup,omitempty" yaml:"isGroup,omitempty"`
}

// Snapshot represents the portfolio state captured for one calendar month
type Snapshot struct {
	CapturedAt time.Time       `json:"capturedAt" yaml:"capturedAt"`
	IsFirst    bool            `json:"isFirst,omitempty" yaml:"isFirst,omitempty"`
	TotalValue float64         `json:"totalValue" yaml:"totalValue"`
	Assets     []SnapshotAsset `json:"assets" yaml:"assets"`
}

// MonthlySnapshot pairs a snapshot with its YYYY-MM key
type MonthlySnapshot struct {
	Month    string
	Snapshot Snapshot
}

// NewSnapshotAsset copies the persisted fields of a report asset
func NewSnapshotAsset(a types.Asset) SnapshotAsset {
	return SnapshotAsset{
		Symbol:     a.Symbol,
		Amount:     a.Amount,
		Price:      a.Price,
		Value:      a.Value,
		Percentage: a.Percentage,
		IsGroup:    a.IsGroup,
	}
}
