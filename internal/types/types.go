// Package types provides common type definitions for the portfolio tracker.
package types

import "time"

// HoldingKind tags which variant of Holding is populated
type HoldingKind string

const (
	// HoldingSingle is a single token position priced on its own
	HoldingSingle HoldingKind = "single"
	// HoldingGroup is a named collection of tokens reported as one asset
	HoldingGroup HoldingKind = "group"
)

// Token is a member of a grouped holding
type Token struct {
	Symbol   string  `yaml:"symbol,omitempty" json:"symbol,omitempty"`
	Contract string  `yaml:"contract,omitempty" json:"contract,omitempty"`
	Chain    string  `yaml:"chain,omitempty" json:"chain,omitempty"`
	Amount   float64 `yaml:"amount" json:"amount"`
}

// HasContract reports whether the token carries both a contract address and a chain
func (t Token) HasContract() bool {
	return t.Contract != "" && t.Chain != ""
}

// Holding is a configured unit of ownership to be valued.
// Kind selects the variant; single-only and group-only fields are
// left at their zero value for the other variant.
type Holding struct {
	Kind HoldingKind `json:"kind"`

	// Single variant
	Symbol   string  `json:"symbol,omitempty"`
	ID       string  `json:"id,omitempty"`       // Explicit price-service id (e.g., "bitcoin")
	Contract string  `json:"contract,omitempty"` // Token contract / mint address
	Chain    string  `json:"chain,omitempty"`    // Chain name the contract lives on
	Amount   float64 `json:"amount,omitempty"`

	// Group variant
	Group  string  `json:"group,omitempty"`
	Tokens []Token `json:"tokens,omitempty"`

	Stablecoin bool   `json:"stablecoin,omitempty"`
	Color      string `json:"color,omitempty"` // Display hint carried through to the asset
}

// IsGroup reports whether the holding is the grouped variant
func (h Holding) IsGroup() bool {
	return h.Kind == HoldingGroup
}

// HasContract reports whether a single holding carries both a contract address and a chain
func (h Holding) HasContract() bool {
	return h.Contract != "" && h.Chain != ""
}

// Name returns the label used for the holding in logs and errors
func (h Holding) Name() string {
	switch {
	case h.IsGroup():
		return h.Group
	case h.Symbol != "":
		return h.Symbol
	case h.ID != "":
		return h.ID
	default:
		return h.Contract
	}
}

// Asset is one valued line of a portfolio report
type Asset struct {
	Symbol     string  `json:"symbol" yaml:"symbol"`
	Amount     float64 `json:"amount" yaml:"amount"`
	Price      float64 `json:"price" yaml:"price"`
	Value      float64 `json:"value" yaml:"value"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
	IsGroup    bool    `json:"isGroup,omitempty" yaml:"isGroup,omitempty"`
	Color      string  `json:"color,omitempty" yaml:"color,omitempty"`
}

// Report is the result of one valuation run
type Report struct {
	TotalValue  float64   `json:"totalValue"`
	Assets      []Asset   `json:"assets"`
	LastUpdated time.Time `json:"lastUpdated"`
	Cached      bool      `json:"cached"`
}

// Clone returns a copy of the report that shares no slices with the original
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Assets = make([]Asset, len(r.Assets))
	copy(clone.Assets, r.Assets)
	return &clone
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
