// Package holdings loads the finances file that lists what the portfolio owns.
package holdings

import (
	"context"
	"math"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	apperrors "github.com/portfolio-tracker/internal/errors"
	"github.com/portfolio-tracker/internal/logging"
	"github.com/portfolio-tracker/internal/types"
)

// HistoryEntry is a manually recorded monthly portfolio value
type HistoryEntry struct {
	Month  string  `yaml:"month" json:"month"`
	Amount float64 `yaml:"amount" json:"amount"`
}

// Finances is the root of the finances file
type Finances struct {
	Currency             string          `yaml:"currency" json:"currency"`
	Goal                 float64         `yaml:"goal" json:"goal"`
	CurrentInvestedMoney float64         `yaml:"currentInvestedMoney" json:"currentInvestedMoney"`
	Holdings             []types.Holding `yaml:"holdings" json:"holdings"`
	History              []HistoryEntry  `yaml:"history" json:"history"`
}

// evmChains are validated as 20-byte hex addresses
var evmChains = map[string]bool{
	"ethereum":  true,
	"base":      true,
	"arbitrum":  true,
	"polygon":   true,
	"bsc":       true,
	"avalanche": true,
	"optimism":  true,
}

// Load reads and validates the finances file at path
func Load(path string) (*Finances, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read finances file %s", path)
	}

	finances, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse finances file %s", path)
	}
	return finances, nil
}

// Parse decodes and validates finances YAML
func Parse(data []byte) (*Finances, error) {
	var finances Finances
	if err := yaml.Unmarshal(data, &finances); err != nil {
		return nil, apperrors.NewInvalidParameterError("holdings", err.Error())
	}
	if err := Validate(finances.Holdings); err != nil {
		return nil, err
	}
	for _, w := range ContractWarnings(finances.Holdings) {
		logging.WithFields(map[string]interface{}{
			"index":   w.Index,
			"holding": w.Holding,
		}).Warn(w.Reason)
	}
	return &finances, nil
}

// Validate checks the amount of every holding
func Validate(holdings []types.Holding) error {
	for i, h := range holdings {
		if h.IsGroup() {
			for _, t := range h.Tokens {
				if reason := checkAmount(t.Amount); reason != "" {
					return apperrors.NewInvalidHoldingError(i, h.Name(), tokenLabel(t)+": "+reason)
				}
			}
			continue
		}

		if reason := checkAmount(h.Amount); reason != "" {
			return apperrors.NewInvalidHoldingError(i, h.Name(), reason)
		}
	}
	return nil
}

// ContractWarning describes a contract address that does not match its
// chain's format. The holding still loads; its lookup will likely price at 0.
type ContractWarning struct {
	Index   int
	Holding string
	Reason  string
}

// ContractWarnings lists malformed contract addresses, including those of
// stablecoins whose contract is never looked up
func ContractWarnings(holdings []types.Holding) []ContractWarning {
	var warnings []ContractWarning
	for i, h := range holdings {
		if h.IsGroup() {
			for _, t := range h.Tokens {
				if !t.HasContract() {
					continue
				}
				if reason := checkContract(t.Contract, t.Chain); reason != "" {
					warnings = append(warnings, ContractWarning{Index: i, Holding: h.Name(), Reason: tokenLabel(t) + ": " + reason})
				}
			}
			continue
		}

		if h.HasContract() {
			if reason := checkContract(h.Contract, h.Chain); reason != "" {
				warnings = append(warnings, ContractWarning{Index: i, Holding: h.Name(), Reason: reason})
			}
		}
	}
	return warnings
}

func checkAmount(amount float64) string {
	switch {
	case math.IsNaN(amount) || math.IsInf(amount, 0):
		return "amount must be a finite number"
	case amount < 0:
		return "amount must not be negative"
	}
	return ""
}

// checkContract validates addresses for chains with a known address format.
// Other chains are passed through to the price provider untouched.
func checkContract(contract, chain string) string {
	chain = strings.ToLower(chain)
	switch {
	case evmChains[chain]:
		if !common.IsHexAddress(contract) {
			return "invalid " + chain + " contract address " + contract
		}
	case chain == "solana":
		if _, err := solana.PublicKeyFromBase58(contract); err != nil {
			return "invalid solana mint address " + contract
		}
	}
	return ""
}

func tokenLabel(t types.Token) string {
	if t.Symbol != "" {
		return t.Symbol
	}
	return t.Contract
}

// FileSource serves holdings from the finances file, re-reading it on each call
// so edits are picked up on the next valuation.
type FileSource struct {
	path string
}

// NewFileSource creates a holdings source backed by the file at path
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Holdings returns the holdings listed in the finances file
func (s *FileSource) Holdings(ctx context.Context) ([]types.Holding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	finances, err := Load(s.path)
	if err != nil {
		return nil, err
	}
	return finances.Holdings, nil
}

// Path returns the file the source reads
func (s *FileSource) Path() string {
	return s.path
}
