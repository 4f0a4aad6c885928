package types

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// holdingDocument mirrors every key a holding may carry in the finances file
type holdingDocument struct {
	Kind       HoldingKind `yaml:"kind"`
	Symbol     string      `yaml:"symbol"`
	ID         string      `yaml:"id"`
	Contract   string      `yaml:"contract"`
	Chain      string      `yaml:"chain"`
	Amount     float64     `yaml:"amount"`
	Group      string      `yaml:"group"`
	Tokens     []Token     `yaml:"tokens"`
	Stablecoin bool        `yaml:"stablecoin"`
	Color      string      `yaml:"color"`
}

// UnmarshalYAML decodes a holding and sets its Kind tag.
// An explicit "kind" key wins. Otherwise a mapping with both "group" and
// "tokens" is a group. A mapping with only one of the two, or one that also
// carries single-only keys, is rejected instead of guessed.
func (h *Holding) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: holding must be a mapping", value.Line)
	}

	var doc holdingDocument
	if err := value.Decode(&doc); err != nil {
		return err
	}

	keys := make(map[string]bool, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		keys[value.Content[i].Value] = true
	}

	kind := doc.Kind
	switch kind {
	case HoldingSingle, HoldingGroup:
	case "":
		grouped := keys["group"] && keys["tokens"]
		partial := keys["group"] != keys["tokens"]
		single := keys["id"] || keys["contract"] || keys["chain"] || keys["amount"]
		switch {
		case partial:
			return fmt.Errorf("line %d: grouped holding needs both group and tokens", value.Line)
		case grouped && single:
			return fmt.Errorf("line %d: holding mixes group and single fields", value.Line)
		case grouped:
			kind = HoldingGroup
		default:
			kind = HoldingSingle
		}
	default:
		return fmt.Errorf("line %d: unknown holding kind %q", value.Line, kind)
	}

	*h = Holding{
		Kind:       kind,
		Stablecoin: doc.Stablecoin,
		Color:      doc.Color,
	}
	if kind == HoldingGroup {
		if doc.Group == "" {
			return fmt.Errorf("line %d: grouped holding needs a group name", value.Line)
		}
		h.Group = doc.Group
		h.Tokens = doc.Tokens
		return nil
	}

	h.Symbol = doc.Symbol
	h.ID = doc.ID
	h.Contract = doc.Contract
	h.Chain = doc.Chain
	h.Amount = doc.Amount
	return nil
}

// MarshalYAML writes the holding back in the finances file shape
func (h Holding) MarshalYAML() (interface{}, error) {
	if h.IsGroup() {
		return struct {
			Group      string  `yaml:"group"`
			Stablecoin bool    `yaml:"stablecoin,omitempty"`
			Tokens     []Token `yaml:"tokens"`
			Color      string  `yaml:"color,omitempty"`
		}{h.Group, h.Stablecoin, h.Tokens, h.Color}, nil
	}
	return struct {
		Symbol     string  `yaml:"symbol,omitempty"`
		ID         string  `yaml:"id,omitempty"`
		Contract   string  `yaml:"contract,omitempty"`
		Chain      string  `yaml:"chain,omitempty"`
		Amount     float64 `yaml:"amount"`
		Stablecoin bool    `yaml:"stablecoin,omitempty"`
		Color      string  `yaml:"color,omitempty"`
	}{h.Symbol, h.ID, h.Contract, h.Chain, h.Amount, h.Stablecoin, h.Color}, nil
}
