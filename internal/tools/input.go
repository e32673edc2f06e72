// internal/tools/input.go
package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/digitaltitann/soltrader/internal/blockchain/solbc"
)

// InputError reports planner input that does not match a capability schema.
type InputError struct {
	Tool Name
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input for %s: %v", e.Tool, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

var errUnknownTool = errors.New("unknown tool")

type SearchInput struct {
	Query       string `mapstructure:"query"`
	MinLikes    *int   `mapstructure:"min_likes"`
	MinRetweets *int   `mapstructure:"min_retweets"`
}

type AnalyzeInput struct {
	MintAddress string `mapstructure:"mint_address"`
}

type BuyInput struct {
	MintAddress string  `mapstructure:"mint_address"`
	SolAmount   float64 `mapstructure:"sol_amount"`
}

type SellInput struct {
	MintAddress string   `mapstructure:"mint_address"`
	Percentage  *float64 `mapstructure:"percentage"`
}

type WaitInput struct {
	Seconds *float64 `mapstructure:"seconds"`
}

type emptyInput struct{}

func newInput(name Name) (interface{}, error) {
	switch name {
	case SearchX:
		return &SearchInput{}, nil
	case AnalyzeToken:
		return &AnalyzeInput{}, nil
	case BuyToken:
		return &BuyInput{}, nil
	case SellToken:
		return &SellInput{}, nil
	case Wait:
		return &WaitInput{}, nil
	case GetPortfolio, GetWalletBalance, SyncPortfolio:
		return &emptyInput{}, nil
	default:
		return nil, errUnknownTool
	}
}

// Decode validates raw against the schema for name and returns the typed record.
func Decode(name Name, raw json.RawMessage) (interface{}, error) {
	schema, found := compiledSchemas[name]
	if !found {
		return nil, &InputError{Tool: name, Err: errUnknownTool}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}

	var doc interface{}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, &InputError{Tool: name, Err: err}
	}
	if err := schema.Validate(doc); err != nil {
		return nil, &InputError{Tool: name, Err: err}
	}

	out, err := newInput(name)
	if err != nil {
		return nil, &InputError{Tool: name, Err: err}
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
		TagName:     "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, &InputError{Tool: name, Err: err}
	}

	if err := checkMint(out); err != nil {
		return nil, &InputError{Tool: name, Err: err}
	}
	return out, nil
}

func checkMint(in interface{}) error {
	var mint string
	switch v := in.(type) {
	case *AnalyzeInput:
		mint = v.MintAddress
	case *BuyInput:
		mint = v.MintAddress
	case *SellInput:
		mint = v.MintAddress
	default:
		return nil
	}
	if !solbc.IsValidMint(mint) {
		return fmt.Errorf("mint_address %q is not a valid Solana address", mint)
	}
	return nil
}
