// internal/tools/schema.go
package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Definition is what the planner sees of a capability.
type Definition struct {
	Name        Name                   `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

const mintPattern = "^[1-9A-HJ-NP-Za-km-z]{32,44}$"

func object(required []string, props map[string]interface{}) map[string]interface{} {
	if required == nil {
		required = []string{}
	}
	return map[string]interface{}{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func mintProp(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "pattern": mintPattern, "description": desc}
}

var definitions = []Definition{
	{
		Name:        SearchX,
		Description: "Search X/Twitter for recent high-engagement posts about Solana tokens. Returns posts with engagement counts and any token mint addresses found in them.",
		InputSchema: object([]string{"query"}, map[string]interface{}{
			"query":        map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 256, "description": `Search query, e.g. "solana memecoin" or "new solana token CA"`},
			"min_likes":    map[string]interface{}{"type": "integer", "minimum": 0, "description": "Minimum likes (default 50)"},
			"min_retweets": map[string]interface{}{"type": "integer", "minimum": 0, "description": "Minimum retweets (default 10)"},
		}),
	},
	{
		Name:        AnalyzeToken,
		Description: "Get market data for a Solana token: price, 24h volume, liquidity and 24h price change. Use before buying.",
		InputSchema: object([]string{"mint_address"}, map[string]interface{}{
			"mint_address": mintProp("Token mint address to analyze"),
		}),
	},
	{
		Name:        BuyToken,
		Description: "Buy a Solana token with SOL through a Jupiter swap. Executes a real on-chain trade.",
		InputSchema: object([]string{"mint_address", "sol_amount"}, map[string]interface{}{
			"mint_address": mintProp("Token mint address to buy"),
			"sol_amount":   map[string]interface{}{"type": "number", "exclusiveMinimum": 0, "description": "SOL to spend"},
		}),
	},
	{
		Name:        SellToken,
		Description: "Sell a held Solana token back to SOL through a Jupiter swap, optionally only a percentage of the holding.",
		InputSchema: object([]string{"mint_address"}, map[string]interface{}{
			"mint_address": mintProp("Token mint address to sell"),
			"percentage":   map[string]interface{}{"type": "number", "description": "Percent of the holding to sell, 1-100 (default 100)"},
		}),
	},
	{
		Name:        GetPortfolio,
		Description: "List open positions with refreshed prices and P&L, plus closed position count.",
		InputSchema: object(nil, map[string]interface{}{}),
	},
	{
		Name:        GetWalletBalance,
		Description: "Get the SOL balance of the trading wallet.",
		InputSchema: object(nil, map[string]interface{}{}),
	},
	{
		Name:        SyncPortfolio,
		Description: "Check every open position against the on-chain wallet balance and close phantom positions that hold no tokens. Call at the start of each cycle.",
		InputSchema: object(nil, map[string]interface{}{}),
	},
	{
		Name:        Wait,
		Description: "Pause before the next trading cycle when nothing is actionable. Ends the current cycle.",
		InputSchema: object(nil, map[string]interface{}{
			"seconds": map[string]interface{}{"type": "number", "description": "Seconds to wait, 10-300 (default 60)"},
		}),
	},
}

// Definitions returns the capability schema offered to the planner.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

var compiledSchemas = mustCompileSchemas()

func mustCompileSchemas() map[Name]*jsonschema.Schema {
	out := make(map[Name]*jsonschema.Schema, len(definitions))
	for _, def := range definitions {
		schema, err := compileSchema(string(def.Name), def.InputSchema)
		if err != nil {
			panic(fmt.Sprintf("compile schema %s: %v", def.Name, err))
		}
		out[def.Name] = schema
	}
	return out
}

func compileSchema(name string, data map[string]interface{}) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	url := name + ".json"
	if err := compiler.AddResource(url, strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
}
