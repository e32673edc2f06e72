// internal/agent/planner.go
package agent

import (
	"context"
	"encoding/json"

	"github.com/digitaltitann/soltrader/internal/tools"
)

// ToolCall is one capability invocation requested by the planner.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolOutcome pairs an invocation with its result.
type ToolOutcome struct {
	Call   ToolCall     `json:"call"`
	Result tools.Result `json:"result"`
}

// PlanStep is the planner's answer for one turn.
type PlanStep struct {
	Text  string
	Calls []ToolCall
	// Stop is set when the planner signalled it has nothing more to do
	// after this turn's calls.
	Stop bool
}

// Turn is one planner step together with what executing it produced.
type Turn struct {
	Text     string        `json:"text,omitempty"`
	Calls    []ToolCall    `json:"calls,omitempty"`
	Outcomes []ToolOutcome `json:"outcomes,omitempty"`
}

// Transcript is the ordered history of a single cycle. It is discarded
// when the cycle ends.
type Transcript struct {
	Seed  string `json:"seed"`
	Turns []Turn `json:"turns"`
}

// Planner decides the next step given the cycle so far.
type Planner interface {
	Next(ctx context.Context, tr *Transcript) (PlanStep, error)
}

// Executor runs a named capability. It reports failures in the result
// and never returns an error.
type Executor interface {
	Execute(ctx context.Context, name string, input json.RawMessage) tools.Result
}
