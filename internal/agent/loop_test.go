// internal/agent/loop_test.go
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/digitaltitann/soltrader/internal/activity"
	"github.com/digitaltitann/soltrader/internal/tools"
)

type scriptedPlanner struct {
	steps    []PlanStep
	err      error
	seen     []int
	fallback func(turn int) PlanStep
}

func (p *scriptedPlanner) Next(_ context.Context, tr *Transcript) (PlanStep, error) {
	turn := len(p.seen)
	p.seen = append(p.seen, len(tr.Turns))
	if p.err != nil {
		return PlanStep{}, p.err
	}
	if turn < len(p.steps) {
		return p.steps[turn], nil
	}
	if p.fallback != nil {
		return p.fallback(turn), nil
	}
	return PlanStep{}, nil
}

type recordingExecutor struct {
	mu    sync.Mutex
	names []string
	fail  map[string]bool
}

func (e *recordingExecutor) Execute(_ context.Context, name string, _ json.RawMessage) tools.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.names = append(e.names, name)
	if e.fail[name] {
		return tools.Result{Success: false, Error: "nope"}
	}
	return tools.Result{Success: true}
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []activity.Entry
}

func (r *fakeRecorder) Add(kind activity.Kind, message string, data map[string]interface{}) activity.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := activity.Entry{Type: kind, Message: message, Data: data}
	r.entries = append(r.entries, e)
	return e
}

func call(id, name string) ToolCall {
	return ToolCall{ID: id, Name: name, Input: json.RawMessage(`{}`)}
}

func newTestLoop(p Planner, e Executor, rec tools.Recorder, logger *zap.Logger) *Loop {
	return NewLoop(&LoopConfig{Planner: p, Executor: e, Activity: rec, MaxTurns: DefaultMaxTurns, Logger: logger})
}

func TestLoopStopsAtTurnLimit(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	planner := &scriptedPlanner{fallback: func(turn int) PlanStep {
		return PlanStep{Calls: []ToolCall{call(fmt.Sprintf("c%d", turn), string(tools.GetWalletBalance))}}
	}}
	exec := &recordingExecutor{}
	loop := newTestLoop(planner, exec, nil, zap.New(core))

	out, err := loop.RunCycle(context.Background(), DefaultSeed)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxTurns, out.Turns)
	assert.Equal(t, ReasonTurnLimit, out.Reason)
	assert.Len(t, planner.seen, DefaultMaxTurns)
	assert.Len(t, exec.names, DefaultMaxTurns)
	assert.Equal(t, 1, logs.FilterMessage("Cycle hit turn limit").Len())
}

func TestLoopEndsWithoutCalls(t *testing.T) {
	planner := &scriptedPlanner{steps: []PlanStep{{Text: "Nothing worth doing."}}}
	exec := &recordingExecutor{}
	rec := &fakeRecorder{}
	loop := newTestLoop(planner, exec, rec, zap.NewNop())

	out, err := loop.RunCycle(context.Background(), DefaultSeed)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Turns)
	assert.Equal(t, ReasonNoCalls, out.Reason)
	assert.Empty(t, exec.names)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, activity.KindAgent, rec.entries[0].Type)
	assert.Equal(t, "Nothing worth doing.", rec.entries[0].Message)
}

func TestLoopWaitIsTerminal(t *testing.T) {
	planner := &scriptedPlanner{steps: []PlanStep{
		{Calls: []ToolCall{
			call("a", string(tools.SyncPortfolio)),
			call("b", string(tools.Wait)),
			call("c", string(tools.BuyToken)),
		}},
		{Calls: []ToolCall{call("d", string(tools.GetPortfolio))}},
	}}
	exec := &recordingExecutor{}
	loop := newTestLoop(planner, exec, nil, zap.NewNop())

	out, err := loop.RunCycle(context.Background(), DefaultSeed)
	require.NoError(t, err)
	assert.Equal(t, ReasonWait, out.Reason)
	assert.Equal(t, 1, out.Turns)
	assert.Equal(t, 2, out.Calls)
	assert.Equal(t, []string{"sync_portfolio", "wait"}, exec.names)
}

func TestLoopExecutesCallsInOrderAndFeedsBackResults(t *testing.T) {
	planner := &scriptedPlanner{steps: []PlanStep{
		{Calls: []ToolCall{
			call("1", string(tools.BuyToken)),
			call("2", string(tools.GetWalletBalance)),
			call("3", string(tools.GetPortfolio)),
		}},
		{Calls: []ToolCall{call("4", string(tools.AnalyzeToken))}},
	}}
	exec := &recordingExecutor{fail: map[string]bool{"buy_token": true}}
	loop := newTestLoop(planner, exec, nil, zap.NewNop())

	out, err := loop.RunCycle(context.Background(), DefaultSeed)
	require.NoError(t, err)
	assert.Equal(t, []string{"buy_token", "get_wallet_balance", "get_portfolio", "analyze_token"}, exec.names)
	assert.Equal(t, 3, out.Turns)
	assert.Equal(t, ReasonNoCalls, out.Reason)
	// Each planner call sees every earlier turn.
	assert.Equal(t, []int{0, 1, 2}, planner.seen)
}

func TestLoopHonorsPlannerStop(t *testing.T) {
	planner := &scriptedPlanner{steps: []PlanStep{
		{Calls: []ToolCall{call("1", string(tools.GetPortfolio))}, Stop: true},
	}}
	exec := &recordingExecutor{}
	loop := newTestLoop(planner, exec, nil, zap.NewNop())

	out, err := loop.RunCycle(context.Background(), DefaultSeed)
	require.NoError(t, err)
	assert.Equal(t, ReasonPlannerStop, out.Reason)
	assert.Equal(t, []string{"get_portfolio"}, exec.names)
}

func TestLoopReturnsPlannerError(t *testing.T) {
	planner := &scriptedPlanner{err: errors.New("overloaded")}
	loop := newTestLoop(planner, &recordingExecutor{}, nil, zap.NewNop())

	_, err := loop.RunCycle(context.Background(), DefaultSeed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
}

func TestLoopStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	planner := &scriptedPlanner{}
	loop := newTestLoop(planner, &recordingExecutor{}, nil, zap.NewNop())

	_, err := loop.RunCycle(ctx, DefaultSeed)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, planner.seen)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting_plan", AwaitingPlan.String())
	assert.Equal(t, "executing_tools", ExecutingTools.String())
	assert.Equal(t, "done", Done.String())
}
