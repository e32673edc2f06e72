// internal/agent/loop.go
package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/digitaltitann/soltrader/internal/activity"
	"github.com/digitaltitann/soltrader/internal/tools"
)

// State is a Decision Loop state.
type State int

const (
	AwaitingPlan State = iota
	ExecutingTools
	Done
)

func (s State) String() string {
	switch s {
	case AwaitingPlan:
		return "awaiting_plan"
	case ExecutingTools:
		return "executing_tools"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// DoneReason records why a cycle ended.
type DoneReason string

const (
	ReasonNoCalls     DoneReason = "no_calls"
	ReasonWait        DoneReason = "wait"
	ReasonPlannerStop DoneReason = "planner_stop"
	ReasonTurnLimit   DoneReason = "turn_limit"
)

const DefaultMaxTurns = 20

// Outcome summarises a finished cycle.
type Outcome struct {
	Turns  int
	Calls  int
	Reason DoneReason
}

// LoopConfig wires a Loop.
type LoopConfig struct {
	Planner  Planner
	Executor Executor
	Activity tools.Recorder
	MaxTurns int
	Logger   *zap.Logger
}

// Loop runs one bounded planner/executor cycle at a time. It keeps no
// state between cycles.
type Loop struct {
	planner  Planner
	executor Executor
	activity tools.Recorder
	maxTurns int
	logger   *zap.Logger
}

func NewLoop(cfg *LoopConfig) *Loop {
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		planner:  cfg.Planner,
		executor: cfg.Executor,
		activity: cfg.Activity,
		maxTurns: maxTurns,
		logger:   logger.Named("loop"),
	}
}

// RunCycle drives the planner from seed until it is done. Capability
// failures are fed back to the planner; only planner errors are returned.
func (l *Loop) RunCycle(ctx context.Context, seed string) (Outcome, error) {
	tr := &Transcript{Seed: seed}
	var out Outcome
	state := AwaitingPlan

	l.logger.Info("🤖 Starting trading cycle")

	for state != Done {
		if out.Turns >= l.maxTurns {
			l.logger.Warn("Cycle hit turn limit", zap.Int("max_turns", l.maxTurns))
			out.Reason = ReasonTurnLimit
			break
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}

		out.Turns++
		step, err := l.planner.Next(ctx, tr)
		if err != nil {
			return out, fmt.Errorf("planner turn %d: %w", out.Turns, err)
		}
		l.recordRationale(step.Text)

		turn := Turn{Text: step.Text, Calls: step.Calls}
		if len(step.Calls) == 0 {
			tr.Turns = append(tr.Turns, turn)
			out.Reason = ReasonNoCalls
			state = Done
			break
		}

		state = ExecutingTools
		waited := false
		for _, call := range step.Calls {
			if waited {
				l.logger.Debug("Skipping call after wait", zap.String("tool", call.Name))
				continue
			}
			l.logger.Info("🔧 Calling tool", zap.String("tool", call.Name))
			res := l.executor.Execute(ctx, call.Name, call.Input)
			if !res.Success {
				l.logger.Info("Tool returned failure", zap.String("tool", call.Name), zap.String("error", res.Error))
			}
			turn.Outcomes = append(turn.Outcomes, ToolOutcome{Call: call, Result: res})
			out.Calls++
			waited = call.Name == string(tools.Wait)
		}
		tr.Turns = append(tr.Turns, turn)

		switch {
		case waited:
			out.Reason = ReasonWait
			state = Done
		case step.Stop:
			out.Reason = ReasonPlannerStop
			state = Done
		default:
			state = AwaitingPlan
		}
	}

	l.logger.Info("✅ Cycle complete",
		zap.String("reason", string(out.Reason)),
		zap.Int("turns", out.Turns),
		zap.Int("calls", out.Calls))
	return out, nil
}

func (l *Loop) recordRationale(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	l.logger.Info("💭 Agent", zap.String("text", text))
	if l.activity != nil {
		l.activity.Add(activity.KindAgent, text, nil)
	}
}
