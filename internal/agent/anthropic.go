// internal/agent/anthropic.go
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/digitaltitann/soltrader/internal/tools"
)

const (
	DefaultAnthropicURL   = "https://api.anthropic.com/v1/messages"
	anthropicVersion      = "2023-06-01"
	defaultMaxTokens      = 4096
	defaultPlannerElapsed = 2 * time.Minute
)

// ErrEmptyResponse is returned when the reasoning service answers without content.
var ErrEmptyResponse = errors.New("empty planner response")

// PlannerAPIError is a non-success response from the reasoning service.
type PlannerAPIError struct {
	StatusCode int
	Body       string
}

func (e *PlannerAPIError) Error() string {
	return fmt.Sprintf("planner API returned status %d: %s", e.StatusCode, e.Body)
}

func (e *PlannerAPIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == 529 || e.StatusCode >= 500
}

// AnthropicConfig configures the messages API planner.
type AnthropicConfig struct {
	URL        string
	APIKey     string
	Model      string
	MaxTokens  int
	System     string
	Tools      []tools.Definition
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// AnthropicPlanner asks the messages API for the next step, offering the
// capability definitions as tools.
type AnthropicPlanner struct {
	url          string
	apiKey       string
	model        string
	maxTokens    int
	system       string
	tools        []tools.Definition
	http         *http.Client
	logger       *zap.Logger
	retryElapsed time.Duration
}

func NewAnthropicPlanner(cfg *AnthropicConfig) *AnthropicPlanner {
	p := &AnthropicPlanner{
		url:          cfg.URL,
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		maxTokens:    cfg.MaxTokens,
		system:       cfg.System,
		tools:        cfg.Tools,
		http:         cfg.HTTPClient,
		logger:       cfg.Logger,
		retryElapsed: defaultPlannerElapsed,
	}
	if p.url == "" {
		p.url = DefaultAnthropicURL
	}
	if p.maxTokens <= 0 {
		p.maxTokens = defaultMaxTokens
	}
	if p.system == "" {
		p.system = SystemPrompt
	}
	if p.http == nil {
		p.http = &http.Client{Timeout: 120 * time.Second}
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	p.logger = p.logger.Named("planner")
	return p
}

type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type messagesRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Tools     []tools.Definition `json:"tools"`
	Messages  []message          `json:"messages"`
}

// Next implements Planner.
func (p *AnthropicPlanner) Next(ctx context.Context, tr *Transcript) (PlanStep, error) {
	messages, err := buildMessages(tr)
	if err != nil {
		return PlanStep{}, err
	}
	payload, err := json.Marshal(messagesRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		System:    p.system,
		Tools:     p.tools,
		Messages:  messages,
	})
	if err != nil {
		return PlanStep{}, fmt.Errorf("encode planner request: %w", err)
	}

	body, err := p.post(ctx, payload)
	if err != nil {
		return PlanStep{}, err
	}
	return parseResponse(body)
}

// buildMessages replays the transcript as alternating user/assistant
// messages. Tool results go back in the user message after the turn.
func buildMessages(tr *Transcript) ([]message, error) {
	messages := []message{{
		Role:    "user",
		Content: []contentBlock{{Type: "text", Text: tr.Seed}},
	}}

	for _, turn := range tr.Turns {
		var assistant []contentBlock
		if turn.Text != "" {
			assistant = append(assistant, contentBlock{Type: "text", Text: turn.Text})
		}
		for _, call := range turn.Calls {
			input := call.Input
			if len(bytes.TrimSpace(input)) == 0 {
				input = json.RawMessage(`{}`)
			}
			assistant = append(assistant, contentBlock{Type: "tool_use", ID: call.ID, Name: call.Name, Input: input})
		}
		if len(assistant) == 0 {
			continue
		}
		messages = append(messages, message{Role: "assistant", Content: assistant})

		if len(turn.Calls) == 0 {
			continue
		}
		results := make([]contentBlock, 0, len(turn.Calls))
		executed := make(map[string]tools.Result, len(turn.Outcomes))
		for _, o := range turn.Outcomes {
			executed[o.Call.ID] = o.Result
		}
		for _, call := range turn.Calls {
			res, ok := executed[call.ID]
			if !ok {
				res = tools.Result{Success: false, Error: "not executed: cycle ended by wait"}
			}
			content, err := json.Marshal(res)
			if err != nil {
				return nil, fmt.Errorf("encode tool result %s: %w", call.Name, err)
			}
			results = append(results, contentBlock{
				Type:      "tool_result",
				ToolUseID: call.ID,
				Content:   string(content),
				IsError:   !res.Success,
			})
		}
		messages = append(messages, message{Role: "user", Content: results})
	}
	return messages, nil
}

func parseResponse(body []byte) (PlanStep, error) {
	if !gjson.ValidBytes(body) {
		return PlanStep{}, fmt.Errorf("planner response is not JSON")
	}
	doc := gjson.ParseBytes(body)
	content := doc.Get("content")
	if !content.IsArray() {
		return PlanStep{}, ErrEmptyResponse
	}

	var step PlanStep
	var texts []string
	content.ForEach(func(_, block gjson.Result) bool {
		switch block.Get("type").String() {
		case "text":
			if t := block.Get("text").String(); t != "" {
				texts = append(texts, t)
			}
		case "tool_use":
			input := json.RawMessage(`{}`)
			if raw := block.Get("input"); raw.Exists() {
				input = json.RawMessage(raw.Raw)
			}
			step.Calls = append(step.Calls, ToolCall{
				ID:    block.Get("id").String(),
				Name:  block.Get("name").String(),
				Input: input,
			})
		}
		return true
	})
	for i, t := range texts {
		if i > 0 {
			step.Text += "\n"
		}
		step.Text += t
	}
	step.Stop = doc.Get("stop_reason").String() == "end_turn"
	return step, nil
}

func (p *AnthropicPlanner) post(ctx context.Context, payload []byte) ([]byte, error) {
	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", p.apiKey)
		req.Header.Set("anthropic-version", anthropicVersion)

		resp, err := p.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			apiErr := &PlannerAPIError{StatusCode: resp.StatusCode, Body: string(body)}
			if apiErr.retryable() {
				p.logger.Warn("Planner request failed, retrying", zap.Int("status", resp.StatusCode))
				return nil, apiErr
			}
			return nil, backoff.Permanent(apiErr)
		}
		return body, nil
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(p.retryElapsed),
	)
	if err != nil {
		var apiErr *PlannerAPIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, fmt.Errorf("planner request: %w", err)
	}
	return body, nil
}
