// internal/agent/anthropic_test.go
package agent

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/digitaltitann/soltrader/internal/tools"
)

const toolUseResponse = `{
  "id": "msg_01",
  "type": "message",
  "role": "assistant",
  "content": [
    {"type": "text", "text": "Checking the wallet first."},
    {"type": "tool_use", "id": "toolu_1", "name": "get_wallet_balance", "input": {}},
    {"type": "tool_use", "id": "toolu_2", "name": "search_x_tweets", "input": {"query": "solana memecoin"}}
  ],
  "stop_reason": "tool_use"
}`

func newTestPlanner(url string) *AnthropicPlanner {
	p := NewAnthropicPlanner(&AnthropicConfig{
		URL:    url,
		APIKey: "test-key",
		Model:  "test-model",
		Tools:  tools.Definitions(),
		Logger: zap.NewNop(),
	})
	p.retryElapsed = 5 * time.Second
	return p
}

func TestAnthropicPlannerParsesToolUse(t *testing.T) {
	var captured []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		captured, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(toolUseResponse))
	}))
	defer server.Close()

	step, err := newTestPlanner(server.URL).Next(context.Background(), &Transcript{Seed: DefaultSeed})
	require.NoError(t, err)

	assert.Equal(t, "Checking the wallet first.", step.Text)
	assert.False(t, step.Stop)
	require.Len(t, step.Calls, 2)
	assert.Equal(t, "toolu_1", step.Calls[0].ID)
	assert.Equal(t, "get_wallet_balance", step.Calls[0].Name)
	assert.JSONEq(t, `{"query":"solana memecoin"}`, string(step.Calls[1].Input))

	body := gjson.ParseBytes(captured)
	assert.Equal(t, "test-model", body.Get("model").String())
	assert.Equal(t, int64(defaultMaxTokens), body.Get("max_tokens").Int())
	assert.Equal(t, SystemPrompt, body.Get("system").String())
	assert.Equal(t, int64(len(tools.Definitions())), body.Get("tools.#").Int())
	assert.Equal(t, "user", body.Get("messages.0.role").String())
	assert.Equal(t, DefaultSeed, body.Get("messages.0.content.0.text").String())
}

func TestAnthropicPlannerReplaysTranscript(t *testing.T) {
	var captured []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Done for now."}],"stop_reason":"end_turn"}`))
	}))
	defer server.Close()

	tr := &Transcript{
		Seed: DefaultSeed,
		Turns: []Turn{{
			Text:  "Syncing.",
			Calls: []ToolCall{call("toolu_1", "sync_portfolio"), call("toolu_2", "wait")},
			Outcomes: []ToolOutcome{
				{Call: call("toolu_1", "sync_portfolio"), Result: tools.Result{Success: true, Data: map[string]interface{}{"checked": 0}}},
			},
		}},
	}

	step, err := newTestPlanner(server.URL).Next(context.Background(), tr)
	require.NoError(t, err)
	assert.True(t, step.Stop)
	assert.Empty(t, step.Calls)
	assert.Equal(t, "Done for now.", step.Text)

	body := gjson.ParseBytes(captured)
	assert.Equal(t, int64(3), body.Get("messages.#").Int())
	assert.Equal(t, "assistant", body.Get("messages.1.role").String())
	assert.Equal(t, "tool_use", body.Get("messages.1.content.1.type").String())
	assert.Equal(t, "user", body.Get("messages.2.role").String())

	results := body.Get("messages.2.content").Array()
	require.Len(t, results, 2)
	assert.Equal(t, "toolu_1", results[0].Get("tool_use_id").String())
	assert.False(t, results[0].Get("is_error").Bool())
	var first tools.Result
	require.NoError(t, json.Unmarshal([]byte(results[0].Get("content").String()), &first))
	assert.True(t, first.Success)
	assert.True(t, results[1].Get("is_error").Bool())
}

func TestAnthropicPlannerRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(toolUseResponse))
	}))
	defer server.Close()

	step, err := newTestPlanner(server.URL).Next(context.Background(), &Transcript{Seed: DefaultSeed})
	require.NoError(t, err)
	assert.Len(t, step.Calls, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestAnthropicPlannerDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	_, err := newTestPlanner(server.URL).Next(context.Background(), &Transcript{Seed: DefaultSeed})
	var apiErr *PlannerAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestParseResponseRejectsGarbage(t *testing.T) {
	_, err := parseResponse([]byte("not json"))
	assert.Error(t, err)

	_, err = parseResponse([]byte(`{"stop_reason":"end_turn"}`))
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
