package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"innerbloom-server/internal/config"
	apperrors "innerbloom-server/internal/errors"
	"innerbloom-server/internal/model"
	"innerbloom-server/internal/prompt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest() InvokeRequest {
	return InvokeRequest{
		UserID: "user-1",
		Mode:   model.ModeLow,
		Messages: []prompt.Message{
			{Role: prompt.RoleSystem, Content: "system text"},
			{Role: prompt.RoleUser, Content: "user text"},
		},
		ResponseFormat: &prompt.ResponseFormat{
			Type: prompt.FormatJSONSchema,
			JSONSchema: &prompt.JSONSchemaFormat{
				Name:   "innerbloom_tasks",
				Schema: json.RawMessage(`{"type":"object"}`),
				Strict: true,
			},
		},
	}
}

func TestTemperatureFor(t *testing.T) {
	assert.InDelta(t, 0.2, TemperatureFor(model.ModeLow), 1e-6)
	assert.InDelta(t, 0.2, TemperatureFor(model.ModeChill), 1e-6)
	assert.InDelta(t, 0.7, TemperatureFor(model.ModeFlow), 1e-6)
	assert.InDelta(t, 0.7, TemperatureFor(model.ModeEvolve), 1e-6)
}

func TestIsReasoningModel(t *testing.T) {
	for _, name := range []string{"o1-mini", "o3", "O4-mini", "gpt-5", "gpt-5-nano", "openai/o3-mini"} {
		assert.True(t, IsReasoningModel(name), name)
	}
	for _, name := range []string{"gpt-4o-mini", "gpt-4.1", "llama3.1", ""} {
		assert.False(t, IsReasoningModel(name), name)
	}
}

type capturedRequest struct {
	Path string
	Body map[string]any
}

func openAIServer(t *testing.T, status int, response string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if captured != nil {
			captured.Path = r.URL.Path
			_ = json.Unmarshal(body, &captured.Body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const chatCompletionOK = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "model": "gpt-4o-mini-2024-07-18",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"tasks\":[]}"}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150}
}`

func openAIConfig(baseURL, modelName string) config.Config {
	return config.Config{
		AIClientType: "openai",
		AIBaseURL:    baseURL,
		AIModel:      modelName,
		AIAPIKey:     "test-key",
		AITimeout:    5 * time.Second,
	}
}

func TestOpenAIInvoker_Success(t *testing.T) {
	var captured capturedRequest
	srv := openAIServer(t, http.StatusOK, chatCompletionOK, &captured)

	inv := NewOpenAIInvoker(openAIConfig(srv.URL, "gpt-4o-mini"), nil)
	res, err := inv.Invoke(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, `{"tasks":[]}`, res.Text)
	assert.Equal(t, "gpt-4o-mini-2024-07-18", res.Model)
	assert.Equal(t, Usage{PromptTokens: 120, CompletionTokens: 30, TotalTokens: 150}, res.Usage)
	assert.False(t, res.ParamsFiltered)

	assert.Equal(t, "/chat/completions", captured.Path)
	assert.InDelta(t, 0.2, captured.Body["temperature"], 1e-6)
	msgs := captured.Body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])

	format := captured.Body["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]any)
	assert.Equal(t, "innerbloom_tasks", schema["name"])
	assert.Equal(t, true, schema["strict"])
	assert.Equal(t, map[string]any{"type": "object"}, schema["schema"])
}

func TestOpenAIInvoker_ReasoningModelOmitsTemperature(t *testing.T) {
	var captured capturedRequest
	srv := openAIServer(t, http.StatusOK, chatCompletionOK, &captured)

	inv := NewOpenAIInvoker(openAIConfig(srv.URL, "o3-mini"), nil)
	res, err := inv.Invoke(context.Background(), testRequest())
	require.NoError(t, err)

	assert.True(t, res.ParamsFiltered)
	_, hasTemperature := captured.Body["temperature"]
	assert.False(t, hasTemperature)
}

func TestOpenAIInvoker_MissingKey(t *testing.T) {
	cfg := openAIConfig("http://127.0.0.1:1", "gpt-4o-mini")
	cfg.AIAPIKey = ""

	_, err := NewOpenAIInvoker(cfg, nil).Invoke(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestOpenAIInvoker_UpstreamError(t *testing.T) {
	srv := openAIServer(t, http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, nil)

	_, err := NewOpenAIInvoker(openAIConfig(srv.URL, "gpt-4o-mini"), nil).Invoke(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))
}

func TestOpenAIInvoker_EmptyResponse(t *testing.T) {
	srv := openAIServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"  "}}]}`, nil)

	_, err := NewOpenAIInvoker(openAIConfig(srv.URL, "gpt-4o-mini"), nil).Invoke(context.Background(), testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.True(t, apperrors.IsUpstream(err))
}

func TestOpenAIInvoker_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	cfg := openAIConfig(srv.URL, "gpt-4o-mini")
	cfg.AITimeout = 50 * time.Millisecond

	start := time.Now()
	_, err := NewOpenAIInvoker(cfg, nil).Invoke(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestOllamaInvoker_Success(t *testing.T) {
	var captured capturedRequest
	srv := openAIServer(t, http.StatusOK,
		`{"model":"llama3.1","message":{"role":"assistant","content":"{\"tasks\":[]}"},"done":true,"prompt_eval_count":80,"eval_count":20}`,
		&captured)

	cfg := openAIConfig(srv.URL+"/v1", "llama3.1")
	cfg.AIClientType = "ollama"
	cfg.AIAPIKey = ""

	inv, err := NewAIClient(cfg, nil)
	require.NoError(t, err)
	require.IsType(t, &OllamaInvoker{}, inv)

	req := testRequest()
	req.Mode = model.ModeEvolve
	res, err := inv.Invoke(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, `{"tasks":[]}`, res.Text)
	assert.Equal(t, Usage{PromptTokens: 80, CompletionTokens: 20, TotalTokens: 100}, res.Usage)
	assert.Equal(t, "/api/chat", captured.Path)
	assert.Equal(t, false, captured.Body["stream"])
	assert.Equal(t, map[string]any{"type": "object"}, captured.Body["format"])
	assert.InDelta(t, 0.7, captured.Body["options"].(map[string]any)["temperature"], 1e-6)
}

func TestOllamaInvoker_UpstreamError(t *testing.T) {
	srv := openAIServer(t, http.StatusInternalServerError, `{"error":"model not found"}`, nil)

	cfg := openAIConfig(srv.URL, "llama3.1")
	inv, err := NewOllamaInvoker(cfg, nil)
	require.NoError(t, err)

	_, err = inv.Invoke(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))
}

func TestNewAIClient(t *testing.T) {
	inv, err := NewAIClient(openAIConfig("http://localhost", "gpt-4o-mini"), nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIInvoker{}, inv)

	cfg := openAIConfig("http://localhost", "gpt-4o-mini")
	cfg.AIClientType = "bard"
	_, err = NewAIClient(cfg, nil)
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestToOllamaFormat(t *testing.T) {
	assert.Nil(t, toOllamaFormat(nil))
	assert.Nil(t, toOllamaFormat(&prompt.ResponseFormat{Type: prompt.FormatText}))
	assert.JSONEq(t, `"json"`, string(toOllamaFormat(&prompt.ResponseFormat{Type: prompt.FormatJSONObject})))
	assert.JSONEq(t, `{"type":"object"}`, string(toOllamaFormat(testRequest().ResponseFormat)))
}
