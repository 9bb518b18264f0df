package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"innerbloom-server/internal/config"
	apperrors "innerbloom-server/internal/errors"
	"innerbloom-server/internal/prompt"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// OllamaInvoker calls a local Ollama server through its native chat API.
type OllamaInvoker struct {
	client  *api.Client
	model   string
	timeout time.Duration
	log     *zap.Logger
}

// NewOllamaInvoker creates the invoker. AIBaseURL points at the Ollama
// server; a trailing /v1 is ignored.
func NewOllamaInvoker(cfg config.Config, log *zap.Logger) (*OllamaInvoker, error) {
	if log == nil {
		log = zap.NewNop()
	}
	base := strings.TrimSuffix(strings.TrimSuffix(cfg.AIBaseURL, "/"), "/v1")
	base = strings.TrimSuffix(base, "/")
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, apperrors.WrapWithCodef(err, apperrors.CodeConfiguration, "invalid Ollama base URL %q", base)
	}
	log.Info("Ollama client created",
		zap.String("base_url", base),
		zap.String("model", cfg.AIModel),
		zap.Duration("timeout", cfg.AITimeout))
	return &OllamaInvoker{
		client:  api.NewClient(parsed, http.DefaultClient),
		model:   cfg.AIModel,
		timeout: cfg.AITimeout,
		log:     log.Named("OllamaInvoker"),
	}, nil
}

// Invoke sends req as one non-streaming chat call.
func (c *OllamaInvoker) Invoke(ctx context.Context, req InvokeRequest) (*InvokeResult, error) {
	if len(req.Messages) == 0 {
		return nil, apperrors.InvalidArgumentf("no messages to send")
	}

	messages := make([]api.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, api.Message{Role: m.Role, Content: m.Content})
	}

	temperature, filtered := samplingParams(c.model, req.Mode)
	options := map[string]interface{}{}
	if temperature != nil {
		options["temperature"] = *temperature
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
		Format:   toOllamaFormat(req.ResponseFormat),
		Options:  options,
	}

	log := c.log.With(zap.String("user_id", req.UserID), zap.String("mode", string(req.Mode)))
	log.Info("Sending model request",
		zap.String("model", c.model),
		zap.Int("message_count", len(req.Messages)),
		zap.String("response_format", formatType(req.ResponseFormat)),
		zap.Bool("params_filtered", filtered))

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	var resp api.ChatResponse
	var content strings.Builder
	err := c.client.Chat(callCtx, chatReq, func(r api.ChatResponse) error {
		content.WriteString(r.Message.Content)
		resp = r
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		status := statusError
		if errors.Is(err, context.DeadlineExceeded) {
			status = statusTimeout
		}
		observeRequest(c.model, string(req.Mode), status, duration, Usage{})
		log.Error("Model request failed", zap.Duration("duration", duration), zap.String("outcome", status), zap.Error(err))
		return nil, apperrors.Upstream(err, "model call failed")
	}

	text := content.String()
	if strings.TrimSpace(text) == "" {
		observeRequest(c.model, string(req.Mode), statusEmptyResponse, duration, Usage{})
		log.Error("Model returned an empty response", zap.Duration("duration", duration), zap.String("outcome", statusEmptyResponse))
		return nil, apperrors.Upstream(ErrEmptyResponse, "model call failed")
	}

	usage := Usage{
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
	}
	observeRequest(c.model, string(req.Mode), statusSuccess, duration, usage)
	log.Info("Model response received",
		zap.Duration("duration", duration),
		zap.String("outcome", statusSuccess),
		zap.Int("chars", len(text)),
		zap.Int("total_tokens", usage.TotalTokens))

	return &InvokeResult{
		Text:           text,
		Model:          c.model,
		Duration:       duration,
		Usage:          usage,
		ParamsFiltered: filtered,
	}, nil
}

// toOllamaFormat maps a response format to Ollama's format field, which takes
// either a JSON schema or the string "json".
func toOllamaFormat(f *prompt.ResponseFormat) json.RawMessage {
	if f == nil {
		return nil
	}
	switch f.Type {
	case prompt.FormatJSONSchema:
		if schema := f.Schema(); schema != nil {
			return schema
		}
		return json.RawMessage(`"json"`)
	case prompt.FormatJSONObject:
		return json.RawMessage(`"json"`)
	default:
		return nil
	}
}
