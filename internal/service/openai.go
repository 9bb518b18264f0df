package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"innerbloom-server/internal/config"
	apperrors "innerbloom-server/internal/errors"
	"innerbloom-server/internal/prompt"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIInvoker calls an OpenAI-compatible chat completions API.
type OpenAIInvoker struct {
	client  *openaigo.Client
	apiKey  string
	model   string
	timeout time.Duration
	log     *zap.Logger
}

// NewOpenAIInvoker creates the invoker. A missing API key is only reported
// when Invoke is called, so runs that never reach the model do not need one.
func NewOpenAIInvoker(cfg config.Config, log *zap.Logger) *OpenAIInvoker {
	if log == nil {
		log = zap.NewNop()
	}
	clientCfg := openaigo.DefaultConfig(cfg.AIAPIKey)
	if cfg.AIBaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.AIBaseURL, "/")
	}
	log.Info("OpenAI client created",
		zap.String("base_url", clientCfg.BaseURL),
		zap.String("model", cfg.AIModel),
		zap.Duration("timeout", cfg.AITimeout))
	return &OpenAIInvoker{
		client:  openaigo.NewClientWithConfig(clientCfg),
		apiKey:  cfg.AIAPIKey,
		model:   cfg.AIModel,
		timeout: cfg.AITimeout,
		log:     log.Named("OpenAIInvoker"),
	}
}

// Invoke sends req as one chat completion.
func (c *OpenAIInvoker) Invoke(ctx context.Context, req InvokeRequest) (*InvokeResult, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, apperrors.Configurationf("AI_API_KEY is not set")
	}
	if len(req.Messages) == 0 {
		return nil, apperrors.InvalidArgumentf("no messages to send")
	}

	temperature, filtered := samplingParams(c.model, req.Mode)
	chatReq := openaigo.ChatCompletionRequest{
		Model:          c.model,
		Messages:       toOpenAIMessages(req.Messages),
		ResponseFormat: toOpenAIFormat(req.ResponseFormat),
	}
	if temperature != nil {
		chatReq.Temperature = *temperature
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
	resp, err := c.client.CreateChatCompletion(callCtx, chatReq)
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

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		observeRequest(c.model, string(req.Mode), statusEmptyResponse, duration, Usage{})
		log.Error("Model returned an empty response", zap.Duration("duration", duration), zap.String("outcome", statusEmptyResponse))
		return nil, apperrors.Upstream(ErrEmptyResponse, "model call failed")
	}

	usage := Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	modelName := resp.Model
	if modelName == "" {
		modelName = c.model
	}
	observeRequest(c.model, string(req.Mode), statusSuccess, duration, usage)
	log.Info("Model response received",
		zap.Duration("duration", duration),
		zap.String("outcome", statusSuccess),
		zap.Int("chars", len(resp.Choices[0].Message.Content)),
		zap.Int("total_tokens", usage.TotalTokens))

	return &InvokeResult{
		Text:           resp.Choices[0].Message.Content,
		Model:          modelName,
		Duration:       duration,
		Usage:          usage,
		ParamsFiltered: filtered,
	}, nil
}

func toOpenAIMessages(msgs []prompt.Message) []openaigo.ChatCompletionMessage {
	out := make([]openaigo.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		role := openaigo.ChatMessageRoleUser
		if m.Role == prompt.RoleSystem {
			role = openaigo.ChatMessageRoleSystem
		}
		out = append(out, openaigo.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

func toOpenAIFormat(f *prompt.ResponseFormat) *openaigo.ChatCompletionResponseFormat {
	if f == nil {
		return nil
	}
	switch f.Type {
	case prompt.FormatJSONSchema:
		if f.JSONSchema == nil {
			return &openaigo.ChatCompletionResponseFormat{Type: openaigo.ChatCompletionResponseFormatTypeJSONObject}
		}
		return &openaigo.ChatCompletionResponseFormat{
			Type: openaigo.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openaigo.ChatCompletionResponseFormatJSONSchema{
				Name:        f.JSONSchema.Name,
				Description: f.JSONSchema.Description,
				Schema:      f.JSONSchema.Schema,
				Strict:      f.JSONSchema.Strict,
			},
		}
	case prompt.FormatJSONObject:
		return &openaigo.ChatCompletionResponseFormat{Type: openaigo.ChatCompletionResponseFormatTypeJSONObject}
	case prompt.FormatText:
		return &openaigo.ChatCompletionResponseFormat{Type: openaigo.ChatCompletionResponseFormatTypeText}
	default:
		return nil
	}
}
