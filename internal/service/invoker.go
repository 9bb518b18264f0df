// Package service talks to the external generative model.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"innerbloom-server/internal/config"
	apperrors "innerbloom-server/internal/errors"
	"innerbloom-server/internal/model"
	"innerbloom-server/internal/prompt"

	"go.uber.org/zap"
)

// ErrEmptyResponse is returned when the model answers with no content.
var ErrEmptyResponse = errors.New("model returned an empty response")

// InvokeRequest is one model call.
type InvokeRequest struct {
	UserID         string
	Mode           model.Mode
	Messages       []prompt.Message
	ResponseFormat *prompt.ResponseFormat
}

// Usage holds token counts reported by the backend.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// InvokeResult is the raw model answer.
type InvokeResult struct {
	Text           string
	Model          string
	Duration       time.Duration
	Usage          Usage
	ParamsFiltered bool
}

// ModelInvoker performs a single model call. Implementations never retry.
type ModelInvoker interface {
	Invoke(ctx context.Context, req InvokeRequest) (*InvokeResult, error)
}

const (
	focusedTemperature  = 0.2
	creativeTemperature = 0.7
)

var reasoningModelPrefixes = []string{"o1", "o3", "o4", "gpt-5"}

// TemperatureFor returns the sampling temperature of mode.
func TemperatureFor(mode model.Mode) float32 {
	switch mode {
	case model.ModeLow, model.ModeChill:
		return focusedTemperature
	default:
		return creativeTemperature
	}
}

// IsReasoningModel reports whether name belongs to a model family that
// rejects sampling parameters.
func IsReasoningModel(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if i := strings.LastIndex(n, "/"); i >= 0 {
		n = n[i+1:]
	}
	for _, p := range reasoningModelPrefixes {
		if strings.HasPrefix(n, p) {
			return true
		}
	}
	return false
}

// samplingParams returns the temperature to send. Reasoning models get none
// and filtered is set.
func samplingParams(modelName string, mode model.Mode) (temperature *float32, filtered bool) {
	if IsReasoningModel(modelName) {
		return nil, true
	}
	t := TemperatureFor(mode)
	return &t, false
}

func formatType(f *prompt.ResponseFormat) string {
	if f == nil {
		return "none"
	}
	return f.Type
}

// NewAIClient builds the invoker selected by cfg.AIClientType.
func NewAIClient(cfg config.Config, log *zap.Logger) (ModelInvoker, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch strings.ToLower(cfg.AIClientType) {
	case "openai", "":
		log.Info("Using OpenAI-compatible model invoker")
		return NewOpenAIInvoker(cfg, log), nil
	case "ollama":
		log.Info("Using Ollama model invoker")
		return NewOllamaInvoker(cfg, log)
	default:
		return nil, apperrors.Configurationf("unknown AI client type %q", cfg.AIClientType)
	}
}
