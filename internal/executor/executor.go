// Package executor runs one pipeline stage against the external generation
// capability and shapes the response into a canonical stage result.
package executor

import (
	"context"
	"errors"
	"time"

	"compforge/internal/llmclient"
	"compforge/internal/selector"
)

// StageResult is the canonical output of one stage. It is immutable after
// creation; the orchestrator merges it into the run's shared context.
type StageResult struct {
	Stage   string
	Payload map[string]any
}

// Prompt is the payload handed to the generation capability for one stage.
type Prompt struct {
	System string
	Input  string
	Image  []byte
}

// ClientProvider resolves a client for a backend configuration.
type ClientProvider interface {
	ClientFor(ctx context.Context, provider, model string) (llmclient.Client, error)
}

// DefaultTimeout bounds one stage call.
const DefaultTimeout = 120 * time.Second

// Executor invokes the generation capability for single stages. It holds no
// per-run state and is safe for concurrent use.
type Executor struct {
	clients ClientProvider
	timeout time.Duration
}

// New creates an executor. timeout <= 0 selects DefaultTimeout.
func New(clients ClientProvider, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{clients: clients, timeout: timeout}
}

// Run executes one stage call and validates the result shape. It fails with
// GenerationError (TimeoutError on deadline), MalformedResultError when the
// response cannot be parsed, or ValidationError when a required key is
// absent from an otherwise well-formed payload. It has no side effects
// beyond the external call.
func (e *Executor) Run(ctx context.Context, stage string, prompt Prompt, cfg selector.BackendConfig, history []llmclient.Turn, required ...string) (StageResult, error) {
	var zero StageResult

	cli, err := e.clients.ClientFor(ctx, cfg.Provider, cfg.Model)
	if err != nil {
		return zero, &GenerationError{Stage: stage, Err: err, Retryable: false}
	}

	callCtx, cancel := context.WithTimeout(llmclient.WithStage(ctx, stage), e.timeout)
	defer cancel()

	resp, err := cli.Generate(callCtx, llmclient.Request{
		Prompt:      prompt.System,
		Input:       prompt.Input,
		Image:       prompt.Image,
		History:     history,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return zero, &TimeoutError{GenerationError{Stage: stage, Err: err, Retryable: true}}
		}
		var pErr *llmclient.PermanentError
		return zero, &GenerationError{Stage: stage, Err: err, Retryable: !errors.As(err, &pErr)}
	}

	text, err := normalizeResponse(resp)
	if err != nil {
		return zero, &MalformedResultError{Stage: stage, Err: err}
	}
	payload, err := extractJSON(text)
	if err != nil {
		return zero, &MalformedResultError{Stage: stage, Raw: text, Err: err}
	}
	for _, key := range required {
		v, ok := payload[key]
		if !ok || v == nil {
			return zero, &ValidationError{Stage: stage, MissingKey: key}
		}
		if s, isStr := v.(string); isStr && s == "" {
			return zero, &ValidationError{Stage: stage, MissingKey: key}
		}
	}
	return StageResult{Stage: stage, Payload: payload}, nil
}

// TruncateHistory keeps the most recent n turns.
func TruncateHistory(turns []llmclient.Turn, n int) []llmclient.Turn {
	if n <= 0 || len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
