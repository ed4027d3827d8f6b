package llmclient

import "context"

type ctxKeyStage struct{}

// WithStage tags the context with the pipeline stage issuing the call.
// Clients may use it for logging; the fake client keys canned output on it.
func WithStage(ctx context.Context, stage string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKeyStage{}, stage)
}

// StageFrom extracts the stage tag, or "" when absent.
func StageFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxKeyStage{}).(string); ok {
		return v
	}
	return ""
}
