// Package llm layers cross-cutting concerns over llmclient.Client values.
package llm

import (
	"context"
	"log"

	"compforge/internal/llmclient"
)

// Middleware decorates a Client to inject cross-cutting concerns.
type Middleware func(llmclient.Client) llmclient.Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.Client, mws ...Middleware) llmclient.Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// RateLimit limits request rate with a token bucket. If rps <= 0 the
// limiter is disabled.
func RateLimit(rps float64, burst int) Middleware {
	return func(next llmclient.Client) llmclient.Client {
		return &rateLimited{next: next, rl: newRPSLimiter(rps, burst)}
	}
}

type rateLimited struct {
	next llmclient.Client
	rl   *rpsLimiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error {
	c.rl.Stop()
	return c.next.Close()
}

func (c *rateLimited) Generate(ctx context.Context, req llmclient.Request) (llmclient.RawResponse, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return llmclient.RawResponse{}, err
	}
	return c.next.Generate(ctx, req)
}

// WithLogging logs request size and errors. Pass nil for log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next llmclient.Client) llmclient.Client {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next llmclient.Client
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }

func (l *logging) Generate(ctx context.Context, req llmclient.Request) (llmclient.RawResponse, error) {
	stage := llmclient.StageFrom(ctx)
	l.log.Printf("llm request (%s via %s): %d bytes", stage, l.next.Name(), len(req.Prompt)+len(req.Input))
	resp, err := l.next.Generate(ctx, req)
	if err != nil {
		l.log.Printf("llm error (%s via %s): %v", stage, l.next.Name(), err)
	}
	return resp, err
}
