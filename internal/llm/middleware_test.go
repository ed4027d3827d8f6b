package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"compforge/internal/llmclient"
)

type countingClient struct {
	calls int
	err   error
}

func (c *countingClient) Name() string { return "counting" }
func (c *countingClient) Close() error { return nil }
func (c *countingClient) Generate(_ context.Context, _ llmclient.Request) (llmclient.RawResponse, error) {
	c.calls++
	if c.err != nil {
		return llmclient.RawResponse{}, c.err
	}
	return llmclient.RawResponse{Text: "{}"}, nil
}

func TestWrapOrder(t *testing.T) {
	inner := &countingClient{}
	var order []string
	mw := func(tag string) Middleware {
		return func(next llmclient.Client) llmclient.Client {
			return clientFunc(func(ctx context.Context, req llmclient.Request) (llmclient.RawResponse, error) {
				order = append(order, tag)
				return next.Generate(ctx, req)
			})
		}
	}
	cli := Wrap(inner, mw("a"), mw("b"))
	if _, err := cli.Generate(context.Background(), llmclient.Request{}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("unexpected order: %v", order)
	}
}

type clientFunc func(ctx context.Context, req llmclient.Request) (llmclient.RawResponse, error)

func (f clientFunc) Name() string { return "func" }
func (f clientFunc) Close() error { return nil }
func (f clientFunc) Generate(ctx context.Context, req llmclient.Request) (llmclient.RawResponse, error) {
	return f(ctx, req)
}

func TestRateLimitDisabled(t *testing.T) {
	inner := &countingClient{}
	cli := RateLimit(0, 0)(inner)
	for i := 0; i < 10; i++ {
		if _, err := cli.Generate(context.Background(), llmclient.Request{}); err != nil {
			t.Fatalf("generate %d: %v", i, err)
		}
	}
	if inner.calls != 10 {
		t.Fatalf("expected 10 calls, got %d", inner.calls)
	}
}

func TestRateLimitHonorsContextCancel(t *testing.T) {
	inner := &countingClient{}
	// Burst 1 at a very slow refill; second call must block until cancel.
	cli := RateLimit(0.01, 1)(inner)
	if _, err := cli.Generate(context.Background(), llmclient.Request{}); err != nil {
		t.Fatalf("first generate: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := cli.Generate(ctx, llmclient.Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestLoggingPassesThroughErrors(t *testing.T) {
	wantErr := errors.New("backend down")
	inner := &countingClient{err: wantErr}
	cli := WithLogging(nil)(inner)
	_, err := cli.Generate(context.Background(), llmclient.Request{})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected passthrough error, got %v", err)
	}
}
