// Package llmclient wraps external generation providers behind a single
// client contract. Clients focus on the API call itself; cross-cutting
// concerns (rate limiting, logging) are layered on via llm.Middleware.
package llmclient

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Turn is one prior conversation turn, oldest first.
type Turn struct {
	Role    string // "user" or "system"
	Content string
	Image   []byte
}

// Request is a single generation call.
type Request struct {
	Prompt      string // stage system prompt
	Input       string // user payload for this call
	Image       []byte // optional single attachment
	History     []Turn // prior turns, already truncated by the caller
	Model       string
	Temperature float32
	MaxTokens   int
}

// Choice is one candidate in a chat-completions style response.
type Choice struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Block is one content block in a block-list style response.
type Block struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// RawResponse is a provider response before normalization. Providers fill
// exactly one shape: Choices (chat-completions), Text (plain), or Blocks
// (block list). Normalization into canonical text happens downstream.
type RawResponse struct {
	Choices []Choice
	Text    string
	Blocks  []Block
}

// Client is a single provider connection.
type Client interface {
	Name() string
	Generate(ctx context.Context, req Request) (RawResponse, error)
	Close() error
}

// Factory builds a client for one model of a provider.
type Factory func(ctx context.Context, model string) (Client, error)

// Registry maps provider names to factories and caches built clients per
// provider/model pair.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	clients   map[string]Client
	wrap      func(Client) Client
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		clients:   make(map[string]Client),
	}
}

// Register adds a provider factory. Later registrations replace earlier ones.
func (r *Registry) Register(provider string, f Factory) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" || f == nil {
		return
	}
	r.mu.Lock()
	r.factories[provider] = f
	r.mu.Unlock()
}

// SetWrapper installs a decoration applied to every client built by the
// registry (the middleware chain).
func (r *Registry) SetWrapper(wrap func(Client) Client) {
	r.mu.Lock()
	r.wrap = wrap
	r.mu.Unlock()
}

// ClientFor returns a cached or newly built client for provider/model.
func (r *Registry) ClientFor(ctx context.Context, provider, model string) (Client, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	key := provider + "::" + strings.TrimSpace(model)

	r.mu.Lock()
	defer r.mu.Unlock()
	if cli, ok := r.clients[key]; ok {
		return cli, nil
	}
	f, ok := r.factories[provider]
	if !ok {
		return nil, fmt.Errorf("llmclient: provider %q is not registered", provider)
	}
	cli, err := f(ctx, model)
	if err != nil {
		return nil, err
	}
	if r.wrap != nil {
		cli = r.wrap(cli)
	}
	r.clients[key] = cli
	return cli, nil
}

// Close closes every cached client.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for _, cli := range r.clients {
		if err := cli.Close(); err != nil && first == nil {
			first = err
		}
	}
	r.clients = make(map[string]Client)
	return first
}
