package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// GroqClient calls the Groq Chat Completions API (OpenAI-compatible). It
// responds in the choice/role shape.
// See: https://console.groq.com/docs/api-reference
type GroqClient struct {
	http    *http.Client
	apiKey  string
	model   string
	baseURL string
}

// NewGroqClient creates a Groq client. If apiKey is empty, it falls back to
// the GROQ_API_KEY env var.
func NewGroqClient(apiKey, model string) (*GroqClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}
	return &GroqClient{
		http:    &http.Client{Timeout: 60 * time.Second},
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.groq.com/openai/v1/chat/completions",
	}, nil
}

func (g *GroqClient) Name() string { return "Groq:" + g.model }
func (g *GroqClient) Close() error { return nil }

type groqChatReq struct {
	Model          string            `json:"model"`
	Messages       []groqMessage     `json:"messages"`
	Temperature    float32           `json:"temperature,omitempty"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}
type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
type groqChatResp struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (g *GroqClient) Generate(ctx context.Context, req Request) (RawResponse, error) {
	if len(req.Image) > 0 {
		return RawResponse{}, NewPermanentError(fmt.Errorf("groq: image attachments are not supported"))
	}

	messages := make([]groqMessage, 0, len(req.History)+2)
	messages = append(messages, groqMessage{Role: "system", Content: req.Prompt})
	for _, turn := range req.History {
		role := "user"
		if turn.Role != "user" {
			role = "assistant"
		}
		messages = append(messages, groqMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, groqMessage{Role: "user", Content: req.Input})

	model := req.Model
	if model == "" {
		model = g.model
	}
	body := groqChatReq{
		Model:          model,
		Messages:       messages,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
		ResponseFormat: map[string]string{"type": "json_object"},
	}
	b, _ := json.Marshal(body)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(b))
	if err != nil {
		return RawResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return RawResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		const max = 2048
		if len(raw) > max {
			raw = raw[:max]
		}
		err := fmt.Errorf("groq: unexpected status %s: %s", resp.Status, string(raw))
		if resp.StatusCode == 400 && strings.Contains(string(raw), `"code":"context_length_exceeded"`) {
			return RawResponse{}, NewPermanentError(err)
		}
		return RawResponse{}, err
	}

	var out groqChatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return RawResponse{}, err
	}
	if len(out.Choices) == 0 {
		return RawResponse{}, ErrEmptyResponse
	}
	choices := make([]Choice, 0, len(out.Choices))
	for _, c := range out.Choices {
		choices = append(choices, Choice{Role: c.Message.Role, Content: c.Message.Content})
	}
	return RawResponse{Choices: choices}, nil
}
