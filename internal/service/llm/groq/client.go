// Package groq talks to an OpenAI-compatible chat completions endpoint and
// exposes it as an eino chat model.
package groq

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama3-8b-8192"

	completionsPath = "/chat/completions"
)

var (
	ErrNoChoices            = errors.New("completion response has no choices")
	ErrNoContent            = errors.New("completion choice has no message content")
	ErrStreamingUnsupported = errors.New("groq client does not stream")
	ErrToolsUnsupported     = errors.New("groq client does not support tools")
)

// Config 描述补全接口的连接参数。
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// Client implements model.ChatModel over a single blocking HTTP round trip.
type Client struct {
	apiKey   string
	endpoint string
	model    string
	http     *http.Client
}

var _ model.ChatModel = (*Client)(nil)

// NewClient 创建客户端。APIKey 不做校验，缺失时由服务端返回错误。
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	modelID := strings.TrimSpace(cfg.Model)
	if modelID == "" {
		modelID = DefaultModel
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		apiKey:   cfg.APIKey,
		endpoint: baseURL + completionsPath,
		model:    modelID,
		http:     httpClient,
	}
}

// Model returns the model identifier sent with every request.
func (c *Client) Model() string {
	return c.model
}

// Endpoint returns the full completions URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type completionRequest struct {
	Model    string              `json:"model"`
	Messages []completionMessage `json:"messages"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate posts the messages and returns the first choice as an assistant message.
func (c *Client) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	payload := completionRequest{
		Model:    c.model,
		Messages: make([]completionMessage, 0, len(input)),
	}
	for _, msg := range input {
		if msg == nil {
			continue
		}
		payload.Messages = append(payload.Messages, completionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	body, err := sonic.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{URL: c.endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: c.endpoint, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, URL: c.endpoint, Body: string(raw)}
	}

	var decoded completionResponse
	if err := sonic.Unmarshal(raw, &decoded); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if len(decoded.Choices) == 0 {
		return nil, ErrNoChoices
	}

	content := decoded.Choices[0].Message.Content
	if content == nil {
		return nil, ErrNoContent
	}

	return schema.AssistantMessage(*content, nil), nil
}

// Stream is not offered; replies arrive in one piece.
func (c *Client) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, ErrStreamingUnsupported
}

// BindTools is not offered.
func (c *Client) BindTools(_ []*schema.ToolInfo) error {
	return ErrToolsUnsupported
}
