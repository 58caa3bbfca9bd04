package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"venture-backend/internal/agent"
)

const defaultAPIURL = "https://api.openai.com/v1/chat/completions"

// Client implements agent.Agent using OpenAI Chat Completions.
type Client struct {
	apiKey     string
	model      string
	apiURL     string
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client.
func NewClient(apiKey, model string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("AGENT_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if raw := strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &Client{
		apiKey: apiKey,
		model:  model,
		apiURL: defaultAPIURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    *float32       `json:"temperature,omitempty"`
	ResponseFormat responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Run produces one analysis document for the given kind and profile.
func (c *Client) Run(ctx context.Context, kind string, profile agent.Profile) (json.RawMessage, error) {
	if strings.TrimSpace(profile.Name) == "" {
		return nil, agent.NewError(kind, agent.CodeInvalidProfile, errors.New("profile name is empty"))
	}

	messages, err := BuildPrompt(kind, profile)
	if err != nil {
		return nil, agent.NewError(kind, agent.CodeInvalidProfile, err)
	}

	raw, err := c.completeOnce(ctx, kind, messages)
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, agent.NewError(kind, agent.CodeUpstreamFailure, errors.New("invalid JSON from OpenAI"))
	}
	return raw, nil
}

func (c *Client) completeOnce(ctx context.Context, kind string, messages []Message) (json.RawMessage, error) {
	temp := float32(0)
	reqMessages := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		reqMessages = append(reqMessages, chatMessage{Role: m.Role, Content: m.Content})
	}
	reqBody := chatRequest{
		Model:    c.model,
		Messages: reqMessages,
		ResponseFormat: responseFormat{
			Type: "json_object",
		},
	}
	reqBody.Temperature = &temp
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, agent.NewError(kind, agent.CodeUpstreamFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, agent.NewError(kind, agent.CodeUpstreamFailure, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, agent.NewError(kind, agent.CodeTimeout, err)
		}
		return nil, agent.NewError(kind, agent.CodeUpstreamFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, agent.NewError(kind, agent.CodeUpstreamFailure, err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, agent.NewError(kind, agent.CodeUpstreamFailure, fmt.Errorf("openai response parse: %w", err))
	}
	if parsed.Error != nil {
		return nil, agent.NewError(kind, agent.CodeUpstreamFailure, fmt.Errorf("openai error: %s (%s)", parsed.Error.Message, parsed.Error.Type))
	}
	if len(parsed.Choices) == 0 {
		return nil, agent.NewError(kind, agent.CodeUpstreamFailure, errors.New("openai response missing choices"))
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return nil, agent.NewError(kind, agent.CodeUpstreamFailure, errors.New("openai response empty content"))
	}
	logUsage(c.model, kind, parsed.Usage)
	return json.RawMessage(content), nil
}

func logUsage(model, kind string, usage *struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}) {
	if usage == nil {
		log.Printf("agent response model=%s kind=%s", model, kind)
		return
	}
	log.Printf("agent response model=%s kind=%s prompt_tokens=%d completion_tokens=%d total_tokens=%d",
		model, kind, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
}

var _ agent.Agent = (*Client)(nil)
