package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAI implements Provider against any OpenAI-compatible chat
// completions API. Replies are grounded in the configured knowledge
// documents; the system prompt forbids answering outside them.
type OpenAI struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	model     string
	knowledge []Document
}

// OpenAIOption configures an OpenAI provider.
type OpenAIOption func(*OpenAI)

// WithBaseURL sets a custom API base URL.
func WithBaseURL(url string) OpenAIOption {
	return func(p *OpenAI) { p.baseURL = strings.TrimSuffix(url, "/") }
}

// WithModel sets the model name.
func WithModel(model string) OpenAIOption {
	return func(p *OpenAI) { p.model = model }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(p *OpenAI) { p.client = c }
}

// WithKnowledge sets the documents the assistant may answer from.
func WithKnowledge(docs []Document) OpenAIOption {
	return func(p *OpenAI) { p.knowledge = docs }
}

// NewOpenAI creates an OpenAI-compatible provider.
func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAI {
	p := &OpenAI{
		client:  &http.Client{Timeout: 60 * time.Second},
		baseURL: "https://api.openai.com/v1",
		apiKey:  apiKey,
		model:   "gpt-4o-mini",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *OpenAI) Name() string { return "openai" }

func (p *OpenAI) Reply(ctx context.Context, req Request) (string, error) {
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("assistant: empty conversation")
	}

	msgs := []chatMessage{{Role: "system", Content: p.systemPrompt(req)}}
	for _, m := range recentMessages(req.Messages) {
		msgs = append(msgs, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	temp := 0.2
	payload, err := json.Marshal(chatRequest{
		Model:       p.model,
		Temperature: &temp,
		Messages:    msgs,
	})
	if err != nil {
		return "", fmt.Errorf("assistant: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("assistant: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("assistant: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("assistant: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("assistant: api error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("assistant: unmarshal response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("assistant: no choices in response")
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("assistant: empty completion")
	}
	return content, nil
}

func (p *OpenAI) systemPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are a support assistant for a research study. ")
	b.WriteString("Answer ONLY using the knowledge base content provided. ")
	b.WriteString("If the answer is not in the knowledge base, say you do not know based on the knowledge base. ")
	b.WriteString("Keep responses concise and professional.")

	if len(p.knowledge) > 0 {
		b.WriteString("\n\nKnowledge Base:\n")
		for i, doc := range p.knowledge {
			if i > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "# %s\n%s", doc.Title, doc.Content)
		}
	}

	if t := req.Ticket; t != nil {
		fmt.Fprintf(&b, "\n\nCurrent ticket context:\nID: %s\nSubject: %s\nDescription: %s",
			t.ID, t.Subject, t.Description)
	}
	return b.String()
}

// --- wire format ---

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature *float64      `json:"temperature,omitempty"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}
