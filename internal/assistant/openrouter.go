package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MaxHistory is the number of prior messages forwarded to the model.
const MaxHistory = 10

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	appURL         = "https://github.com/polydelta/polydelta"
	appTitle       = "PolyDelta"
)

// ErrNotConfigured is returned by Reply when no API key is set.
var ErrNotConfigured = errors.New("assistant: OPENROUTER_API_KEY not configured")

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Assistant answers a user's question about a market.
type Assistant interface {
	Reply(ctx context.Context, marketContext string, history []Message) (string, error)
}

const persona = `You are PolyDelta, a sharp and friendly sports trading analyst.
You compare bookmaker odds with Polymarket prices and explain expected value,
Kelly sizing, fees, hedges and cash-outs in plain language.
Only use the numbers in the MARKET DATA block. If a number is missing, say so
instead of guessing. Keep answers under 150 words. This is not financial advice.`

// TrimHistory keeps the last n messages, dropping any system messages the
// caller sent.
func TrimHistory(history []Message, n int) []Message {
	out := make([]Message, 0, len(history))
	for _, m := range history {
		if m.Role == RoleUser || m.Role == RoleAssistant {
			out = append(out, m)
		}
	}
	if n >= 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

// OpenRouter calls an OpenAI-compatible chat completions endpoint.
type OpenRouter struct {
	baseURL     string
	apiKey      string
	model       string
	httpClient  *http.Client
	MaxTokens   int
	Temperature float64
}

// NewOpenRouter creates a client for model. An empty apiKey yields a client
// whose Reply always returns ErrNotConfigured.
func NewOpenRouter(apiKey, model string) *OpenRouter {
	return &OpenRouter{
		baseURL:     DefaultBaseURL,
		apiKey:      apiKey,
		model:       model,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		MaxTokens:   800,
		Temperature: 0.7,
	}
}

// WithBaseURL points the client at another endpoint.
func (o *OpenRouter) WithBaseURL(u string) *OpenRouter {
	o.baseURL = strings.TrimRight(u, "/")
	return o
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			Reasoning string `json:"reasoning"`
		} `json:"message"`
	} `json:"choices"`
}

// Reply sends the persona, the market context and the trimmed history.
func (o *OpenRouter) Reply(ctx context.Context, marketContext string, history []Message) (string, error) {
	if o.apiKey == "" {
		return "", ErrNotConfigured
	}

	msgs := []Message{{Role: RoleSystem, Content: persona + "\n\nMARKET DATA:\n" + marketContext}}
	msgs = append(msgs, TrimHistory(history, MaxHistory)...)

	body, err := json.Marshal(chatRequest{
		Model:       o.model,
		Messages:    msgs,
		MaxTokens:   o.MaxTokens,
		Temperature: o.Temperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("HTTP-Referer", appURL)
	req.Header.Set("X-Title", appTitle)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("chat API error %d: %s", resp.StatusCode, string(msg))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := out.Choices[0].Message.Content
	if content == "" {
		content = out.Choices[0].Message.Reasoning
	}
	return cleanReply(content), nil
}

// cleanReply strips reasoning traces and markdown fences.
func cleanReply(s string) string {
	if i := strings.LastIndex(s, "</think>"); i >= 0 {
		s = s[i+len("</think>"):]
	}
	for _, fence := range []string{"```markdown", "```json", "```"} {
		s = strings.ReplaceAll(s, fence, "")
	}
	return strings.TrimSpace(s)
}
