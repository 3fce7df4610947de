package openai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
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

	"traveldocs-backend/internal/llm"
	"traveldocs-backend/internal/shared/resilience"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client implements llm.Completer against an OpenAI-compatible Chat Completions API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	exec       *resilience.Executor
}

// NewClient constructs a client. A nil executor disables retries and the breaker.
func NewClient(baseURL, apiKey, model string, exec *resilience.Executor) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	timeout := 120 * time.Second
	if raw := strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		exec:       exec,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
	Strict bool            `json:"strict"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Complete sends one chat completion. Transport failures go through the
// executor; a rejected temperature is retried once without it.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	body := c.buildRequest(req)
	hash := hashPromptString(promptStringFromMessages(req.Messages))

	if !useTemperature(c.model) {
		body.Temperature = nil
	}
	resp, err := c.execute(ctx, req.Operation, body)
	if err != nil && body.Temperature != nil && isTemperatureUnsupported(err) {
		log.Printf("llm temperature unsupported model=%s, retrying without temperature", c.model)
		body.Temperature = nil
		resp, err = c.execute(ctx, req.Operation, body)
	}
	if err != nil {
		return llm.Response{}, err
	}

	resp.PromptHash = hash
	logUsage(c.model, req.Operation, hash, resp.Usage)
	return resp, nil
}

func (c *Client) buildRequest(req llm.Request) chatRequest {
	temp := float32(0)
	out := chatRequest{
		Model:       c.model,
		Messages:    make([]chatMessage, 0, len(req.Messages)),
		Temperature: &temp,
		MaxTokens:   req.MaxTokens,
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, toChatMessage(m))
	}
	switch req.Format.Type {
	case llm.FormatJSONSchema:
		name := req.Format.Name
		if name == "" {
			name = "response"
		}
		out.ResponseFormat = &responseFormat{
			Type:       llm.FormatJSONSchema,
			JSONSchema: &jsonSchema{Name: name, Schema: req.Format.Schema, Strict: req.Format.Strict},
		}
	case llm.FormatJSONObject:
		out.ResponseFormat = &responseFormat{Type: llm.FormatJSONObject}
	}
	return out
}

func toChatMessage(m llm.Message) chatMessage {
	if len(m.Parts) == 0 {
		return chatMessage{Role: m.Role, Content: m.Content}
	}
	parts := make([]contentPart, 0, len(m.Parts)+1)
	if strings.TrimSpace(m.Content) != "" {
		parts = append(parts, contentPart{Type: "text", Text: m.Content})
	}
	for _, p := range m.Parts {
		if p.IsImage() {
			parts = append(parts, contentPart{
				Type:     "image_url",
				ImageURL: &imageURL{URL: "data:" + p.ImageMIME + ";base64," + p.ImageBase64, Detail: "high"},
			})
			continue
		}
		parts = append(parts, contentPart{Type: "text", Text: p.Text})
	}
	return chatMessage{Role: m.Role, Content: parts}
}

func (c *Client) execute(ctx context.Context, operation string, body chatRequest) (llm.Response, error) {
	var out llm.Response
	call := func(ctx context.Context) error {
		resp, err := c.do(ctx, body)
		if err != nil {
			return err
		}
		out = resp
		return nil
	}
	if c.exec == nil {
		return out, call(ctx)
	}
	op := "llm." + strings.TrimSpace(operation)
	if err := c.exec.Execute(ctx, op, call, resilience.ClassifyHTTP); err != nil {
		return llm.Response{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, body chatRequest) (llm.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return llm.Response{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return llm.Response{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return llm.Response{}, fmt.Errorf("openai request timeout: %w", err)
		}
		return llm.Response{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.Response{}, err
	}

	var parsed chatResponse
	parseErr := json.Unmarshal(raw, &parsed)
	if resp.StatusCode >= 400 {
		msg := strings.TrimSpace(string(raw))
		if parseErr == nil && parsed.Error != nil {
			msg = fmt.Sprintf("%s (%s)", parsed.Error.Message, parsed.Error.Type)
		}
		return llm.Response{}, &resilience.HTTPStatusError{StatusCode: resp.StatusCode, Body: msg}
	}
	if parseErr != nil {
		return llm.Response{}, fmt.Errorf("openai response parse: %w", parseErr)
	}
	if parsed.Error != nil {
		// Some compatible gateways report errors with a 200 status.
		return llm.Response{}, &resilience.HTTPStatusError{
			StatusCode: http.StatusBadRequest,
			Body:       fmt.Sprintf("%s (%s)", parsed.Error.Message, parsed.Error.Type),
		}
	}
	if len(parsed.Choices) == 0 {
		return llm.Response{}, fmt.Errorf("openai response missing choices")
	}
	choice := parsed.Choices[0]
	if choice.Message.Refusal != "" {
		return llm.Response{}, fmt.Errorf("openai refused: %s", choice.Message.Refusal)
	}
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return llm.Response{}, fmt.Errorf("openai response empty content (finish_reason=%s)", choice.FinishReason)
	}

	out := llm.Response{Content: content, Model: parsed.Model}
	if parsed.Usage != nil {
		out.Usage = llm.Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		}
	}
	return out, nil
}

func isTemperatureUnsupported(err error) bool {
	var statusErr *resilience.HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(statusErr.Body)
	return strings.Contains(msg, "temperature") &&
		(strings.Contains(msg, "unsupported") || strings.Contains(msg, "does not support"))
}

// useTemperature is false for gpt-5 models and anything listed in LLM_NO_TEMP0_MODELS.
func useTemperature(model string) bool {
	if isGPT5(model) {
		return false
	}
	m := strings.ToLower(strings.TrimSpace(model))
	for _, denied := range strings.Split(os.Getenv("LLM_NO_TEMP0_MODELS"), ",") {
		if d := strings.ToLower(strings.TrimSpace(denied)); d != "" && d == m {
			return false
		}
	}
	return true
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

func logUsage(model, operation, promptHash string, usage llm.Usage) {
	log.Printf("llm response model=%s op=%s prompt_hash=%s prompt_tokens=%d completion_tokens=%d total_tokens=%d",
		model, operation, shortHash(promptHash), usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
}

// promptStringFromMessages flattens messages for hashing. Images contribute
// their length so large payloads are not hashed twice.
func promptStringFromMessages(messages []llm.Message) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		for _, p := range m.Parts {
			if p.IsImage() {
				fmt.Fprintf(&b, "[image %s %d]", p.ImageMIME, len(p.ImageBase64))
				continue
			}
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func hashPromptString(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

var _ llm.Completer = (*Client)(nil)
