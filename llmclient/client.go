package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"faq-assistant/config"
	apperrors "faq-assistant/errors"

	"go.uber.org/zap"
)

// Message is a single chat message in the OpenAI wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// Embedding request/response mirror llama.cpp's expected schema
type embeddingRequest struct {
	Content string `json:"content"`
}

type embeddingResponse []struct {
	Embedding [][]float32 `json:"embedding"`
}

// Client talks to an OpenAI-compatible chat completion API (OpenRouter by
// default) and to a llama.cpp embedding server.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	logger     *zap.Logger
}

func New(cfg *config.Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	// A zero timeout means the call waits as long as the request context allows.
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.LLMRequestTimeout},
		logger:     logger,
	}
}

// Complete sends prompt as a single user message and returns the content of
// the first choice. Every failure is marked with ErrLLMCommunication.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	answer, err := c.complete(ctx, prompt)
	if err != nil {
		return "", apperrors.Mark(err, apperrors.ErrLLMCommunication)
	}
	return answer, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model:    c.cfg.ModelID,
		Messages: []Message{{Role: "user", Content: prompt}},
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(c.cfg.LLMBaseURL, "/"))
	c.logger.Info("Sending chat completion request", zap.String("model", c.cfg.ModelID))

	resp, err := c.post(ctx, url, jsonBody, c.setChatHeaders)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm server status %s: %s", resp.Status, strings.TrimSpace(string(bodyBytes)))
	}

	var cr chatResponse
	if err := json.Unmarshal(bodyBytes, &cr); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if cr.Error != nil {
		return "", fmt.Errorf("llm server error: %s", cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("no response choices from llm server")
	}
	return cr.Choices[0].Message.Content, nil
}

func (c *Client) setChatHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.LLMAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.LLMAPIKey)
	}
	if c.cfg.LLMReferer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.LLMReferer)
	}
	if c.cfg.LLMTitle != "" {
		req.Header.Set("X-Title", c.cfg.LLMTitle)
	}
}

// post sends body to url, retrying while the server answers 503 or the
// transport fails, up to MaxRetries attempts. The returned response is always
// the last one received and its body is left open.
func (c *Client) post(ctx context.Context, url string, body []byte, headers func(*http.Request)) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.backoffSleep(ctx, attempt-1); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		headers(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			// Do not retry on context cancellation/deadline
			if ctx.Err() != nil {
				break
			}
			c.logger.Warn("LLM request failed", zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}

		if resp.StatusCode == http.StatusServiceUnavailable && attempt+1 < c.cfg.MaxRetries {
			// Model loading; retry with backoff
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			c.logger.Warn("LLM service unavailable, retrying", zap.Int("attempt", attempt+1))
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("no response from %s: %w", url, lastErr)
}

// backoffSleep waits RetryDelay*2^attempt with 10% jitter, or until ctx ends.
func (c *Client) backoffSleep(ctx context.Context, attempt int) error {
	base := c.cfg.RetryDelay
	if base <= 0 {
		base = time.Second
	}
	d := base * time.Duration(1<<attempt)
	jitter := time.Duration(float64(d) * 0.1)
	if jitter > 0 {
		d = d - jitter + time.Duration(rand.Int64N(int64(2*jitter)+1))
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Embed generates an embedding vector for the provided document using the
// llama.cpp-compatible embeddings endpoint.
func (c *Client) Embed(ctx context.Context, host string, doc string) ([]float32, error) {
	vector, err := c.embed(ctx, host, doc)
	if err != nil {
		return nil, apperrors.Mark(err, apperrors.ErrEmbedding)
	}
	return vector, nil
}

func (c *Client) embed(ctx context.Context, host string, doc string) ([]float32, error) {
	jsonBody, err := json.Marshal(embeddingRequest{Content: doc})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	url := fmt.Sprintf("%s/embedding", strings.TrimRight(host, "/"))
	resp, err := c.post(ctx, url, jsonBody, func(req *http.Request) {
		req.Header.Set("Content-Type", "application/json")
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding server status %s: %s", resp.Status, strings.TrimSpace(string(bodyBytes)))
	}

	var er embeddingResponse
	if err := json.Unmarshal(bodyBytes, &er); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(er) == 0 || len(er[0].Embedding) == 0 || len(er[0].Embedding[0]) == 0 {
		return nil, fmt.Errorf("embedding response was empty")
	}
	return er[0].Embedding[0], nil
}
