package chat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"kijko/pkg/logger"

	"go.uber.org/zap"
)

// Message is one turn of conversation context sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var ErrNoAPIKeys = errors.New("chat: no API keys configured")

// Client streams completions from an OpenAI-compatible chat API. It
// owns an ordered API-key list and a mutable failover index: on auth or
// quota failures it advances to the next key and retries, wrapping
// around at most once through the whole list. No other retry policy
// applies; a mid-stream failure surfaces to the caller.
type Client struct {
	endpoint string
	model    string
	http     *http.Client

	mu       sync.Mutex
	keys     []string
	keyIndex int
}

func NewClient(endpoint, model string, apiKeys []string) (*Client, error) {
	if len(apiKeys) == 0 {
		return nil, ErrNoAPIKeys
	}
	return &Client{
		endpoint: endpoint,
		model:    model,
		keys:     apiKeys,
		http:     &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// --- wire types ---

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Stream sends the conversation and returns a channel of text deltas.
// The channel is closed after the terminal stream event, which is the
// caller's signal that the accumulated text is final and safe to
// classify. A nil error from Stream means the request was accepted;
// errors after that point arrive on the second channel.
func (c *Client) Stream(ctx context.Context, messages []Message) (<-chan string, <-chan error, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.3,
		Stream:      true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("chat: marshal request: %w", err)
	}

	resp, err := c.doWithFailover(ctx, body)
	if err != nil {
		return nil, nil, err
	}

	deltas := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(deltas)
		defer close(errs)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "[DONE]" {
				return
			}

			var chunk streamChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				logger.Warn("Skipping malformed stream chunk", zap.Error(err))
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if content := chunk.Choices[0].Delta.Content; content != "" {
				select {
				case deltas <- content:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			errs <- fmt.Errorf("chat: reading stream: %w", err)
		}
	}()

	return deltas, errs, nil
}

// Complete sends the conversation without streaming and returns the
// full assistant reply.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("chat: marshal request: %w", err)
	}

	resp, err := c.doWithFailover(ctx, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("chat: read response: %w", err)
	}

	var parsed struct {
		Choices []struct {
			Message Message `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("chat: unmarshal response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("chat: no choices in response")
	}

	return parsed.Choices[0].Message.Content, nil
}

// doWithFailover tries each API key in order starting from the current
// failover index. Auth and quota statuses advance the index; anything
// else fails immediately.
func (c *Client) doWithFailover(ctx context.Context, body []byte) (*http.Response, error) {
	c.mu.Lock()
	start := c.keyIndex
	total := len(c.keys)
	c.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < total; attempt++ {
		idx := (start + attempt) % total

		c.mu.Lock()
		key := c.keys[idx]
		c.mu.Unlock()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("chat: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+key)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("chat: send request: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			c.mu.Lock()
			c.keyIndex = idx
			c.mu.Unlock()
			return resp, nil
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("chat: status %d: %s", resp.StatusCode, string(respBody))

		if !isKeyFailure(resp.StatusCode) {
			return nil, lastErr
		}

		logger.Warn("Chat API key failed, rotating to next",
			zap.Int("key_index", idx),
			zap.Int("status", resp.StatusCode))
	}

	return nil, fmt.Errorf("chat: all API keys exhausted: %w", lastErr)
}

func isKeyFailure(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	}
	return false
}
