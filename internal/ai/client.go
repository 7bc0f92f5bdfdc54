// Package ai wraps the OpenAI-compatible chat completions endpoint used for
// idea synthesis and grounding.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"marketscan/internal/logger"
)

// ErrRateLimited is returned once the bounded retry budget is exhausted on
// throttling responses.
var ErrRateLimited = errors.New("ai provider rate limited")

// Client is the synthesis-facing contract. Tests substitute a stub.
type Client interface {
	Chat(ctx context.Context, purpose, systemPrompt, userPrompt string) (string, error)
}

// OpenAIClient talks to any /v1/chat/completions compatible endpoint.
type OpenAIClient struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int

	// OnTokens, when set, receives the total token count of each call.
	OnTokens func(n int)
}

func (c *OpenAIClient) Chat(ctx context.Context, purpose, systemPrompt, userPrompt string) (string, error) {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}
	url := strings.TrimRight(c.BaseURL, "/")
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	// tolerate a configured base that already carries the full path
	url = strings.TrimSuffix(url, "/chat/completions") + "/chat/completions"

	messages := []map[string]string{}
	if systemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": systemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": userPrompt})
	body := map[string]any{"model": c.Model, "messages": messages, "temperature": 0.5}
	b, _ := json.Marshal(body)

	logger.LogAIRequest(purpose, systemPrompt, userPrompt, string(b))

	httpc := &http.Client{Timeout: timeout}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt == 0 {
			logger.Debugf("[AI] POST %s model=%s auth=%s purpose=%s", url, c.Model, maskKey(c.APIKey), purpose)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.APIKey != "" {
			req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
		}

		resp, err := httpc.Do(req)
		if err != nil {
			lastErr = err
			break
		}
		if resp.StatusCode/100 == 2 {
			var r struct {
				Choices []struct {
					Message struct {
						Content string `json:"content"`
					} `json:"message"`
				} `json:"choices"`
				Usage struct {
					TotalTokens int `json:"total_tokens"`
				} `json:"usage"`
			}
			derr := json.NewDecoder(resp.Body).Decode(&r)
			resp.Body.Close()
			if derr != nil {
				lastErr = derr
				break
			}
			if len(r.Choices) == 0 {
				lastErr = fmt.Errorf("empty choices")
				break
			}
			if c.OnTokens != nil && r.Usage.TotalTokens > 0 {
				c.OnTokens(r.Usage.TotalTokens)
			}
			out := r.Choices[0].Message.Content
			logger.LogAIResponse(purpose, out)
			return out, nil
		}

		var eresp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&eresp)
		msg := strings.TrimSpace(eresp.Error.Message)
		if msg == "" {
			msg = resp.Status
		}
		retryable := resp.StatusCode == 429 || resp.StatusCode == 500 ||
			resp.StatusCode == 502 || resp.StatusCode == 503 || resp.StatusCode == 504
		if retryable && attempt < maxRetries {
			wait := retryAfter(resp.Header.Get("Retry-After"))
			if wait == 0 {
				wait = (800 * time.Millisecond) << attempt
				if wait > 8*time.Second {
					wait = 8 * time.Second
				}
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status=%d: %s", resp.StatusCode, msg)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == 429 {
			return "", fmt.Errorf("%w: %s", ErrRateLimited, msg)
		}
		lastErr = fmt.Errorf("status=%d: %s", resp.StatusCode, msg)
		break
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("ai call failed")
	}
	return "", lastErr
}

func maskKey(key string) string {
	if key == "" {
		return "none"
	}
	if len(key) > 4 {
		return "****" + key[len(key)-4:]
	}
	return "****"
}

func retryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
