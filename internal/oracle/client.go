// Package oracle wraps an OpenAI-compatible chat completions endpoint. The
// llm decision policy and the sentiment analyst go through it; every
// round-trip can be mirrored to the transcript log for later review.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"alphadesk/internal/config"
	"alphadesk/internal/logger"
)

// ChatClient talks to a /v1/chat/completions endpoint. 429 and 5xx replies
// are retried with Retry-After support and capped exponential backoff.
type ChatClient struct {
	BaseURL      string
	APIKey       string
	Model        string
	Timeout      time.Duration
	MaxRetries   int
	ExtraHeaders map[string]string
	DumpPayload  bool
}

func NewChatClient(cfg config.OracleConfig, dumpPayload bool) *ChatClient {
	return &ChatClient{
		BaseURL:      cfg.APIURL,
		APIKey:       cfg.APIKey,
		Model:        cfg.Model,
		Timeout:      time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxRetries:   cfg.MaxRetries,
		ExtraHeaders: cfg.Headers,
		DumpPayload:  dumpPayload,
	}
}

// Complete sends one system+user exchange and returns the assistant content.
// purpose tags the transcript entry so mixed-use logs stay readable.
func (c *ChatClient) Complete(ctx context.Context, purpose, systemPrompt, userPrompt string) (string, error) {
	if c.Timeout <= 0 {
		c.Timeout = 120 * time.Second
	}
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}
	url := chatCompletionsURL(c.BaseURL)

	messages := []map[string]string{}
	if systemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": systemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": userPrompt})
	body, _ := json.Marshal(map[string]any{
		"model":       c.Model,
		"messages":    messages,
		"temperature": 0.5,
	})

	logger.LogOracleRequest(c.Model, purpose, systemPrompt, userPrompt)
	if c.DumpPayload {
		logger.Debugf("[oracle] POST %s headers=%v body=%s", url, c.maskedHeaders(), string(body))
	}

	httpc := &http.Client{Timeout: c.Timeout}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.APIKey)
		}
		for k, v := range c.ExtraHeaders {
			req.Header.Set(k, v)
		}

		resp, err := httpc.Do(req)
		if err != nil {
			return "", err
		}
		if resp.StatusCode/100 == 2 {
			var r struct {
				Choices []struct {
					Message struct {
						Content string `json:"content"`
					} `json:"message"`
				} `json:"choices"`
			}
			derr := json.NewDecoder(resp.Body).Decode(&r)
			resp.Body.Close()
			if derr != nil {
				return "", derr
			}
			if len(r.Choices) == 0 {
				return "", fmt.Errorf("oracle returned empty choices")
			}
			content := r.Choices[0].Message.Content
			logger.LogOracleResponse(c.Model, purpose, content)
			return content, nil
		}

		var eresp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&eresp)
		retryAfter := resp.Header.Get("Retry-After")
		resp.Body.Close()

		msg := strings.TrimSpace(eresp.Error.Message)
		if msg == "" {
			msg = resp.Status
		}
		lastErr = fmt.Errorf("oracle status=%d: %s", resp.StatusCode, msg)
		if !retryableStatus(resp.StatusCode) || attempt >= maxRetries {
			break
		}
		wait := backoff(attempt, retryAfter)
		logger.Warnf("[oracle] %v, retrying in %s (attempt %d/%d)", lastErr, wait, attempt+1, maxRetries)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

func chatCompletionsURL(base string) string {
	url := strings.TrimRight(base, "/")
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	// Tolerate configs that already carry the full path.
	url = strings.TrimSuffix(url, "/chat/completions")
	return url + "/chat/completions"
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func backoff(attempt int, retryAfter string) time.Duration {
	if retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	wait := 800 * time.Millisecond << attempt
	if wait > 8*time.Second {
		wait = 8 * time.Second
	}
	return wait
}

func (c *ChatClient) maskedHeaders() map[string]string {
	out := map[string]string{"Content-Type": "application/json"}
	if c.APIKey != "" {
		out["Authorization"] = "Bearer ****" + tail(c.APIKey)
	}
	for k, v := range c.ExtraHeaders {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "key") || strings.Contains(lk, "token") || strings.Contains(lk, "auth") {
			v = "****" + tail(v)
		}
		out[k] = v
	}
	return out
}

func tail(s string) string {
	if len(s) > 4 {
		return s[len(s)-4:]
	}
	return s
}
