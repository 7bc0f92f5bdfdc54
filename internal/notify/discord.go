package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"marketscan/internal/logger"
)

// Sender delivers a batch of embeds. The console implementation backs
// dry runs and webhook-less configs.
type Sender interface {
	Send(ctx context.Context, embeds ...Embed) error
}

// DiscordSender posts embeds to a webhook with a global rate budget and a
// bounded retry loop that honors Retry-After on throttling.
type DiscordSender struct {
	WebhookURL  string
	Username    string
	MaxAttempts int

	limiter *rate.Limiter
	httpc   *http.Client
	sleep   func(time.Duration)
}

func NewDiscordSender(webhookURL, username string, maxAttempts, ratePerMinute int) *DiscordSender {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	if ratePerMinute < 1 {
		ratePerMinute = 30
	}
	interval := time.Minute / time.Duration(ratePerMinute)
	return &DiscordSender{
		WebhookURL:  webhookURL,
		Username:    username,
		MaxAttempts: maxAttempts,
		limiter:     rate.NewLimiter(rate.Every(interval), 1),
		httpc:       &http.Client{Timeout: 10 * time.Second},
		sleep:       time.Sleep,
	}
}

func (s *DiscordSender) Send(ctx context.Context, embeds ...Embed) error {
	if len(embeds) == 0 {
		return nil
	}
	if strings.TrimSpace(s.WebhookURL) == "" {
		return fmt.Errorf("webhook url not configured")
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	payload := webhookPayload{Username: s.Username, Embeds: embeds}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding webhook payload failed: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= s.MaxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpc.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		status := resp.StatusCode
		retryHeader := resp.Header.Get("Retry-After")
		resp.Body.Close()

		if status == http.StatusNoContent || status/100 == 2 {
			return nil
		}
		if status == http.StatusTooManyRequests && attempt < s.MaxAttempts {
			wait := retryAfterDelay(retryHeader, attempt)
			logger.Warnf("[notify] webhook throttled, retrying in %s (attempt %d/%d)", wait, attempt, s.MaxAttempts)
			s.sleep(wait)
			lastErr = fmt.Errorf("status=429")
			continue
		}
		lastErr = fmt.Errorf("status=%d", status)
		break
	}
	return fmt.Errorf("webhook delivery failed: %w", lastErr)
}

func retryAfterDelay(header string, attempt int) time.Duration {
	header = strings.TrimSpace(header)
	if header != "" {
		// Discord sends fractional seconds
		if secs, err := strconv.ParseFloat(header, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	wait := time.Second << (attempt - 1)
	if wait > 8*time.Second {
		wait = 8 * time.Second
	}
	return wait
}

// ConsoleSender logs embeds instead of delivering them.
type ConsoleSender struct{}

func (ConsoleSender) Send(_ context.Context, embeds ...Embed) error {
	for _, e := range embeds {
		logger.Infof("[notify] %s: %s", e.Title, e.Description)
		for _, f := range e.Fields {
			logger.Infof("[notify]   %s: %s", f.Name, f.Value)
		}
	}
	return nil
}
