package deliver

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Webhook delivers messages to a generic HTTP endpoint, for deployments
// that relay into something other than Telegram.
type Webhook struct {
	client *http.Client
	url    string
	secret string
}

// NewWebhook creates a webhook delivery target.
func NewWebhook(url, secret string) *Webhook {
	return &Webhook{
		client: &http.Client{Timeout: 10 * time.Second},
		url:    url,
		secret: secret,
	}
}

func (w *Webhook) Name() string { return "webhook" }

type webhookPayload struct {
	Destination string    `json:"destination"`
	Text        string    `json:"text"`
	ImageURL    string    `json:"image_url,omitempty"`
	SentAt      time.Time `json:"sent_at"`
}

func (w *Webhook) Send(ctx context.Context, destination, text, imageURL string) error {
	body, err := json.Marshal(webhookPayload{
		Destination: destination,
		Text:        text,
		ImageURL:    imageURL,
		SentAt:      time.Now().UTC(),
	})
	if err != nil {
		return &Error{Kind: ErrPermanent, Err: fmt.Errorf("marshal webhook payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return &Error{Kind: ErrPermanent, Err: fmt.Errorf("create webhook request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	// HMAC signature for verification.
	if w.secret != "" {
		mac := hmac.New(sha256.New, []byte(w.secret))
		mac.Write(body)
		sig := hex.EncodeToString(mac.Sum(nil))
		req.Header.Set("X-Signature-256", "sha256="+sig)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return &Error{Kind: ErrTransient, Err: fmt.Errorf("send webhook: %w", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &Error{Kind: ErrRateLimited, Err: fmt.Errorf("webhook status %d", resp.StatusCode)}
	case resp.StatusCode >= 500:
		return &Error{Kind: ErrTransient, Err: fmt.Errorf("webhook status %d", resp.StatusCode)}
	default:
		return &Error{Kind: ErrPermanent, Err: fmt.Errorf("webhook status %d", resp.StatusCode)}
	}
}
