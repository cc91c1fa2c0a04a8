package deliver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

// Telegram posts messages to a channel via the Bot API.
type Telegram struct {
	client   *http.Client
	baseURL  string
	botToken string
}

// NewTelegram creates a Telegram delivery target.
func NewTelegram(botToken string) *Telegram {
	return &Telegram{
		client:   &http.Client{Timeout: 10 * time.Second},
		baseURL:  telegramAPIBase,
		botToken: botToken,
	}
}

// NewTelegramWithBase creates a target against a custom API base, used in
// tests.
func NewTelegramWithBase(botToken, baseURL string) *Telegram {
	t := NewTelegram(botToken)
	t.baseURL = baseURL
	return t
}

func (t *Telegram) Name() string { return "telegram" }

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Send posts text to the destination chat, as a photo caption when an image
// URL is present.
func (t *Telegram) Send(ctx context.Context, destination, text, imageURL string) error {
	var method string
	payload := map[string]any{"chat_id": destination}

	if imageURL != "" {
		method = "sendPhoto"
		payload["photo"] = imageURL
		payload["caption"] = text
	} else {
		method = "sendMessage"
		payload["text"] = text
		payload["disable_web_page_preview"] = true
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &Error{Kind: ErrPermanent, Err: fmt.Errorf("marshal %s payload: %w", method, err)}
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.botToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &Error{Kind: ErrPermanent, Err: fmt.Errorf("create %s request: %w", method, err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		// Timeouts and connection resets are retryable.
		return &Error{Kind: ErrTransient, Err: fmt.Errorf("%s: %w", method, err)}
	}
	defer resp.Body.Close()

	var apiResp telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return &Error{Kind: ErrTransient, Err: fmt.Errorf("%s: decode response: %w", method, err)}
	}

	switch {
	case apiResp.OK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &Error{
			Kind:       ErrRateLimited,
			RetryAfter: time.Duration(apiResp.Parameters.RetryAfter) * time.Second,
			Err:        fmt.Errorf("%s: %s", method, apiResp.Description),
		}
	case resp.StatusCode >= 500:
		return &Error{Kind: ErrTransient, Err: fmt.Errorf("%s: status %d: %s", method, resp.StatusCode, apiResp.Description)}
	default:
		// 4xx other than 429: the API rejected the request itself
		// (bad chat id, malformed markup). Retrying cannot help.
		return &Error{Kind: ErrPermanent, Err: fmt.Errorf("%s: status %d: %s", method, resp.StatusCode, apiResp.Description)}
	}
}
