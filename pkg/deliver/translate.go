package deliver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"
)

// Translator converts article text before formatting. Implementations may
// fail or time out; callers fall back to the original text and never block
// delivery on translation.
type Translator interface {
	Translate(ctx context.Context, text, contextHint string) (string, error)
}

// NoopTranslator passes text through unchanged.
type NoopTranslator struct{}

func (NoopTranslator) Translate(_ context.Context, text, _ string) (string, error) {
	return text, nil
}

const translateSystemPrompt = `You are a professional translator specializing in financial and cryptocurrency news. Translate the given text into Arabic using correct Arabic financial terminology, preserving the economic meaning, and producing natural text for an Arabic reader. Reply with the translation only, no explanations.`

const translateMaxRunes = 1000

// ChatTranslator translates via an OpenAI-compatible chat completions
// endpoint (Groq, OpenAI).
type ChatTranslator struct {
	client  *http.Client
	baseURL string
	model   string
	apiKey  string
}

// NewChatTranslator creates a translator against the given API base.
func NewChatTranslator(baseURL, model, apiKey string) *ChatTranslator {
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	return &ChatTranslator{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
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

// Translate sends the text for Arabic translation. Text that is already
// Arabic is returned as-is without a network call.
func (t *ChatTranslator) Translate(ctx context.Context, text, contextHint string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" || IsArabic(text) {
		return text, nil
	}
	if runes := []rune(text); len(runes) > translateMaxRunes {
		text = string(runes[:translateMaxRunes]) + "..."
	}

	reqBody := chatRequest{
		Model: t.model,
		Messages: []chatMessage{
			{Role: "system", Content: translateSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Translate this %s text:\n\n%s", contextHint, text)},
		},
		Temperature: 0.3,
		MaxTokens:   1024,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal translate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create translate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call translate api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate api status %d", resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode translate response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("translate api returned no choices")
	}

	out := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if out == "" {
		return "", fmt.Errorf("translate api returned empty text")
	}
	return out, nil
}

// IsArabic reports whether the text is predominantly Arabic script.
func IsArabic(text string) bool {
	var arabic, letters int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Arabic, r) {
			arabic++
		}
	}
	return letters > 0 && arabic*2 > letters
}
